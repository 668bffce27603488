package invoice

import (
	"context"
	"fmt"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/config"
	"fincore/internal/core/id"
	"fincore/internal/core/security"
	"fincore/internal/core/tx"
	"fincore/internal/core/types"
	"fincore/internal/domain/audit"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/domain/discount"
	"fincore/internal/domain/journal"
	"fincore/internal/domain/valuation"
	"fincore/internal/domain/vat"
	"fincore/pkg/logger"
	"fincore/pkg/numerator"
)

// GLAccounts names the ledger accounts an invoice posts to when GL
// preparation is requested.
type GLAccounts struct {
	Debtors   id.ID
	Sales     id.ID
	VATOutput id.ID
}

// LineRequest is one requested invoice line. A nil DiscountPct means the
// customer's default trade discount applies; a set value overrides it.
type LineRequest struct {
	StockItemID *id.ID
	Description string
	Quantity    types.Money
	UnitPrice   types.Money
	DiscountPct *types.Money
	VATCode     vat.Code
}

// GenerateRequest is the full input to invoice generation.
type GenerateRequest struct {
	CustomerID        id.ID
	Date              time.Time
	Lines             []LineRequest
	HeaderDiscountPct types.Money
	ExtraCharges      types.Money
	Shipping          types.Money
	ReverseCharge     bool
	PrepareGL         bool
}

// Service orchestrates invoice generation end to end: customer checks,
// line pricing, stock availability with back-order splitting, VAT and
// discount math, the credit-limit gate, and the transactional write-back.
type Service struct {
	repo      Repository
	customers customer.Repository
	stock     stockitem.Repository

	vatEngine      *vat.Engine
	discountEngine *discount.Engine
	valEngine      *valuation.Engine

	numerator *numerator.Service
	txManager tx.Manager
	settings  config.Settings

	// journals and glAccounts are optional: when both are set, each
	// generated invoice also creates a pending journal entry.
	journals   *journal.Service
	glAccounts *GLAccounts

	// audits is optional; when set, every generated and cancelled
	// invoice leaves an audit trail record.
	audits audit.Recorder
}

// NewService creates an invoice service.
func NewService(
	repo Repository,
	customers customer.Repository,
	stock stockitem.Repository,
	vatEngine *vat.Engine,
	discountEngine *discount.Engine,
	valEngine *valuation.Engine,
	num *numerator.Service,
	txManager tx.Manager,
	settings config.Settings,
) *Service {
	return &Service{
		repo:           repo,
		customers:      customers,
		stock:          stock,
		vatEngine:      vatEngine,
		discountEngine: discountEngine,
		valEngine:      valEngine,
		numerator:      num,
		txManager:      txManager,
		settings:       settings,
	}
}

// WithGLPreparation wires the optional journal leg: generated invoices
// create a pending entry debiting debtors and crediting sales and VAT.
func (s *Service) WithGLPreparation(journals *journal.Service, accounts GLAccounts) *Service {
	s.journals = journals
	s.glAccounts = &accounts
	return s
}

// WithAudit wires the audit trail recorder.
func (s *Service) WithAudit(rec audit.Recorder) *Service {
	s.audits = rec
	return s
}

// auditSnapshot captures the invoice fields tracked in the audit trail.
func auditSnapshot(inv *Invoice) map[string]any {
	return map[string]any{
		"number":     inv.Number,
		"status":     string(inv.Status),
		"customer":   inv.CustomerCode,
		"netTotal":   inv.NetTotal,
		"vatTotal":   inv.VATTotal,
		"grossTotal": inv.GrossTotal,
		"balance":    inv.Balance,
		"amountPaid": inv.AmountPaid,
		"isPaid":     inv.IsPaid,
	}
}

func (s *Service) recordAudit(ctx context.Context, inv *Invoice, action audit.Action, before map[string]any) {
	if s.audits == nil {
		return
	}
	rec := audit.NewRecord("invoice", inv.ID, action,
		audit.Changes(before, auditSnapshot(inv)), security.GetUserID(ctx))
	_ = s.audits.Record(ctx, rec)
}

// processedLine pairs a priced invoice line with the quantity that still
// needs back-ordering.
type processedLine struct {
	line         Line
	backOrdered  types.Money
	backOrderReq LineRequest
}

// Generate runs the full invoice pipeline. Any failure before the persist
// transaction leaves no side effects, with one deliberate exception: the
// invoice number counter is incremented up front and never rolled back, so
// failed generations leave gaps in the number stream rather than risking a
// duplicate number under concurrency.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Invoice, error) {
	cust, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !cust.Active {
		return nil, apperror.NewBusinessRule(apperror.CodeCustomerInactive,
			fmt.Sprintf("Customer %s is inactive", cust.Code)).
			WithDetail("customer", cust.Code)
	}
	if cust.OnHold {
		return nil, apperror.NewBusinessRule(apperror.CodeCustomerOnHold,
			fmt.Sprintf("Customer %s is on hold", cust.Code)).
			WithDetail("customer", cust.Code)
	}
	if len(req.Lines) == 0 {
		return nil, apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	inv := NewInvoice(cust.ID, cust.Code, req.Date)
	inv.HeaderDiscountPct = req.HeaderDiscountPct
	inv.ExtraCharges = req.ExtraCharges
	inv.Shipping = req.Shipping
	inv.CreatedBy = security.GetUserID(ctx)

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("INV"), nil, req.Date)
	if err != nil {
		return nil, fmt.Errorf("generate invoice number: %w", err)
	}
	inv.Number = number

	processed, err := s.processLines(ctx, inv, cust, req)
	if err != nil {
		return nil, err
	}

	s.applyHeaderDiscount(ctx, inv, req)
	s.addCharges(ctx, inv, req)
	inv.GrossTotal = inv.NetTotal.Add(inv.VATTotal)
	inv.Balance = inv.GrossTotal

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.persist(ctx, inv, cust, processed); err != nil {
			return err
		}
		if req.PrepareGL {
			if err := s.prepareGL(ctx, inv); err != nil {
				return err
			}
		}
		s.recordAudit(ctx, inv, audit.ActionInsert, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice generated",
		"number", inv.Number,
		"customer", cust.Code,
		"gross", inv.GrossTotal.String(),
		"lines", len(inv.Lines),
		"back_orders", len(inv.BackOrders),
	)
	return inv, nil
}

// processLines prices every requested line, splitting short stock into a
// shipment and a back-order per the customer's partial-shipment setting.
// Lines see available stock in caller order: earlier lines consume
// availability before later ones.
func (s *Service) processLines(ctx context.Context, inv *Invoice, cust *customer.Customer, req GenerateRequest) ([]processedLine, error) {
	userLevel := security.GetUserLevel(ctx)
	var processed []processedLine

	// Availability claimed by earlier lines of this invoice, per item.
	claimed := make(map[id.ID]types.Money)

	for _, lr := range req.Lines {
		if !lr.Quantity.IsPositive() {
			return nil, apperror.NewValidation("line quantity must be positive").
				WithDetail("field", "lines")
		}

		shipQty := lr.Quantity
		backOrderQty := types.Zero()
		var stockCode string

		if lr.StockItemID != nil {
			item, err := s.stock.GetByID(ctx, *lr.StockItemID)
			if err != nil {
				return nil, err
			}
			stockCode = item.Code

			available := item.Available().Sub(claimed[item.ID])
			if available.IsNegative() {
				available = types.Zero()
			}

			if lr.Quantity.GreaterThan(available) {
				if cust.AllowPartialShipment && available.IsPositive() {
					shipQty = available
					backOrderQty = lr.Quantity.Sub(available)
				} else {
					shipQty = types.Zero()
					backOrderQty = lr.Quantity
				}
			}
			claimed[item.ID] = claimed[item.ID].Add(shipQty)
		}

		if !shipQty.IsPositive() {
			// Fully back-ordered: nothing written to the invoice itself.
			processed = append(processed, processedLine{
				backOrdered:  backOrderQty,
				backOrderReq: lr,
			})
			continue
		}

		discountPct := cust.TradeDiscountPct
		if lr.DiscountPct != nil {
			discountPct = *lr.DiscountPct
		}
		if err := s.discountEngine.ValidateLimits(discountPct, discount.TypeTrade, userLevel); err != nil {
			return nil, err
		}

		gross := shipQty.Mul(lr.UnitPrice)
		discountAmount, net := s.discountEngine.TradeDiscount(gross, discountPct)
		net = types.RoundMoney(net)

		calc := s.vatEngine.Calculate(ctx, net, lr.VATCode, &req.Date, req.ReverseCharge)

		line := Line{
			LineID:         id.New(),
			LineNo:         len(inv.Lines) + 1,
			StockItemID:    lr.StockItemID,
			StockCode:      stockCode,
			Description:    lr.Description,
			Quantity:       shipQty,
			UnitPrice:      lr.UnitPrice,
			DiscountPct:    discountPct,
			DiscountAmount: discountAmount,
			NetAmount:      net,
			VATCode:        lr.VATCode,
			VATRate:        calc.Rate,
			VATAmount:      calc.VAT,
		}
		inv.Lines = append(inv.Lines, line)

		totals := inv.VATBreakdown[lr.VATCode]
		totals.Net = totals.Net.Add(net)
		totals.VAT = totals.VAT.Add(calc.VAT)
		inv.VATBreakdown[lr.VATCode] = totals

		inv.NetTotal = inv.NetTotal.Add(net)
		inv.VATTotal = inv.VATTotal.Add(calc.VAT)

		processed = append(processed, processedLine{
			line:         line,
			backOrdered:  backOrderQty,
			backOrderReq: lr,
		})
	}

	return processed, nil
}

// applyHeaderDiscount reduces each VAT-code bucket's net by the header
// percentage and re-derives that bucket's VAT from the reduced net. This
// is a proportional approximation over the buckets, not a per-line
// recompute; lines keep their original amounts.
func (s *Service) applyHeaderDiscount(ctx context.Context, inv *Invoice, req GenerateRequest) {
	if !req.HeaderDiscountPct.IsPositive() {
		return
	}

	netTotal, vatTotal := types.Zero(), types.Zero()
	discountTotal := types.Zero()

	for code, totals := range inv.VATBreakdown {
		newNet := types.RoundMoney(totals.Net.Sub(types.Percent(totals.Net, req.HeaderDiscountPct)))
		calc := s.vatEngine.Calculate(ctx, newNet, code, &req.Date, req.ReverseCharge)

		discountTotal = discountTotal.Add(totals.Net.Sub(newNet))
		inv.VATBreakdown[code] = vat.CodeTotals{Net: newNet, VAT: calc.VAT}
		netTotal = netTotal.Add(newNet)
		vatTotal = vatTotal.Add(calc.VAT)
	}

	inv.HeaderDiscountAmount = discountTotal
	inv.NetTotal = netTotal
	inv.VATTotal = vatTotal
}

// addCharges adds extra charges and shipping, both STANDARD-rated
// unconditionally and exempt from the header discount.
func (s *Service) addCharges(ctx context.Context, inv *Invoice, req GenerateRequest) {
	for _, charge := range []types.Money{req.ExtraCharges, req.Shipping} {
		if !charge.IsPositive() {
			continue
		}
		calc := s.vatEngine.Calculate(ctx, charge, vat.CodeStandard, &req.Date, req.ReverseCharge)

		totals := inv.VATBreakdown[vat.CodeStandard]
		totals.Net = totals.Net.Add(charge)
		totals.VAT = totals.VAT.Add(calc.VAT)
		inv.VATBreakdown[vat.CodeStandard] = totals

		inv.NetTotal = inv.NetTotal.Add(charge)
		inv.VATTotal = inv.VATTotal.Add(calc.VAT)
	}
}

// checkCreditLimit rejects the invoice when it would push the customer
// past the credit limit. Cash sales bypass the gate, as does switching the
// force toggle off. The caller must hold the customer's row lock: the
// gate is only safe against the balance that cannot change until the
// increment commits with it.
func (s *Service) checkCreditLimit(cust *customer.Customer, inv *Invoice) error {
	if !s.settings.ForceCreditLimit || cust.CashSale {
		return nil
	}
	if cust.Balance.Add(inv.GrossTotal).GreaterThan(cust.CreditLimit) {
		return apperror.NewCreditLimitExceeded(
			cust.Code,
			cust.Balance.String(),
			inv.GrossTotal.String(),
			cust.CreditLimit.String(),
		)
	}
	return nil
}

// persist writes header and lines, decrements stock under row locks,
// updates the customer balance and turnover, and records back-orders.
// Runs inside the caller's transaction: any error unwinds everything.
// The customer row is locked first so the credit gate sees a balance no
// concurrent generation can move before this one commits.
func (s *Service) persist(ctx context.Context, inv *Invoice, cust *customer.Customer, processed []processedLine) error {
	locked, err := s.customers.GetForUpdate(ctx, cust.ID)
	if err != nil {
		return err
	}
	if err := s.checkCreditLimit(locked, inv); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	if err := s.repo.SaveLines(ctx, inv.ID, inv.Lines); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}

	for _, p := range processed {
		if p.line.StockItemID != nil && p.line.Quantity.IsPositive() {
			if err := s.issueStock(ctx, p.line); err != nil {
				return err
			}
		}
		if p.backOrdered.IsPositive() && p.backOrderReq.StockItemID != nil {
			if err := s.createBackOrder(ctx, inv, p); err != nil {
				return err
			}
		}
	}

	locked.Balance = locked.Balance.Add(inv.GrossTotal)
	locked.AddTurnover(int(inv.Date.Month()), inv.NetTotal)
	locked.Touch()
	if err := s.customers.Update(ctx, locked); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	return nil
}

// issueStock locks the item, costs the issue per its valuation method and
// writes back the new quantity and value.
func (s *Service) issueStock(ctx context.Context, line Line) error {
	item, err := s.stock.GetForUpdate(ctx, *line.StockItemID)
	if err != nil {
		return err
	}

	newOnHand := item.QuantityOnHand.Sub(line.Quantity)
	if newOnHand.IsNegative() && !s.settings.AllowNegativeStock {
		return apperror.NewInsufficientStock(
			item.Code,
			line.Quantity.String(),
			item.QuantityOnHand.String(),
		)
	}

	var state valuation.State
	switch item.ValuationMethod {
	case valuation.MethodFIFO, valuation.MethodLIFO:
		cost, _, err := s.consumeLots(ctx, item, line.Quantity)
		if err != nil {
			return err
		}
		state = s.valEngine.ApplyIssueCost(ctx, line.Quantity, cost, item.ValuationState())
	default:
		unitCost := item.AverageCost
		if item.ValuationMethod == valuation.MethodStandard {
			unitCost = item.StandardCost
		}
		state = s.valEngine.ProcessMovement(ctx, valuation.Movement{
			Type:     valuation.MovementIssue,
			Quantity: line.Quantity,
			UnitCost: unitCost,
		}, item.ValuationState(), item.ValuationMethod)
	}
	item.ApplyValuationState(state)
	item.Touch()

	if err := s.stock.Update(ctx, item); err != nil {
		return fmt.Errorf("update stock item %s: %w", item.Code, err)
	}
	return nil
}

// consumeLots costs a FIFO/LIFO issue from the item's open lots and
// persists each consumed lot's new remaining quantity.
func (s *Service) consumeLots(ctx context.Context, item *stockitem.StockItem, qty types.Money) (cost, covered types.Money, err error) {
	stockLots, err := s.stock.GetOpenLots(ctx, item.ID)
	if err != nil {
		return types.Zero(), types.Zero(), err
	}

	lots := make([]valuation.Lot, len(stockLots))
	for i, l := range stockLots {
		lots[i] = l.ToValuationLot()
	}

	remaining := make(map[id.ID]*valuation.Lot, len(lots))
	for i := range lots {
		remaining[lots[i].ID] = &lots[i]
	}

	var breakdown []valuation.Consumption
	if item.ValuationMethod == valuation.MethodLIFO {
		cost, covered, breakdown = s.valEngine.LIFOCost(lots, qty)
	} else {
		cost, covered, breakdown = s.valEngine.FIFOCost(lots, qty)
	}

	for _, c := range breakdown {
		if err := s.stock.UpdateLotRemaining(ctx, c.LotID, remaining[c.LotID].Remaining); err != nil {
			return types.Zero(), types.Zero(), fmt.Errorf("update lot: %w", err)
		}
	}
	return cost, covered, nil
}

func (s *Service) createBackOrder(ctx context.Context, inv *Invoice, p processedLine) error {
	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("BO"),
		&numerator.Options{Strategy: numerator.StrategyCached}, inv.Date)
	if err != nil {
		return fmt.Errorf("generate back-order number: %w", err)
	}

	bo := &BackOrder{
		ID:          id.New(),
		Number:      number,
		InvoiceID:   inv.ID,
		CustomerID:  inv.CustomerID,
		StockItemID: *p.backOrderReq.StockItemID,
		StockCode:   p.line.StockCode,
		Quantity:    p.backOrdered,
		UnitPrice:   p.backOrderReq.UnitPrice,
		CreatedAt:   time.Now().UTC(),
	}
	if bo.StockCode == "" {
		item, err := s.stock.GetByID(ctx, bo.StockItemID)
		if err == nil {
			bo.StockCode = item.Code
		}
	}
	if err := s.repo.CreateBackOrder(ctx, bo); err != nil {
		return fmt.Errorf("create back-order: %w", err)
	}
	inv.BackOrders = append(inv.BackOrders, *bo)

	logger.Info(ctx, "back-order raised",
		"number", bo.Number, "invoice", inv.Number,
		"stock", bo.StockCode, "quantity", bo.Quantity.String())
	return nil
}

// prepareGL creates the pending sales journal entry for the invoice:
// debit debtors control for gross, credit sales for net, credit VAT
// output for the tax.
func (s *Service) prepareGL(ctx context.Context, inv *Invoice) error {
	if s.journals == nil || s.glAccounts == nil {
		return nil
	}

	entry := journal.NewEntry(inv.Date, fmt.Sprintf("Sales invoice %s", inv.Number), "SALES")
	entry.AddLine(s.glAccounts.Debtors, "", inv.CustomerCode, inv.GrossTotal, types.Zero())
	entry.AddLine(s.glAccounts.Sales, "", inv.Number, types.Zero(), inv.NetTotal)
	if inv.VATTotal.IsPositive() {
		entry.AddLine(s.glAccounts.VATOutput, "", inv.Number, types.Zero(), inv.VATTotal)
	}

	if err := s.journals.Create(ctx, entry); err != nil {
		return fmt.Errorf("prepare gl entry: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice with lines and back-orders.
func (s *Service) GetByID(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.Lines, err = s.repo.GetLines(ctx, invoiceID); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	if inv.BackOrders, err = s.repo.GetBackOrders(ctx, invoiceID); err != nil {
		return nil, fmt.Errorf("get back-orders: %w", err)
	}
	return inv, nil
}

// List retrieves invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	return s.repo.List(ctx, filter)
}

// Cancel voids an unpaid invoice pre-shipment: stock quantities and the
// customer balance are restored and the invoice becomes CANCELLED.
// Invoices with payments against them must be settled through payment
// reversal instead.
func (s *Service) Cancel(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if inv.Status == StatusCancelled {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"Invoice is already cancelled").WithDetail("invoice", inv.Number)
	}
	if inv.AmountPaid.IsPositive() {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"Invoice has payments allocated; reverse them first").
			WithDetail("invoice", inv.Number).
			WithDetail("amount_paid", inv.AmountPaid.String())
	}

	before := auditSnapshot(inv)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Customer before stock, the same lock order persist takes.
		locked, err := s.customers.GetForUpdate(ctx, inv.CustomerID)
		if err != nil {
			return err
		}

		for _, line := range inv.Lines {
			if line.StockItemID == nil {
				continue
			}
			item, err := s.stock.GetForUpdate(ctx, *line.StockItemID)
			if err != nil {
				return err
			}
			state := s.valEngine.ProcessMovement(ctx, valuation.Movement{
				Type:     valuation.MovementReceipt,
				Quantity: line.Quantity,
				UnitCost: item.LastCost,
			}, item.ValuationState(), item.ValuationMethod)
			item.ApplyValuationState(state)
			item.Touch()
			if err := s.stock.Update(ctx, item); err != nil {
				return fmt.Errorf("restore stock item %s: %w", item.Code, err)
			}
		}

		locked.Balance = locked.Balance.Sub(inv.GrossTotal)
		locked.AddTurnover(int(inv.Date.Month()), inv.NetTotal.Neg())
		locked.Touch()
		if err := s.customers.Update(ctx, locked); err != nil {
			return fmt.Errorf("update customer: %w", err)
		}

		inv.Status = StatusCancelled
		inv.Balance = types.Zero()
		inv.Touch()
		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}
		s.recordAudit(ctx, inv, audit.ActionUpdate, before)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice cancelled", "number", inv.Number)
	return inv, nil
}
