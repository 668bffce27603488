package document_repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/domain/documents/invoice"
	"fincore/internal/domain/vat"
	"fincore/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable     = "doc_invoices"
	invoiceLinesTable = "doc_invoice_lines"
	backOrdersTable   = "doc_back_orders"
)

var _ invoice.Repository = (*InvoiceRepo)(nil)

// InvoiceRepo implements invoice.Repository. The per-VAT-code breakdown
// is stored as a JSONB projection alongside the header columns.
type InvoiceRepo struct {
	*BaseDocumentRepo[*invoice.Invoice]
}

// NewInvoiceRepo creates a new invoice repository.
func NewInvoiceRepo(txManager *postgres.TxManager) *InvoiceRepo {
	cols := postgres.ExtractDBColumns[invoice.Invoice]()
	cols = append(cols, "vat_breakdown")
	return &InvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			invoicesTable,
			cols,
			func() *invoice.Invoice { return &invoice.Invoice{} },
		),
	}
}

func breakdownJSON(inv *invoice.Invoice) (map[string]any, error) {
	payload, err := json.Marshal(inv.VATBreakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal vat breakdown: %w", err)
	}
	return map[string]any{"vat_breakdown": payload}, nil
}

func (r *InvoiceRepo) Create(ctx context.Context, inv *invoice.Invoice) error {
	extra, err := breakdownJSON(inv)
	if err != nil {
		return err
	}
	return r.insertHeader(ctx, inv, extra)
}

func (r *InvoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	extra, err := breakdownJSON(inv)
	if err != nil {
		return err
	}
	return r.updateHeader(ctx, inv, extra)
}

func (r *InvoiceRepo) GetByID(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.get(ctx, squirrel.Eq{"id": invoiceID}, invoiceID.String(), false)
}

func (r *InvoiceRepo) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return r.get(ctx, squirrel.Eq{"number": number}, number, false)
}

func (r *InvoiceRepo) GetForUpdate(ctx context.Context, invoiceID id.ID) (*invoice.Invoice, error) {
	return r.get(ctx, squirrel.Eq{"id": invoiceID}, invoiceID.String(), true)
}

// invoiceRow carries the header plus the JSONB breakdown column that the
// domain model keeps as a map.
type invoiceRow struct {
	invoice.Invoice
	VATBreakdownRaw []byte `db:"vat_breakdown"`
}

func (r *InvoiceRepo) get(ctx context.Context, where squirrel.Eq, ref string, forUpdate bool) (*invoice.Invoice, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(invoicesTable).
		Where(where).
		Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row invoiceRow
	if err := pgxscan.Get(ctx, r.querier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(invoicesTable, ref)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return rowToInvoice(&row)
}

func rowToInvoice(row *invoiceRow) (*invoice.Invoice, error) {
	inv := row.Invoice
	inv.VATBreakdown = make(map[vat.Code]vat.CodeTotals)
	if len(row.VATBreakdownRaw) > 0 {
		if err := json.Unmarshal(row.VATBreakdownRaw, &inv.VATBreakdown); err != nil {
			return nil, fmt.Errorf("unmarshal vat breakdown: %w", err)
		}
	}
	return &inv, nil
}

func (r *InvoiceRepo) GetLines(ctx context.Context, invoiceID id.ID) ([]invoice.Line, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[invoice.Line]()...).
		From(invoiceLinesTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []invoice.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

func (r *InvoiceRepo) SaveLines(ctx context.Context, invoiceID id.ID, lines []invoice.Line) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + invoiceLinesTable + " WHERE invoice_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, invoiceID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(invoiceLinesTable).
		Columns(
			"line_id", "invoice_id", "line_no", "stock_item_id", "stock_code",
			"description", "quantity", "unit_price",
			"discount_pct", "discount_amount", "net_amount",
			"vat_code", "vat_rate", "vat_amount",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, invoiceID, line.LineNo, line.StockItemID, line.StockCode,
			line.Description, line.Quantity, line.UnitPrice,
			line.DiscountPct, line.DiscountAmount, line.NetAmount,
			line.VATCode, line.VATRate, line.VATAmount,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) CreateBackOrder(ctx context.Context, bo *invoice.BackOrder) error {
	q := r.Builder().
		Insert(backOrdersTable).
		SetMap(postgres.StructToMap(bo))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert back-order: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert back-order: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) GetBackOrders(ctx context.Context, invoiceID id.ID) ([]invoice.BackOrder, error) {
	q := r.Builder().
		Select(postgres.ExtractDBColumns[invoice.BackOrder]()...).
		From(backOrdersTable).
		Where(squirrel.Eq{"invoice_id": invoiceID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var orders []invoice.BackOrder
	if err := pgxscan.Select(ctx, r.querier(ctx), &orders, sql, args...); err != nil {
		return nil, fmt.Errorf("get back-orders: %w", err)
	}
	return orders, nil
}

func (r *InvoiceRepo) List(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(invoicesTable).
		OrderBy("date DESC", "number DESC")

	if filter.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.IsPaid != nil {
		q = q.Where(squirrel.Eq{"is_paid": *filter.IsPaid})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	return r.selectRows(ctx, q)
}

// ListUnpaidByCustomer returns open unpaid invoices oldest-first, the
// order the auto-allocation sweep settles them in.
func (r *InvoiceRepo) ListUnpaidByCustomer(ctx context.Context, customerID id.ID) ([]*invoice.Invoice, error) {
	q := r.Builder().
		Select(r.selectCols...).
		From(invoicesTable).
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(squirrel.Eq{"status": invoice.StatusOpen}).
		Where(squirrel.Eq{"is_paid": false}).
		OrderBy("date", "number")

	return r.selectRows(ctx, q)
}

func (r *InvoiceRepo) selectRows(ctx context.Context, q squirrel.SelectBuilder) ([]*invoice.Invoice, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*invoiceRow
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	invoices := make([]*invoice.Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := rowToInvoice(row)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}
