package dto

import (
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/domain/catalogs/account"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/domain/valuation"
)

// --- Customer ---

// CreateCustomerRequest creates a sales-ledger customer.
type CreateCustomerRequest struct {
	Code                 string `json:"code" binding:"required"`
	Name                 string `json:"name" binding:"required"`
	CreditLimit          string `json:"creditLimit,omitempty"`
	SettlementDays       int    `json:"settlementDays,omitempty"`
	SettlementPct        string `json:"settlementPct,omitempty"`
	TradeDiscountPct     string `json:"tradeDiscountPct,omitempty"`
	AllowPartialShipment bool   `json:"allowPartialShipment,omitempty"`
	CashSale             bool   `json:"cashSale,omitempty"`
}

// ToEntity converts the payload into a customer.
func (r *CreateCustomerRequest) ToEntity() (*customer.Customer, error) {
	c := customer.NewCustomer(r.Code, r.Name)
	c.SettlementDays = r.SettlementDays
	c.AllowPartialShipment = r.AllowPartialShipment
	c.CashSale = r.CashSale

	var err error
	if c.CreditLimit, err = ParseMoney("creditLimit", r.CreditLimit); err != nil {
		return nil, err
	}
	if c.SettlementPct, err = ParseMoney("settlementPct", r.SettlementPct); err != nil {
		return nil, err
	}
	if c.TradeDiscountPct, err = ParseMoney("tradeDiscountPct", r.TradeDiscountPct); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCustomerRequest patches customer fields. Balance and turnover are
// maintained by the invoice and payment pipelines, never set directly.
type UpdateCustomerRequest struct {
	Name                 *string `json:"name,omitempty"`
	Active               *bool   `json:"active,omitempty"`
	OnHold               *bool   `json:"onHold,omitempty"`
	CreditLimit          *string `json:"creditLimit,omitempty"`
	SettlementDays       *int    `json:"settlementDays,omitempty"`
	SettlementPct        *string `json:"settlementPct,omitempty"`
	TradeDiscountPct     *string `json:"tradeDiscountPct,omitempty"`
	AllowPartialShipment *bool   `json:"allowPartialShipment,omitempty"`
	CashSale             *bool   `json:"cashSale,omitempty"`
}

// ApplyTo applies the patch to an existing customer.
func (r *UpdateCustomerRequest) ApplyTo(c *customer.Customer) error {
	if r.Name != nil {
		c.Name = *r.Name
	}
	if r.Active != nil {
		c.Active = *r.Active
	}
	if r.OnHold != nil {
		c.OnHold = *r.OnHold
	}
	if r.CreditLimit != nil {
		limit, err := ParseMoney("creditLimit", *r.CreditLimit)
		if err != nil {
			return err
		}
		c.CreditLimit = limit
	}
	if r.SettlementDays != nil {
		c.SettlementDays = *r.SettlementDays
	}
	if r.SettlementPct != nil {
		pct, err := ParseMoney("settlementPct", *r.SettlementPct)
		if err != nil {
			return err
		}
		c.SettlementPct = pct
	}
	if r.TradeDiscountPct != nil {
		pct, err := ParseMoney("tradeDiscountPct", *r.TradeDiscountPct)
		if err != nil {
			return err
		}
		c.TradeDiscountPct = pct
	}
	if r.AllowPartialShipment != nil {
		c.AllowPartialShipment = *r.AllowPartialShipment
	}
	if r.CashSale != nil {
		c.CashSale = *r.CashSale
	}
	return nil
}

// --- Account ---

// CreateAccountRequest creates a chart-of-accounts entry.
type CreateAccountRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Type         string `json:"type" binding:"required"`
	AllowPosting *bool  `json:"allowPosting,omitempty"`
}

// ToEntity converts the payload into an account.
func (r *CreateAccountRequest) ToEntity() *account.Account {
	a := account.NewAccount(r.Code, r.Name, account.Type(r.Type))
	if r.AllowPosting != nil {
		a.AllowPosting = *r.AllowPosting
	}
	return a
}

// --- Stock item ---

// CreateStockItemRequest creates a stock-controlled item.
type CreateStockItemRequest struct {
	Code            string `json:"code" binding:"required"`
	Description     string `json:"description" binding:"required"`
	Category        string `json:"category,omitempty"`
	ValuationMethod string `json:"valuationMethod,omitempty"`
	StandardCost    string `json:"standardCost,omitempty"`
	UnitPrice       string `json:"unitPrice,omitempty"`
}

// ToEntity converts the payload into a stock item.
func (r *CreateStockItemRequest) ToEntity() (*stockitem.StockItem, error) {
	item := stockitem.NewStockItem(r.Code, r.Description)
	item.Category = r.Category
	if r.ValuationMethod != "" {
		item.ValuationMethod = valuation.Method(r.ValuationMethod)
	}

	var err error
	if item.StandardCost, err = ParseMoney("standardCost", r.StandardCost); err != nil {
		return nil, err
	}
	if item.UnitPrice, err = ParseMoney("unitPrice", r.UnitPrice); err != nil {
		return nil, err
	}
	return item, nil
}

// StockReceiptRequest books a goods receipt into stock.
type StockReceiptRequest struct {
	Quantity  string     `json:"quantity" binding:"required"`
	UnitCost  string     `json:"unitCost" binding:"required"`
	Reference string     `json:"reference,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
}

// ToServiceRequest converts the payload into the domain request.
func (r *StockReceiptRequest) ToServiceRequest(itemID string) (stockitem.ReceiptRequest, error) {
	var req stockitem.ReceiptRequest

	parsedID, err := ParseID("stockItemId", itemID)
	if err != nil {
		return req, err
	}
	req.StockItemID = parsedID
	req.Reference = r.Reference
	if r.Date != nil {
		req.Date = *r.Date
	}

	if req.Quantity, err = ParseMoney("quantity", r.Quantity); err != nil {
		return req, err
	}
	if req.UnitCost, err = ParseMoney("unitCost", r.UnitCost); err != nil {
		return req, err
	}
	if !req.Quantity.IsPositive() {
		return req, apperror.NewValidation("receipt quantity must be positive").
			WithDetail("field", "quantity")
	}
	return req, nil
}

// ListQuery is shared pagination for catalog lists.
type ListQuery struct {
	Limit  int `form:"limit,default=50" binding:"min=0,max=500"`
	Offset int `form:"offset" binding:"min=0"`
}
