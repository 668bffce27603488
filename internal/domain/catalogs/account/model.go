// Package account provides the general-ledger chart of accounts.
package account

import (
	"context"

	"fincore/internal/core/apperror"
	"fincore/internal/core/entity"
	"fincore/internal/core/id"
)

// Type classifies a GL account.
type Type string

const (
	TypeAsset     Type = "ASSET"
	TypeLiability Type = "LIABILITY"
	TypeIncome    Type = "INCOME"
	TypeExpense   Type = "EXPENSE"
	TypeCapital   Type = "CAPITAL"
)

// Account is one entry in the chart of accounts.
type Account struct {
	entity.BaseEntity

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Type Type   `db:"type" json:"type"`

	// AllowPosting is false for header/summary accounts, which exist for
	// reporting structure only and reject journal lines.
	AllowPosting bool `db:"allow_posting" json:"allowPosting"`

	Active bool `db:"active" json:"active"`
}

// NewAccount creates an active, postable account.
func NewAccount(code, name string, accountType Type) *Account {
	return &Account{
		BaseEntity:   entity.NewBaseEntity(),
		Code:         code,
		Name:         name,
		Type:         accountType,
		AllowPosting: true,
		Active:       true,
	}
}

// Validate implements entity.Validatable.
func (a *Account) Validate(ctx context.Context) error {
	if a.Code == "" {
		return apperror.NewValidation("account code is required").
			WithDetail("field", "code")
	}
	if a.Name == "" {
		return apperror.NewValidation("account name is required").
			WithDetail("field", "name")
	}
	switch a.Type {
	case TypeAsset, TypeLiability, TypeIncome, TypeExpense, TypeCapital:
	default:
		return apperror.NewValidation("unknown account type").
			WithDetail("field", "type").
			WithDetail("value", string(a.Type))
	}
	return nil
}

// Repository defines persistence operations for accounts.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, accountID id.ID) (*Account, error)
	GetByCode(ctx context.Context, code string) (*Account, error)
	Update(ctx context.Context, a *Account) error
	List(ctx context.Context, limit, offset int) ([]*Account, error)
}
