// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"fincore/internal/core/apperror"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
)

// IDResponse returns created entity ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps list results.
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// ParseID parses an entity id, returning a field-tagged validation error.
func ParseID(field, value string) (id.ID, error) {
	parsed, err := id.Parse(value)
	if err != nil {
		return id.Nil(), apperror.NewValidation("invalid id").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}

// ParseMoney parses a decimal string, returning a field-tagged validation
// error. Empty input parses as zero so optional amounts can be omitted.
func ParseMoney(field, value string) (types.Money, error) {
	if value == "" {
		return types.Zero(), nil
	}
	parsed, err := types.NewMoneyFromString(value)
	if err != nil {
		return types.Zero(), apperror.NewValidation("invalid decimal value").
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return parsed, nil
}
