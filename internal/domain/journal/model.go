// Package journal provides double-entry journal entries with posting and
// reversal.
package journal

import (
	"context"
	"time"

	"fincore/internal/core/apperror"
	"fincore/internal/core/entity"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPosted  Status = "POSTED"
)

// EntryType distinguishes normal entries from reversals.
type EntryType string

const (
	EntryNormal   EntryType = "NORMAL"
	EntryReversal EntryType = "REVERSAL"
)

// Line is one debit or credit leg of an entry. Exactly one side carries
// an amount; the other is zero.
type Line struct {
	LineID      id.ID       `db:"line_id" json:"lineId"`
	LineNo      int         `db:"line_no" json:"lineNo"`
	AccountID   id.ID       `db:"account_id" json:"accountId"`
	AccountCode string      `db:"account_code" json:"accountCode"`
	Description string      `db:"description" json:"description,omitempty"`
	Debit       types.Money `db:"debit" json:"debit"`
	Credit      types.Money `db:"credit" json:"credit"`
}

// Entry is a journal entry header with its lines.
type Entry struct {
	entity.BaseDocument

	Number      string    `db:"number" json:"number"`
	Date        time.Time `db:"date" json:"date"`
	Description string    `db:"description" json:"description,omitempty"`

	Status Status    `db:"status" json:"status"`
	Type   EntryType `db:"type" json:"type"`

	// SourceModule names the subsystem that raised the entry (SALES,
	// CASH, STOCK, MANUAL).
	SourceModule string `db:"source_module" json:"sourceModule,omitempty"`

	// OriginalJournalID links a REVERSAL entry to the entry it reverses.
	// The original entry itself is never mutated.
	OriginalJournalID *id.ID `db:"original_journal_id" json:"originalJournalId,omitempty"`

	PostedAt *time.Time `db:"posted_at" json:"postedAt,omitempty"`
	PostedBy string     `db:"posted_by" json:"postedBy,omitempty"`

	TotalDebit  types.Money `db:"total_debit" json:"totalDebit"`
	TotalCredit types.Money `db:"total_credit" json:"totalCredit"`

	Lines []Line `db:"-" json:"lines"`
}

// NewEntry creates a pending entry for the given business date.
func NewEntry(date time.Time, description, sourceModule string) *Entry {
	return &Entry{
		BaseDocument: entity.NewBaseDocument(),
		Date:         date,
		Description:  description,
		Status:       StatusPending,
		Type:         EntryNormal,
		SourceModule: sourceModule,
		TotalDebit:   types.Zero(),
		TotalCredit:  types.Zero(),
	}
}

// AddLine appends a debit/credit leg and keeps running totals.
func (e *Entry) AddLine(accountID id.ID, accountCode, description string, debit, credit types.Money) {
	e.Lines = append(e.Lines, Line{
		LineID:      id.New(),
		LineNo:      len(e.Lines) + 1,
		AccountID:   accountID,
		AccountCode: accountCode,
		Description: description,
		Debit:       debit,
		Credit:      credit,
	})
	e.TotalDebit = e.TotalDebit.Add(debit)
	e.TotalCredit = e.TotalCredit.Add(credit)
}

// Validate implements entity.Validatable. Balance is checked with exact
// equality and zero tolerance: monetary rounding must already have
// normalized line amounts before an entry reaches this point.
func (e *Entry) Validate(ctx context.Context) error {
	if e.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	if len(e.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	totalDebit, totalCredit := types.Zero(), types.Zero()
	for i, line := range e.Lines {
		if id.IsNil(line.AccountID) {
			return apperror.NewValidation("account is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return apperror.NewValidation("line amounts cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return apperror.NewValidation("line cannot carry both debit and credit").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if !totalDebit.Equal(totalCredit) {
		return apperror.NewUnbalancedEntry(totalDebit.String(), totalCredit.String())
	}

	return nil
}

// IsPosted reports whether the entry has reached its terminal POSTED state.
func (e *Entry) IsPosted() bool {
	return e.Status == StatusPosted
}

// MarkPosted records the irreversible transition to POSTED.
func (e *Entry) MarkPosted(postedBy string, at time.Time) {
	e.Status = StatusPosted
	e.PostedAt = &at
	e.PostedBy = postedBy
	e.Touch()
}
