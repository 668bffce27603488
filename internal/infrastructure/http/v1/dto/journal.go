package dto

import (
	"time"

	"fincore/internal/domain/journal"
)

// JournalLineRequest is one debit or credit leg.
type JournalLineRequest struct {
	AccountID   string `json:"accountId" binding:"required"`
	Description string `json:"description,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
}

// CreateJournalRequest creates a pending journal entry.
type CreateJournalRequest struct {
	Date         time.Time            `json:"date" binding:"required"`
	Description  string               `json:"description,omitempty"`
	SourceModule string               `json:"sourceModule,omitempty"`
	Lines        []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ToEntity converts the payload into a pending entry. Account codes are
// filled in by the service from the chart of accounts.
func (r *CreateJournalRequest) ToEntity() (*journal.Entry, error) {
	sourceModule := r.SourceModule
	if sourceModule == "" {
		sourceModule = "MANUAL"
	}

	entry := journal.NewEntry(r.Date, r.Description, sourceModule)
	for _, line := range r.Lines {
		accountID, err := ParseID("accountId", line.AccountID)
		if err != nil {
			return nil, err
		}
		debit, err := ParseMoney("debit", line.Debit)
		if err != nil {
			return nil, err
		}
		credit, err := ParseMoney("credit", line.Credit)
		if err != nil {
			return nil, err
		}
		entry.AddLine(accountID, "", line.Description, debit, credit)
	}
	return entry, nil
}

// ReverseJournalRequest reverses a posted entry with an audit reason.
type ReverseJournalRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListJournalsQuery filters the journal list endpoint.
type ListJournalsQuery struct {
	Status       string     `form:"status"`
	SourceModule string     `form:"sourceModule"`
	DateFrom     *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo       *time.Time `form:"dateTo" time_format:"2006-01-02"`
	Limit        int        `form:"limit,default=50" binding:"min=0,max=500"`
	Offset       int        `form:"offset" binding:"min=0"`
}

// ToFilter converts query parameters into the repository filter.
func (q *ListJournalsQuery) ToFilter() journal.ListFilter {
	filter := journal.ListFilter{
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Status != "" {
		status := journal.Status(q.Status)
		filter.Status = &status
	}
	if q.SourceModule != "" {
		filter.SourceModule = &q.SourceModule
	}
	return filter
}
