package dto

import "time"

// TrialBalanceQuery bounds the trial balance period.
type TrialBalanceQuery struct {
	From time.Time `form:"from" time_format:"2006-01-02" binding:"required"`
	To   time.Time `form:"to" time_format:"2006-01-02" binding:"required"`
}

// AgedDebtQuery sets the as-of date; defaults to today.
type AgedDebtQuery struct {
	AsOf *time.Time `form:"asOf" time_format:"2006-01-02"`
}

// StockValuationQuery configures the stock valuation report.
type StockValuationQuery struct {
	AsOf             *time.Time `form:"asOf" time_format:"2006-01-02"`
	IncludeZeroStock bool       `form:"includeZeroStock"`
}
