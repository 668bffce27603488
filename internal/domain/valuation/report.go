package valuation

import (
	"time"

	"fincore/internal/core/types"
)

// ReportItem is one stock item's costing snapshot fed into a report.
type ReportItem struct {
	Code           string
	Description    string
	Category       string
	Method         Method
	QuantityOnHand types.Money
	AverageCost    types.Money
	StandardCost   types.Money
	LastCost       types.Money
	// StockValue is the running value maintained by movement processing.
	// FIFO/LIFO items are reported from this figure rather than
	// recomputed from lot history — recomputation at report time was
	// measured too expensive for large item files.
	StockValue types.Money
}

// ReportLine is one valued item in the report detail.
type ReportLine struct {
	Code           string      `json:"code"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	Method         Method      `json:"method"`
	QuantityOnHand types.Money `json:"quantityOnHand"`
	UnitCost       types.Money `json:"unitCost"`
	Value          types.Money `json:"value"`
}

// Report aggregates a valuation run.
type Report struct {
	AsOfDate    time.Time              `json:"asOfDate"`
	TotalValue  types.Money            `json:"totalValue"`
	ItemCount   int                    `json:"itemCount"`
	ByCategory  map[string]types.Money `json:"byCategory"`
	Lines       []ReportLine           `json:"lines"`
	SkippedZero int                    `json:"skippedZero"`
}

// ValuationReport values every item by its declared method and aggregates
// totals with per-category subtotals. Zero-stock items are skipped unless
// includeZeroStock is set.
func (e *Engine) ValuationReport(items []ReportItem, asOfDate time.Time, includeZeroStock bool) Report {
	report := Report{
		AsOfDate:   asOfDate,
		TotalValue: types.Zero(),
		ByCategory: make(map[string]types.Money),
	}

	for _, item := range items {
		if item.QuantityOnHand.IsZero() && !includeZeroStock {
			report.SkippedZero++
			continue
		}

		var unitCost, value types.Money
		switch item.Method {
		case MethodAverage:
			unitCost = item.AverageCost
			value = types.RoundMoney(item.QuantityOnHand.Mul(item.AverageCost))
		case MethodStandard:
			unitCost = item.StandardCost
			value = types.RoundMoney(item.QuantityOnHand.Mul(item.StandardCost))
		case MethodReplacement:
			unitCost = item.LastCost
			value = types.RoundMoney(item.QuantityOnHand.Mul(item.LastCost))
		default: // FIFO, LIFO
			unitCost = types.RoundRate(types.SafeDiv(item.StockValue, item.QuantityOnHand))
			value = types.RoundMoney(item.StockValue)
		}

		report.Lines = append(report.Lines, ReportLine{
			Code:           item.Code,
			Description:    item.Description,
			Category:       item.Category,
			Method:         item.Method,
			QuantityOnHand: item.QuantityOnHand,
			UnitCost:       unitCost,
			Value:          value,
		})

		cat := item.Category
		if cat == "" {
			cat = "UNCATEGORISED"
		}
		report.ByCategory[cat] = report.ByCategory[cat].Add(value)
		report.TotalValue = report.TotalValue.Add(value)
		report.ItemCount++
	}

	return report
}
