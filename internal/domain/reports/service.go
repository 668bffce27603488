// Package reports builds read-only aggregations over posted journals,
// open invoices and the stock file: trial balance, aged debt and the
// stock valuation report.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fincore/internal/core/types"
	"fincore/internal/domain/catalogs/account"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/domain/documents/invoice"
	"fincore/internal/domain/journal"
	"fincore/internal/domain/valuation"
)

// TrialBalanceLine is one account's aggregated postings.
type TrialBalanceLine struct {
	AccountCode string      `json:"accountCode"`
	AccountName string      `json:"accountName"`
	AccountType string      `json:"accountType"`
	TotalDebit  types.Money `json:"totalDebit"`
	TotalCredit types.Money `json:"totalCredit"`
}

// TrialBalance checks that total debits equal total credits across all
// posting accounts for a period.
type TrialBalance struct {
	From         time.Time          `json:"from"`
	To           time.Time          `json:"to"`
	Lines        []TrialBalanceLine `json:"lines"`
	TotalDebits  types.Money        `json:"totalDebits"`
	TotalCredits types.Money        `json:"totalCredits"`
	Balanced     bool               `json:"balanced"`
}

// AgedDebtLine is one customer's open debt split into age buckets
// measured from invoice date.
type AgedDebtLine struct {
	CustomerCode string      `json:"customerCode"`
	CustomerName string      `json:"customerName"`
	Current      types.Money `json:"current"`    // 0-30 days
	Days31to60   types.Money `json:"days31to60"` // 31-60
	Days61to90   types.Money `json:"days61to90"` // 61-90
	Over90       types.Money `json:"over90"`
	Total        types.Money `json:"total"`
}

// AgedDebt is the aged debtors summary.
type AgedDebt struct {
	AsOf  time.Time      `json:"asOf"`
	Lines []AgedDebtLine `json:"lines"`
	Total types.Money    `json:"total"`
}

// Service builds reports. All operations are read-only.
type Service struct {
	journals  journal.Repository
	accounts  account.Repository
	invoices  invoice.Repository
	customers customer.Repository
	stock     stockitem.Repository
	valEngine *valuation.Engine
}

// NewService creates a reports service.
func NewService(
	journals journal.Repository,
	accounts account.Repository,
	invoices invoice.Repository,
	customers customer.Repository,
	stock stockitem.Repository,
	valEngine *valuation.Engine,
) *Service {
	return &Service{
		journals:  journals,
		accounts:  accounts,
		invoices:  invoices,
		customers: customers,
		stock:     stock,
		valEngine: valEngine,
	}
}

// TrialBalance aggregates posted journal lines per account for a period.
// Pending entries never appear: only POSTED movements are ledger fact.
func (s *Service) TrialBalance(ctx context.Context, from, to time.Time) (*TrialBalance, error) {
	posted := journal.StatusPosted
	entries, err := s.journals.List(ctx, journal.ListFilter{
		Status:   &posted,
		DateFrom: &from,
		DateTo:   &to,
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	type acc struct {
		debit, credit types.Money
	}
	perAccount := make(map[string]*acc)

	tb := &TrialBalance{
		From:         from,
		To:           to,
		TotalDebits:  types.Zero(),
		TotalCredits: types.Zero(),
	}

	for _, entry := range entries {
		lines, err := s.journals.GetLines(ctx, entry.ID)
		if err != nil {
			return nil, fmt.Errorf("get lines for %s: %w", entry.Number, err)
		}
		for _, line := range lines {
			a, ok := perAccount[line.AccountCode]
			if !ok {
				a = &acc{debit: types.Zero(), credit: types.Zero()}
				perAccount[line.AccountCode] = a
			}
			a.debit = a.debit.Add(line.Debit)
			a.credit = a.credit.Add(line.Credit)
			tb.TotalDebits = tb.TotalDebits.Add(line.Debit)
			tb.TotalCredits = tb.TotalCredits.Add(line.Credit)
		}
	}

	codes := make([]string, 0, len(perAccount))
	for code := range perAccount {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		line := TrialBalanceLine{
			AccountCode: code,
			TotalDebit:  perAccount[code].debit,
			TotalCredit: perAccount[code].credit,
		}
		if acct, err := s.accounts.GetByCode(ctx, code); err == nil {
			line.AccountName = acct.Name
			line.AccountType = string(acct.Type)
		}
		tb.Lines = append(tb.Lines, line)
	}

	tb.Balanced = tb.TotalDebits.Equal(tb.TotalCredits)
	return tb, nil
}

// AgedDebt buckets every open invoice balance by age at the as-of date.
func (s *Service) AgedDebt(ctx context.Context, asOf time.Time) (*AgedDebt, error) {
	unpaid := false
	open := invoice.StatusOpen
	invoices, err := s.invoices.List(ctx, invoice.ListFilter{IsPaid: &unpaid, Status: &open})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	perCustomer := make(map[string]*AgedDebtLine)
	report := &AgedDebt{AsOf: asOf, Total: types.Zero()}

	for _, inv := range invoices {
		if !inv.Balance.IsPositive() || inv.Date.After(asOf) {
			continue
		}

		line, ok := perCustomer[inv.CustomerCode]
		if !ok {
			line = &AgedDebtLine{
				CustomerCode: inv.CustomerCode,
				Current:      types.Zero(),
				Days31to60:   types.Zero(),
				Days61to90:   types.Zero(),
				Over90:       types.Zero(),
				Total:        types.Zero(),
			}
			if cust, err := s.customers.GetByCode(ctx, inv.CustomerCode); err == nil {
				line.CustomerName = cust.Name
			}
			perCustomer[inv.CustomerCode] = line
		}

		days := int(asOf.Sub(inv.Date).Hours() / 24)
		switch {
		case days <= 30:
			line.Current = line.Current.Add(inv.Balance)
		case days <= 60:
			line.Days31to60 = line.Days31to60.Add(inv.Balance)
		case days <= 90:
			line.Days61to90 = line.Days61to90.Add(inv.Balance)
		default:
			line.Over90 = line.Over90.Add(inv.Balance)
		}
		line.Total = line.Total.Add(inv.Balance)
		report.Total = report.Total.Add(inv.Balance)
	}

	codes := make([]string, 0, len(perCustomer))
	for code := range perCustomer {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		report.Lines = append(report.Lines, *perCustomer[code])
	}

	return report, nil
}

// StockValuation values the whole item file by each item's declared
// costing method.
func (s *Service) StockValuation(ctx context.Context, asOf time.Time, includeZeroStock bool) (*valuation.Report, error) {
	items, err := s.stock.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}

	reportItems := make([]valuation.ReportItem, 0, len(items))
	for _, item := range items {
		reportItems = append(reportItems, valuation.ReportItem{
			Code:           item.Code,
			Description:    item.Description,
			Category:       item.Category,
			Method:         item.ValuationMethod,
			QuantityOnHand: item.QuantityOnHand,
			AverageCost:    item.AverageCost,
			StandardCost:   item.StandardCost,
			LastCost:       item.LastCost,
			StockValue:     item.StockValue,
		})
	}

	report := s.valEngine.ValuationReport(reportItems, asOf, includeZeroStock)
	return &report, nil
}
