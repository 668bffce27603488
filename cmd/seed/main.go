// Package main provides a CLI tool for seeding the database with the
// chart of accounts, sequence counters and optional demo data.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"fincore/internal/core/types"
	"fincore/internal/domain/catalogs/account"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/domain/valuation"
	"fincore/internal/infrastructure/storage/postgres"
	"fincore/internal/infrastructure/storage/postgres/catalog_repo"
	"fincore/pkg/logger"
	"fincore/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)
	accounts := catalog_repo.NewAccountRepo(txManager)

	if err := seedChartOfAccounts(ctx, accounts, log); err != nil {
		log.Fatalw("failed to seed chart of accounts", "error", err)
	}

	if err := seedSequences(ctx, txManager, log); err != nil {
		log.Fatalw("failed to seed sequences", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		customers := catalog_repo.NewCustomerRepo(txManager)
		stock := catalog_repo.NewStockItemRepo(txManager)
		if err := seedDemoData(ctx, customers, stock, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedChartOfAccounts creates the base posting structure. Existing codes
// are left untouched so reruns are safe.
func seedChartOfAccounts(ctx context.Context, accounts account.Repository, log *logger.Logger) error {
	seed := []struct {
		code         string
		name         string
		accountType  account.Type
		allowPosting bool
	}{
		{"1000", "Trade Debtors", account.TypeAsset, true},
		{"1200", "Stock", account.TypeAsset, true},
		{"1900", "Current Assets", account.TypeAsset, false},
		{"2100", "VAT Output", account.TypeLiability, true},
		{"2900", "Current Liabilities", account.TypeLiability, false},
		{"4000", "Sales", account.TypeIncome, true},
		{"4100", "Settlement Discounts Given", account.TypeExpense, true},
		{"5000", "Cost of Sales", account.TypeExpense, true},
	}

	for _, s := range seed {
		if _, err := accounts.GetByCode(ctx, s.code); err == nil {
			continue
		}
		acct := account.NewAccount(s.code, s.name, s.accountType)
		acct.AllowPosting = s.allowPosting
		if err := accounts.Create(ctx, acct); err != nil {
			return fmt.Errorf("create account %s: %w", s.code, err)
		}
		log.Infow("account created", "code", s.code, "name", s.name)
	}
	return nil
}

// seedSequences positions the document number counters. Seeds come from
// SEQ_INV / SEQ_PAY / SEQ_JNL / SEQ_BO; unset prefixes start at 1.
func seedSequences(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	num := numerator.New(numerator.Static(txManager.GetQuerier(ctx)))
	now := time.Now().UTC()

	for _, prefix := range []string{"INV", "PAY", "JNL", "BO"} {
		raw := os.Getenv("SEQ_" + prefix)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse SEQ_%s: %w", prefix, err)
		}
		if err := num.SetNextNumber(ctx, numerator.DefaultConfig(prefix), now, value); err != nil {
			return fmt.Errorf("seed sequence %s: %w", prefix, err)
		}
		log.Infow("sequence seeded", "prefix", prefix, "next", value)
	}
	return nil
}

func seedDemoData(ctx context.Context, customers customer.Repository, stock stockitem.Repository, log *logger.Logger) error {
	if _, err := customers.GetByCode(ctx, "DEMO01"); err != nil {
		cust := customer.NewCustomer("DEMO01", "Demo Trading Ltd")
		cust.CreditLimit = types.MustMoney("10000.00")
		cust.SettlementDays = 10
		cust.SettlementPct = types.MustMoney("2.5")
		cust.TradeDiscountPct = types.MustMoney("5")
		cust.AllowPartialShipment = true
		if err := customers.Create(ctx, cust); err != nil {
			return fmt.Errorf("create demo customer: %w", err)
		}
		log.Infow("demo customer created", "code", cust.Code)
	}

	demoItems := []struct {
		code        string
		description string
		method      valuation.Method
		price       string
	}{
		{"WIDGET", "Standard widget", valuation.MethodAverage, "12.50"},
		{"GADGET", "Premium gadget", valuation.MethodFIFO, "49.99"},
	}
	for _, d := range demoItems {
		if _, err := stock.GetByCode(ctx, d.code); err == nil {
			continue
		}
		item := stockitem.NewStockItem(d.code, d.description)
		item.ValuationMethod = d.method
		item.UnitPrice = types.MustMoney(d.price)
		if err := stock.Create(ctx, item); err != nil {
			return fmt.Errorf("create demo item %s: %w", d.code, err)
		}
		log.Infow("demo stock item created", "code", d.code)
	}
	return nil
}
