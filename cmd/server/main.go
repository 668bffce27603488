// Package main is the entry point for the fincore API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fincore/internal/core/config"
	"fincore/internal/core/id"
	"fincore/internal/core/types"
	"fincore/internal/domain/catalogs/account"
	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/domain/discount"
	"fincore/internal/domain/documents/invoice"
	"fincore/internal/domain/documents/payment"
	"fincore/internal/domain/journal"
	"fincore/internal/domain/reports"
	"fincore/internal/domain/valuation"
	"fincore/internal/domain/vat"
	v1 "fincore/internal/infrastructure/http/v1"
	"fincore/internal/infrastructure/http/v1/middleware"
	"fincore/internal/infrastructure/storage/postgres"
	"fincore/internal/infrastructure/storage/postgres/catalog_repo"
	"fincore/internal/infrastructure/storage/postgres/document_repo"
	"fincore/pkg/logger"
	"fincore/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting fincore server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	customerRepo := catalog_repo.NewCustomerRepo(txManager)
	accountRepo := catalog_repo.NewAccountRepo(txManager)
	stockRepo := catalog_repo.NewStockItemRepo(txManager)
	invoiceRepo := document_repo.NewInvoiceRepo(txManager)
	paymentRepo := document_repo.NewPaymentRepo(txManager)
	journalRepo := document_repo.NewJournalRepo(txManager)

	// --- Engines ---
	vatEngine := vat.NewEngine(vat.NewRateTable(map[vat.Code]types.Money{
		vat.CodeStandard: types.MustMoney(getEnv("VAT_STANDARD_RATE", "20")),
		vat.CodeReduced:  types.MustMoney(getEnv("VAT_REDUCED_RATE", "5")),
		vat.CodeZero:     types.Zero(),
		vat.CodeExempt:   types.Zero(),
	}))
	discountEngine := discount.NewEngine(discount.DefaultLimitTable())
	valEngine := valuation.NewEngine()

	numeratorService := numerator.New(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to create audit store", "error", err)
	}

	settings := config.Settings{
		ForceCreditLimit:   getEnvBool("FORCE_CREDIT_LIMIT", true),
		AllowNegativeStock: getEnvBool("ALLOW_NEGATIVE_STOCK", false),
	}

	// --- Services ---
	journalService := journal.NewService(journalRepo, accountRepo, numeratorService, txManager).
		WithAudit(auditStore)

	invoiceService := invoice.NewService(
		invoiceRepo, customerRepo, stockRepo,
		vatEngine, discountEngine, valEngine,
		numeratorService, txManager, settings,
	).WithAudit(auditStore)
	if accounts, ok := glAccountsFromEnv(ctx, accountRepo); ok {
		invoiceService = invoiceService.WithGLPreparation(journalService, accounts)
		log.Info("invoice GL preparation enabled")
	}

	paymentService := payment.NewService(
		paymentRepo, invoiceRepo, customerRepo,
		discountEngine, numeratorService, txManager,
	).WithAudit(auditStore)
	stockService := stockitem.NewService(stockRepo, valEngine, txManager)
	reportsService := reports.NewService(
		journalRepo, accountRepo, invoiceRepo, customerRepo, stockRepo, valEngine,
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool.Pool,
		Logger:         log,
		TokenValidator: middleware.NewJWTValidator(mustEnv("JWT_SECRET")),
		Audit:          auditStore,
		Invoices:       invoiceService,
		Payments:       paymentService,
		Journals:       journalService,
		Reports:        reportsService,
		StockSvc:       stockService,
		Customers:      customerRepo,
		Accounts:       accountRepo,
		Stock:          stockRepo,
	})

	// --- HTTP server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("forced shutdown", "error", err)
	}
	log.Info("server stopped")
}

// glAccountsFromEnv resolves the GL posting accounts by code. GL
// preparation stays off until all three are configured and present.
func glAccountsFromEnv(ctx context.Context, accounts account.Repository) (invoice.GLAccounts, bool) {
	debtorsCode := os.Getenv("GL_DEBTORS_ACCOUNT")
	salesCode := os.Getenv("GL_SALES_ACCOUNT")
	vatCode := os.Getenv("GL_VAT_OUTPUT_ACCOUNT")
	if debtorsCode == "" || salesCode == "" || vatCode == "" {
		return invoice.GLAccounts{}, false
	}

	var gl invoice.GLAccounts
	for _, target := range []struct {
		code string
		dst  *id.ID
	}{
		{debtorsCode, &gl.Debtors},
		{salesCode, &gl.Sales},
		{vatCode, &gl.VATOutput},
	} {
		acct, err := accounts.GetByCode(ctx, target.code)
		if err != nil {
			logger.Warn(ctx, "GL account not found, GL preparation disabled", "code", target.code)
			return invoice.GLAccounts{}, false
		}
		*target.dst = acct.ID
	}
	return gl, true
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		fmt.Printf("required environment variable %s is not set\n", key)
		os.Exit(1)
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
