// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"fincore/internal/domain/audit"
	"fincore/internal/domain/catalogs/account"
	"fincore/internal/domain/catalogs/customer"
	"fincore/internal/domain/catalogs/stockitem"
	"fincore/internal/domain/documents/invoice"
	"fincore/internal/domain/documents/payment"
	"fincore/internal/domain/journal"
	"fincore/internal/domain/reports"
	"fincore/internal/infrastructure/http/v1/handlers"
	"fincore/internal/infrastructure/http/v1/middleware"
	"fincore/pkg/logger"
)

// RouterConfig holds everything the router serves.
type RouterConfig struct {
	Pool   *pgxpool.Pool
	Logger *logger.Logger

	TokenValidator middleware.TokenValidator
	Audit          audit.Recorder

	Invoices  *invoice.Service
	Payments  *payment.Service
	Journals  *journal.Service
	Reports   *reports.Service
	StockSvc  *stockitem.Service
	Customers customer.Repository
	Accounts  account.Repository
	Stock     stockitem.Repository
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	base := handlers.NewBaseHandler()

	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.Auth(cfg.TokenValidator))

	// Catalogs
	customerHandler := handlers.NewCustomerHandler(base, cfg.Customers, cfg.Audit)
	customers := apiV1.Group("/customers")
	{
		customers.POST("", customerHandler.Create)
		customers.GET("", customerHandler.List)
		customers.GET("/:id", customerHandler.Get)
		customers.PATCH("/:id", customerHandler.Update)
	}

	accountHandler := handlers.NewAccountHandler(base, cfg.Accounts)
	accounts := apiV1.Group("/accounts")
	{
		accounts.POST("", accountHandler.Create)
		accounts.GET("", accountHandler.List)
		accounts.GET("/:id", accountHandler.Get)
	}

	stockHandler := handlers.NewStockItemHandler(base, cfg.Stock, cfg.StockSvc)
	stockItems := apiV1.Group("/stock-items")
	{
		stockItems.POST("", stockHandler.Create)
		stockItems.GET("", stockHandler.List)
		stockItems.GET("/:id", stockHandler.Get)
		stockItems.GET("/:id/lots", stockHandler.Lots)
		stockItems.POST("/:id/receipts", stockHandler.Receive)
	}

	// Documents
	invoiceHandler := handlers.NewInvoiceHandler(base, cfg.Invoices)
	invoices := apiV1.Group("/invoices")
	{
		invoices.POST("", invoiceHandler.Generate)
		invoices.GET("", invoiceHandler.List)
		invoices.GET("/:id", invoiceHandler.Get)
		invoices.POST("/:id/cancel", invoiceHandler.Cancel)
	}

	paymentHandler := handlers.NewPaymentHandler(base, cfg.Payments)
	payments := apiV1.Group("/payments")
	{
		payments.POST("", paymentHandler.Create)
		payments.GET("", paymentHandler.List)
		payments.GET("/:id", paymentHandler.Get)
		payments.POST("/:id/allocations", paymentHandler.Allocate)
		payments.POST("/:id/reverse", paymentHandler.Reverse)
		payments.POST("/auto-allocate", paymentHandler.AutoAllocate)
	}

	// Journal
	journalHandler := handlers.NewJournalHandler(base, cfg.Journals)
	journals := apiV1.Group("/journals")
	{
		journals.POST("", journalHandler.Create)
		journals.GET("", journalHandler.List)
		journals.GET("/:id", journalHandler.Get)
		journals.POST("/:id/post", journalHandler.Post)
		journals.POST("/:id/reverse", journalHandler.Reverse)
	}

	// Reports
	reportsHandler := handlers.NewReportsHandler(base, cfg.Reports)
	reportsGroup := apiV1.Group("/reports")
	{
		reportsGroup.GET("/trial-balance", reportsHandler.TrialBalance)
		reportsGroup.GET("/aged-debt", reportsHandler.AgedDebt)
		reportsGroup.GET("/stock-valuation", reportsHandler.StockValuation)
	}

	return router
}
