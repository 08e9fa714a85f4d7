// Package http assembles handlers and middleware into the service's two
// surfaces: the API-key-authenticated ledger API and the JWT-authenticated
// operator API.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Haleralex/walletledger/internal/adapters/http/handlers"
	"github.com/Haleralex/walletledger/internal/adapters/http/middleware"
	"github.com/Haleralex/walletledger/internal/application/ports"
)

// RouterConfig carries the cross-cutting dependencies of the middleware
// chain.
type RouterConfig struct {
	Logger      *slog.Logger
	Version     string
	Environment string

	// AdminJWTSecret signs the operator tokens.
	AdminJWTSecret string

	// AllowedOrigins narrows CORS in production.
	AllowedOrigins []string

	// RateLimiter throttles per API key; nil disables throttling.
	RateLimiter ports.RateLimiter

	// KeyRepo backs API key authentication.
	KeyRepo ports.APIKeyRepository

	// AuditRepo receives the per-request audit trail; nil disables auditing.
	AuditRepo ports.AuditRepository

	// TracingEnabled adds the otelgin middleware.
	TracingEnabled bool

	// HealthCheckers feed the readiness probe.
	HealthCheckers []handlers.HealthChecker
}

// LedgerHandlers groups the API-key surface handlers.
type LedgerHandlers struct {
	Wallet   *handlers.WalletHandler
	Transfer *handlers.TransferHandler
	Hold     *handlers.HoldHandler
	Intent   *handlers.IntentHandler
	Refund   *handlers.RefundHandler
}

// NewRouter builds the gin engine with the full middleware chain and route
// table.
func NewRouter(cfg *RouterConfig, ledgerH *LedgerHandlers, adminH *handlers.AdminHandler) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupValidator()

	// Recovery first so every later panic becomes a 500.
	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(middleware.RequestID())
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("walletledger"))
	}
	if cfg.Environment == "production" {
		router.Use(middleware.CORS(&middleware.CORSConfig{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowMethods:  middleware.DefaultCORSConfig().AllowMethods,
			AllowHeaders:  middleware.DefaultCORSConfig().AllowHeaders,
			ExposeHeaders: middleware.DefaultCORSConfig().ExposeHeaders,
			MaxAge:        86400,
		}))
	} else {
		router.Use(middleware.CORS(nil))
	}
	router.Use(middleware.Logging(middleware.DefaultLoggingConfig(cfg.Logger)))
	router.Use(middleware.Metrics())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	health := handlers.NewHealthHandler(cfg.Version, cfg.HealthCheckers...)
	router.GET("/healthz", health.Live)
	router.GET("/readyz", health.Ready)

	// Ledger API: every route authenticates with an API key; rate limiting
	// and auditing run after auth so both see the key id.
	api := router.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(cfg.KeyRepo))
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter, cfg.Logger))
	}
	if cfg.AuditRepo != nil {
		api.Use(middleware.Audit(cfg.AuditRepo, cfg.Logger))
	}
	{
		api.GET("/wallet/balance", ledgerH.Wallet.GetBalance)
		api.GET("/wallet/transactions", ledgerH.Wallet.ListTransactions)
		api.GET("/recipients/resolve", ledgerH.Wallet.ResolveRecipient)

		api.POST("/transfers", ledgerH.Transfer.Transfer)
		api.POST("/deposits", ledgerH.Transfer.Deposit)

		api.POST("/holds", ledgerH.Hold.Create)
		api.GET("/holds/:id", ledgerH.Hold.Get)
		api.POST("/holds/:id/capture", ledgerH.Hold.Capture)
		api.POST("/holds/:id/release", ledgerH.Hold.Release)

		api.POST("/intents", ledgerH.Intent.Create)
		api.GET("/intents/:id", ledgerH.Intent.Get)
		api.POST("/intents/:id/pay", ledgerH.Intent.Pay)
		api.POST("/intents/:id/cancel", ledgerH.Intent.Cancel)

		api.POST("/refunds", ledgerH.Refund.Create)
	}

	// Operator API: JWT-authenticated, audited, never rate limited — the
	// control plane is trusted.
	admin := router.Group("/admin/v1")
	admin.Use(middleware.AdminJWTAuth(cfg.AdminJWTSecret))
	if cfg.AuditRepo != nil {
		admin.Use(middleware.Audit(cfg.AuditRepo, cfg.Logger))
	}
	{
		admin.POST("/wallets", adminH.CreateWallet)
		admin.POST("/wallets/:id/status", adminH.SetWalletStatus)
		admin.POST("/api-keys", adminH.IssueAPIKey)
		admin.DELETE("/api-keys/:id", adminH.RevokeAPIKey)
	}

	return router
}
