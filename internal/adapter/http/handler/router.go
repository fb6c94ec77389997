package handler

import (
	"time"

	"account-transfer-service/internal/adapter/http/middleware"
	"account-transfer-service/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	maxRequestBody = 1 << 20 // 1 MB
	idempotencyTTL = 24 * time.Hour
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AccountSvc       ports.AccountService
	RateLimitStore   middleware.RateLimitStore // nil = rate limiting disabled
	IdempotencyCache ports.IdempotencyCache    // nil = Idempotency-Key ignored
	HealthCheckers   []ports.HealthChecker
	Mode             string // gin mode; empty = release
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxRequestBody))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	var idem gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if deps.IdempotencyCache != nil {
		idem = middleware.Idempotency(deps.IdempotencyCache, idempotencyTTL, deps.Logger)
	}

	h := NewAccountHandler(deps.AccountSvc)

	v1 := r.Group("/api/v1")
	accounts := v1.Group("/accounts")
	{
		accounts.POST("", rl(middleware.GroupAccountsOpen), idem, h.OpenAccount)
		accounts.GET("/:id", rl(middleware.GroupAccountsRead), h.GetAccount)
		accounts.POST("/:id/withdraw", rl(middleware.GroupAccountsWrite), idem, h.Withdraw)
		accounts.POST("/:id/deposit", rl(middleware.GroupAccountsWrite), idem, h.Deposit)
	}
	v1.POST("/transfers", rl(middleware.GroupTransfers), idem, h.Transfer)

	return r
}
