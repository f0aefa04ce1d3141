// Package api wires HTTP routes, middleware and handlers into a gin engine.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streambet/streambet/internal/api/handler"
	"github.com/streambet/streambet/internal/api/middleware"
	"github.com/streambet/streambet/internal/config"
	"github.com/streambet/streambet/internal/service"
	"github.com/streambet/streambet/internal/ws"
)

// HealthChecker reports whether an external dependency is reachable.
// Implemented by oracle.Client.
type HealthChecker interface {
	Healthy() bool
}

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	QuestionSvc *service.QuestionService
	WagerSvc    *service.WagerService
	WalletSvc   *service.WalletService
	StatsSvc    *service.StatsService
	Oracle      HealthChecker
	Hub         *ws.Hub
	Cfg         *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		oracleUp := deps.Oracle == nil || deps.Oracle.Healthy()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"oracle_up": oracleUp,
		})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	questionH := handler.NewQuestionHandler(deps.QuestionSvc)
	wagerH := handler.NewWagerHandler(deps.WagerSvc)
	walletH := handler.NewWalletHandler(deps.WalletSvc)
	statsH := handler.NewStatsHandler(deps.StatsSvc)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware([]byte(deps.Cfg.JWT.AccessSecret))

	// ── Rate limiter for the money-moving endpoint ────────────────────────────
	wagerRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP

	api := r.Group("/api")
	{
		// ── Questions (public) ───────────────────────────────────────────────
		questions := api.Group("/questions")
		{
			questions.GET("/active", questionH.GetActive)
			questions.GET("/history", questionH.GetHistory)
			questions.GET("/:id", questionH.GetByID)
		}

		// ── Stats (public) ───────────────────────────────────────────────────
		api.GET("/stats/period", statsH.GetPeriod)

		// ── Authenticated routes ─────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			wagers := authed.Group("/wagers")
			wagers.Use(wagerRL)
			{
				wagers.POST("", wagerH.PlaceWager)
				wagers.GET("/my", wagerH.GetMyWagers)
				wagers.GET("/:id", wagerH.GetWagerByID)
			}

			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletH.GetBalance)
				wallet.GET("/transactions", walletH.GetTransactions)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			allowed := map[string]bool{
				"https://streambet.gg":     true,
				"https://www.streambet.gg": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
