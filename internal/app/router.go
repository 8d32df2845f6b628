package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shopup-backend/configs"
	"shopup-backend/internal/handlers"
	"shopup-backend/internal/middleware"
	"shopup-backend/internal/services"
	"shopup-backend/pkg/auth"
	"shopup-backend/pkg/container"
	"shopup-backend/pkg/kvstore"
	"shopup-backend/pkg/metrics"
)

// NewRouter resolves the HTTP-facing services and mounts every route. The
// limiter cleanup stops when ctx is done.
func NewRouter(ctx context.Context, c *container.Container) (*gin.Engine, error) {
	cfg, err := container.Get[*configs.Config](ctx, c, ServiceConfig)
	if err != nil {
		return nil, err
	}
	logger, err := container.Get[*zap.Logger](ctx, c, ServiceLogger)
	if err != nil {
		return nil, err
	}
	sessions, err := container.Get[auth.SessionProvider](ctx, c, ServiceSessions)
	if err != nil {
		return nil, err
	}
	guard, err := container.Get[*services.SessionGuard](ctx, c, ServiceGuard)
	if err != nil {
		return nil, err
	}
	cartService, err := container.Get[*services.CartService](ctx, c, ServiceCart)
	if err != nil {
		return nil, err
	}
	productService, err := container.Get[*services.ProductService](ctx, c, ServiceProducts)
	if err != nil {
		return nil, err
	}
	authService, err := container.Get[*services.AuthService](ctx, c, ServiceAuth)
	if err != nil {
		return nil, err
	}
	adminPolicy, sellerPolicy, customerPolicy, err := Policies(ctx, c, cfg)
	if err != nil {
		return nil, err
	}

	loginLimiter := middleware.NewRateLimiter(cfg.Login.RequestsPerMinute, cfg.Login.Burst)
	loginLimiter.StartCleanup(5*time.Minute, ctx.Done())

	authMiddleware := middleware.NewAuthMiddleware(guard, sessions, cfg.Session.AccessCookie)

	router := gin.New()
	router.Use(
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
		middleware.CORSMiddleware(cfg.CORS.AllowedOrigins),
	)

	router.GET("/health", healthHandler(c))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")
	handlers.NewAuthHandler(authService, cfg.Session.AccessCookie, cfg.Cart.GuestCookie).
		RegisterRoutes(api, authMiddleware, loginLimiter.Handler())
	handlers.NewCartHandler(cartService, cfg.Cart.GuestCookie, cfg.Cart.CookieTTL).
		RegisterRoutes(api, authMiddleware)
	handlers.NewProductHandler(productService).RegisterRoutes(api)
	handlers.NewAreaHandler(adminPolicy, sellerPolicy, customerPolicy).
		RegisterRoutes(api, authMiddleware)

	return router, nil
}

// healthHandler reports the store connection and which services are up.
func healthHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status, code := "healthy", http.StatusOK

		checks := gin.H{}
		store, err := container.Get[kvstore.Store](ctx.Request.Context(), c, ServiceStore)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
			err = store.Ping(pingCtx)
			cancel()
		}
		if err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
			checks[ServiceStore] = err.Error()
		} else {
			checks[ServiceStore] = "ok"
		}

		resolved := []string{}
		for _, name := range c.Names() {
			if c.Resolved(name) {
				resolved = append(resolved, name)
			}
		}

		ctx.JSON(code, gin.H{
			"status":   status,
			"service":  "shopup-backend",
			"checks":   checks,
			"services": resolved,
		})
	}
}
