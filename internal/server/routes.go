package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	e.Use(SetNoCacheHeaders)

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key",
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil
			},
		}))
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health)            // Health check endpoint
	v1.GET("/tokens", h.Tokens)            // Token registry
	v1.GET("/networks", h.Networks)        // Supported networks
	v1.GET("/prices", h.PricesAll)         // Batched USD prices
	v1.GET("/balance/:address", h.Balance) // Native balance lookup
	v1.POST("/simulate", h.Simulate)       // Flat-rate conversion preview
	v1.GET("/session", h.Session)          // Websocket swap session

	// The quote endpoint fans out to the aggregator; rate limit it so one
	// client cannot exhaust the upstream allowance.
	quoteGroup := v1.Group("/quote")
	quoteGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(2), // 2 requests per second
		Burst:     5,
		ExpiresIn: 2 * time.Minute,
	})))
	quoteGroup.GET("", h.Quote)

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
