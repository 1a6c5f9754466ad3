package routes

import (
	"net/http"

	"github.com/dukerupert/larder/internal/handler/api"
	"github.com/dukerupert/larder/internal/middleware"
)

// APIDeps contains dependencies for the JSON API routes
type APIDeps struct {
	CartHandler    *api.CartHandler
	ProductHandler *api.ProductHandler
	AuthHandler    *api.AuthHandler

	// AuthLimiter throttles signin and signup per client IP.
	// Nil disables throttling.
	AuthLimiter *middleware.RateLimiter
}

// OpsDeps contains dependencies for health and metrics routes
type OpsDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
