package routes

import (
	"net/http"

	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/router"
)

// RegisterAPIRoutes registers the cart, catalog and account routes.
//
// Shoppers act on their own cart; the owner is always the authenticated
// principal. Catalog writes and cross-cart operations require an admin.
func RegisterAPIRoutes(root *router.Router, deps APIDeps) {
	r := root.Group(middleware.MaxBodySize())

	// Public catalog reads
	r.Get("/api/products", deps.ProductHandler.List)
	r.Get("/api/products/{productId}", deps.ProductHandler.Get)

	// Accounts
	var throttle []router.Middleware
	if deps.AuthLimiter != nil {
		throttle = append(throttle, deps.AuthLimiter.Middleware)
	}
	r.Post("/api/auth/signup", deps.AuthHandler.Signup, throttle...)
	r.Post("/api/auth/signin", deps.AuthHandler.Signin, throttle...)
	r.Post("/api/auth/signout", deps.AuthHandler.Signout)
	r.Get("/api/auth/user", deps.AuthHandler.User)
	r.Get("/api/auth/username", deps.AuthHandler.Username)

	// Shopper cart
	shopper := r.Group(middleware.RequireAuth)
	shopper.Get("/api/carts/users/cart", deps.CartHandler.OwnerCart)
	shopper.Post("/api/carts/products/{productId}/quantity/{quantity}", deps.CartHandler.AddItem)
	shopper.Put("/api/cart/products/{productId}/quantity/{operation}", deps.CartHandler.ChangeQuantity)
	shopper.Delete("/api/carts/{cartId}/product/{productId}", deps.CartHandler.RemoveItem)

	// Administration
	admin := r.Group(middleware.RequireAdmin)
	admin.Get("/api/carts", deps.CartHandler.List)
	admin.Post("/api/admin/carts/{cartId}/products/{productId}/sync", deps.CartHandler.SyncItemPrice)
	admin.Post("/api/admin/products", deps.ProductHandler.Create)
	admin.Put("/api/admin/products/{productId}", deps.ProductHandler.Update)
	admin.Delete("/api/admin/products/{productId}", deps.ProductHandler.Delete)

	// Image uploads get the larger body limit
	root.Put("/api/admin/products/{productId}/image", deps.ProductHandler.UploadImage,
		middleware.MaxBodySize(middleware.UploadMaxBodySize), middleware.RequireAdmin)

	root.NotFound(handler.NotFoundResponse, handler.MethodNotAllowedResponse)
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/health", deps.Health)
	if deps.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", deps.Metrics)
	}
}
