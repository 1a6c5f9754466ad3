package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
)

// CartHandler serves the cart routes.
type CartHandler struct {
	carts domain.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts domain.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// List handles GET /api/carts
func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.carts.ListCarts(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	resp := make([]CartResponse, 0, len(views))
	for i := range views {
		resp = append(resp, newCartResponse(&views[i]))
	}
	handler.JSON(w, http.StatusOK, resp)
}

// OwnerCart handles GET /api/carts/users/cart
func (h *CartHandler) OwnerCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.GetOwnerCart(r.Context(), domain.OwnerFromContext(r.Context()))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newCartResponse(view))
}

// AddItem handles POST /api/carts/products/{productId}/quantity/{quantity}
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.cart.add_item"

	productID, err := handler.PathUUID(r, op, "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	quantity, err := strconv.Atoi(r.PathValue("quantity"))
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid quantity")
		return
	}

	view, err := h.carts.AddItem(r.Context(), domain.OwnerFromContext(r.Context()), productID, quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Debug("item added to cart", "product_id", productID, "quantity", quantity)
	handler.JSON(w, http.StatusOK, newCartResponse(view))
}

// ChangeQuantity handles PUT /api/cart/products/{productId}/quantity/{operation}.
// "increase" adds one unit and "delete" removes one.
func (h *CartHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	const op = "api.cart.change_quantity"

	productID, err := handler.PathUUID(r, op, "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var delta int
	switch strings.ToLower(r.PathValue("operation")) {
	case "increase":
		delta = 1
	case "delete":
		delta = -1
	default:
		handler.BadRequestResponse(w, r, "Operation must be increase or delete")
		return
	}

	view, err := h.carts.ChangeQuantity(r.Context(), domain.OwnerFromContext(r.Context()), productID, delta)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newCartResponse(view))
}

// RemoveItem handles DELETE /api/carts/{cartId}/product/{productId}.
// Admins may remove from any cart; other callers only from their own.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.cart.remove_item"

	cartID, err := handler.PathUUID(r, op, "cartId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	productID, err := handler.PathUUID(r, op, "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	if !user.IsAdmin() {
		// Ownership check: another owner's cart reads as not found.
		if _, err := h.carts.GetCart(r.Context(), user.Owner(), cartID); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	msg, err := h.carts.RemoveItem(r.Context(), cartID, productID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, handler.MessageResponse{Message: msg})
}

// SyncItemPrice handles POST /api/admin/carts/{cartId}/products/{productId}/sync
func (h *CartHandler) SyncItemPrice(w http.ResponseWriter, r *http.Request) {
	const op = "api.cart.sync_price"

	cartID, err := handler.PathUUID(r, op, "cartId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	productID, err := handler.PathUUID(r, op, "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.carts.SyncItemPrice(r.Context(), cartID, productID); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, handler.MessageResponse{Message: "Cart price synced"})
}
