package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN TYPES
// =============================================================================

// Cart is the per-owner aggregate. TotalPrice is denormalized and must equal
// the sum of UnitPrice x Quantity over the cart's items after every
// successful operation.
type Cart struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CartItem is one line of a cart. UnitPrice and Discount are snapshots taken
// when the item was added or last price-synced; they are never recomputed
// from the catalog on read.
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineTotal is the item's contribution to the cart total.
func (i *CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartView is the reconciled read model returned by cart operations.
type CartView struct {
	CartID     uuid.UUID
	OwnerID    uuid.UUID
	TotalPrice decimal.Decimal
	Products   []CartProduct
}

// CartProduct pairs a product's display data with the item's quantity and
// price snapshot.
type CartProduct struct {
	ProductID    uuid.UUID
	Name         string
	Description  string
	Image        string
	Quantity     int
	UnitPrice    decimal.Decimal // snapshot
	Discount     decimal.Decimal // snapshot
	Price        decimal.Decimal // current catalog base price
	SpecialPrice decimal.Decimal // current catalog special price
}

// =============================================================================
// CART ERRORS
// =============================================================================

var (
	ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrNegativeResult  = &Error{Code: EINVALID, Message: "Quantity cannot be negative"}
	ErrOwnerRequired   = &Error{Code: EUNAUTHORIZED, Message: "Full authentication is required to access this resource"}
)

// =============================================================================
// CART STORAGE CONTRACT
// =============================================================================

// CartStore persists carts and cart items.
//
// All reads and writes of one operation happen inside InTx. Implementations
// must serialize units of work that touch the same cart (the cart lookups on
// CartTx lock the cart) and must commit the item and cart writes together.
// Returning an error from fn discards every write made through tx.
type CartStore interface {
	InTx(ctx context.Context, fn func(tx CartTx) error) error

	// ListCarts returns every cart ordered by creation time.
	ListCarts(ctx context.Context) ([]Cart, error)

	// CartsWithProduct returns the IDs of carts holding an item for productID.
	CartsWithProduct(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error)

	// ListItems reads a cart's items outside a unit of work.
	ListItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error)
}

// CartTx is the unit-of-work view of CartStore.
// Finders return (nil, nil) when nothing matches.
type CartTx interface {
	// FindByOwner returns and locks the owner's cart.
	FindByOwner(ctx context.Context, ownerID uuid.UUID) (*Cart, error)

	// FindByOwnerAndID returns and locks the cart only if both keys match.
	FindByOwnerAndID(ctx context.Context, ownerID, cartID uuid.UUID) (*Cart, error)

	// FindByID returns and locks the cart.
	FindByID(ctx context.Context, cartID uuid.UUID) (*Cart, error)

	// CreateCart creates an empty cart for the owner unless one exists, and
	// returns the owner's (locked) cart either way.
	CreateCart(ctx context.Context, ownerID uuid.UUID) (*Cart, error)

	FindItem(ctx context.Context, cartID, productID uuid.UUID) (*CartItem, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]CartItem, error)
	SaveCart(ctx context.Context, cart *Cart) error
	SaveItem(ctx context.Context, item *CartItem) error
	DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error
}

// =============================================================================
// CART ENGINE CONTRACT
// =============================================================================

// CartService is the cart aggregate engine.
type CartService interface {
	// ResolveCart returns the owner's cart, creating an empty one if absent.
	ResolveCart(ctx context.Context, owner Owner) (*Cart, error)

	// GetCart returns the view of the cart matching both owner and cartID.
	GetCart(ctx context.Context, owner Owner, cartID uuid.UUID) (*CartView, error)

	// GetOwnerCart returns the view of the owner's cart.
	GetOwnerCart(ctx context.Context, owner Owner) (*CartView, error)

	// ListCarts returns a view of every cart.
	ListCarts(ctx context.Context) ([]CartView, error)

	// AddItem adds a new line for productID. Adding a product already in the
	// cart is rejected rather than merged.
	AddItem(ctx context.Context, owner Owner, productID uuid.UUID, quantity int) (*CartView, error)

	// ChangeQuantity adjusts an existing line by delta, removing it when the
	// resulting quantity reaches zero.
	ChangeQuantity(ctx context.Context, owner Owner, productID uuid.UUID, delta int) (*CartView, error)

	// RemoveItem deletes a line and returns a confirmation naming the product.
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (string, error)

	// SyncItemPrice refreshes one line's price snapshot from the catalog and
	// rebalances the cart total.
	SyncItemPrice(ctx context.Context, cartID, productID uuid.UUID) error

	// SyncProductPrice runs SyncItemPrice for every cart holding productID
	// and returns how many carts were updated.
	SyncProductPrice(ctx context.Context, productID uuid.UUID) (int, error)

	// RemoveProductFromCarts runs RemoveItem for every cart holding productID.
	RemoveProductFromCarts(ctx context.Context, productID uuid.UUID) (int, error)
}
