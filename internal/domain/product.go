package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// PRODUCT DOMAIN TYPES
// =============================================================================

// Product is a catalog record as seen by the cart engine.
// SpecialPrice is derived from Price and Discount by the pricing policy and
// stored alongside them.
type Product struct {
	ID           uuid.UUID
	Name         string
	Description  string
	Image        string
	Quantity     int // available stock, never negative
	Price        decimal.Decimal
	Discount     decimal.Decimal // percent in [0, 100]
	SpecialPrice decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InStock reports whether any units are available.
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// =============================================================================
// PRODUCT ERRORS
// =============================================================================

var (
	ErrProductNameTaken = &Error{Code: EINVALID, Message: "Product with this name already exists"}
	ErrNoImage          = &Error{Code: EINVALID, Message: "Image file is required"}
	ErrProductInCart    = &Error{Code: ECONFLICT, Message: "Product is still in a cart, try again"}
)

// =============================================================================
// CATALOG CONTRACTS
// =============================================================================

//go:generate mockgen -destination=mock_catalog.go -package=domain github.com/dukerupert/larder/internal/domain ProductCatalog

// ProductCatalog is the keyed product lookup the cart engine reads from.
// Lookup returns a ENOTFOUND error when the product does not exist.
type ProductCatalog interface {
	Lookup(ctx context.Context, productID uuid.UUID) (*Product, error)
}

// ProductStore is the writable catalog used by catalog administration.
type ProductStore interface {
	ProductCatalog

	ListProducts(ctx context.Context, limit, offset int) ([]Product, error)
	CountProducts(ctx context.Context) (int, error)
	ProductNameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
}

// ProductParams are the editable fields of a product.
type ProductParams struct {
	Name        string
	Description string
	Quantity    int
	Price       decimal.Decimal
	Discount    decimal.Decimal
}

// ProductPage is one page of the catalog listing.
type ProductPage struct {
	Products []Product
	Limit    int
	Offset   int
	Total    int
}

// CatalogService administers the product catalog.
type CatalogService interface {
	ListProducts(ctx context.Context, limit, offset int) (*ProductPage, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error)
	CreateProduct(ctx context.Context, params ProductParams) (*Product, error)

	// UpdateProduct replaces the editable fields and recomputes the special
	// price. A price or discount change is announced to the cart engine.
	UpdateProduct(ctx context.Context, productID uuid.UUID, params ProductParams) (*Product, error)

	// DeleteProduct removes the product from every cart, then from the catalog.
	DeleteProduct(ctx context.Context, productID uuid.UUID) (*Product, error)

	UpdateProductImage(ctx context.Context, productID uuid.UUID, filename string, content io.Reader, contentType string) (*Product, error)
}
