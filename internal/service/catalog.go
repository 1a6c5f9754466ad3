package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/events"
	"github.com/dukerupert/larder/internal/pricing"
	"github.com/dukerupert/larder/internal/storage"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// catalogService implements domain.CatalogService.
type catalogService struct {
	store     domain.ProductStore
	carts     domain.CartService
	publisher events.Publisher
	images    storage.Storage
	logger    *slog.Logger
}

var _ domain.CatalogService = (*catalogService)(nil)

// NewCatalogService creates the catalog administration service.
// Price changes are announced through publisher so carts can re-sync.
func NewCatalogService(store domain.ProductStore, carts domain.CartService, publisher events.Publisher, images storage.Storage, logger *slog.Logger) domain.CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &catalogService{
		store:     store,
		carts:     carts,
		publisher: publisher,
		images:    images,
		logger:    logger,
	}
}

func (s *catalogService) ListProducts(ctx context.Context, limit, offset int) (*domain.ProductPage, error) {
	const op = "catalog.list"

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.store.ListProducts(ctx, limit, offset)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list products")
	}
	total, err := s.store.CountProducts(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count products")
	}

	return &domain.ProductPage{
		Products: products,
		Limit:    limit,
		Offset:   offset,
		Total:    total,
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	return s.lookup(ctx, "catalog.get", productID)
}

func (s *catalogService) CreateProduct(ctx context.Context, params domain.ProductParams) (*domain.Product, error) {
	const op = "catalog.create"

	params.Name = strings.TrimSpace(params.Name)
	if err := validateProduct(op, params); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, op, params.Name, uuid.Nil); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		Image:       "default.png",
		Quantity:    params.Quantity,
		Price:       params.Price,
		Discount:    params.Discount,
	}
	p.SpecialPrice = pricing.SpecialPrice(p.Price, p.Discount)

	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, domain.Internal(err, op, "failed to create product")
	}

	s.logger.Info("product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, params domain.ProductParams) (*domain.Product, error) {
	const op = "catalog.update"

	p, err := s.lookup(ctx, op, productID)
	if err != nil {
		return nil, err
	}

	params.Name = strings.TrimSpace(params.Name)
	if err := validateProduct(op, params); err != nil {
		return nil, err
	}
	if err := s.checkNameFree(ctx, op, params.Name, productID); err != nil {
		return nil, err
	}

	priceChanged := !p.Price.Equal(params.Price) || !p.Discount.Equal(params.Discount)

	p.Name = params.Name
	p.Description = params.Description
	p.Quantity = params.Quantity
	p.Price = params.Price
	p.Discount = params.Discount
	p.SpecialPrice = pricing.SpecialPrice(p.Price, p.Discount)

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, s.storeErr(err, op, "failed to update product")
	}

	if priceChanged {
		// The product is already saved; a lost event leaves carts on their
		// snapshots until the next explicit sync.
		if err := s.publisher.PublishPriceChanged(ctx, p.ID); err != nil {
			s.logger.Warn("price change not published", "product_id", p.ID, "error", err)
		}
	}

	s.logger.Info("product updated", "product_id", p.ID, "price_changed", priceChanged)
	return p, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	const op = "catalog.delete"

	p, err := s.lookup(ctx, op, productID)
	if err != nil {
		return nil, err
	}

	removed, err := s.carts.RemoveProductFromCarts(ctx, productID)
	if err != nil {
		return nil, err
	}

	err = s.store.DeleteProduct(ctx, productID)
	if errors.Is(err, domain.ErrProductInCart) {
		// Added to a cart after the sweep above.
		more, rerr := s.carts.RemoveProductFromCarts(ctx, productID)
		if rerr != nil {
			return nil, rerr
		}
		removed += more
		err = s.store.DeleteProduct(ctx, productID)
	}
	if err != nil {
		return nil, s.storeErr(err, op, "failed to delete product")
	}

	s.logger.Info("product deleted", "product_id", productID, "carts_updated", removed)
	return p, nil
}

func (s *catalogService) UpdateProductImage(ctx context.Context, productID uuid.UUID, filename string, content io.Reader, contentType string) (*domain.Product, error) {
	const op = "catalog.update_image"

	if content == nil || filename == "" {
		return nil, domain.WithOp(domain.ErrNoImage, op)
	}

	p, err := s.lookup(ctx, op, productID)
	if err != nil {
		return nil, err
	}

	key, err := storage.ProductImageKey(filename)
	if err != nil {
		return nil, err
	}
	url, err := s.images.Put(ctx, key, content, contentType)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store image")
	}

	p.Image = url
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphaned product image", "key", key, "error", delErr)
		}
		return nil, s.storeErr(err, op, "failed to update product image")
	}

	return p, nil
}

func (s *catalogService) lookup(ctx context.Context, op string, productID uuid.UUID) (*domain.Product, error) {
	p, err := s.store.Lookup(ctx, productID)
	if err != nil {
		return nil, s.storeErr(err, op, "failed to load product")
	}
	return p, nil
}

func (s *catalogService) checkNameFree(ctx context.Context, op, name string, excludeID uuid.UUID) error {
	exists, err := s.store.ProductNameExists(ctx, name, excludeID)
	if err != nil {
		return domain.Internal(err, op, "failed to check product name")
	}
	if exists {
		return domain.WithOp(domain.ErrProductNameTaken, op)
	}
	return nil
}

func (s *catalogService) storeErr(err error, op, message string) error {
	if code := domain.ErrorCode(err); code != domain.EINTERNAL {
		return domain.WithOp(err, op)
	}
	return domain.Internal(err, op, message)
}

// validateProduct collects every field problem into one validation error.
func validateProduct(op string, p domain.ProductParams) error {
	var err error
	if utf8.RuneCountInString(p.Name) < 3 {
		err = domain.AddFieldError(err, "productName", "Product name must contain at least 3 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.Description)) < 6 {
		err = domain.AddFieldError(err, "description", "Product description must contain at least 6 characters")
	}
	if p.Quantity < 0 {
		err = domain.AddFieldError(err, "quantity", "Quantity cannot be negative")
	}
	if p.Price.IsNegative() {
		err = domain.AddFieldError(err, "price", "Price cannot be negative")
	}
	if !pricing.ValidDiscount(p.Discount) {
		err = domain.AddFieldError(err, "discount", "Discount must be between 0 and 100")
	}
	if err != nil {
		if ve, ok := err.(*domain.ValidationError); ok {
			ve.Op = op
		}
	}
	return err
}
