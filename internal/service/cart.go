package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// cartService implements domain.CartService.
//
// Every operation is one fetch-validate-mutate-save pass inside a single
// CartStore unit of work. The store locks the cart for the duration of the
// unit, so concurrent operations on one cart are serialized and the item and
// cart total are committed together. Validation always runs before the first
// write; a rejected operation leaves no trace because the unit is discarded.
//
// Stock is checked against the catalog but never reserved here.
type cartService struct {
	store   domain.CartStore
	catalog domain.ProductCatalog
	metrics *telemetry.CartMetrics
	logger  *slog.Logger
}

// Compile-time check that cartService implements domain.CartService.
var _ domain.CartService = (*cartService)(nil)

// NewCartService creates the cart engine. metrics may be nil.
func NewCartService(store domain.CartStore, catalog domain.ProductCatalog, metrics *telemetry.CartMetrics, logger *slog.Logger) domain.CartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &cartService{
		store:   store,
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
	}
}

// ResolveCart returns the owner's cart, creating an empty one if absent.
// Repeated calls never create a second cart for the same owner.
func (s *cartService) ResolveCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	const op = "cart.resolve"

	if owner.IsZero() {
		return nil, domain.WithOp(domain.ErrOwnerRequired, op)
	}

	var (
		cart    *domain.Cart
		created bool
	)
	err := s.store.InTx(ctx, func(tx domain.CartTx) error {
		var err error
		cart, created, err = s.resolveCart(ctx, tx, op, owner)
		return err
	})
	if err != nil {
		return nil, s.fail(op, err, "failed to resolve cart")
	}
	if created {
		s.metrics.CartCreated()
	}

	return cart, nil
}

// GetCart returns the cart view if a cart matches both owner and cartID.
func (s *cartService) GetCart(ctx context.Context, owner domain.Owner, cartID uuid.UUID) (*domain.CartView, error) {
	const op = "cart.get"

	if owner.IsZero() {
		return nil, domain.WithOp(domain.ErrOwnerRequired, op)
	}

	var (
		cart  *domain.Cart
		items []domain.CartItem
	)
	err := s.store.InTx(ctx, func(tx domain.CartTx) error {
		var err error
		cart, err = tx.FindByOwnerAndID(ctx, owner.ID, cartID)
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		if cart == nil {
			return domain.NotFoundWith(op, "Cart", "cartId", cartID)
		}
		items, err = tx.ListItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err, "failed to load cart")
	}

	return s.view(ctx, op, cart, items)
}

// GetOwnerCart returns the view of the owner's cart.
func (s *cartService) GetOwnerCart(ctx context.Context, owner domain.Owner) (*domain.CartView, error) {
	const op = "cart.get_owner"

	if owner.IsZero() {
		return nil, domain.WithOp(domain.ErrOwnerRequired, op)
	}

	var (
		cart  *domain.Cart
		items []domain.CartItem
	)
	err := s.store.InTx(ctx, func(tx domain.CartTx) error {
		var err error
		cart, err = tx.FindByOwner(ctx, owner.ID)
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		if cart == nil {
			return ownerCartNotFound(op, owner)
		}
		items, err = tx.ListItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err, "failed to load cart")
	}

	return s.view(ctx, op, cart, items)
}

// ListCarts returns a view of every cart. Each cart is read together with
// its items in one transaction, so a view's total always matches its lines.
func (s *cartService) ListCarts(ctx context.Context) ([]domain.CartView, error) {
	const op = "cart.list"

	carts, err := s.store.ListCarts(ctx)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list carts")
	}

	views := make([]domain.CartView, 0, len(carts))
	for _, c := range carts {
		var (
			cart  *domain.Cart
			items []domain.CartItem
		)
		err := s.store.InTx(ctx, func(tx domain.CartTx) error {
			var err error
			cart, err = tx.FindByID(ctx, c.ID)
			if err != nil {
				return fmt.Errorf("find cart: %w", err)
			}
			if cart == nil {
				return nil
			}
			items, err = tx.ListItems(ctx, cart.ID)
			if err != nil {
				return fmt.Errorf("list items: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, domain.Internal(err, op, "failed to list cart items")
		}
		if cart == nil {
			continue
		}
		v, err := s.view(ctx, op, cart, items)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}

	return views, nil
}

// AddItem adds productID to the owner's cart, creating the cart if needed.
func (s *cartService) AddItem(ctx context.Context, owner domain.Owner, productID uuid.UUID, quantity int) (*domain.CartView, error) {
	const op = "cart.add_item"

	if owner.IsZero() {
		return nil, domain.WithOp(domain.ErrOwnerRequired, op)
	}
	if quantity < 1 {
		return nil, s.fail(op, domain.ErrInvalidQuantity, "")
	}

	var (
		cart    *domain.Cart
		items   []domain.CartItem
		created bool
	)
	err := s.store.InTx(ctx, func(tx domain.CartTx) error {
		var err error
		cart, created, err = s.resolveCart(ctx, tx, op, owner)
		if err != nil {
			return err
		}

		product, err := s.lookup(ctx, op, productID)
		if err != nil {
			return err
		}

		existing, err := tx.FindItem(ctx, cart.ID, productID)
		if err != nil {
			return fmt.Errorf("find item: %w", err)
		}
		if existing != nil {
			return domain.Invalid(op, fmt.Sprintf("Product %s already exists in the cart", product.Name))
		}
		if !product.InStock() {
			return domain.Invalid(op, fmt.Sprintf("%s is not available", product.Name))
		}
		if product.Quantity < quantity {
			return domain.Invalid(op, stockExceeded(product))
		}

		item := &domain.CartItem{
			ID:        uuid.New(),
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			UnitPrice: product.SpecialPrice,
			Discount:  product.Discount,
		}
		if err := tx.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("save item: %w", err)
		}

		cart.TotalPrice = cart.TotalPrice.Add(item.LineTotal())
		if err := tx.SaveCart(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}

		items, err = tx.ListItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err, "failed to add item to cart")
	}

	if created {
		s.metrics.CartCreated()
	}
	s.metrics.ItemAdded(quantity)
	s.logger.Debug("cart item added",
		"cart_id", cart.ID,
		"product_id", productID,
		"quantity", quantity,
		"total", cart.TotalPrice.String(),
	)

	return s.view(ctx, op, cart, items)
}

// ChangeQuantity adjusts the owner's line for productID by delta.
//
// The cart total moves by the item's existing unit price x delta, and the
// item's price snapshot is then refreshed from the catalog for later deltas.
// A resulting quantity of zero removes the line. A zero delta changes
// nothing, the snapshot included, and returns the current view.
func (s *cartService) ChangeQuantity(ctx context.Context, owner domain.Owner, productID uuid.UUID, delta int) (*domain.CartView, error) {
	const op = "cart.change_quantity"

	if owner.IsZero() {
		return nil, domain.WithOp(domain.ErrOwnerRequired, op)
	}

	var (
		cart    *domain.Cart
		items   []domain.CartItem
		removed bool
	)
	err := s.store.InTx(ctx, func(tx domain.CartTx) error {
		var err error
		cart, err = tx.FindByOwner(ctx, owner.ID)
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		if cart == nil {
			return ownerCartNotFound(op, owner)
		}

		product, err := s.lookup(ctx, op, productID)
		if err != nil {
			return err
		}

		item, err := tx.FindItem(ctx, cart.ID, productID)
		if err != nil {
			return fmt.Errorf("find item: %w", err)
		}
		if item == nil {
			return domain.Invalid(op, fmt.Sprintf("Product %s not available in the cart", product.Name))
		}
		if delta == 0 {
			items, err = tx.ListItems(ctx, cart.ID)
			if err != nil {
				return fmt.Errorf("list items: %w", err)
			}
			return nil
		}
		if !product.InStock() {
			return domain.Invalid(op, fmt.Sprintf("%s is not available", product.Name))
		}

		newQuantity := item.Quantity + delta
		if newQuantity < 0 {
			return domain.WithOp(domain.ErrNegativeResult, op)
		}
		if product.Quantity < newQuantity {
			return domain.Invalid(op, stockExceeded(product))
		}

		if newQuantity == 0 {
			removed = true
			if err := removeLine(ctx, tx, cart, item); err != nil {
				return err
			}
		} else {
			cart.TotalPrice = cart.TotalPrice.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(delta))))
			item.Quantity = newQuantity
			item.UnitPrice = product.SpecialPrice
			item.Discount = product.Discount
			if err := tx.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("save item: %w", err)
			}
			if err := tx.SaveCart(ctx, cart); err != nil {
				return fmt.Errorf("save cart: %w", err)
			}
		}

		items, err = tx.ListItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err, "failed to update cart item quantity")
	}

	switch {
	case delta == 0:
		return s.view(ctx, op, cart, items)
	case removed:
		s.metrics.ItemRemoved()
	default:
		s.metrics.QuantityChanged()
	}
	s.logger.Debug("cart item quantity changed",
		"cart_id", cart.ID,
		"product_id", productID,
		"delta", delta,
		"removed", removed,
		"total", cart.TotalPrice.String(),
	)

	return s.view(ctx, op, cart, items)
}

// RemoveItem deletes the line for productID from cartID.
func (s *cartService) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (string, error) {
	const op = "cart.remove_item"

	var name string
	err := s.store.InTx(ctx, func(tx domain.CartTx) error {
		cart, err := tx.FindByID(ctx, cartID)
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		if cart == nil {
			return domain.NotFoundWith(op, "Cart", "cartId", cartID)
		}

		item, err := tx.FindItem(ctx, cartID, productID)
		if err != nil {
			return fmt.Errorf("find item: %w", err)
		}
		if item == nil {
			return domain.NotFoundWith(op, "Product", "productId", productID)
		}

		name, err = s.productName(ctx, op, productID)
		if err != nil {
			return err
		}

		return removeLine(ctx, tx, cart, item)
	})
	if err != nil {
		return "", s.fail(op, err, "failed to remove item from cart")
	}

	s.metrics.ItemRemoved()
	s.logger.Debug("cart item removed", "cart_id", cartID, "product_id", productID)

	return fmt.Sprintf("Product %s has been removed from the cart", name), nil
}

// SyncItemPrice replaces the line's old contribution to the total with one
// computed from the current catalog special price. Quantity is unchanged.
func (s *cartService) SyncItemPrice(ctx context.Context, cartID, productID uuid.UUID) error {
	const op = "cart.sync_item_price"

	err := s.store.InTx(ctx, func(tx domain.CartTx) error {
		cart, err := tx.FindByID(ctx, cartID)
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		if cart == nil {
			return domain.NotFoundWith(op, "Cart", "cartId", cartID)
		}

		product, err := s.lookup(ctx, op, productID)
		if err != nil {
			return err
		}

		item, err := tx.FindItem(ctx, cartID, productID)
		if err != nil {
			return fmt.Errorf("find item: %w", err)
		}
		if item == nil {
			return domain.Invalid(op, fmt.Sprintf("Product %s is not available in the cart", product.Name))
		}

		oldLine := item.LineTotal()
		item.UnitPrice = product.SpecialPrice
		item.Discount = product.Discount
		cart.TotalPrice = cart.TotalPrice.Sub(oldLine).Add(item.LineTotal())

		if err := tx.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("save item: %w", err)
		}
		if err := tx.SaveCart(ctx, cart); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return s.fail(op, err, "failed to sync cart item price")
	}

	s.metrics.PriceSynced()
	return nil
}

// SyncProductPrice re-syncs productID in every cart holding it. Carts whose
// line disappeared after the scan are skipped.
func (s *cartService) SyncProductPrice(ctx context.Context, productID uuid.UUID) (int, error) {
	const op = "cart.sync_product_price"

	cartIDs, err := s.store.CartsWithProduct(ctx, productID)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to find carts with product")
	}

	synced := 0
	for _, cartID := range cartIDs {
		err := s.SyncItemPrice(ctx, cartID, productID)
		if err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) || domain.IsCode(err, domain.EINVALID) {
				continue
			}
			return synced, err
		}
		synced++
	}

	s.logger.Info("product price synced into carts", "product_id", productID, "carts", synced)
	return synced, nil
}

// RemoveProductFromCarts removes productID from every cart holding it.
func (s *cartService) RemoveProductFromCarts(ctx context.Context, productID uuid.UUID) (int, error) {
	const op = "cart.remove_product"

	cartIDs, err := s.store.CartsWithProduct(ctx, productID)
	if err != nil {
		return 0, domain.Internal(err, op, "failed to find carts with product")
	}

	removed := 0
	for _, cartID := range cartIDs {
		if _, err := s.RemoveItem(ctx, cartID, productID); err != nil {
			if domain.IsCode(err, domain.ENOTFOUND) {
				continue
			}
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// resolveCart returns the owner's locked cart, creating it when absent.
// created reports whether this transaction inserted the cart; callers count
// it only once the transaction commits.
func (s *cartService) resolveCart(ctx context.Context, tx domain.CartTx, op string, owner domain.Owner) (cart *domain.Cart, created bool, err error) {
	cart, err = tx.FindByOwner(ctx, owner.ID)
	if err != nil {
		return nil, false, fmt.Errorf("find cart: %w", err)
	}
	if cart != nil {
		return cart, false, nil
	}

	cart, err = tx.CreateCart(ctx, owner.ID)
	if err != nil {
		return nil, false, fmt.Errorf("create cart: %w", err)
	}
	s.logger.Debug("cart created", "op", op, "cart_id", cart.ID, "owner_id", owner.ID)

	return cart, true, nil
}

// lookup reads a product from the catalog. Domain errors from the catalog
// are passed through; anything else becomes an internal error.
func (s *cartService) lookup(ctx context.Context, op string, productID uuid.UUID) (*domain.Product, error) {
	product, err := s.catalog.Lookup(ctx, productID)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) && de.Code != domain.EINTERNAL {
			return nil, domain.WithOp(err, op)
		}
		return nil, domain.Internal(err, op, "failed to look up product")
	}
	return product, nil
}

// productName returns the catalog name of productID, or its ID when the
// product no longer exists.
func (s *cartService) productName(ctx context.Context, op string, productID uuid.UUID) (string, error) {
	product, err := s.lookup(ctx, op, productID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return productID.String(), nil
		}
		return "", err
	}
	return product.Name, nil
}

// view assembles the read model. Items whose product has since left the
// catalog keep their snapshot data only.
func (s *cartService) view(ctx context.Context, op string, cart *domain.Cart, items []domain.CartItem) (*domain.CartView, error) {
	v := &domain.CartView{
		CartID:     cart.ID,
		OwnerID:    cart.OwnerID,
		TotalPrice: cart.TotalPrice,
		Products:   make([]domain.CartProduct, 0, len(items)),
	}

	for _, item := range items {
		line := domain.CartProduct{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
		}

		product, err := s.lookup(ctx, op, item.ProductID)
		switch {
		case err == nil:
			line.Name = product.Name
			line.Description = product.Description
			line.Image = product.Image
			line.Price = product.Price
			line.SpecialPrice = product.SpecialPrice
		case domain.IsCode(err, domain.ENOTFOUND):
		default:
			return nil, err
		}

		v.Products = append(v.Products, line)
	}

	return v, nil
}

// fail normalizes an error leaving an operation and records the rejection.
func (s *cartService) fail(op string, err error, message string) error {
	code := domain.ErrorCode(err)
	s.metrics.Rejected(op, code)

	if code == domain.EINTERNAL {
		var de *domain.Error
		if errors.As(err, &de) {
			return err
		}
		return domain.Internal(err, op, message)
	}
	return domain.WithOp(err, op)
}

// removeLine subtracts the item's contribution and deletes it.
func removeLine(ctx context.Context, tx domain.CartTx, cart *domain.Cart, item *domain.CartItem) error {
	cart.TotalPrice = cart.TotalPrice.Sub(item.LineTotal())
	if err := tx.DeleteItem(ctx, cart.ID, item.ProductID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if err := tx.SaveCart(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func ownerCartNotFound(op string, owner domain.Owner) error {
	if owner.Email != "" {
		return domain.NotFoundWith(op, "Cart", "email", owner.Email)
	}
	return domain.NotFoundWith(op, "Cart", "ownerId", owner.ID)
}

func stockExceeded(product *domain.Product) string {
	return fmt.Sprintf("Please make an order of the %s less than or equal to the quantity: %d", product.Name, product.Quantity)
}
