package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const cartColumns = `id, owner_id, total_price::text, created_at, updated_at`

const itemColumns = `id, cart_id, product_id, quantity, unit_price::text, discount::text, created_at, updated_at`

// CartStore is the PostgreSQL domain.CartStore.
//
// Every unit of work runs in one transaction. The cart finders take a row
// lock (SELECT ... FOR UPDATE), so operations on the same cart queue behind
// each other until the holder commits or rolls back.
type CartStore struct {
	pool *pgxpool.Pool
}

var _ domain.CartStore = (*CartStore)(nil)

func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

func (s *CartStore) InTx(ctx context.Context, fn func(tx domain.CartTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&cartTx{q: tx})
	})
}

func (s *CartStore) ListCarts(ctx context.Context) ([]domain.Cart, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+cartColumns+` FROM carts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	return pgx.CollectRows(rows, scanCartRow)
}

func (s *CartStore) CartsWithProduct(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT cart_id FROM cart_items WHERE product_id = $1 ORDER BY cart_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("carts with product: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (s *CartStore) ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	return listItems(ctx, s.pool, cartID)
}

// cartTx implements domain.CartTx inside a pgx transaction.
type cartTx struct {
	q querier
}

func (tx *cartTx) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Cart, error) {
	return tx.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE owner_id = $1 FOR UPDATE`, ownerID)
}

func (tx *cartTx) FindByOwnerAndID(ctx context.Context, ownerID, cartID uuid.UUID) (*domain.Cart, error) {
	return tx.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1 AND owner_id = $2 FOR UPDATE`, cartID, ownerID)
}

func (tx *cartTx) FindByID(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	return tx.findOne(ctx, `SELECT `+cartColumns+` FROM carts WHERE id = $1 FOR UPDATE`, cartID)
}

func (tx *cartTx) CreateCart(ctx context.Context, ownerID uuid.UUID) (*domain.Cart, error) {
	// A concurrent creator wins the unique index; both then lock the same row.
	_, err := tx.q.Exec(ctx, `
		INSERT INTO carts (id, owner_id, total_price)
		VALUES ($1, $2, 0)
		ON CONFLICT (owner_id) DO NOTHING`,
		uuid.New(), ownerID)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	cart, err := tx.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("create cart: cart for owner %s not visible after insert", ownerID)
	}
	return cart, nil
}

func (tx *cartTx) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*domain.CartItem, error) {
	row := tx.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	return item, nil
}

func (tx *cartTx) ListItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error) {
	return listItems(ctx, tx.q, cartID)
}

func (tx *cartTx) SaveCart(ctx context.Context, cart *domain.Cart) error {
	err := tx.q.QueryRow(ctx, `
		UPDATE carts SET total_price = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		cart.ID, cart.TotalPrice).Scan(&cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (tx *cartTx) SaveItem(ctx context.Context, item *domain.CartItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	err := tx.q.QueryRow(ctx, `
		INSERT INTO cart_items (id, cart_id, product_id, quantity, unit_price, discount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = EXCLUDED.quantity,
		    unit_price = EXCLUDED.unit_price,
		    discount = EXCLUDED.discount,
		    updated_at = now()
		RETURNING id, created_at, updated_at`,
		item.ID, item.CartID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save cart item: %w", err)
	}
	return nil
}

func (tx *cartTx) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error {
	if _, err := tx.q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`, cartID, productID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (tx *cartTx) findOne(ctx context.Context, sql string, args ...any) (*domain.Cart, error) {
	cart, err := scanCart(tx.q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find cart: %w", err)
	}
	return cart, nil
}

func listItems(ctx context.Context, q querier, cartID uuid.UUID) ([]domain.CartItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM cart_items WHERE cart_id = $1 ORDER BY created_at, product_id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CartItem, error) {
		item, err := scanItem(row)
		if err != nil {
			return domain.CartItem{}, err
		}
		return *item, nil
	})
}

func scanCartRow(row pgx.CollectableRow) (domain.Cart, error) {
	c, err := scanCart(row)
	if err != nil {
		return domain.Cart{}, err
	}
	return *c, nil
}

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c     domain.Cart
		total string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &total, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decimals([]*decimal.Decimal{&c.TotalPrice}, total); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanItem(row pgx.Row) (*domain.CartItem, error) {
	var (
		i               domain.CartItem
		price, discount string
	)
	if err := row.Scan(&i.ID, &i.CartID, &i.ProductID, &i.Quantity, &price, &discount, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decimals([]*decimal.Decimal{&i.UnitPrice, &i.Discount}, price, discount); err != nil {
		return nil, err
	}
	return &i, nil
}
