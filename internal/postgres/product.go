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

const productColumns = `id, name, description, image, quantity,
	price::text, discount::text, special_price::text, created_at, updated_at`

// ProductStore is the PostgreSQL domain.ProductStore.
type ProductStore struct {
	pool *pgxpool.Pool
}

var _ domain.ProductStore = (*ProductStore)(nil)

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

func (s *ProductStore) Lookup(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, productID)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFoundWith("product.lookup", "Product", "productId", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	return p, nil
}

func (s *ProductStore) ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		ORDER BY lower(name), id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		p, err := scanProduct(row)
		if err != nil {
			return domain.Product{}, err
		}
		return *p, nil
	})
}

func (s *ProductStore) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *ProductStore) ProductNameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE lower(name) = lower($1) AND id <> $2)`,
		name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

func (s *ProductStore) CreateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, description, image, quantity, price, discount, special_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Description, p.Image, p.Quantity, p.Price, p.Discount, p.SpecialPrice,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return productWriteErr("product.create", err)
	}
	return nil
}

func (s *ProductStore) UpdateProduct(ctx context.Context, p *domain.Product) error {
	err := s.pool.QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, image = $4, quantity = $5,
		    price = $6, discount = $7, special_price = $8, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Name, p.Description, p.Image, p.Quantity, p.Price, p.Discount, p.SpecialPrice,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundWith("product.update", "Product", "productId", p.ID)
	}
	if err != nil {
		return productWriteErr("product.update", err)
	}
	return nil
}

func (s *ProductStore) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return productWriteErr("product.delete", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundWith("product.delete", "Product", "productId", productID)
	}
	return nil
}

func productWriteErr(op string, err error) error {
	if uniqueViolation(err) == "products_name_key" {
		return domain.WithOp(domain.ErrProductNameTaken, op)
	}
	if foreignKeyViolation(err) == "cart_items_product_id_fkey" {
		return domain.WithOp(domain.ErrProductInCart, op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p                        domain.Product
		price, discount, special string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Image, &p.Quantity,
		&price, &discount, &special, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decimals([]*decimal.Decimal{&p.Price, &p.Discount, &p.SpecialPrice}, price, discount, special); err != nil {
		return nil, err
	}
	return &p, nil
}
