//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal"
	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to TEST_DATABASE_URL, migrates it and empties every table.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env.test")
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	require.NoError(t, internal.RunMigrations(db))
	require.NoError(t, db.Close())

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE cart_items, carts, sessions, products, accounts`)
	require.NoError(t, err)
	return pool
}

func createAccount(t *testing.T, store *AccountStore, username string) *domain.Account {
	t.Helper()
	a := &domain.Account{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
	}
	require.NoError(t, store.CreateAccount(context.Background(), a))
	return a
}

func createProduct(t *testing.T, store *ProductStore, name, price string, stock int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:         name,
		Description:  "integration product",
		Image:        "default.png",
		Quantity:     stock,
		Price:        decimal.RequireFromString(price),
		Discount:     decimal.Zero,
		SpecialPrice: decimal.RequireFromString(price),
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func TestAccountStore(t *testing.T) {
	ctx := context.Background()
	store := NewAccountStore(testPool(t))

	a := createAccount(t, store, "marta")

	got, err := store.GetAccountByUsername(ctx, "MARTA")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	dup := &domain.Account{Username: "Marta", Email: "x@example.com", PasswordHash: "h", Role: domain.RoleUser}
	assert.ErrorIs(t, store.CreateAccount(ctx, dup), domain.ErrUsernameTaken)

	dup = &domain.Account{Username: "other", Email: "MARTA@example.com", PasswordHash: "h", Role: domain.RoleUser}
	assert.ErrorIs(t, store.CreateAccount(ctx, dup), domain.ErrEmailTaken)

	_, err = store.GetAccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	now := time.Now()
	require.NoError(t, store.CreateSession(ctx, &domain.Session{Token: "live", UserID: a.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, store.CreateSession(ctx, &domain.Session{Token: "stale", UserID: a.ID, ExpiresAt: now.Add(-time.Hour)}))

	n, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetSession(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	sess, err := store.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, a.ID, sess.UserID)
}

func TestProductStore(t *testing.T) {
	ctx := context.Background()
	store := NewProductStore(testPool(t))

	p := createProduct(t, store, "Saffron", "12.35", 4)

	got, err := store.Lookup(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.35")))

	exists, err := store.ProductNameExists(ctx, "saffron", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.ProductNameExists(ctx, "saffron", p.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	dup := *p
	dup.ID = uuid.Nil
	dup.Name = "SAFFRON"
	assert.ErrorIs(t, store.CreateProduct(ctx, &dup), domain.ErrProductNameTaken)

	require.NoError(t, store.DeleteProduct(ctx, p.ID))
	_, err = store.Lookup(ctx, p.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCartStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	accounts := NewAccountStore(pool)
	products := NewProductStore(pool)
	carts := NewCartStore(pool)

	owner := createAccount(t, accounts, "rollback")
	p := createProduct(t, products, "Cardamom", "3.00", 10)

	boom := errors.New("boom")
	err := carts.InTx(ctx, func(tx domain.CartTx) error {
		cart, err := tx.CreateCart(ctx, owner.ID)
		if err != nil {
			return err
		}
		if err := tx.SaveItem(ctx, &domain.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1, UnitPrice: p.SpecialPrice}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := carts.ListCarts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProductStore_DeleteHeldByCart(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	accounts := NewAccountStore(pool)
	products := NewProductStore(pool)
	carts := NewCartStore(pool)

	owner := createAccount(t, accounts, "holder")
	p := createProduct(t, products, "Nutmeg", "4.00", 10)

	err := carts.InTx(ctx, func(tx domain.CartTx) error {
		cart, err := tx.CreateCart(ctx, owner.ID)
		if err != nil {
			return err
		}
		return tx.SaveItem(ctx, &domain.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1, UnitPrice: p.SpecialPrice})
	})
	require.NoError(t, err)

	err = products.DeleteProduct(ctx, p.ID)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.ErrorIs(t, err, domain.ErrProductInCart)

	_, err = products.Lookup(ctx, p.ID)
	assert.NoError(t, err)
}

func TestCartStore_CreateCartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	owner := createAccount(t, NewAccountStore(pool), "idem")
	carts := NewCartStore(pool)

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		err := carts.InTx(ctx, func(tx domain.CartTx) error {
			cart, err := tx.CreateCart(ctx, owner.ID)
			if err != nil {
				return err
			}
			ids = append(ids, cart.ID)
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, ids[0], ids[1])
}

func TestCartService_ConcurrentChangesOnPostgres(t *testing.T) {
	ctx := context.Background()
	pool := testPool(t)
	account := createAccount(t, NewAccountStore(pool), "busy")
	products := NewProductStore(pool)
	p := createProduct(t, products, "Pepper", "2.50", 1000)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewCartService(NewCartStore(pool), products, nil, logger)
	owner := domain.Owner{ID: account.ID, Email: account.Email}

	_, err := svc.AddItem(ctx, owner, p.ID, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ChangeQuantity(ctx, owner, p.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := svc.GetOwnerCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, view.Products, 1)
	assert.Equal(t, 21, view.Products[0].Quantity)
	assert.True(t, view.TotalPrice.Equal(decimal.RequireFromString("52.50")), "total = %s", view.TotalPrice)
}
