package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/cookie"
	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/events"
	"github.com/dukerupert/larder/internal/memory"
	"github.com/dukerupert/larder/internal/pricing"
	"github.com/dukerupert/larder/internal/service"
	"github.com/dukerupert/larder/internal/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	products *memory.ProductStore
	carts    domain.CartService
	catalog  domain.CatalogService
	accounts domain.AccountService

	cartHandler    *CartHandler
	productHandler *ProductHandler
	authHandler    *AuthHandler
}

func newFixture(t *testing.T, products ...domain.Product) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := memory.NewProductStore(products...)
	carts := service.NewCartService(memory.NewCartStore(), store, nil, logger)

	bus := events.NewLocalBus(logger)
	require.NoError(t, bus.Subscribe(events.SyncCartsHandler(carts, logger)))

	images, err := storage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)
	catalog := service.NewCatalogService(store, carts, bus, images, logger)

	accountStore := memory.NewAccountStore()
	accounts := service.NewAccountService(accountStore, accountStore, auth.NewHasher(bcrypt.MinCost), time.Hour, logger)

	return &fixture{
		products:       store,
		carts:          carts,
		catalog:        catalog,
		accounts:       accounts,
		cartHandler:    NewCartHandler(carts),
		productHandler: NewProductHandler(catalog),
		authHandler:    NewAuthHandler(accounts, cookie.NewConfig(false)),
	}
}

func product(name, price, discount string, stock int) domain.Product {
	p := decimal.RequireFromString(price)
	d := decimal.RequireFromString(discount)
	return domain.Product{
		ID:           uuid.New(),
		Name:         name,
		Description:  name + " from the pantry",
		Quantity:     stock,
		Price:        p,
		Discount:     d,
		SpecialPrice: pricing.SpecialPrice(p, d),
	}
}

func shopper(role domain.Role) *domain.User {
	id := uuid.New()
	return &domain.User{ID: id, Username: "user-" + id.String()[:6], Email: id.String()[:8] + "@example.com", Role: role}
}

// request builds a request carrying the principal and path values.
func request(method, target string, body io.Reader, user *domain.User, pathValues map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(domain.NewContextWithUser(req.Context(), user))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

// =============================================================================
// Cart handler
// =============================================================================

func TestCartHandler_AddItem(t *testing.T) {
	oil := product("Olive Oil", "10.00", "25", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)

	rec := httptest.NewRecorder()
	f.cartHandler.AddItem(rec, request(http.MethodPost, "/", nil, user, map[string]string{
		"productId": oil.ID.String(),
		"quantity":  "2",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[CartResponse](t, rec)
	assertDecimal(t, "15.00", cart.TotalPrice)
	require.Len(t, cart.Products, 1)

	line := cart.Products[0]
	assert.Equal(t, oil.ID, line.ProductID)
	assert.Equal(t, "Olive Oil", line.ProductName)
	assert.Equal(t, 2, line.Quantity)
	assertDecimal(t, "10.00", line.Price)
	assertDecimal(t, "25", line.Discount)
	assertDecimal(t, "7.50", line.SpecialPrice)
}

func TestCartHandler_AddItem_Errors(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 3)

	tests := []struct {
		name       string
		user       *domain.User
		productID  string
		quantity   string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "anonymous",
			productID:  oil.ID.String(),
			quantity:   "1",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid product id",
			user:       shopper(domain.RoleUser),
			productID:  "not-a-uuid",
			quantity:   "1",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid productId",
		},
		{
			name:       "non-numeric quantity",
			user:       shopper(domain.RoleUser),
			productID:  oil.ID.String(),
			quantity:   "two",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid quantity",
		},
		{
			name:       "zero quantity",
			user:       shopper(domain.RoleUser),
			productID:  oil.ID.String(),
			quantity:   "0",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Quantity must be greater than 0",
		},
		{
			name:       "more than stock",
			user:       shopper(domain.RoleUser),
			productID:  oil.ID.String(),
			quantity:   "4",
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Please make an order of the Olive Oil less than or equal to the quantity: 3",
		},
		{
			name:       "unknown product",
			user:       shopper(domain.RoleUser),
			productID:  uuid.NewString(),
			quantity:   "1",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, oil)
			rec := httptest.NewRecorder()
			f.cartHandler.AddItem(rec, request(http.MethodPost, "/", nil, tt.user, map[string]string{
				"productId": tt.productID,
				"quantity":  tt.quantity,
			}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMsg != "" {
				body := decode[errorBody](t, rec)
				assert.Equal(t, tt.wantMsg, body.Error.Message)
			}
		})
	}
}

func TestCartHandler_AddItem_Duplicate(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)
	paths := map[string]string{"productId": oil.ID.String(), "quantity": "1"}

	rec := httptest.NewRecorder()
	f.cartHandler.AddItem(rec, request(http.MethodPost, "/", nil, user, paths))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.cartHandler.AddItem(rec, request(http.MethodPost, "/", nil, user, paths))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "Product Olive Oil already exists in the cart", body.Error.Message)
}

func TestCartHandler_ChangeQuantity(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)

	_, err := f.carts.AddItem(context.Background(), user.Owner(), oil.ID, 2)
	require.NoError(t, err)

	tests := []struct {
		operation    string
		wantStatus   int
		wantQuantity int
		wantTotal    string
	}{
		{operation: "increase", wantStatus: http.StatusOK, wantQuantity: 3, wantTotal: "30.00"},
		{operation: "DELETE", wantStatus: http.StatusOK, wantQuantity: 2, wantTotal: "20.00"},
		{operation: "double", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.operation, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.cartHandler.ChangeQuantity(rec, request(http.MethodPut, "/", nil, user, map[string]string{
				"productId": oil.ID.String(),
				"operation": tt.operation,
			}))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			cart := decode[CartResponse](t, rec)
			require.Len(t, cart.Products, 1)
			assert.Equal(t, tt.wantQuantity, cart.Products[0].Quantity)
			assertDecimal(t, tt.wantTotal, cart.TotalPrice)
		})
	}
}

func TestCartHandler_ChangeQuantity_RemovesLineAtZero(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)

	_, err := f.carts.AddItem(context.Background(), user.Owner(), oil.ID, 1)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.cartHandler.ChangeQuantity(rec, request(http.MethodPut, "/", nil, user, map[string]string{
		"productId": oil.ID.String(),
		"operation": "delete",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[CartResponse](t, rec)
	assert.Empty(t, cart.Products)
	assertDecimal(t, "0", cart.TotalPrice)
}

func TestCartHandler_OwnerCart(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)

	t.Run("no cart yet", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.cartHandler.OwnerCart(rec, request(http.MethodGet, "/", nil, user, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("existing cart", func(t *testing.T) {
		_, err := f.carts.AddItem(context.Background(), user.Owner(), oil.ID, 1)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		f.cartHandler.OwnerCart(rec, request(http.MethodGet, "/", nil, user, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		cart := decode[CartResponse](t, rec)
		assert.Len(t, cart.Products, 1)
	})
}

func TestCartHandler_List(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)

	for range 2 {
		_, err := f.carts.AddItem(context.Background(), shopper(domain.RoleUser).Owner(), oil.ID, 1)
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	f.cartHandler.List(rec, request(http.MethodGet, "/", nil, shopper(domain.RoleAdmin), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	carts := decode[[]CartResponse](t, rec)
	assert.Len(t, carts, 2)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	owner := shopper(domain.RoleUser)

	view, err := f.carts.AddItem(context.Background(), owner.Owner(), oil.ID, 1)
	require.NoError(t, err)
	paths := map[string]string{"cartId": view.CartID.String(), "productId": oil.ID.String()}

	t.Run("other user sees not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.cartHandler.RemoveItem(rec, request(http.MethodDelete, "/", nil, shopper(domain.RoleUser), paths))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		cart, err := f.carts.GetOwnerCart(context.Background(), owner.Owner())
		require.NoError(t, err)
		assert.Len(t, cart.Products, 1)
	})

	t.Run("owner removes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.cartHandler.RemoveItem(rec, request(http.MethodDelete, "/", nil, owner, paths))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode[map[string]string](t, rec)
		assert.Equal(t, "Product Olive Oil has been removed from the cart", body["message"])
	})

	t.Run("already removed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.cartHandler.RemoveItem(rec, request(http.MethodDelete, "/", nil, owner, paths))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCartHandler_RemoveItem_Admin(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)

	view, err := f.carts.AddItem(context.Background(), shopper(domain.RoleUser).Owner(), oil.ID, 1)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.cartHandler.RemoveItem(rec, request(http.MethodDelete, "/", nil, shopper(domain.RoleAdmin), map[string]string{
		"cartId":    view.CartID.String(),
		"productId": oil.ID.String(),
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartHandler_SyncItemPrice(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)

	view, err := f.carts.AddItem(context.Background(), user.Owner(), oil.ID, 2)
	require.NoError(t, err)

	repriced := oil
	repriced.Price = decimal.RequireFromString("12.00")
	repriced.SpecialPrice = repriced.Price
	f.products.Put(repriced)

	rec := httptest.NewRecorder()
	f.cartHandler.SyncItemPrice(rec, request(http.MethodPost, "/", nil, shopper(domain.RoleAdmin), map[string]string{
		"cartId":    view.CartID.String(),
		"productId": oil.ID.String(),
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	cart, err := f.carts.GetOwnerCart(context.Background(), user.Owner())
	require.NoError(t, err)
	assertDecimal(t, "24.00", cart.TotalPrice)
}

// =============================================================================
// Product handler
// =============================================================================

func TestProductHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{
			name:       "valid",
			body:       `{"productName":"Sea Salt","description":"Flaky sea salt","quantity":40,"price":5.00,"discount":20}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "short name and description",
			body:       `{"productName":"Sa","description":"salt","quantity":1,"price":5,"discount":0}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"productName", "description"},
		},
		{
			name:       "negative quantity",
			body:       `{"productName":"Sea Salt","description":"Flaky sea salt","quantity":-1,"price":5,"discount":0}`,
			wantStatus: http.StatusBadRequest,
			wantFields: []string{"quantity"},
		},
		{
			name:       "malformed",
			body:       `{"productName":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := httptest.NewRecorder()
			f.productHandler.Create(rec, request(http.MethodPost, "/", strings.NewReader(tt.body), shopper(domain.RoleAdmin), nil))

			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusCreated {
				p := decode[ProductResponse](t, rec)
				assert.NotEqual(t, uuid.Nil, p.ProductID)
				assertDecimal(t, "4.00", p.SpecialPrice)
				return
			}
			body := decode[errorBody](t, rec)
			for _, field := range tt.wantFields {
				assert.Contains(t, body.Error.Fields, field)
			}
		})
	}
}

func TestProductHandler_Update_SyncsCarts(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)

	_, err := f.carts.AddItem(context.Background(), user.Owner(), oil.ID, 2)
	require.NoError(t, err)

	body := `{"productName":"Olive Oil","description":"Cold pressed olive oil","quantity":5,"price":10.00,"discount":50}`
	rec := httptest.NewRecorder()
	f.productHandler.Update(rec, request(http.MethodPut, "/", strings.NewReader(body), shopper(domain.RoleAdmin), map[string]string{
		"productId": oil.ID.String(),
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := decode[ProductResponse](t, rec)
	assertDecimal(t, "5.00", p.SpecialPrice)

	cart, err := f.carts.GetOwnerCart(context.Background(), user.Owner())
	require.NoError(t, err)
	assertDecimal(t, "10.00", cart.TotalPrice)
}

func TestProductHandler_GetAndList(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	salt := product("Sea Salt", "5.00", "0", 5)
	f := newFixture(t, oil, salt)

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.productHandler.Get(rec, request(http.MethodGet, "/", nil, nil, map[string]string{"productId": salt.ID.String()}))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Sea Salt", decode[ProductResponse](t, rec).ProductName)
	})

	t.Run("get unknown", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.productHandler.Get(rec, request(http.MethodGet, "/", nil, nil, map[string]string{"productId": uuid.NewString()}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.productHandler.List(rec, request(http.MethodGet, "/?limit=1&offset=1", nil, nil, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		page := decode[ProductPageResponse](t, rec)
		assert.Equal(t, 2, page.Total)
		assert.Equal(t, 1, page.Limit)
		assert.Equal(t, 1, page.Offset)
		require.Len(t, page.Products, 1)
		assert.Equal(t, "Sea Salt", page.Products[0].ProductName)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		f.productHandler.List(rec, request(http.MethodGet, "/?limit=many", nil, nil, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProductHandler_Delete_RemovesFromCarts(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)
	user := shopper(domain.RoleUser)

	_, err := f.carts.AddItem(context.Background(), user.Owner(), oil.ID, 1)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	f.productHandler.Delete(rec, request(http.MethodDelete, "/", nil, shopper(domain.RoleAdmin), map[string]string{
		"productId": oil.ID.String(),
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	cart, err := f.carts.GetOwnerCart(context.Background(), user.Owner())
	require.NoError(t, err)
	assert.Empty(t, cart.Products)
	assertDecimal(t, "0", cart.TotalPrice)
}

func TestProductHandler_UploadImage(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "oil.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := request(http.MethodPut, "/", &buf, shopper(domain.RoleAdmin), map[string]string{"productId": oil.ID.String()})
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	f.productHandler.UploadImage(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	p := decode[ProductResponse](t, rec)
	assert.True(t, strings.HasPrefix(p.Image, "/uploads/products/"), p.Image)
	assert.True(t, strings.HasSuffix(p.Image, ".png"), p.Image)
}

func TestProductHandler_UploadImage_MissingFile(t *testing.T) {
	oil := product("Olive Oil", "10.00", "0", 5)
	f := newFixture(t, oil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("caption", "no file"))
	require.NoError(t, mw.Close())

	req := request(http.MethodPut, "/", &buf, shopper(domain.RoleAdmin), map[string]string{"productId": oil.ID.String()})
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	f.productHandler.UploadImage(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Image file is required", decode[errorBody](t, rec).Error.Message)
}

// =============================================================================
// Auth handler
// =============================================================================

func TestAuthHandler_SignupSigninSignout(t *testing.T) {
	f := newFixture(t)

	signup := `{"username":"pantry","email":"pantry@example.com","password":"secret1"}`
	rec := httptest.NewRecorder()
	f.authHandler.Signup(rec, request(http.MethodPost, "/", strings.NewReader(signup), nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "User registered successfully!", decode[map[string]string](t, rec)["message"])

	rec = httptest.NewRecorder()
	f.authHandler.Signup(rec, request(http.MethodPost, "/", strings.NewReader(signup), nil, nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	f.authHandler.Signin(rec, request(http.MethodPost, "/", strings.NewReader(`{"username":"pantry","password":"secret1"}`), nil, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	info := decode[UserInfoResponse](t, rec)
	assert.Equal(t, "pantry", info.Username)
	assert.Equal(t, []string{"ROLE_USER"}, info.Roles)
	require.NotEmpty(t, info.Token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookie.SessionCookieName, cookies[0].Name)
	assert.Equal(t, info.Token, cookies[0].Value)

	user, err := f.accounts.ResolveSession(context.Background(), info.Token)
	require.NoError(t, err)
	assert.Equal(t, info.ID, user.ID)

	req := request(http.MethodPost, "/", nil, nil, nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	f.authHandler.Signout(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You have been signed out!", decode[map[string]string](t, rec)["message"])

	_, err = f.accounts.ResolveSession(context.Background(), info.Token)
	assert.Error(t, err)
}

func TestAuthHandler_Signup_Validation(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	body := `{"username":"ab","email":"not-an-email","password":"123"}`
	f.authHandler.Signup(rec, request(http.MethodPost, "/", strings.NewReader(body), nil, nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[errorBody](t, rec).Error.Fields
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestAuthHandler_Signup_IgnoresRole(t *testing.T) {
	f := newFixture(t)

	body := `{"username":"sneaky","email":"sneaky@example.com","password":"secret1","role":["admin"]}`
	rec := httptest.NewRecorder()
	f.authHandler.Signup(rec, request(http.MethodPost, "/", strings.NewReader(body), nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, session, err := f.accounts.Authenticate(context.Background(), "sneaky", "secret1")
	require.NoError(t, err)
	user, err := f.accounts.ResolveSession(context.Background(), session.Token)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin())
}

func TestAuthHandler_Signin_BadCredentials(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	f.authHandler.Signin(rec, request(http.MethodPost, "/", strings.NewReader(`{"username":"ghost","password":"secret1"}`), nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAuthHandler_User(t *testing.T) {
	f := newFixture(t)
	admin := shopper(domain.RoleAdmin)

	rec := httptest.NewRecorder()
	f.authHandler.User(rec, request(http.MethodGet, "/", nil, admin, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[UserInfoResponse](t, rec)
	assert.Equal(t, admin.ID, info.ID)
	assert.Equal(t, []string{"ROLE_ADMIN"}, info.Roles)
	assert.Empty(t, info.Token)

	rec = httptest.NewRecorder()
	f.authHandler.User(rec, request(http.MethodGet, "/", nil, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_Username(t *testing.T) {
	f := newFixture(t)
	user := shopper(domain.RoleUser)

	rec := httptest.NewRecorder()
	f.authHandler.Username(rec, request(http.MethodGet, "/", nil, user, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.Username, rec.Body.String())

	rec = httptest.NewRecorder()
	f.authHandler.Username(rec, request(http.MethodGet, "/", nil, nil, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
