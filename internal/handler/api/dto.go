// Package api implements the JSON HTTP handlers for carts, products and
// accounts.
package api

import (
	"strings"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartResponse is the reconciled cart view.
type CartResponse struct {
	CartID     uuid.UUID             `json:"cartId"`
	TotalPrice decimal.Decimal       `json:"totalPrice"`
	Products   []CartProductResponse `json:"products"`
}

// CartProductResponse is one cart line. Quantity, discount and specialPrice
// are the line's own values; price is the current catalog base price.
type CartProductResponse struct {
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	SpecialPrice decimal.Decimal `json:"specialPrice"`
}

func newCartResponse(v *domain.CartView) CartResponse {
	resp := CartResponse{
		CartID:     v.CartID,
		TotalPrice: v.TotalPrice,
		Products:   make([]CartProductResponse, 0, len(v.Products)),
	}
	for _, p := range v.Products {
		resp.Products = append(resp.Products, CartProductResponse{
			ProductID:    p.ProductID,
			ProductName:  p.Name,
			Description:  p.Description,
			Image:        p.Image,
			Quantity:     p.Quantity,
			Price:        p.Price,
			Discount:     p.Discount,
			SpecialPrice: p.UnitPrice,
		})
	}
	return resp
}

// ProductResponse is a catalog record.
type ProductResponse struct {
	ProductID    uuid.UUID       `json:"productId"`
	ProductName  string          `json:"productName"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	SpecialPrice decimal.Decimal `json:"specialPrice"`
}

func newProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Description:  p.Description,
		Image:        p.Image,
		Quantity:     p.Quantity,
		Price:        p.Price,
		Discount:     p.Discount,
		SpecialPrice: p.SpecialPrice,
	}
}

// ProductPageResponse is one page of the catalog.
type ProductPageResponse struct {
	Products []ProductResponse `json:"products"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	Total    int               `json:"total"`
}

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	ProductName string          `json:"productName" validate:"required,min=3"`
	Description string          `json:"description" validate:"min=6"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Price       decimal.Decimal `json:"price"`
	Discount    decimal.Decimal `json:"discount"`
}

func (r ProductRequest) params() domain.ProductParams {
	return domain.ProductParams{
		Name:        r.ProductName,
		Description: r.Description,
		Quantity:    r.Quantity,
		Price:       r.Price,
		Discount:    r.Discount,
	}
}

// SignupRequest is the body of account registration.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=6,max=40"`
}

// SigninRequest is the body of sign-in.
type SigninRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserInfoResponse describes the authenticated principal.
type UserInfoResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
	Token    string    `json:"token,omitempty"`
}

func newUserInfo(u *domain.User) UserInfoResponse {
	return UserInfoResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    []string{"ROLE_" + strings.ToUpper(string(u.Role))},
	}
}
