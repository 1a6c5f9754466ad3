package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
)

// maxImageMemory is the multipart memory threshold for image uploads.
const maxImageMemory = 10 << 20

// ProductHandler serves the catalog routes.
type ProductHandler struct {
	catalog domain.CatalogService
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog domain.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List handles GET /api/products?limit=&offset=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid limit")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		handler.BadRequestResponse(w, r, "Invalid offset")
		return
	}

	page, err := h.catalog.ListProducts(r.Context(), limit, offset)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	resp := ProductPageResponse{
		Products: make([]ProductResponse, 0, len(page.Products)),
		Limit:    page.Limit,
		Offset:   page.Offset,
		Total:    page.Total,
	}
	for i := range page.Products {
		resp.Products = append(resp.Products, newProductResponse(&page.Products[i]))
	}
	handler.JSON(w, http.StatusOK, resp)
}

// Get handles GET /api/products/{productId}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := handler.PathUUID(r, "api.product.get", "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newProductResponse(product))
}

// Create handles POST /api/admin/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "api.product.create"

	var req ProductRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("product created", "product_id", product.ID, "name", product.Name)
	handler.JSON(w, http.StatusCreated, newProductResponse(product))
}

// Update handles PUT /api/admin/products/{productId}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "api.product.update"

	productID, err := handler.PathUUID(r, op, "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req ProductRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), productID, req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newProductResponse(product))
}

// Delete handles DELETE /api/admin/products/{productId}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, err := handler.PathUUID(r, "api.product.delete", "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.DeleteProduct(r.Context(), productID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("product deleted", "product_id", product.ID)
	handler.JSON(w, http.StatusOK, newProductResponse(product))
}

// UploadImage handles PUT /api/admin/products/{productId}/image with the
// file in the multipart field "image".
func (h *ProductHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	const op = "api.product.image"

	productID, err := handler.PathUUID(r, op, "productId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handler.ErrorResponse(w, r, domain.Invalid(op, "Image file too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.WithOp(domain.ErrNoImage, op))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		handler.ErrorResponse(w, r, domain.WithOp(domain.ErrNoImage, op))
		return
	}
	defer file.Close()

	product, err := h.catalog.UpdateProductImage(r.Context(), productID, header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newProductResponse(product))
}

// queryInt reads an optional integer query parameter. Missing means 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
