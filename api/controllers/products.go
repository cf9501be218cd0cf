package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmbasket-dev/farmbasket-backend/api/middleware"
	"github.com/farmbasket-dev/farmbasket-backend/api/responses"
	"github.com/farmbasket-dev/farmbasket-backend/api/validators"
	product "github.com/farmbasket-dev/farmbasket-backend/internal/products"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

const (
	defaultProductPageSize = 20
	maxProductPageSize     = 100
)

// ProductsController exposes the catalog endpoints.
type ProductsController struct {
	Products product.Service
	Logg     *logger.Logger
}

type createProductRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Category    string   `json:"category" validate:"required,max=100"`
	Price       string   `json:"price" validate:"required"`
	Unit        string   `json:"unit" validate:"omitempty,max=20"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Images      []string `json:"images" validate:"omitempty,max=10"`
}

type updateProductRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Price    *string `json:"price"`
	Stock    *int    `json:"stock" validate:"omitempty,gte=0"`
	IsActive *bool   `json:"isActive"`
}

type productView struct {
	ID            uuid.UUID `json:"id"`
	FarmerID      uuid.UUID `json:"farmerId"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Category      string    `json:"category"`
	Price         string    `json:"price"`
	Unit          string    `json:"unit"`
	Stock         int       `json:"stock"`
	Images        []string  `json:"images,omitempty"`
	IsActive      bool      `json:"isActive"`
	AverageRating float64   `json:"averageRating"`
	RatingCount   int       `json:"ratingCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

func buildProductView(p *models.Product) productView {
	return productView{
		ID:            p.ID,
		FarmerID:      p.FarmerID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price.StringFixed(2),
		Unit:          p.Unit,
		Stock:         p.Stock,
		Images:        []string(p.Images),
		IsActive:      p.IsActive,
		AverageRating: p.AverageRating,
		RatingCount:   p.RatingCount,
		CreatedAt:     p.CreatedAt,
	}
}

func (c *ProductsController) List(w http.ResponseWriter, r *http.Request) {
	limit, err := validators.ParseQueryInt(r, "limit", defaultProductPageSize)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	if limit <= 0 || limit > maxProductPageSize {
		limit = defaultProductPageSize
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	if offset < 0 {
		offset = 0
	}

	filter := product.ListFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := r.URL.Query().Get("farmerId"); raw != "" {
		farmerID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid farmer id"))
			return
		}
		filter.FarmerID = &farmerID
	}

	list, err := c.Products.List(r.Context(), filter)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	views := make([]productView, 0, len(list))
	for i := range list {
		views = append(views, buildProductView(&list[i]))
	}
	responses.WriteSuccess(w, views)
}

func (c *ProductsController) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := parseUUIDParam(r, "productID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	found, err := c.Products.Get(r.Context(), productID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, buildProductView(found))
}

func (c *ProductsController) Create(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req createProductRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid price"))
		return
	}

	created, err := c.Products.Create(r.Context(), product.CreateInput{
		FarmerID:    farmerID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       price,
		Unit:        req.Unit,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, buildProductView(created))
}

func (c *ProductsController) Update(w http.ResponseWriter, r *http.Request) {
	farmerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	productID, err := parseUUIDParam(r, "productID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	var req updateProductRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	input := product.UpdateInput{
		ProductID: productID,
		FarmerID:  farmerID,
		Name:      req.Name,
		Stock:     req.Stock,
		IsActive:  req.IsActive,
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil {
			responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid price"))
			return
		}
		input.Price = &price
	}

	updated, err := c.Products.Update(r.Context(), input)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, buildProductView(updated))
}
