package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farmbasket-dev/farmbasket-backend/api/middleware"
	"github.com/farmbasket-dev/farmbasket-backend/api/responses"
	"github.com/farmbasket-dev/farmbasket-backend/api/validators"
	"github.com/farmbasket-dev/farmbasket-backend/internal/cart"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
)

// CartController exposes the buyer cart endpoints.
type CartController struct {
	Cart cart.Service
	Logg *logger.Logger
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

func (c *CartController) Get(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	view, err := c.Cart.Get(r.Context(), buyerID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}

func (c *CartController) AddItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req addCartItemRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
		return
	}

	view, err := c.Cart.AddItem(r.Context(), buyerID, productID, req.Quantity)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, view)
}

func (c *CartController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	productID, err := parseUUIDParam(r, "productID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	var req updateCartItemRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	view, err := c.Cart.UpdateItem(r.Context(), buyerID, productID, req.Quantity)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}

func (c *CartController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	productID, err := parseUUIDParam(r, "productID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	view, err := c.Cart.RemoveItem(r.Context(), buyerID, productID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, view)
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]string{name: "must be a valid uuid"})
	}
	return id, nil
}
