package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/farmbasket-dev/farmbasket-backend/api/middleware"
	"github.com/farmbasket-dev/farmbasket-backend/api/responses"
	"github.com/farmbasket-dev/farmbasket-backend/api/validators"
	"github.com/farmbasket-dev/farmbasket-backend/internal/orders"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/enums"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/logger"
	"github.com/farmbasket-dev/farmbasket-backend/pkg/types"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrdersController exposes the order lifecycle endpoints.
type OrdersController struct {
	Orders orders.Service
	Logg   *logger.Logger
}

type checkoutRequest struct {
	DeliveryAddress *types.Address `json:"deliveryAddress"`
	Notes           *string        `json:"notes" validate:"omitempty,max=500"`
}

type cancelOrderRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type orderItemView struct {
	ProductID   uuid.UUID `json:"productId"`
	FarmerID    uuid.UUID `json:"farmerId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unitPrice"`
	LineTotal   string    `json:"lineTotal"`
}

type orderView struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	Status          string          `json:"status"`
	TotalAmount     string          `json:"totalAmount"`
	Currency        string          `json:"currency"`
	DeliveryAddress *types.Address  `json:"deliveryAddress,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	Items           []orderItemView `json:"items"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func buildOrderView(order *models.Order) orderView {
	view := orderView{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status.String(),
		TotalAmount:     order.TotalAmount.StringFixed(2),
		Currency:        order.Currency.String(),
		DeliveryAddress: order.DeliveryAddress,
		Notes:           order.Notes,
		Items:           make([]orderItemView, 0, len(order.Items)),
		CancelledAt:     order.CancelledAt,
		DeliveredAt:     order.DeliveredAt,
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ProductID:   item.ProductID,
			FarmerID:    item.FarmerID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			LineTotal:   item.LineTotal.StringFixed(2),
		})
	}
	return view
}

func (c *OrdersController) actor(r *http.Request) (orders.Actor, bool) {
	userID, okID := middleware.UserIDFromContext(r.Context())
	role, okRole := middleware.RoleFromContext(r.Context())
	if !okID || !okRole {
		return orders.Actor{}, false
	}
	return orders.Actor{UserID: userID, Role: role}, true
}

func (c *OrdersController) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req checkoutRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	result, err := c.Orders.Checkout(r.Context(), orders.CheckoutInput{
		Actor:           actor,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccessStatus(w, http.StatusCreated, result)
}

func (c *OrdersController) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}

	limit, err := validators.ParseQueryInt(r, "limit", defaultOrderPageSize)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	if limit <= 0 || limit > maxOrderPageSize {
		limit = defaultOrderPageSize
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	if offset < 0 {
		offset = 0
	}

	list, err := c.Orders.List(r.Context(), actor, limit, offset)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	views := make([]orderView, 0, len(list))
	for i := range list {
		views = append(views, buildOrderView(&list[i]))
	}
	responses.WriteSuccess(w, views)
}

func (c *OrdersController) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	orderID, err := parseUUIDParam(r, "orderID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	order, err := c.Orders.Get(r.Context(), actor, orderID)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, buildOrderView(order))
}

func (c *OrdersController) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	orderID, err := parseUUIDParam(r, "orderID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	var req cancelOrderRequest
	if r.ContentLength > 0 {
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), c.Logg, w, err)
			return
		}
	}

	if err := c.Orders.Cancel(r.Context(), orders.CancelInput{
		Actor:   actor,
		OrderID: orderID,
		Reason:  req.Reason,
	}); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
}

func (c *OrdersController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := c.actor(r)
	if !ok {
		responses.WriteError(r.Context(), c.Logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return
	}
	orderID, err := parseUUIDParam(r, "orderID")
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}

	var req updateOrderStatusRequest
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	next, err := enums.ParseOrderStatus(req.Status)
	if err != nil {
		responses.WriteError(r.Context(), c.Logg, w,
			pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
				WithDetails(map[string]string{"status": "unknown value"}))
		return
	}

	if err := c.Orders.UpdateStatus(r.Context(), orders.UpdateStatusInput{
		Actor:   actor,
		OrderID: orderID,
		Next:    next,
	}); err != nil {
		responses.WriteError(r.Context(), c.Logg, w, err)
		return
	}
	responses.WriteSuccess(w, map[string]string{"status": next.String()})
}
