package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/farmbasket-dev/farmbasket-backend/pkg/db/models"
	pkgerrors "github.com/farmbasket-dev/farmbasket-backend/pkg/errors"
)

const defaultMaxQtyPerItem = 10

type productReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// View is the cart read model returned to controllers. Line prices reflect the
// live product price, not the price at add time.
type View struct {
	CartID  uuid.UUID  `json:"cartId"`
	BuyerID uuid.UUID  `json:"buyerId"`
	Items   []ItemView `json:"items"`
	Total   string     `json:"total"`
}

// ItemView is a single cart line with its current pricing.
type ItemView struct {
	ItemID      uuid.UUID `json:"itemId"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int       `json:"quantity"`
	UnitPrice   string    `json:"unitPrice"`
	LineTotal   string    `json:"lineTotal"`
	Available   bool      `json:"available"`
}

// Service manages the buyer's cart.
type Service interface {
	Get(ctx context.Context, buyerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*View, error)
	UpdateItem(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*View, error)
}

type service struct {
	repo       *Repository
	products   productReader
	maxPerItem int
}

// NewService builds a cart service with the required dependencies.
func NewService(repo *Repository, products productReader, maxPerItem int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if maxPerItem <= 0 {
		maxPerItem = defaultMaxQtyPerItem
	}
	return &service{repo: repo, products: products, maxPerItem: maxPerItem}, nil
}

func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	cart, err := s.repo.FindOrCreateByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.buildView(ctx, cart)
}

func (s *service) AddItem(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*View, error) {
	if err := s.validateLine(buyerID, productID, quantity); err != nil {
		return nil, err
	}

	product, err := s.loadPurchasable(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.FindOrCreateByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		newQty := existing.Quantity + quantity
		if newQty > s.maxPerItem {
			return nil, s.maxQtyError(productID)
		}
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, newQty); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if quantity > s.maxPerItem {
			return nil, s.maxQtyError(productID)
		}
		item := models.CartItem{
			ID:         uuid.New(),
			CartID:     cart.ID,
			ProductID:  productID,
			Quantity:   quantity,
			PriceAtAdd: product.Price,
		}
		if err := s.repo.CreateItem(ctx, &item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	return s.Get(ctx, buyerID)
}

func (s *service) UpdateItem(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*View, error) {
	if err := s.validateLine(buyerID, productID, quantity); err != nil {
		return nil, err
	}
	if quantity > s.maxPerItem {
		return nil, s.maxQtyError(productID)
	}

	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) RemoveItem(ctx context.Context, buyerID, productID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	cart, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) validateLine(buyerID, productID uuid.UUID, quantity int) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func (s *service) maxQtyError(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity exceeds limit of %d per item", s.maxPerItem)).
		WithDetails(map[string]any{"product_id": productID.String(), "max": s.maxPerItem})
}

func (s *service) loadPurchasable(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is not available")
	}
	return product, nil
}

func (s *service) buildView(ctx context.Context, cart *models.Cart) (*View, error) {
	view := &View{
		CartID:  cart.ID,
		BuyerID: cart.BuyerID,
		Items:   make([]ItemView, 0, len(cart.Items)),
	}

	total := decimal.Zero
	for _, item := range cart.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		line := ItemView{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
		if product != nil {
			line.ProductName = product.Name
			line.Available = product.IsActive && product.Stock >= item.Quantity
			unit := product.Price.Round(2)
			lineTotal := unit.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
			line.UnitPrice = unit.StringFixed(2)
			line.LineTotal = lineTotal.StringFixed(2)
			if line.Available {
				total = total.Add(lineTotal)
			}
		}
		view.Items = append(view.Items, line)
	}

	view.Total = total.Round(2).StringFixed(2)
	return view, nil
}
