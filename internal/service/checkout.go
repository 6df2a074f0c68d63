package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"marketflow/internal/cart"
	"marketflow/internal/models"
	"marketflow/internal/util"

	"go.uber.org/zap"
)

// Pricing turns a cart subtotal into an order total
type Pricing struct {
	FreeShippingThreshold float64
	ShippingFee           float64
	TaxRate               float64
}

// DefaultPricing ships free above 100 and taxes at 8%
var DefaultPricing = Pricing{
	FreeShippingThreshold: 100,
	ShippingFee:           9.99,
	TaxRate:               0.08,
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Quote prices items. Each component is rounded to cents.
func (p Pricing) Quote(items []models.CartItem) (models.PriceBreakdown, float64) {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = roundCents(subtotal)

	shipping := p.ShippingFee
	if subtotal > p.FreeShippingThreshold {
		shipping = 0
	}

	breakdown := models.PriceBreakdown{
		Subtotal: subtotal,
		Shipping: roundCents(shipping),
		Tax:      roundCents(subtotal * p.TaxRate),
	}
	return breakdown, roundCents(breakdown.Subtotal + breakdown.Shipping + breakdown.Tax)
}

// IdempotencyStore remembers which order a checkout key produced
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (int64, bool, error)
	SetIdempotencyKey(ctx context.Context, key string, orderID int64, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// CheckoutRequest is the payload of a checkout submission
type CheckoutRequest struct {
	BuyerID         int64                  `json:"buyerId"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	IdempotencyKey  string                 `json:"idempotencyKey,omitempty"`
}

// CheckoutService converts the cart into an order
type CheckoutService struct {
	cart           *cart.Store
	orders         *OrderService
	pricing        Pricing
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
}

// NewCheckoutService creates a checkout service. idempotency may be nil.
func NewCheckoutService(cartStore *cart.Store, orders *OrderService, pricing Pricing, idempotency IdempotencyStore, idempotencyTTL time.Duration) *CheckoutService {
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &CheckoutService{
		cart:           cartStore,
		orders:         orders,
		pricing:        pricing,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
	}
}

// Quote prices the current cart
func (s *CheckoutService) Quote() (models.PriceBreakdown, float64) {
	return s.pricing.Quote(s.cart.State().Items)
}

// PlaceOrder creates a pending order from the cart and clears it
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *CheckoutRequest) (order models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer func() {
		util.CheckoutsTotal.WithLabelValues(errorResult(err)).Inc()
		util.EndSpan(span, err)
	}()

	useKey := s.idempotency != nil && req.IdempotencyKey != ""
	if useKey {
		if prior, found, err := s.replay(ctx, req.IdempotencyKey); found || err != nil {
			return prior, err
		}

		lockKey := "checkout:" + req.IdempotencyKey
		acquired, err := s.idempotency.AcquireLock(ctx, lockKey, 30*time.Second)
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to acquire checkout lock: %w", err)
		}
		if !acquired {
			return models.Order{}, conflictErrorf("checkout %s is already in progress", req.IdempotencyKey)
		}
		defer func() {
			if err := s.idempotency.ReleaseLock(context.Background(), lockKey); err != nil {
				s.logger.Error("Failed to release checkout lock", zap.Error(err))
			}
		}()

		// the holder we waited on may have finished between the lookup and the lock
		if prior, found, err := s.replay(ctx, req.IdempotencyKey); found || err != nil {
			return prior, err
		}
	}

	items := s.cart.State().Items
	if len(items) == 0 {
		return models.Order{}, validationErrorf("Cart is empty")
	}
	if err = validateStruct(req.ShippingAddress); err != nil {
		return models.Order{}, err
	}

	breakdown, total := s.pricing.Quote(items)
	lines := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err = s.orders.Create(ctx, OrderInput{
		BuyerID:         req.BuyerID,
		Items:           lines,
		Total:           total,
		Breakdown:       &breakdown,
		Status:          models.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to create order: %w", err)
	}

	s.cart.ClearCart(ctx)

	if useKey {
		if err := s.idempotency.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID, s.idempotencyTTL); err != nil {
			s.logger.Error("Failed to store idempotency key", zap.Error(err))
		}
	}

	s.logger.Info("Checkout completed",
		zap.Int64("order_id", order.ID),
		zap.Float64("total", total))
	return order, nil
}

// replay returns the order a completed checkout stored under key
func (s *CheckoutService) replay(ctx context.Context, key string) (models.Order, bool, error) {
	orderID, found, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		return models.Order{}, false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !found {
		return models.Order{}, false, nil
	}
	s.logger.Info("Checkout replayed",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", orderID))
	order, err := s.orders.GetByID(ctx, orderID)
	return order, true, err
}
