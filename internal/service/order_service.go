package service

import (
	"context"
	"time"

	"marketflow/internal/models"
	"marketflow/internal/store"
	"marketflow/internal/util"

	"go.uber.org/zap"
)

// OrderService is the mock order API over the order table
type OrderService struct {
	orders         *store.Table[models.Order]
	eventPublisher EventPublisher
	latency        Latency
	logger         *zap.Logger
}

// NewOrderService creates a new order service. eventPublisher may be nil.
func NewOrderService(s *store.Store, eventPublisher EventPublisher, latency Latency) *OrderService {
	return &OrderService{
		orders:         s.Orders,
		eventPublisher: eventPublisher,
		latency:        latency,
		logger:         util.GetLogger(),
	}
}

// OrderInput is the payload for placing an order
type OrderInput struct {
	BuyerID         int64                  `json:"buyerId"`
	Items           []models.OrderItem     `json:"items" validate:"min=1,dive"`
	Total           float64                `json:"total" validate:"gte=0"`
	Breakdown       *models.PriceBreakdown `json:"breakdown"`
	Status          models.OrderStatus     `json:"status"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
}

// OrderUpdate carries the fields to change; nil fields are left alone
type OrderUpdate struct {
	BuyerID         *int64                  `json:"buyerId"`
	Items           *[]models.OrderItem     `json:"items"`
	Total           *float64                `json:"total"`
	Status          *models.OrderStatus     `json:"status"`
	ShippingAddress *models.ShippingAddress `json:"shippingAddress"`
}

func validateOrder(o models.Order) error {
	if !o.Status.Valid() {
		return validationErrorf("unknown order status %q", o.Status)
	}
	return validateStruct(OrderInput{
		BuyerID:         o.BuyerID,
		Items:           o.Items,
		Total:           o.Total,
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
	})
}

func orderItemData(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		data = append(data, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return data
}

// GetAll returns every order
func (s *OrderService) GetAll(ctx context.Context) (orders []models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "GetAll")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 400*time.Millisecond); err != nil {
		return nil, err
	}
	return s.orders.All(), nil
}

// GetByID returns one order
func (s *OrderService) GetByID(ctx context.Context, id int64) (order models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "GetByID")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 250*time.Millisecond); err != nil {
		return models.Order{}, err
	}
	return s.orders.Get(id)
}

// Create places a new order. Status defaults to pending, createdAt is stamped
// and the order is not reviewable until delivered.
func (s *OrderService) Create(ctx context.Context, in OrderInput) (order models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "Create")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 600*time.Millisecond); err != nil {
		return models.Order{}, err
	}

	if in.Status == "" {
		in.Status = models.OrderStatusPending
	}

	order = models.Order{
		BuyerID:         in.BuyerID,
		Items:           in.Items,
		Total:           in.Total,
		Breakdown:       in.Breakdown,
		Status:          in.Status,
		ShippingAddress: in.ShippingAddress,
		CreatedAt:       time.Now().UTC(),
		Reviewable:      false,
	}
	if err = validateOrder(order); err != nil {
		return models.Order{}, err
	}

	order, err = s.orders.Insert(order, nil)
	if err != nil {
		return models.Order{}, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("buyer_id", order.BuyerID),
		zap.Float64("total", order.Total))

	if s.eventPublisher != nil {
		event := &models.OrderCreatedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCreated),
			OrderID:   order.ID,
			BuyerID:   order.BuyerID,
			Total:     order.Total,
			Items:     orderItemData(order.Items),
		}
		if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	return order, nil
}

// Update merges the non-nil fields of u onto the order. It does not touch
// reviewable; use UpdateStatus for status transitions that should.
func (s *OrderService) Update(ctx context.Context, id int64, u OrderUpdate) (order models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "Update")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 400*time.Millisecond); err != nil {
		return models.Order{}, err
	}

	return s.orders.Update(id, func(cur models.Order, _ []models.Order) (models.Order, error) {
		if u.BuyerID != nil {
			cur.BuyerID = *u.BuyerID
		}
		if u.Items != nil {
			cur.Items = append([]models.OrderItem(nil), (*u.Items)...)
		}
		if u.Total != nil {
			cur.Total = *u.Total
		}
		if u.Status != nil {
			cur.Status = *u.Status
		}
		if u.ShippingAddress != nil {
			cur.ShippingAddress = *u.ShippingAddress
		}
		if err := validateOrder(cur); err != nil {
			return cur, err
		}
		return cur, nil
	})
}

// Delete removes an order and returns it
func (s *OrderService) Delete(ctx context.Context, id int64) (order models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "Delete")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return models.Order{}, err
	}

	order, err = s.orders.Delete(id, nil)
	if err != nil {
		return models.Order{}, err
	}
	s.logger.Info("Order deleted", zap.Int64("order_id", id))
	return order, nil
}

// GetByBuyer returns the orders placed by buyerID
func (s *OrderService) GetByBuyer(ctx context.Context, buyerID int64) (orders []models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "GetByBuyer")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 350*time.Millisecond); err != nil {
		return nil, err
	}
	return s.orders.Filter(func(o models.Order) bool { return o.BuyerID == buyerID }), nil
}

// GetByStatus returns the orders currently in status
func (s *OrderService) GetByStatus(ctx context.Context, status models.OrderStatus) (orders []models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "GetByStatus")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 300*time.Millisecond); err != nil {
		return nil, err
	}
	return s.orders.Filter(func(o models.Order) bool { return o.Status == status }), nil
}

// UpdateStatus moves an order to status. Moving to delivered makes the order
// reviewable; no status ever makes it unreviewable again.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (order models.Order, err error) {
	ctx, c := startCall(ctx, "OrderService", "UpdateStatus")
	defer func() { c.end(err) }()

	if err = s.latency.Wait(ctx, 200*time.Millisecond); err != nil {
		return models.Order{}, err
	}

	if !status.Valid() {
		return models.Order{}, validationErrorf("unknown order status %q", status)
	}

	var previous models.OrderStatus
	order, err = s.orders.Update(id, func(cur models.Order, _ []models.Order) (models.Order, error) {
		previous = cur.Status
		cur.Status = status
		if status == models.OrderStatusDelivered {
			cur.Reviewable = true
		}
		return cur, nil
	})
	if err != nil {
		return models.Order{}, err
	}

	if status == models.OrderStatusDelivered && previous != status {
		util.OrdersDeliveredTotal.Inc()
	}
	s.logger.Info("Order status updated",
		zap.Int64("order_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	if s.eventPublisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent:  newBaseEvent(models.EventTypeOrderStatusChanged),
			OrderID:    order.ID,
			From:       previous,
			To:         status,
			Reviewable: order.Reviewable,
		}
		if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	return order, nil
}
