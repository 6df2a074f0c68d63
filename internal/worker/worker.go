package worker

import (
	"context"
	"fmt"

	"marketflow/internal/broker"
	"marketflow/internal/models"
	"marketflow/internal/service"
	"marketflow/internal/util"

	"go.uber.org/zap"
)

// StockAdjuster changes stock levels in one step and reports unknown
// products. *service.ProductService implements it.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, changes []service.StockChange) ([]int64, error)
}

// StockWorker decrements product stock for every placed order
type StockWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	products     StockAdjuster
	logger       *zap.Logger
}

// NewStockWorker creates a new stock worker
func NewStockWorker(consumer *broker.Consumer, products StockAdjuster) *StockWorker {
	w := &StockWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		products:     products,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnOrderCreated(w.HandleOrderCreated)
	return w
}

// HandleOrderCreated removes every ordered quantity from stock in a single
// adjustment, so a failed message leaves stock untouched and redelivery
// decrements exactly once. Products that no longer exist are skipped.
func (w *StockWorker) HandleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "StockWorker.HandleOrderCreated")
	defer span.End()

	w.logger.Info("Adjusting stock for order",
		zap.Int64("order_id", event.OrderID),
		zap.Int("lines", len(event.Items)))

	changes := make([]service.StockChange, 0, len(event.Items))
	for _, item := range event.Items {
		changes = append(changes, service.StockChange{ProductID: item.ProductID, Delta: -item.Quantity})
	}

	missing, err := w.products.AdjustStock(ctx, changes)
	if err != nil {
		util.StockAdjustmentsTotal.WithLabelValues("error").Add(float64(len(changes)))
		return fmt.Errorf("failed to adjust stock for order %d: %w", event.OrderID, err)
	}

	for _, id := range missing {
		w.logger.Warn("Product not found, skipping stock adjustment",
			zap.Int64("order_id", event.OrderID),
			zap.Int64("product_id", id))
	}
	util.StockAdjustmentsTotal.WithLabelValues("skipped").Add(float64(len(missing)))
	util.StockAdjustmentsTotal.WithLabelValues("ok").Add(float64(len(changes) - len(missing)))
	return nil
}

// Start starts the worker
func (w *StockWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockWorker) Stop() error {
	w.logger.Info("Stopping stock worker")
	return w.consumer.Close()
}
