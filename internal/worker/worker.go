package worker

import (
	"context"
	"log"

	"commerce-service/internal/broker"
	"commerce-service/internal/models"
	"commerce-service/internal/redisclient"
)

// StockSnapshotWorker keeps the Redis stock snapshot aligned with the
// database after compensating transitions. Order creation decrements
// the shared snapshot inline; failures restore it here, off the request
// path, from the OrderFailed events any instance publishes.
type StockSnapshotWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	redis        *redisclient.Client
}

// NewStockSnapshotWorker creates a new stock snapshot worker
func NewStockSnapshotWorker(consumer *broker.Consumer, redis *redisclient.Client) *StockSnapshotWorker {
	w := &StockSnapshotWorker{
		consumer: consumer,
		redis:    redis,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderFailed(w.handleOrderFailed)
	w.eventHandler = eventHandler

	return w
}

func (w *StockSnapshotWorker) handleOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error {
	if err := w.redis.ReturnStock(ctx, event.ProductID, event.Quantity); err != nil {
		log.Printf("Failed to restore stock snapshot for product %d: %v", event.ProductID, err)
		return err
	}

	log.Printf("Stock snapshot restored: product=%d quantity=%d order=%d",
		event.ProductID, event.Quantity, event.OrderID)
	return nil
}

// Start starts the worker
func (w *StockSnapshotWorker) Start(ctx context.Context) error {
	log.Println("Starting stock snapshot worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockSnapshotWorker) Stop() error {
	log.Println("Stopping stock snapshot worker...")
	return w.consumer.Close()
}
