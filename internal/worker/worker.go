package worker

import (
	"context"
	"log"
	"time"

	"chainpos/internal/broker"
	"chainpos/internal/models"
	"chainpos/internal/service"
	"chainpos/internal/store"
)

// RollupWorker keeps daily summaries fresh: it recomputes a
// (location, date) summary whenever an order there completes or is
// cancelled, and a ticker sweeps all active locations as a catch-up.
// Both paths call the same idempotent recompute.
type RollupWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	rollup       *service.RollupService
	store        *store.Store
	interval     time.Duration
}

// NewRollupWorker creates a new rollup worker
func NewRollupWorker(
	consumer *broker.Consumer,
	rollup *service.RollupService,
	store *store.Store,
	interval time.Duration,
) *RollupWorker {
	w := &RollupWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		rollup:       rollup,
		store:        store,
		interval:     interval,
	}
	w.eventHandler.OnOrderSettled(w.handleOrderSettled)
	return w
}

// handleOrderSettled recomputes the settled order's summary, with
// event-id dedupe so replays do no extra work
func (w *RollupWorker) handleOrderSettled(ctx context.Context, event *models.OrderTransitionedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	if _, err := w.rollup.Recompute(ctx, event.LocationID, event.BusinessDate); err != nil {
		return err
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// Start runs the consumer and the periodic sweep until ctx is cancelled
func (w *RollupWorker) Start(ctx context.Context) error {
	log.Println("Starting rollup worker...")

	go w.runPeriodicSweep(ctx)

	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

func (w *RollupWorker) runPeriodicSweep(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.rollup.RecomputeAllForDate(ctx, time.Now()); err != nil {
				log.Printf("Periodic rollup sweep failed: %v", err)
			}
		}
	}
}

// Stop stops the worker
func (w *RollupWorker) Stop() error {
	log.Println("Stopping rollup worker...")
	return w.consumer.Close()
}

// ReplenishmentWorker records low-stock signals for the out-of-scope
// procurement system. It only consumes and logs; purchase orders are
// an external collaborator.
type ReplenishmentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewReplenishmentWorker creates a new replenishment worker
func NewReplenishmentWorker(consumer *broker.Consumer) *ReplenishmentWorker {
	w := &ReplenishmentWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
	}
	w.eventHandler.OnLowStockAlert(w.handleLowStock)
	return w
}

func (w *ReplenishmentWorker) handleLowStock(ctx context.Context, event *models.LowStockAlertEvent) error {
	log.Printf("Replenishment signal: location=%d ingredient=%d lot=%s stock=%s threshold=%s",
		event.LocationID, event.IngredientID, event.LotNumber,
		event.CurrentStock, event.MinimumThreshold)
	return nil
}

// Start starts the replenishment worker
func (w *ReplenishmentWorker) Start(ctx context.Context) error {
	log.Println("Starting replenishment worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReplenishmentWorker) Stop() error {
	log.Println("Stopping replenishment worker...")
	return w.consumer.Close()
}
