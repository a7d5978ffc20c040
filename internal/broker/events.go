package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chainpos/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events. Order events are
// keyed by order ID so one order's lifecycle stays in partition order;
// stock alerts are keyed by lot.
type EventPublisher struct {
	orders *Producer
	alerts *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(orders, alerts *Producer) *EventPublisher {
	return &EventPublisher{orders: orders, alerts: alerts}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.orders.PublishEvent(ctx, key, event)
}

// PublishOrderTransitioned publishes a lifecycle transition event
func (ep *EventPublisher) PublishOrderTransitioned(ctx context.Context, event *models.OrderTransitionedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.orders.PublishEvent(ctx, key, event)
}

// PublishLowStockAlert publishes a low-stock alert for one lot
func (ep *EventPublisher) PublishLowStockAlert(ctx context.Context, event *models.LowStockAlertEvent) error {
	key := fmt.Sprintf("lot-%d-%s", event.LocationID, event.LotNumber)
	return ep.alerts.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onOrderSettled  func(context.Context, *models.OrderTransitionedEvent) error
	onLowStockAlert func(context.Context, *models.LowStockAlertEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderSettled registers a handler for completed/cancelled orders
func (eh *EventHandler) OnOrderSettled(handler func(context.Context, *models.OrderTransitionedEvent) error) {
	eh.onOrderSettled = handler
}

// OnLowStockAlert registers a handler for low-stock alerts
func (eh *EventHandler) OnLowStockAlert(handler func(context.Context, *models.LowStockAlertEvent) error) {
	eh.onLowStockAlert = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeOrderCompleted, models.EventTypeOrderCancelled:
		if eh.onOrderSettled != nil {
			var event models.OrderTransitionedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal order event: %w", err)
			}
			return eh.onOrderSettled(ctx, &event)
		}

	case models.EventTypeLowStockAlert:
		if eh.onLowStockAlert != nil {
			var event models.LowStockAlertEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal low-stock event: %w", err)
			}
			return eh.onLowStockAlert(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
