package worker

import (
	"context"
	"fmt"
	"log"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// EmailSender dispatches order notifications. Delivery is out of scope, so
// the default implementation only logs.
type EmailSender interface {
	SendOrderConfirmation(ctx context.Context, to string, event *models.OrderPlacedEvent) error
	SendStatusUpdate(ctx context.Context, orderID int64, fromStatus, toStatus string) error
}

// LogSender is an EmailSender that writes to the log instead of sending.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new logging email sender
func NewLogSender() *LogSender {
	return &LogSender{logger: util.GetLogger()}
}

// SendOrderConfirmation logs the confirmation that would have been sent
func (s *LogSender) SendOrderConfirmation(ctx context.Context, to string, event *models.OrderPlacedEvent) error {
	if to == "" {
		return fmt.Errorf("order %d has no email address", event.OrderID)
	}
	s.logger.Info("Order confirmation email dispatched",
		zap.String("to", to),
		zap.Int64("order_id", event.OrderID),
		zap.Int64("total", event.Total))
	return nil
}

// SendStatusUpdate logs the status update that would have been sent
func (s *LogSender) SendStatusUpdate(ctx context.Context, orderID int64, fromStatus, toStatus string) error {
	s.logger.Info("Order status email dispatched",
		zap.Int64("order_id", orderID),
		zap.String("from", fromStatus),
		zap.String("to", toStatus))
	return nil
}

// NotificationWorker consumes order events and dispatches notifications.
// Send failures are logged and swallowed: notification delivery must never
// affect order durability.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sender       EmailSender
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, sender EmailSender) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		sender:   sender,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnOrderStatusChanged(w.handleStatusChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	if err := w.sender.SendOrderConfirmation(ctx, event.Email, event); err != nil {
		util.NotificationsFailedTotal.Inc()
		w.logger.Error("Failed to send order confirmation",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
		return nil
	}

	util.NotificationsSentTotal.Inc()
	return nil
}

func (w *NotificationWorker) handleStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	if err := w.sender.SendStatusUpdate(ctx, event.OrderID, event.FromStatus, event.ToStatus); err != nil {
		util.NotificationsFailedTotal.Inc()
		w.logger.Error("Failed to send status update",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err))
	}
	return nil
}
