package worker

import (
	"context"

	"shoestore/internal/broker"
	"shoestore/internal/models"
	"shoestore/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventRecorder persists audited order events
type EventRecorder interface {
	RecordOrderEvent(ctx context.Context, rec *models.OrderEventRecord) (bool, error)
}

// CatalogInvalidator drops cached catalog pages
type CatalogInvalidator interface {
	InvalidateCatalog(ctx context.Context) error
}

// MessageSource feeds kafka messages to a handler until ctx is done
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// AuditWorker records every order event exactly once and keeps the catalog
// cache in step with stock changes made on other nodes
type AuditWorker struct {
	source   MessageSource
	recorder EventRecorder
	catalog  CatalogInvalidator
	handler  *broker.EventHandler
	logger   *zap.Logger
}

// NewAuditWorker creates a new audit worker. catalog may be nil.
func NewAuditWorker(source MessageSource, recorder EventRecorder, catalog CatalogInvalidator) *AuditWorker {
	w := &AuditWorker{
		source:   source,
		recorder: recorder,
		catalog:  catalog,
		handler:  broker.NewEventHandler(),
		logger:   util.Named("worker.audit"),
	}

	w.handler.On(models.EventTypeOrderPlaced, w.handlePlaced)
	w.handler.On(models.EventTypeOrderStatusChanged, w.record)
	w.handler.On(models.EventTypeOrderDeliveryDateChanged, w.record)

	return w
}

// Start starts the worker
func (w *AuditWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting audit worker")
	return w.source.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *AuditWorker) Stop() error {
	w.logger.Info("Stopping audit worker")
	return w.source.Close()
}

// HandleMessage processes one raw kafka message
func (w *AuditWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return w.handler.HandleMessage(ctx, msg)
}

func (w *AuditWorker) handlePlaced(ctx context.Context, env models.OrderEventEnvelope, raw []byte) error {
	recorded, err := w.recordEvent(ctx, env, raw)
	if err != nil {
		return err
	}
	if recorded && w.catalog != nil {
		if err := w.catalog.InvalidateCatalog(ctx); err != nil {
			w.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

func (w *AuditWorker) record(ctx context.Context, env models.OrderEventEnvelope, raw []byte) error {
	_, err := w.recordEvent(ctx, env, raw)
	return err
}

// recordEvent reports whether the event was stored for the first time
func (w *AuditWorker) recordEvent(ctx context.Context, env models.OrderEventEnvelope, raw []byte) (bool, error) {
	rec := &models.OrderEventRecord{
		EventID:    env.EventID,
		EventType:  env.EventType,
		OrderID:    env.OrderID,
		Payload:    raw,
		OccurredAt: env.Timestamp,
	}

	recorded, err := w.recorder.RecordOrderEvent(ctx, rec)
	if err != nil {
		util.OrderEventsRecordedTotal.WithLabelValues(env.EventType, "error").Inc()
		w.logger.Error("Failed to record order event",
			zap.Error(err),
			zap.String("event_id", env.EventID),
			zap.Int64("order_id", env.OrderID))
		return false, err
	}

	if !recorded {
		util.OrderEventsRecordedTotal.WithLabelValues(env.EventType, "duplicate").Inc()
		w.logger.Debug("Event already processed, skipping", zap.String("event_id", env.EventID))
		return false, nil
	}

	util.OrderEventsRecordedTotal.WithLabelValues(env.EventType, "recorded").Inc()
	w.logger.Info("Order event recorded",
		zap.String("type", env.EventType),
		zap.Int64("order_id", env.OrderID))
	return true, nil
}
