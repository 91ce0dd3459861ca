package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/shared"
)

// IdempotencyMetrics tracks how often duplicate events are suppressed
type IdempotencyMetrics struct {
	processed  atomic.Int64
	duplicates atomic.Int64
	errors     atomic.Int64
}

// Processed returns the number of events processed for the first time
func (m *IdempotencyMetrics) Processed() int64 { return m.processed.Load() }

// Duplicates returns the number of suppressed duplicate events
func (m *IdempotencyMetrics) Duplicates() int64 { return m.duplicates.Load() }

// Errors returns the number of idempotency store errors
func (m *IdempotencyMetrics) Errors() int64 { return m.errors.Load() }

// IdempotentHandler wraps an event handler so each event ID is processed
// at most once within the configured TTL. The outbox delivers at least
// once; this decorator restores effectively-once semantics for handlers
// whose effects are not naturally idempotent.
type IdempotentHandler struct {
	inner   shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	metrics *IdempotencyMetrics
	logger  *zap.Logger
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default idempotency configuration
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithIdempotencyMetrics attaches a metrics collector
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler wraps the given handler with duplicate suppression
func NewIdempotentHandler(inner shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		inner:   inner,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		metrics: &IdempotencyMetrics{},
		logger:  logger.Named("idempotency"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes the event unless its ID was already seen. A store
// error is logged and the event processed anyway; delivering twice is
// preferable to dropping an event because the store was unreachable.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.inner.Handle(ctx, event)
	}

	fresh, err := h.store.MarkProcessed(ctx, event.EventID().String(), h.config.TTL)
	if err != nil {
		h.metrics.errors.Add(1)
		h.logger.Warn("idempotency store unavailable, processing anyway",
			zap.String("event_id", event.EventID().String()),
			zap.Error(err))
		return h.inner.Handle(ctx, event)
	}
	if !fresh {
		h.metrics.duplicates.Add(1)
		h.logger.Debug("suppressed duplicate event",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()))
		return nil
	}

	h.metrics.processed.Add(1)
	return h.inner.Handle(ctx, event)
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.inner.EventTypes()
}

// WrapHandlersWithIdempotency wraps a set of handlers with a shared store
// and options.
func WrapHandlersWithIdempotency(handlers []shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, handler := range handlers {
		wrapped[i] = NewIdempotentHandler(handler, store, logger, opts...)
	}
	return wrapped
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
