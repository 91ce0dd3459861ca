package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/shared"
)

// OutboxProcessorConfig holds the polling and cleanup settings for the
// outbox processor.
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns the default processor configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor polls the outbox table and delivers stored events to the
// event bus. Entries that fail delivery back off exponentially and move to
// the dead letter state once their retries are exhausted.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOutboxProcessorConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultOutboxProcessorConfig().PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultOutboxProcessorConfig().CleanupInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
	}
}

// Start launches the polling loop and, when enabled, the cleanup loop
func (p *OutboxProcessor) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Bool("cleanup_enabled", p.config.CleanupEnabled))
}

// Stop cancels the loops and waits for in-flight work to finish or the
// context to expire, whichever comes first.
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error("outbox batch failed", zap.Error(err))
			}
		}
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-p.config.CleanupRetention)
			deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				p.logger.Error("outbox cleanup failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				p.logger.Info("cleaned up sent outbox entries", zap.Int64("deleted", deleted))
			}
		}
	}
}

// ProcessBatch claims one batch of pending and retryable entries and
// delivers them. Exported so operators can trigger a pass outside the
// poll interval.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) error {
	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		return err
	}

	remaining := p.config.BatchSize - len(pending)
	if remaining > 0 {
		retryable, err := p.repo.FindRetryable(ctx, time.Now(), remaining)
		if err != nil {
			return err
		}
		pending = append(pending, retryable...)
	}

	if len(pending) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(pending))
	for i, entry := range pending {
		ids[i] = entry.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		return err
	}

	for _, entry := range claimed {
		p.deliver(ctx, entry)
	}
	return nil
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.fail(ctx, entry, err)
		return
	}

	if err := p.bus.Publish(ctx, event); err != nil {
		p.fail(ctx, entry, err)
		return
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark outbox entry sent",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err))
	}
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	entry.MarkFailed(cause.Error())

	if entry.IsDead() {
		p.logger.Warn("outbox entry moved to dead letter",
			zap.String("entry_id", entry.ID.String()),
			zap.String("event_type", entry.EventType),
			zap.Int("retry_count", entry.RetryCount),
			zap.Error(cause))
	} else {
		p.logger.Debug("outbox entry delivery failed, will retry",
			zap.String("entry_id", entry.ID.String()),
			zap.String("event_type", entry.EventType),
			zap.Int("retry_count", entry.RetryCount),
			zap.Error(cause))
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to update failed outbox entry",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err))
	}
}
