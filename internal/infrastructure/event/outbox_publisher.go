package event

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dukapos/backend/internal/domain/shared"
)

// OutboxPublisher writes domain events into the outbox table as part of
// the caller's transaction. Delivery to handlers happens later, when the
// outbox processor polls the table.
type OutboxPublisher struct {
	serializer *EventSerializer
}

// NewOutboxPublisher creates a publisher using the given serializer
func NewOutboxPublisher(serializer *EventSerializer) *OutboxPublisher {
	return &OutboxPublisher{serializer: serializer}
}

// PublishWithTx serializes the events and saves them through the supplied
// transaction handle. If the transaction rolls back, the entries roll back
// with it.
func (p *OutboxPublisher) PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}

	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

// SaveEvents implements shared.OutboxEventSaver. The txProvider must be a
// *gorm.DB transaction handle.
func (p *OutboxPublisher) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("outbox publisher requires a *gorm.DB transaction, got %T", txProvider)
	}
	return p.PublishWithTx(ctx, tx, events...)
}

var _ shared.OutboxEventSaver = (*OutboxPublisher)(nil)
