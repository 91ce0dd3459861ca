package transfer

import (
	"context"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
)

// TransactionScope provides transactional access to the repositories a
// transfer transition touches. The state change, the stock movement and
// the outbox entries commit together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories scoped
// to the current transaction.
type TransactionalRepositories interface {
	// TransferRepo returns the transfer repository scoped to the transaction
	TransferRepo() transfer.TransferRepository
	// StockRepo returns the stock record repository scoped to the transaction
	StockRepo() inventory.StockRecordRepository
	// ProductRepo returns the product repository scoped to the transaction
	ProductRepo() catalog.Repository
	// SaveEvents writes domain events to the outbox within the transaction
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope runs the function without a real transaction.
// Used in tests with in-memory repositories.
type NoOpTransactionScope struct {
	transferRepo transfer.TransferRepository
	stockRepo    inventory.StockRecordRepository
	productRepo  catalog.Repository
	publisher    shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(transferRepo transfer.TransferRepository, stockRepo inventory.StockRecordRepository, productRepo catalog.Repository, publisher shared.EventPublisher) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		transferRepo: transferRepo,
		stockRepo:    stockRepo,
		productRepo:  productRepo,
		publisher:    publisher,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// TransferRepo returns the transfer repository
func (s *NoOpTransactionScope) TransferRepo() transfer.TransferRepository {
	return s.transferRepo
}

// StockRepo returns the stock record repository
func (s *NoOpTransactionScope) StockRepo() inventory.StockRecordRepository {
	return s.stockRepo
}

// ProductRepo returns the product repository
func (s *NoOpTransactionScope) ProductRepo() catalog.Repository {
	return s.productRepo
}

// SaveEvents forwards events to the configured publisher
func (s *NoOpTransactionScope) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if s.publisher == nil || len(events) == 0 {
		return nil
	}
	return s.publisher.Publish(ctx, events...)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
