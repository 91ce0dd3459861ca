package sales

import (
	"context"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
)

// TransactionScope provides transactional access to the repositories a
// checkout touches. Stock deductions, the sale row and its outbox
// entries commit or roll back together.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories scoped
// to the current transaction.
type TransactionalRepositories interface {
	// SaleRepo returns the sale repository scoped to the transaction
	SaleRepo() sales.SaleRepository
	// StockRepo returns the stock record repository scoped to the transaction
	StockRepo() inventory.StockRecordRepository
	// ProductRepo returns the product repository scoped to the transaction
	ProductRepo() catalog.Repository
	// SaveEvents writes domain events to the outbox within the transaction
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope runs the function without a real transaction.
// Used in tests with mock repositories.
type NoOpTransactionScope struct {
	saleRepo    sales.SaleRepository
	stockRepo   inventory.StockRecordRepository
	productRepo catalog.Repository
	publisher   shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(saleRepo sales.SaleRepository, stockRepo inventory.StockRecordRepository, productRepo catalog.Repository, publisher shared.EventPublisher) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		saleRepo:    saleRepo,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		publisher:   publisher,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SaleRepo returns the sale repository
func (s *NoOpTransactionScope) SaleRepo() sales.SaleRepository {
	return s.saleRepo
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
