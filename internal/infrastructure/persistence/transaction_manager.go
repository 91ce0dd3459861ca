package persistence

import (
	"context"

	appinventory "github.com/dukapos/backend/internal/application/inventory"
	appsales "github.com/dukapos/backend/internal/application/sales"
	apptransfer "github.com/dukapos/backend/internal/application/transfer"
	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
	"gorm.io/gorm"
)

// OutboxWriter persists domain events to the outbox inside the given
// transaction, so event rows commit or roll back with the aggregate
// change they describe.
type OutboxWriter interface {
	PublishWithTx(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// TransactionManager hands out transaction scopes for the application
// services. All scopes share one database and one outbox writer.
type TransactionManager struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewTransactionManager creates a new TransactionManager
func NewTransactionManager(db *gorm.DB, outbox OutboxWriter) *TransactionManager {
	return &TransactionManager{db: db, outbox: outbox}
}

// Inventory returns the transaction scope for stock ledger mutations
func (m *TransactionManager) Inventory() appinventory.TransactionScope {
	return &inventoryScope{m: m}
}

// Sales returns the transaction scope for checkouts and reversals
func (m *TransactionManager) Sales() appsales.TransactionScope {
	return &salesScope{m: m}
}

// Transfers returns the transaction scope for transfer transitions
func (m *TransactionManager) Transfers() apptransfer.TransactionScope {
	return &transferScope{m: m}
}

// txRepositories provides repositories bound to one open transaction.
// It satisfies the transactional repository interfaces of all three
// application packages.
type txRepositories struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

func (r *txRepositories) StockRepo() inventory.StockRecordRepository {
	return NewGormStockRecordRepository(r.tx)
}

func (r *txRepositories) ProductRepo() catalog.Repository {
	return NewGormProductRepository(r.tx)
}

func (r *txRepositories) SaleRepo() sales.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

func (r *txRepositories) TransferRepo() transfer.TransferRepository {
	return NewGormTransferRepository(r.tx)
}

func (r *txRepositories) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	return r.outbox.PublishWithTx(ctx, r.tx, events...)
}

type inventoryScope struct {
	m *TransactionManager
}

func (s *inventoryScope) Execute(ctx context.Context, fn func(repos appinventory.TransactionalRepositories) error) error {
	return s.m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx, outbox: s.m.outbox})
	})
}

type salesScope struct {
	m *TransactionManager
}

func (s *salesScope) Execute(ctx context.Context, fn func(repos appsales.TransactionalRepositories) error) error {
	return s.m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx, outbox: s.m.outbox})
	})
}

type transferScope struct {
	m *TransactionManager
}

func (s *transferScope) Execute(ctx context.Context, fn func(repos apptransfer.TransactionalRepositories) error) error {
	return s.m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepositories{tx: tx, outbox: s.m.outbox})
	})
}

var (
	_ appinventory.TransactionScope          = (*inventoryScope)(nil)
	_ appsales.TransactionScope              = (*salesScope)(nil)
	_ apptransfer.TransactionScope           = (*transferScope)(nil)
	_ appinventory.TransactionalRepositories = (*txRepositories)(nil)
	_ appsales.TransactionalRepositories     = (*txRepositories)(nil)
	_ apptransfer.TransactionalRepositories  = (*txRepositories)(nil)
)
