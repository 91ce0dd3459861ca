package inventory

import (
	"context"
	"sync"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockEventPublisher collects published domain events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockStockRecordRepository is a mock implementation of StockRecordRepository
type MockStockRecordRepository struct {
	mock.Mock
}

func (m *MockStockRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockRecord), args.Error(1)
}

func (m *MockStockRecordRepository) FindByProductAndBranch(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	args := m.Called(ctx, productID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockRecord), args.Error(1)
}

func (m *MockStockRecordRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]inventory.StockRecord, error) {
	args := m.Called(ctx, branchID, filter)
	return args.Get(0).([]inventory.StockRecord), args.Error(1)
}

func (m *MockStockRecordRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]inventory.StockRecord), args.Error(1)
}

func (m *MockStockRecordRepository) Save(ctx context.Context, record *inventory.StockRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStockRecordRepository) SaveWithLock(ctx context.Context, record *inventory.StockRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStockRecordRepository) GetOrCreate(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	args := m.Called(ctx, productID, branchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockRecord), args.Error(1)
}

func (m *MockStockRecordRepository) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	args := m.Called(ctx, branchID)
	return args.Get(0).(int64), args.Error(1)
}

// fakeStockRepo is a stateful single-record repository that loses the
// first conflictCount CAS writes, mimicking concurrent writers.
type fakeStockRepo struct {
	record        *inventory.StockRecord
	conflictCount int
	saveAttempts  int
}

func newFakeStockRepo(record *inventory.StockRecord, conflicts int) *fakeStockRepo {
	return &fakeStockRepo{record: record, conflictCount: conflicts}
}

func (f *fakeStockRepo) snapshot() *inventory.StockRecord {
	clone := *f.record
	clone.ClearDomainEvents()
	return &clone
}

func (f *fakeStockRepo) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	if f.record.ID != id {
		return nil, shared.ErrNotFound
	}
	return f.snapshot(), nil
}

func (f *fakeStockRepo) FindByProductAndBranch(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	if f.record.ProductID != productID || f.record.BranchID != branchID {
		return nil, shared.ErrNotFound
	}
	return f.snapshot(), nil
}

func (f *fakeStockRepo) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]inventory.StockRecord, error) {
	return []inventory.StockRecord{*f.snapshot()}, nil
}

func (f *fakeStockRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	return []inventory.StockRecord{*f.snapshot()}, nil
}

func (f *fakeStockRepo) Save(ctx context.Context, record *inventory.StockRecord) error {
	clone := *record
	f.record = &clone
	return nil
}

func (f *fakeStockRepo) SaveWithLock(ctx context.Context, record *inventory.StockRecord) error {
	f.saveAttempts++
	if f.conflictCount > 0 {
		f.conflictCount--
		return shared.ErrVersionConflict
	}
	if record.Version != f.record.Version+1 {
		return shared.ErrVersionConflict
	}
	clone := *record
	f.record = &clone
	return nil
}

func (f *fakeStockRepo) GetOrCreate(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	return f.FindByProductAndBranch(ctx, productID, branchID)
}

func (f *fakeStockRepo) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	return 1, nil
}

var _ inventory.StockRecordRepository = (*fakeStockRepo)(nil)

// concurrentStockRepo is a mutex-guarded single-record repository with
// real CAS semantics, for burst tests with many writers.
type concurrentStockRepo struct {
	mu     sync.Mutex
	record *inventory.StockRecord
}

func newConcurrentStockRepo(record *inventory.StockRecord) *concurrentStockRepo {
	return &concurrentStockRepo{record: record}
}

func (c *concurrentStockRepo) snapshot() *inventory.StockRecord {
	clone := *c.record
	clone.ClearDomainEvents()
	return &clone
}

func (c *concurrentStockRepo) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record.ID != id {
		return nil, shared.ErrNotFound
	}
	return c.snapshot(), nil
}

func (c *concurrentStockRepo) FindByProductAndBranch(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record.ProductID != productID || c.record.BranchID != branchID {
		return nil, shared.ErrNotFound
	}
	return c.snapshot(), nil
}

func (c *concurrentStockRepo) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]inventory.StockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return []inventory.StockRecord{*c.snapshot()}, nil
}

func (c *concurrentStockRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return []inventory.StockRecord{*c.snapshot()}, nil
}

func (c *concurrentStockRepo) Save(ctx context.Context, record *inventory.StockRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *record
	c.record = &clone
	return nil
}

func (c *concurrentStockRepo) SaveWithLock(ctx context.Context, record *inventory.StockRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if record.Version != c.record.Version+1 {
		return shared.ErrVersionConflict
	}
	clone := *record
	c.record = &clone
	return nil
}

func (c *concurrentStockRepo) GetOrCreate(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	return c.FindByProductAndBranch(ctx, productID, branchID)
}

func (c *concurrentStockRepo) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	return 1, nil
}

var _ inventory.StockRecordRepository = (*concurrentStockRepo)(nil)

// MockProductRepository is a mock implementation of catalog.Repository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*catalog.Product], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[*catalog.Product]), args.Error(1)
}
