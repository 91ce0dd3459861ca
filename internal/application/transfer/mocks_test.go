package transfer

import (
	"context"
	"sync"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
	"github.com/google/uuid"
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

// memProductRepo is an in-memory catalog repository
type memProductRepo struct {
	products map[uuid.UUID]*catalog.Product
}

func newMemProductRepo(products ...*catalog.Product) *memProductRepo {
	repo := &memProductRepo{products: make(map[uuid.UUID]*catalog.Product)}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (r *memProductRepo) Save(ctx context.Context, product *catalog.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *memProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return product, nil
}

func (r *memProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.Product, error) {
	result := make([]*catalog.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := r.products[id]; ok {
			result = append(result, product)
		}
	}
	return result, nil
}

func (r *memProductRepo) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	for _, product := range r.products {
		if product.SKU == sku {
			return product, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memProductRepo) FindAll(ctx context.Context, filter shared.Filter) (*shared.Paginated[*catalog.Product], error) {
	items := make([]*catalog.Product, 0, len(r.products))
	for _, product := range r.products {
		items = append(items, product)
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

var _ catalog.Repository = (*memProductRepo)(nil)

// memStockRepo is an in-memory stock store keyed by product+branch.
// conflictCount makes the next N CAS writes fail.
type memStockRepo struct {
	records       map[string]*inventory.StockRecord
	conflictCount int
	saveAttempts  int
}

func newMemStockRepo() *memStockRepo {
	return &memStockRepo{records: make(map[string]*inventory.StockRecord)}
}

func stockKey(productID, branchID uuid.UUID) string {
	return productID.String() + "/" + branchID.String()
}

func (r *memStockRepo) seed(productID, branchID uuid.UUID, quantity int64) {
	record, _ := inventory.NewStockRecord(productID, branchID)
	record.Quantity = quantity
	record.ClearDomainEvents()
	r.records[stockKey(productID, branchID)] = record
}

func (r *memStockRepo) quantityOf(productID, branchID uuid.UUID) int64 {
	record, ok := r.records[stockKey(productID, branchID)]
	if !ok {
		return 0
	}
	return record.Quantity
}

func (r *memStockRepo) snapshot(record *inventory.StockRecord) *inventory.StockRecord {
	clone := *record
	clone.ClearDomainEvents()
	return &clone
}

func (r *memStockRepo) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockRecord, error) {
	for _, record := range r.records {
		if record.ID == id {
			return r.snapshot(record), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memStockRepo) FindByProductAndBranch(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	record, ok := r.records[stockKey(productID, branchID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.snapshot(record), nil
}

func (r *memStockRepo) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]inventory.StockRecord, error) {
	result := make([]inventory.StockRecord, 0)
	for _, record := range r.records {
		if record.BranchID == branchID {
			result = append(result, *r.snapshot(record))
		}
	}
	return result, nil
}

func (r *memStockRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	result := make([]inventory.StockRecord, 0)
	for _, record := range r.records {
		if record.ProductID == productID {
			result = append(result, *r.snapshot(record))
		}
	}
	return result, nil
}

func (r *memStockRepo) Save(ctx context.Context, record *inventory.StockRecord) error {
	r.records[stockKey(record.ProductID, record.BranchID)] = r.snapshot(record)
	return nil
}

func (r *memStockRepo) SaveWithLock(ctx context.Context, record *inventory.StockRecord) error {
	r.saveAttempts++
	if r.conflictCount > 0 {
		r.conflictCount--
		return shared.ErrVersionConflict
	}
	stored, ok := r.records[stockKey(record.ProductID, record.BranchID)]
	if !ok || record.Version != stored.Version+1 {
		return shared.ErrVersionConflict
	}
	r.records[stockKey(record.ProductID, record.BranchID)] = r.snapshot(record)
	return nil
}

func (r *memStockRepo) GetOrCreate(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	if record, ok := r.records[stockKey(productID, branchID)]; ok {
		return r.snapshot(record), nil
	}
	record, err := inventory.NewStockRecord(productID, branchID)
	if err != nil {
		return nil, err
	}
	record.ClearDomainEvents()
	r.records[stockKey(productID, branchID)] = record
	return r.snapshot(record), nil
}

func (r *memStockRepo) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var count int64
	for _, record := range r.records {
		if record.BranchID == branchID {
			count++
		}
	}
	return count, nil
}

var _ inventory.StockRecordRepository = (*memStockRepo)(nil)

// memTransferRepo is an in-memory transfer store with CAS semantics
type memTransferRepo struct {
	transfers map[uuid.UUID]*transfer.Transfer
}

func newMemTransferRepo() *memTransferRepo {
	return &memTransferRepo{transfers: make(map[uuid.UUID]*transfer.Transfer)}
}

func (r *memTransferRepo) snapshot(t *transfer.Transfer) *transfer.Transfer {
	clone := *t
	clone.Items = append([]transfer.TransferItem(nil), t.Items...)
	clone.ClearDomainEvents()
	return &clone
}

func (r *memTransferRepo) FindByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	t, ok := r.transfers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.snapshot(t), nil
}

func (r *memTransferRepo) FindByNumber(ctx context.Context, transferNumber string) (*transfer.Transfer, error) {
	for _, t := range r.transfers {
		if t.TransferNumber == transferNumber {
			return r.snapshot(t), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTransferRepo) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (*shared.Paginated[*transfer.Transfer], error) {
	items := make([]*transfer.Transfer, 0)
	for _, t := range r.transfers {
		if t.FromBranchID == branchID || t.ToBranchID == branchID {
			items = append(items, r.snapshot(t))
		}
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memTransferRepo) Save(ctx context.Context, t *transfer.Transfer) error {
	if _, exists := r.transfers[t.ID]; exists {
		return shared.ErrAlreadyExists
	}
	r.transfers[t.ID] = r.snapshot(t)
	return nil
}

func (r *memTransferRepo) SaveWithLock(ctx context.Context, t *transfer.Transfer) error {
	stored, ok := r.transfers[t.ID]
	if !ok || t.Version != stored.Version+1 {
		return shared.ErrVersionConflict
	}
	r.transfers[t.ID] = r.snapshot(t)
	return nil
}

func (r *memTransferRepo) ExistsByNumber(ctx context.Context, transferNumber string) (bool, error) {
	for _, t := range r.transfers {
		if t.TransferNumber == transferNumber {
			return true, nil
		}
	}
	return false, nil
}

var _ transfer.TransferRepository = (*memTransferRepo)(nil)

// memTxScope runs the function against the in-memory repositories and
// restores their state when the function fails, mimicking a rollback
type memTxScope struct {
	transferRepo *memTransferRepo
	stockRepo    *memStockRepo
	productRepo  *memProductRepo
	publisher    *MockEventPublisher
}

func newMemTxScope(transferRepo *memTransferRepo, stockRepo *memStockRepo, productRepo *memProductRepo, publisher *MockEventPublisher) *memTxScope {
	return &memTxScope{
		transferRepo: transferRepo,
		stockRepo:    stockRepo,
		productRepo:  productRepo,
		publisher:    publisher,
	}
}

func (s *memTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	stockBackup := make(map[string]*inventory.StockRecord, len(s.stockRepo.records))
	for key, record := range s.stockRepo.records {
		stockBackup[key] = s.stockRepo.snapshot(record)
	}
	transferBackup := make(map[uuid.UUID]*transfer.Transfer, len(s.transferRepo.transfers))
	for id, t := range s.transferRepo.transfers {
		transferBackup[id] = s.transferRepo.snapshot(t)
	}

	if err := fn(s); err != nil {
		s.stockRepo.records = stockBackup
		s.transferRepo.transfers = transferBackup
		return err
	}
	return nil
}

func (s *memTxScope) TransferRepo() transfer.TransferRepository  { return s.transferRepo }
func (s *memTxScope) StockRepo() inventory.StockRecordRepository { return s.stockRepo }
func (s *memTxScope) ProductRepo() catalog.Repository            { return s.productRepo }

func (s *memTxScope) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.publisher.Publish(ctx, events...)
}

var _ TransactionScope = (*memTxScope)(nil)
var _ TransactionalRepositories = (*memTxScope)(nil)
