package sales

import (
	"context"
	"sync"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
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

// memStockRepo is an in-memory stock store keyed by product+branch with
// real CAS semantics. conflictCount makes the next N CAS writes fail,
// mimicking concurrent writers; the mutex lets actual goroutines race it.
type memStockRepo struct {
	mu            sync.Mutex
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
	r.mu.Lock()
	defer r.mu.Unlock()
	record, _ := inventory.NewStockRecord(productID, branchID)
	record.Quantity = quantity
	record.ClearDomainEvents()
	r.records[stockKey(productID, branchID)] = record
}

func (r *memStockRepo) quantityOf(productID, branchID uuid.UUID) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ID == id {
			return r.snapshot(record), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memStockRepo) FindByProductAndBranch(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[stockKey(productID, branchID)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.snapshot(record), nil
}

func (r *memStockRepo) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]inventory.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.StockRecord, 0)
	for _, record := range r.records {
		if record.BranchID == branchID {
			result = append(result, *r.snapshot(record))
		}
	}
	return result, nil
}

func (r *memStockRepo) FindByProduct(ctx context.Context, productID uuid.UUID) ([]inventory.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]inventory.StockRecord, 0)
	for _, record := range r.records {
		if record.ProductID == productID {
			result = append(result, *r.snapshot(record))
		}
	}
	return result, nil
}

func (r *memStockRepo) Save(ctx context.Context, record *inventory.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[stockKey(record.ProductID, record.BranchID)] = r.snapshot(record)
	return nil
}

func (r *memStockRepo) SaveWithLock(ctx context.Context, record *inventory.StockRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
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
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, record := range r.records {
		if record.BranchID == branchID {
			count++
		}
	}
	return count, nil
}

var _ inventory.StockRecordRepository = (*memStockRepo)(nil)

// memSaleRepo is an in-memory sale store with CAS semantics
type memSaleRepo struct {
	mu    sync.Mutex
	sales map[uuid.UUID]*sales.Sale
}

func newMemSaleRepo() *memSaleRepo {
	return &memSaleRepo{sales: make(map[uuid.UUID]*sales.Sale)}
}

func (r *memSaleRepo) snapshot(sale *sales.Sale) *sales.Sale {
	clone := *sale
	clone.Items = append([]sales.SaleItem(nil), sale.Items...)
	clone.Payments = append([]sales.SalePayment(nil), sale.Payments...)
	clone.CreditPayments = append([]sales.CreditPayment(nil), sale.CreditPayments...)
	clone.ClearDomainEvents()
	return &clone
}

func (r *memSaleRepo) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.snapshot(sale), nil
}

func (r *memSaleRepo) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sale := range r.sales {
		if sale.ReceiptNumber == receiptNumber {
			return r.snapshot(sale), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSaleRepo) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) (*shared.Paginated[*sales.Sale], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*sales.Sale, 0)
	for _, sale := range r.sales {
		if sale.BranchID == branchID {
			items = append(items, r.snapshot(sale))
		}
	}
	page := shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize)
	return &page, nil
}

func (r *memSaleRepo) FindCreditByCustomerPhone(ctx context.Context, phone valueobject.PhoneNumber) ([]*sales.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*sales.Sale, 0)
	for _, sale := range r.sales {
		if sale.IsCredit && !sale.IsReversed && sale.CustomerPhone.Equals(phone) {
			result = append(result, r.snapshot(sale))
		}
	}
	return result, nil
}

func (r *memSaleRepo) Save(ctx context.Context, sale *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sales[sale.ID]; exists {
		return shared.ErrAlreadyExists
	}
	r.sales[sale.ID] = r.snapshot(sale)
	return nil
}

func (r *memSaleRepo) SaveWithLock(ctx context.Context, sale *sales.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sales[sale.ID]
	if !ok || sale.Version != stored.Version+1 {
		return shared.ErrVersionConflict
	}
	r.sales[sale.ID] = r.snapshot(sale)
	return nil
}

func (r *memSaleRepo) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sale := range r.sales {
		if sale.ReceiptNumber == receiptNumber {
			return true, nil
		}
	}
	return false, nil
}

var _ sales.SaleRepository = (*memSaleRepo)(nil)

// memTxScope runs the function against the in-memory repositories and
// restores their state when the function fails, mimicking a rollback
type memTxScope struct {
	saleRepo    *memSaleRepo
	stockRepo   *memStockRepo
	productRepo *memProductRepo
	publisher   *MockEventPublisher
}

func newMemTxScope(saleRepo *memSaleRepo, stockRepo *memStockRepo, productRepo *memProductRepo, publisher *MockEventPublisher) *memTxScope {
	return &memTxScope{
		saleRepo:    saleRepo,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		publisher:   publisher,
	}
}

func (s *memTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	stockBackup := make(map[string]*inventory.StockRecord, len(s.stockRepo.records))
	for key, record := range s.stockRepo.records {
		stockBackup[key] = s.stockRepo.snapshot(record)
	}
	saleBackup := make(map[uuid.UUID]*sales.Sale, len(s.saleRepo.sales))
	for id, sale := range s.saleRepo.sales {
		saleBackup[id] = s.saleRepo.snapshot(sale)
	}

	if err := fn(s); err != nil {
		s.stockRepo.records = stockBackup
		s.saleRepo.sales = saleBackup
		return err
	}
	return nil
}

func (s *memTxScope) SaleRepo() sales.SaleRepository { return s.saleRepo }
func (s *memTxScope) StockRepo() inventory.StockRecordRepository { return s.stockRepo }
func (s *memTxScope) ProductRepo() catalog.Repository { return s.productRepo }

func (s *memTxScope) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.publisher.Publish(ctx, events...)
}

var _ TransactionScope = (*memTxScope)(nil)
var _ TransactionalRepositories = (*memTxScope)(nil)

// burstTxScope hands the repositories to the function without the
// copy-restore rollback of memTxScope, so goroutines can run checkouts
// against it concurrently. A single-line ticket that loses the stock
// CAS fails before its first write, so there is nothing to roll back.
type burstTxScope struct {
	saleRepo    *memSaleRepo
	stockRepo   *memStockRepo
	productRepo *memProductRepo
	publisher   *MockEventPublisher
}

func (s *burstTxScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *burstTxScope) SaleRepo() sales.SaleRepository { return s.saleRepo }
func (s *burstTxScope) StockRepo() inventory.StockRecordRepository { return s.stockRepo }
func (s *burstTxScope) ProductRepo() catalog.Repository { return s.productRepo }

func (s *burstTxScope) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.publisher.Publish(ctx, events...)
}

var _ TransactionScope = (*burstTxScope)(nil)
var _ TransactionalRepositories = (*burstTxScope)(nil)
