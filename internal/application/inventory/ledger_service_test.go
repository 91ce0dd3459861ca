package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProduct(t *testing.T, threshold int64) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct("SKU-001", "Unga 2kg", "staples",
		decimal.NewFromInt(100), decimal.NewFromInt(150), decimal.NewFromInt(120), threshold)
	require.NoError(t, err)
	return product
}

func newLedgerFixture(t *testing.T, threshold int64) (*LedgerService, *MockStockRecordRepository, *MockProductRepository, *MockEventPublisher, *catalog.Product) {
	t.Helper()
	stockRepo := new(MockStockRecordRepository)
	productRepo := new(MockProductRepository)
	publisher := NewMockEventPublisher()
	scope := NewNoOpTransactionScope(stockRepo, productRepo, publisher)
	service := NewLedgerService(scope, stockRepo, productRepo, zap.NewNop())

	product := newTestProduct(t, threshold)
	productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)
	return service, stockRepo, productRepo, publisher, product
}

func existingRecord(t *testing.T, product *catalog.Product, branchID uuid.UUID, quantity int64, mutations int) *inventory.StockRecord {
	t.Helper()
	record, err := inventory.NewStockRecord(product.ID, branchID)
	require.NoError(t, err)
	record.Quantity = quantity
	record.Version = 1 + mutations
	return record
}

func TestLedgerService_Adjust(t *testing.T) {
	ctx := context.Background()
	branchID := uuid.New()

	t.Run("creates record on positive delta when absent", func(t *testing.T) {
		service, stockRepo, _, publisher, product := newLedgerFixture(t, 10)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(nil, shared.ErrNotFound)
		stockRepo.On("Save", mock.Anything, mock.AnythingOfType("*inventory.StockRecord")).Return(nil)

		response, err := service.Adjust(ctx, product.ID, branchID, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(50), response.Quantity)
		assert.Equal(t, 2, response.Version)

		assert.Len(t, publisher.GetEventsByType(inventory.EventTypeInventoryUpdated), 1)
		stockRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("negative delta on absent record is insufficient stock", func(t *testing.T) {
		service, stockRepo, _, _, product := newLedgerFixture(t, 10)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(nil, shared.ErrNotFound)

		_, err := service.Adjust(ctx, product.ID, branchID, -5, 0)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	})

	t.Run("expected absent but record exists is a conflict", func(t *testing.T) {
		service, stockRepo, _, _, product := newLedgerFixture(t, 10)
		record := existingRecord(t, product, branchID, 20, 1)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(record, nil)

		_, err := service.Adjust(ctx, product.ID, branchID, 5, 0)
		assert.True(t, shared.IsCode(err, shared.CodeVersionConflict))
	})

	t.Run("version mismatch is a conflict", func(t *testing.T) {
		service, stockRepo, _, _, product := newLedgerFixture(t, 10)
		record := existingRecord(t, product, branchID, 20, 3)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(record, nil)

		_, err := service.Adjust(ctx, product.ID, branchID, -5, 2)
		assert.True(t, shared.IsCode(err, shared.CodeVersionConflict))
	})

	t.Run("expected missing record is a conflict", func(t *testing.T) {
		service, stockRepo, _, _, product := newLedgerFixture(t, 10)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(nil, shared.ErrNotFound)

		_, err := service.Adjust(ctx, product.ID, branchID, 5, 3)
		assert.True(t, shared.IsCode(err, shared.CodeVersionConflict))
	})

	t.Run("deduction saves with lock and emits events", func(t *testing.T) {
		service, stockRepo, _, publisher, product := newLedgerFixture(t, 10)
		record := existingRecord(t, product, branchID, 12, 1)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(record, nil)
		stockRepo.On("SaveWithLock", mock.Anything, record).Return(nil)

		response, err := service.Adjust(ctx, product.ID, branchID, -4, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(8), response.Quantity)
		assert.Equal(t, 3, response.Version)
		assert.True(t, response.IsLowStock)

		assert.Len(t, publisher.GetEventsByType(inventory.EventTypeInventoryUpdated), 1)
		assert.Len(t, publisher.GetEventsByType(inventory.EventTypeLowStockAlert), 1)
	})

	t.Run("deduction below zero is rejected", func(t *testing.T) {
		service, stockRepo, _, _, product := newLedgerFixture(t, 0)
		record := existingRecord(t, product, branchID, 3, 1)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(record, nil)

		_, err := service.Adjust(ctx, product.ID, branchID, -4, 2)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
		stockRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("storage-level CAS loss surfaces as conflict", func(t *testing.T) {
		service, stockRepo, _, _, product := newLedgerFixture(t, 0)
		record := existingRecord(t, product, branchID, 10, 1)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(record, nil)
		stockRepo.On("SaveWithLock", mock.Anything, record).Return(shared.ErrVersionConflict)

		_, err := service.Adjust(ctx, product.ID, branchID, -1, 2)
		assert.True(t, shared.IsCode(err, shared.CodeVersionConflict))
	})
}

func TestLedgerService_AdjustWithRetry(t *testing.T) {
	ctx := context.Background()
	branchID := uuid.New()
	manager := identity.Operator{ID: uuid.New(), Role: identity.RoleManager, HomeBranchID: branchID}

	t.Run("cashier is forbidden", func(t *testing.T) {
		service, _, _, _, product := newLedgerFixture(t, 0)
		cashier := identity.Operator{ID: uuid.New(), Role: identity.RoleCashier, HomeBranchID: branchID}

		_, err := service.AdjustWithRetry(ctx, cashier, AdjustStockRequest{
			ProductID: product.ID, BranchID: branchID, Delta: 5, Reason: "recount",
		})
		assert.True(t, shared.IsCode(err, shared.CodeForbidden))
	})

	t.Run("retries through conflicts and succeeds", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		publisher := NewMockEventPublisher()
		product := newTestProduct(t, 0)
		productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

		// First two writes lose the race, third lands
		stockRepo := newFakeStockRepo(existingRecord(t, product, branchID, 10, 1), 2)
		scope := NewNoOpTransactionScope(stockRepo, productRepo, publisher)
		service := NewLedgerService(scope, stockRepo, productRepo, zap.NewNop())

		response, err := service.AdjustWithRetry(ctx, manager, AdjustStockRequest{
			ProductID: product.ID, BranchID: branchID, Delta: -2, Reason: "damage",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(8), response.Quantity)
		assert.Equal(t, 3, stockRepo.saveAttempts)
	})

	t.Run("exhausted retries surface as transient failure", func(t *testing.T) {
		productRepo := new(MockProductRepository)
		product := newTestProduct(t, 0)
		productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)

		stockRepo := newFakeStockRepo(existingRecord(t, product, branchID, 10, 1), 1000)
		scope := NewNoOpTransactionScope(stockRepo, productRepo, NewMockEventPublisher())
		service := NewLedgerService(scope, stockRepo, productRepo, zap.NewNop())

		_, err := service.AdjustWithRetry(ctx, manager, AdjustStockRequest{
			ProductID: product.ID, BranchID: branchID, Delta: -2, Reason: "damage",
		})
		assert.True(t, shared.IsCode(err, shared.CodeTransientFailure))
		assert.Equal(t, DefaultAdjustRetries, stockRepo.saveAttempts)
		assert.Equal(t, int64(10), stockRepo.record.Quantity)
	})

	t.Run("pinned version does not retry", func(t *testing.T) {
		service, stockRepo, _, _, product := newLedgerFixture(t, 0)
		record := existingRecord(t, product, branchID, 10, 4)
		stockRepo.On("FindByProductAndBranch", mock.Anything, product.ID, branchID).Return(record, nil)

		pinned := 2
		_, err := service.AdjustWithRetry(ctx, manager, AdjustStockRequest{
			ProductID: product.ID, BranchID: branchID, Delta: -2, ExpectedVersion: &pinned, Reason: "recount",
		})
		assert.True(t, shared.IsCode(err, shared.CodeVersionConflict))
		stockRepo.AssertNumberOfCalls(t, "FindByProductAndBranch", 1)
	})

	t.Run("retry bound is clamped", func(t *testing.T) {
		service, _, _, _, _ := newLedgerFixture(t, 0)
		service.SetMaxRetries(100)
		assert.Equal(t, 5, service.maxRetries)
		service.SetMaxRetries(0)
		assert.Equal(t, 3, service.maxRetries)
	})
}

func TestLedgerService_GetLowStock(t *testing.T) {
	ctx := context.Background()
	branchID := uuid.New()

	service, stockRepo, productRepo, _, product := newLedgerFixture(t, 10)

	low := existingRecord(t, product, branchID, 4, 2)
	healthy := existingRecord(t, product, branchID, 40, 2)
	stockRepo.On("FindByBranch", mock.Anything, branchID, mock.Anything).
		Return([]inventory.StockRecord{*low, *healthy}, nil)
	productRepo.On("FindByIDs", mock.Anything, mock.Anything).Return([]*catalog.Product{product}, nil)

	responses, err := service.GetLowStock(ctx, branchID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, int64(4), responses[0].Quantity)
	assert.Equal(t, int64(10), responses[0].EffectiveThreshold)
	assert.Equal(t, "Unga 2kg", responses[0].ProductName)
}

func TestLedgerService_AdjustWithRetry_ConcurrentBurst(t *testing.T) {
	ctx := context.Background()
	branchID := uuid.New()
	product := newTestProduct(t, 5)

	record, err := inventory.NewStockRecord(product.ID, branchID)
	require.NoError(t, err)
	record.Quantity = 100
	record.ClearDomainEvents()
	startVersion := record.Version

	stockRepo := newConcurrentStockRepo(record)
	productRepo := new(MockProductRepository)
	productRepo.On("FindByID", mock.Anything, product.ID).Return(product, nil)
	publisher := NewMockEventPublisher()
	scope := NewNoOpTransactionScope(stockRepo, productRepo, publisher)
	service := NewLedgerService(scope, stockRepo, productRepo, zap.NewNop())
	service.SetMaxRetries(maxAdjustRetries)

	manager := identity.Operator{ID: uuid.New(), Role: identity.RoleManager, HomeBranchID: branchID}

	// Each writer can lose the CAS race at most writers-1 times, so the
	// retry bound must stay above that for the burst to be deterministic.
	const writers = maxAdjustRetries - 1
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.AdjustWithRetry(ctx, manager, AdjustStockRequest{
				ProductID: product.ID,
				BranchID:  branchID,
				Delta:     1,
				Reason:    "recount",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	final, err := stockRepo.FindByProductAndBranch(ctx, product.ID, branchID)
	require.NoError(t, err)
	assert.Equal(t, int64(100+writers), final.Quantity)
	assert.Equal(t, startVersion+writers, final.Version)
}
