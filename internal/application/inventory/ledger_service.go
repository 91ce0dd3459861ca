package inventory

import (
	"context"
	"errors"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/domain/inventory"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultAdjustRetries is how many times a manual correction is
	// replayed after a version conflict before giving up.
	DefaultAdjustRetries = 4
	minAdjustRetries     = 3
	maxAdjustRetries     = 5
)

// LedgerService owns stock mutations. Adjust is the single-shot
// compare-and-swap primitive the other services build on; AdjustWithRetry
// is the privileged manual-correction path with bounded replay.
type LedgerService struct {
	scope       TransactionScope
	stockRepo   inventory.StockRecordRepository
	productRepo catalog.Repository
	logger      *zap.Logger
	maxRetries  int
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, stockRepo inventory.StockRecordRepository, productRepo catalog.Repository, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		scope:       scope,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		logger:      logger,
		maxRetries:  DefaultAdjustRetries,
	}
}

// SetMaxRetries clamps and sets the conflict retry bound
func (s *LedgerService) SetMaxRetries(retries int) {
	if retries < minAdjustRetries {
		retries = minAdjustRetries
	}
	if retries > maxAdjustRetries {
		retries = maxAdjustRetries
	}
	s.maxRetries = retries
}

// Adjust applies one signed delta to a product-branch record, guarded by
// the caller's expected version. expectedVersion 0 asserts the record
// does not exist yet; the adjustment then creates it, which only makes
// sense for a positive delta. Any version mismatch, including a row
// appearing where none was expected, surfaces as VERSION_CONFLICT.
func (s *LedgerService) Adjust(ctx context.Context, productID, branchID uuid.UUID, delta int64, expectedVersion int) (*StockRecordResponse, error) {
	if expectedVersion < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expected version cannot be negative")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	var response StockRecordResponse
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		record, err := s.applyAdjustment(ctx, repos, product, branchID, delta, expectedVersion)
		if err != nil {
			return err
		}
		response = ToStockRecordResponse(record, product)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// applyAdjustment runs the adjustment inside an open transaction
func (s *LedgerService) applyAdjustment(ctx context.Context, repos TransactionalRepositories, product *catalog.Product, branchID uuid.UUID, delta int64, expectedVersion int) (*inventory.StockRecord, error) {
	record, err := repos.StockRepo().FindByProductAndBranch(ctx, product.ID, branchID)
	switch {
	case err == nil:
		if expectedVersion == 0 {
			// Caller expected no record; someone created one meanwhile
			return nil, shared.ErrVersionConflict
		}
		if record.Version != expectedVersion {
			return nil, shared.ErrVersionConflict
		}
		if err := record.ApplyDelta(delta, product.LowStockThreshold); err != nil {
			return nil, err
		}
		if err := repos.StockRepo().SaveWithLock(ctx, record); err != nil {
			return nil, err
		}
	case errors.Is(err, shared.ErrNotFound):
		if expectedVersion != 0 {
			return nil, shared.ErrVersionConflict
		}
		if delta <= 0 {
			return nil, shared.NewDomainError(shared.CodeInsufficientStock,
				"No stock record for this product at this branch")
		}
		record, err = inventory.NewStockRecord(product.ID, branchID)
		if err != nil {
			return nil, err
		}
		if err := record.ApplyDelta(delta, product.LowStockThreshold); err != nil {
			return nil, err
		}
		if err := repos.StockRepo().Save(ctx, record); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := repos.SaveEvents(ctx, record.GetDomainEvents()...); err != nil {
		return nil, err
	}
	record.ClearDomainEvents()
	return record, nil
}

// AdjustWithRetry is the manual correction path: it re-reads the current
// version and replays the adjustment on conflict, up to the configured
// bound, then reports TRANSIENT_FAILURE. Only managers and admins may
// correct stock by hand.
func (s *LedgerService) AdjustWithRetry(ctx context.Context, operator identity.Operator, req AdjustStockRequest) (*StockRecordResponse, error) {
	if !operator.Role.IsPrivileged() {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Manual stock corrections require a manager or admin")
	}

	if req.ExpectedVersion != nil {
		// Caller pinned a version; single shot, no retry
		return s.Adjust(ctx, req.ProductID, req.BranchID, req.Delta, *req.ExpectedVersion)
	}

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		expectedVersion := 0
		record, err := s.stockRepo.FindByProductAndBranch(ctx, req.ProductID, req.BranchID)
		switch {
		case err == nil:
			expectedVersion = record.Version
		case errors.Is(err, shared.ErrNotFound):
			// Creation path
		default:
			return nil, err
		}

		response, err := s.Adjust(ctx, req.ProductID, req.BranchID, req.Delta, expectedVersion)
		if err == nil {
			s.logger.Info("manual stock correction applied",
				zap.String("product_id", req.ProductID.String()),
				zap.String("branch_id", req.BranchID.String()),
				zap.Int64("delta", req.Delta),
				zap.String("reason", req.Reason),
				zap.String("operator_id", operator.ID.String()),
				zap.Int("attempt", attempt))
			return response, nil
		}
		if !shared.IsCode(err, shared.CodeVersionConflict) {
			return nil, err
		}
		s.logger.Debug("stock correction hit version conflict, retrying",
			zap.String("product_id", req.ProductID.String()),
			zap.String("branch_id", req.BranchID.String()),
			zap.Int("attempt", attempt))
	}

	return nil, shared.ErrTransientFailure
}

// GetStock lists the stock records at a branch with product context
func (s *LedgerService) GetStock(ctx context.Context, filter StockListFilter) ([]StockRecordResponse, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.Search = filter.Search

	records, err := s.stockRepo.FindByBranch(ctx, filter.BranchID, domainFilter)
	if err != nil {
		return nil, err
	}
	return s.toResponses(ctx, records)
}

// GetLowStock lists records at or below their effective threshold
func (s *LedgerService) GetLowStock(ctx context.Context, branchID uuid.UUID) ([]StockRecordResponse, error) {
	records, err := s.stockRepo.FindByBranch(ctx, branchID, shared.Filter{Page: 1, PageSize: 1000})
	if err != nil {
		return nil, err
	}

	responses, err := s.toResponses(ctx, records)
	if err != nil {
		return nil, err
	}

	low := make([]StockRecordResponse, 0)
	for _, response := range responses {
		if response.IsLowStock {
			low = append(low, response)
		}
	}
	return low, nil
}

// toResponses resolves the owning products and builds responses
func (s *LedgerService) toResponses(ctx context.Context, records []inventory.StockRecord) ([]StockRecordResponse, error) {
	productIDs := make([]uuid.UUID, 0, len(records))
	for _, record := range records {
		productIDs = append(productIDs, record.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	responses := make([]StockRecordResponse, 0, len(records))
	for idx := range records {
		responses = append(responses, ToStockRecordResponse(&records[idx], byID[records[idx].ProductID]))
	}
	return responses, nil
}
