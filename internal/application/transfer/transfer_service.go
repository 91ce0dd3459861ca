package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/transfer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultDispatchRetries bounds whole-transaction replays after a
	// dispatch loses a stock CAS race.
	DefaultDispatchRetries = 4
	minDispatchRetries     = 3
	maxDispatchRetries     = 5

	numberRegenAttempts = 5
)

// TransferService drives inter-branch transfers through their state
// machine. Dispatch deducts source stock and Receive credits the
// destination, each in the same transaction as the state change.
type TransferService struct {
	scope        TransactionScope
	transferRepo transfer.TransferRepository
	logger       *zap.Logger
	maxRetries   int
}

// NewTransferService creates a new TransferService
func NewTransferService(scope TransactionScope, transferRepo transfer.TransferRepository, logger *zap.Logger) *TransferService {
	return &TransferService{
		scope:        scope,
		transferRepo: transferRepo,
		logger:       logger,
		maxRetries:   DefaultDispatchRetries,
	}
}

// SetMaxRetries clamps and sets the conflict retry bound
func (s *TransferService) SetMaxRetries(retries int) {
	if retries < minDispatchRetries {
		retries = minDispatchRetries
	}
	if retries > maxDispatchRetries {
		retries = maxDispatchRetries
	}
	s.maxRetries = retries
}

// Request opens a transfer. Cashiers may only request transfers that
// touch their home branch; managers and admins may request anywhere.
func (s *TransferService) Request(ctx context.Context, operator identity.Operator, req CreateTransferRequest) (*TransferResponse, error) {
	if !operator.CanOperateAt(req.FromBranchID) && !operator.CanOperateAt(req.ToBranchID) {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Operator is not attached to either branch of the transfer")
	}

	var response TransferResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := s.checkProducts(ctx, repos, req.Items); err != nil {
			return err
		}

		number, err := s.uniqueTransferNumber(ctx, repos)
		if err != nil {
			return err
		}

		items := make([]transfer.RequestedItem, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, transfer.RequestedItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		t, err := transfer.NewTransfer(number, req.FromBranchID, req.ToBranchID, operator.ID, items, req.Notes)
		if err != nil {
			return err
		}

		if err := repos.TransferRepo().Save(ctx, t); err != nil {
			return err
		}
		if err := repos.SaveEvents(ctx, t.GetDomainEvents()...); err != nil {
			return err
		}
		t.ClearDomainEvents()
		response = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer requested",
		zap.String("transfer_number", response.TransferNumber),
		zap.String("from_branch_id", req.FromBranchID.String()),
		zap.String("to_branch_id", req.ToBranchID.String()))
	return &response, nil
}

// Approve moves a requested transfer to APPROVED, optionally trimming
// line quantities. Replaying an identical, already-applied approval
// returns the current state instead of a violation.
func (s *TransferService) Approve(ctx context.Context, operator identity.Operator, transferID uuid.UUID, req ApproveTransferRequest) (*TransferResponse, error) {
	if !operator.Role.IsPrivileged() {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Transfer approval requires a manager or admin")
	}

	approvals := make(map[uuid.UUID]int64, len(req.Items))
	for _, item := range req.Items {
		approvals[item.ProductID] = item.Quantity
	}

	var response TransferResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TransferRepo().FindByID(ctx, transferID)
		if err != nil {
			return err
		}
		if s.isApprovalReplay(t, operator.ID, approvals) {
			response = ToTransferResponse(t)
			return nil
		}
		if err := t.Approve(operator.ID, approvals); err != nil {
			return err
		}
		if err := repos.TransferRepo().SaveWithLock(ctx, t); err != nil {
			return err
		}
		if err := repos.SaveEvents(ctx, t.GetDomainEvents()...); err != nil {
			return err
		}
		t.ClearDomainEvents()
		response = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// Dispatch deducts the approved quantities from the source branch and
// moves the transfer to DISPATCHED. A CAS loss on any stock record
// replays the whole transaction; insufficient source stock blocks the
// dispatch outright.
func (s *TransferService) Dispatch(ctx context.Context, operator identity.Operator, transferID uuid.UUID, req DispatchTransferRequest) (*TransferResponse, error) {
	var response TransferResponse
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			t, err := repos.TransferRepo().FindByID(ctx, transferID)
			if err != nil {
				return err
			}
			if !operator.CanOperateAt(t.FromBranchID) {
				return shared.NewDomainError(shared.CodeForbidden, "Dispatch must happen at the source branch")
			}
			if s.isDispatchReplay(t, operator.ID, req.TrackingRef) {
				response = ToTransferResponse(t)
				return nil
			}

			stockEvents, err := s.deductSource(ctx, repos, t)
			if err != nil {
				return err
			}
			if err := t.Dispatch(operator.ID, req.TrackingRef); err != nil {
				return err
			}
			if err := repos.TransferRepo().SaveWithLock(ctx, t); err != nil {
				return err
			}

			events := append(t.GetDomainEvents(), stockEvents...)
			if err := repos.SaveEvents(ctx, events...); err != nil {
				return err
			}
			t.ClearDomainEvents()
			response = ToTransferResponse(t)
			return nil
		})
		if err == nil {
			return &response, nil
		}
		if !shared.IsCode(err, shared.CodeVersionConflict) {
			return nil, err
		}
		s.logger.Debug("dispatch lost a stock race, replaying",
			zap.String("transfer_id", transferID.String()),
			zap.Int("attempt", attempt))
	}
	return nil, shared.ErrTransientFailure
}

// Receive credits the received quantities at the destination branch and
// closes the transfer. Credits cannot fail on stock, so CAS losses are
// resolved by re-reading inside the transaction.
func (s *TransferService) Receive(ctx context.Context, operator identity.Operator, transferID uuid.UUID, req ReceiveTransferRequest) (*TransferResponse, error) {
	receipts := make(map[uuid.UUID]int64, len(req.Items))
	for _, item := range req.Items {
		receipts[item.ProductID] = item.Quantity
	}

	var response TransferResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TransferRepo().FindByID(ctx, transferID)
		if err != nil {
			return err
		}
		if !operator.CanOperateAt(t.ToBranchID) {
			return shared.NewDomainError(shared.CodeForbidden, "Receipt must happen at the destination branch")
		}
		if s.isReceiptReplay(t, operator.ID, receipts) {
			response = ToTransferResponse(t)
			return nil
		}

		if err := t.Receive(operator.ID, receipts, req.DiscrepancyNotes); err != nil {
			return err
		}

		stockEvents, err := s.creditDestination(ctx, repos, t)
		if err != nil {
			return err
		}
		if err := repos.TransferRepo().SaveWithLock(ctx, t); err != nil {
			return err
		}

		events := append(t.GetDomainEvents(), stockEvents...)
		if err := repos.SaveEvents(ctx, events...); err != nil {
			return err
		}
		t.ClearDomainEvents()
		response = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if response.State == transfer.TransferStateReceivedWithDiscrepancy.String() {
		s.logger.Warn("transfer received with discrepancy",
			zap.String("transfer_number", response.TransferNumber),
			zap.String("notes", response.DiscrepancyNotes))
	}
	return &response, nil
}

// Withdraw cancels a transfer that has not yet been approved
func (s *TransferService) Withdraw(ctx context.Context, operator identity.Operator, transferID uuid.UUID) (*TransferResponse, error) {
	var response TransferResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.TransferRepo().FindByID(ctx, transferID)
		if err != nil {
			return err
		}
		if t.State == transfer.TransferStateWithdrawn && t.RequestedBy == operator.ID {
			response = ToTransferResponse(t)
			return nil
		}
		if err := t.Withdraw(operator.ID); err != nil {
			return err
		}
		if err := repos.TransferRepo().SaveWithLock(ctx, t); err != nil {
			return err
		}
		if err := repos.SaveEvents(ctx, t.GetDomainEvents()...); err != nil {
			return err
		}
		t.ClearDomainEvents()
		response = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// GetTransfer loads a transfer by ID
func (s *TransferService) GetTransfer(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	t, err := s.transferRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(t)
	return &response, nil
}

// ListTransfers lists transfers touching a branch, newest first
func (s *TransferService) ListTransfers(ctx context.Context, filter TransferListFilter) (*shared.Paginated[TransferResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	page, err := s.transferRepo.FindByBranch(ctx, filter.BranchID, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]TransferResponse, 0, len(page.Items))
	for _, t := range page.Items {
		responses = append(responses, ToTransferResponse(t))
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// checkProducts verifies every requested product exists and is active
func (s *TransferService) checkProducts(ctx context.Context, repos TransactionalRepositories, items []RequestItemRequest) error {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := repos.ProductRepo().FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	found := make(map[uuid.UUID]bool, len(products))
	for _, product := range products {
		if !product.Active {
			return shared.NewDomainError(shared.CodeInvalidInput, product.Name+" is no longer sold")
		}
		found[product.ID] = true
	}
	for _, item := range items {
		if !found[item.ProductID] {
			return shared.NewDomainError(shared.CodeNotFound, "Unknown product on transfer request")
		}
	}
	return nil
}

// uniqueTransferNumber generates a transfer number and re-checks it
// against storage, regenerating on collision
func (s *TransferService) uniqueTransferNumber(ctx context.Context, repos TransactionalRepositories) (string, error) {
	for i := 0; i < numberRegenAttempts; i++ {
		candidate := transfer.GenerateTransferNumber(time.Now())
		exists, err := repos.TransferRepo().ExistsByNumber(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", shared.ErrTransientFailure
}

// deductSource removes each line's approved quantity from the source
// branch. A missing stock record or a short balance blocks the dispatch.
func (s *TransferService) deductSource(ctx context.Context, repos TransactionalRepositories, t *transfer.Transfer) ([]shared.DomainEvent, error) {
	thresholds, err := s.productThresholds(ctx, repos, t)
	if err != nil {
		return nil, err
	}

	events := make([]shared.DomainEvent, 0, len(t.Items))
	for _, item := range t.Items {
		if item.QuantityApproved == 0 {
			continue
		}
		record, err := repos.StockRepo().FindByProductAndBranch(ctx, item.ProductID, t.FromBranchID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeInsufficientStock, "No source stock for a transfer line")
		}
		if err != nil {
			return nil, err
		}
		if err := record.ApplyDelta(-item.QuantityApproved, thresholds[item.ProductID]); err != nil {
			return nil, err
		}
		if err := repos.StockRepo().SaveWithLock(ctx, record); err != nil {
			return nil, err
		}
		events = append(events, record.GetDomainEvents()...)
		record.ClearDomainEvents()
	}
	return events, nil
}

// creditDestination adds each line's received quantity at the
// destination branch, creating records as needed
func (s *TransferService) creditDestination(ctx context.Context, repos TransactionalRepositories, t *transfer.Transfer) ([]shared.DomainEvent, error) {
	thresholds, err := s.productThresholds(ctx, repos, t)
	if err != nil {
		return nil, err
	}

	events := make([]shared.DomainEvent, 0, len(t.Items))
	for _, item := range t.Items {
		if item.QuantityReceived == 0 {
			continue
		}
		for {
			record, err := repos.StockRepo().GetOrCreate(ctx, item.ProductID, t.ToBranchID)
			if err != nil {
				return nil, err
			}
			if err := record.ApplyDelta(item.QuantityReceived, thresholds[item.ProductID]); err != nil {
				return nil, err
			}
			err = repos.StockRepo().SaveWithLock(ctx, record)
			if err == nil {
				events = append(events, record.GetDomainEvents()...)
				record.ClearDomainEvents()
				break
			}
			if !shared.IsCode(err, shared.CodeVersionConflict) {
				return nil, err
			}
		}
	}
	return events, nil
}

func (s *TransferService) productThresholds(ctx context.Context, repos TransactionalRepositories, t *transfer.Transfer) (map[uuid.UUID]int64, error) {
	ids := make([]uuid.UUID, 0, len(t.Items))
	for _, item := range t.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := repos.ProductRepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	thresholds := make(map[uuid.UUID]int64, len(products))
	for _, product := range products {
		thresholds[product.ID] = product.LowStockThreshold
	}
	return thresholds, nil
}

// isApprovalReplay reports whether an approval call matches one already
// applied: same approver, same effective quantity on every line
func (s *TransferService) isApprovalReplay(t *transfer.Transfer, approvedBy uuid.UUID, approvals map[uuid.UUID]int64) bool {
	if t.State != transfer.TransferStateApproved || t.ApprovedBy == nil || *t.ApprovedBy != approvedBy {
		return false
	}
	for _, item := range t.Items {
		wanted, ok := approvals[item.ProductID]
		if !ok {
			wanted = item.QuantityRequested
		}
		if item.QuantityApproved != wanted {
			return false
		}
	}
	return true
}

// isDispatchReplay reports whether a dispatch call matches the one
// already applied
func (s *TransferService) isDispatchReplay(t *transfer.Transfer, dispatchedBy uuid.UUID, trackingRef string) bool {
	return t.State == transfer.TransferStateDispatched &&
		t.DispatchedBy != nil && *t.DispatchedBy == dispatchedBy &&
		t.TrackingRef == trackingRef
}

// isReceiptReplay reports whether a receipt call matches the one
// already applied
func (s *TransferService) isReceiptReplay(t *transfer.Transfer, receivedBy uuid.UUID, receipts map[uuid.UUID]int64) bool {
	if t.State != transfer.TransferStateReceived && t.State != transfer.TransferStateReceivedWithDiscrepancy {
		return false
	}
	if t.ReceivedBy == nil || *t.ReceivedBy != receivedBy {
		return false
	}
	for _, item := range t.Items {
		wanted, ok := receipts[item.ProductID]
		if !ok {
			wanted = item.QuantityDispatched
		}
		if item.QuantityReceived != wanted {
			return false
		}
	}
	return true
}
