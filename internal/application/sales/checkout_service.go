package sales

import (
	"context"
	"errors"
	"time"

	"github.com/dukapos/backend/internal/domain/catalog"
	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultCheckoutRetries is how many times the whole checkout
	// transaction is replayed after losing a stock CAS race.
	DefaultCheckoutRetries = 4
	minCheckoutRetries     = 3
	maxCheckoutRetries     = 5

	// receiptRegenAttempts bounds the uniqueness check-and-regenerate
	// loop for receipt numbers. With a random 4-char suffix per second
	// a second attempt is already rare.
	receiptRegenAttempts = 5
)

// CheckoutService processes point-of-sale checkouts and the reversal
// protocol. Every checkout runs in one transaction: stock deductions,
// the sale row, and the outbox entries land together or not at all.
type CheckoutService struct {
	scope      TransactionScope
	saleRepo   sales.SaleRepository
	logger     *zap.Logger
	maxRetries int
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(scope TransactionScope, saleRepo sales.SaleRepository, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		scope:      scope,
		saleRepo:   saleRepo,
		logger:     logger,
		maxRetries: DefaultCheckoutRetries,
	}
}

// SetMaxRetries clamps and sets the conflict retry bound
func (s *CheckoutService) SetMaxRetries(retries int) {
	if retries < minCheckoutRetries {
		retries = minCheckoutRetries
	}
	if retries > maxCheckoutRetries {
		retries = maxCheckoutRetries
	}
	s.maxRetries = retries
}

// Checkout validates and commits a sale. Stock CAS losses replay the
// whole transaction up to the bound, then surface TRANSIENT_FAILURE.
// Anything else fails fast without touching stock.
func (s *CheckoutService) Checkout(ctx context.Context, operator identity.Operator, req CheckoutRequest) (*SaleResponse, error) {
	if !operator.CanOperateAt(req.BranchID) {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Operator cannot sell at this branch")
	}
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Checkout requires at least one item")
	}

	var customerPhone valueobject.PhoneNumber
	if req.CustomerPhone != "" {
		parsed, err := valueobject.NewPhoneNumber(req.CustomerPhone)
		if err != nil {
			// Only a credit leg actually needs the number; on a plain
			// sale a bad phone is an ordinary validation failure.
			if hasCreditLeg(req.Payments) {
				return nil, shared.NewDomainError(shared.CodeMissingCreditDetails, err.Error())
			}
			return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
		}
		customerPhone = parsed
	}

	var response SaleResponse
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			sale, err := s.buildAndCommit(ctx, repos, operator, req, customerPhone)
			if err != nil {
				return err
			}
			response = ToSaleResponse(sale)
			return nil
		})
		if err == nil {
			return &response, nil
		}
		if !shared.IsCode(err, shared.CodeVersionConflict) {
			return nil, err
		}
		s.logger.Debug("checkout lost a stock race, replaying",
			zap.String("branch_id", req.BranchID.String()),
			zap.Int("attempt", attempt))
	}
	return nil, shared.ErrTransientFailure
}

// buildAndCommit runs one checkout attempt inside an open transaction
func (s *CheckoutService) buildAndCommit(ctx context.Context, repos TransactionalRepositories, operator identity.Operator, req CheckoutRequest, customerPhone valueobject.PhoneNumber) (*sales.Sale, error) {
	products, err := s.loadProducts(ctx, repos, req.Items)
	if err != nil {
		return nil, err
	}
	if err := s.validateFloorPrices(operator, req, products); err != nil {
		return nil, err
	}

	receiptNumber, err := s.uniqueReceiptNumber(ctx, repos)
	if err != nil {
		return nil, err
	}

	sale, err := sales.NewSale(receiptNumber, req.BranchID, operator.ID, req.CustomerName, customerPhone)
	if err != nil {
		return nil, err
	}

	stockEvents := make([]shared.DomainEvent, 0, len(req.Items))
	for _, item := range req.Items {
		product := products[item.ProductID]

		record, err := repos.StockRepo().FindByProductAndBranch(ctx, item.ProductID, req.BranchID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeInsufficientStock,
				"No stock of "+product.Name+" at this branch")
		}
		if err != nil {
			return nil, err
		}
		if err := record.ApplyDelta(-item.Quantity, product.LowStockThreshold); err != nil {
			return nil, err
		}
		if err := repos.StockRepo().SaveWithLock(ctx, record); err != nil {
			return nil, err
		}
		stockEvents = append(stockEvents, record.GetDomainEvents()...)
		record.ClearDomainEvents()

		if err := sale.AddItem(item.ProductID, product.Name, item.Quantity, item.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := sale.ApplyDiscount(req.Discount); err != nil {
		return nil, err
	}
	for _, payment := range req.Payments {
		if err := sale.AddPayment(sales.PaymentMethod(payment.Method), payment.Amount, payment.Reference); err != nil {
			return nil, err
		}
	}
	if err := sale.Finalize(); err != nil {
		return nil, err
	}

	if err := repos.SaleRepo().Save(ctx, sale); err != nil {
		return nil, err
	}

	events := append(sale.GetDomainEvents(), stockEvents...)
	if err := repos.SaveEvents(ctx, events...); err != nil {
		return nil, err
	}
	sale.ClearDomainEvents()

	s.logger.Info("sale committed",
		zap.String("receipt_number", sale.ReceiptNumber),
		zap.String("branch_id", sale.BranchID.String()),
		zap.String("total", sale.Total.StringFixed(2)),
		zap.Bool("is_credit", sale.IsCredit))
	return sale, nil
}

// loadProducts resolves and validates the products on the ticket
func (s *CheckoutService) loadProducts(ctx context.Context, repos TransactionalRepositories, items []CheckoutItemRequest) (map[uuid.UUID]*catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := repos.ProductRepo().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Unknown product on ticket")
		}
		if !product.Active {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, product.Name+" is no longer sold")
		}
	}
	return byID, nil
}

// validateFloorPrices rejects offered prices below the product floor.
// Managers and admins may override; the override is logged.
func (s *CheckoutService) validateFloorPrices(operator identity.Operator, req CheckoutRequest, products map[uuid.UUID]*catalog.Product) error {
	override := req.AllowBelowFloor && operator.Role.IsPrivileged()
	for _, item := range req.Items {
		product := products[item.ProductID]
		if product.PriceAllowed(item.UnitPrice) {
			continue
		}
		if !override {
			return shared.NewDomainError(shared.CodePriceBelowMinimum,
				"Offered price "+item.UnitPrice.StringFixed(2)+" for "+product.Name+
					" is below the floor price "+product.MinPrice.StringFixed(2))
		}
		s.logger.Warn("floor price overridden",
			zap.String("product", product.Name),
			zap.String("offered", item.UnitPrice.StringFixed(2)),
			zap.String("floor", product.MinPrice.StringFixed(2)),
			zap.String("operator_id", operator.ID.String()))
	}
	return nil
}

// uniqueReceiptNumber generates a receipt number and re-checks it
// against storage, regenerating on collision
func (s *CheckoutService) uniqueReceiptNumber(ctx context.Context, repos TransactionalRepositories) (string, error) {
	for i := 0; i < receiptRegenAttempts; i++ {
		candidate := sales.GenerateReceiptNumber(time.Now())
		exists, err := repos.SaleRepo().ExistsByReceiptNumber(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", shared.ErrTransientFailure
}

// GetSale loads a sale by ID
func (s *CheckoutService) GetSale(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToSaleResponse(sale)
	return &response, nil
}

// ListSales lists sales at a branch, newest first
func (s *CheckoutService) ListSales(ctx context.Context, filter SaleListFilter) (*shared.Paginated[SaleResponse], error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	page, err := s.saleRepo.FindByBranch(ctx, filter.BranchID, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]SaleResponse, 0, len(page.Items))
	for _, sale := range page.Items {
		responses = append(responses, ToSaleResponse(sale))
	}
	result := shared.NewPaginated(responses, page.Total, page.Page, page.PageSize)
	return &result, nil
}

// RequestReversal opens a reversal request against a sale. Any operator
// other than the seller may request; approval is a separate privileged
// step.
func (s *CheckoutService) RequestReversal(ctx context.Context, operator identity.Operator, saleID uuid.UUID, req ReversalRequest) (*SaleResponse, error) {
	var response SaleResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByID(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.RequestReversal(operator.ID, req.Reason, req.Amount); err != nil {
			return err
		}
		if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
			return err
		}
		response = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// DecideReversal approves or rejects a pending reversal. Approval
// re-credits every line quantity at the original branch in the same
// transaction; the credit direction cannot fail on stock so a CAS loss
// is retried by re-reading inside the transaction.
func (s *CheckoutService) DecideReversal(ctx context.Context, operator identity.Operator, saleID uuid.UUID, req ReversalDecisionRequest) (*SaleResponse, error) {
	if !operator.Role.IsPrivileged() {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Reversal decisions require a manager or admin")
	}
	approve := req.Decision == "APPROVED"

	var response SaleResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByID(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.DecideReversal(operator.ID, approve); err != nil {
			return err
		}

		events := sale.GetDomainEvents()
		sale.ClearDomainEvents()

		if approve {
			restockEvents, err := s.restock(ctx, repos, sale)
			if err != nil {
				return err
			}
			events = append(events, restockEvents...)
		}

		if err := repos.SaleRepo().SaveWithLock(ctx, sale); err != nil {
			return err
		}
		if err := repos.SaveEvents(ctx, events...); err != nil {
			return err
		}
		response = ToSaleResponse(sale)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if approve {
		s.logger.Info("sale reversed",
			zap.String("sale_id", saleID.String()),
			zap.String("decided_by", operator.ID.String()))
	}
	return &response, nil
}

// restock re-credits every line quantity at the sale's branch. Credits
// cannot fail on insufficient stock, so losing a CAS race just re-reads
// and reapplies (last writer wins on the credit direction).
func (s *CheckoutService) restock(ctx context.Context, repos TransactionalRepositories, sale *sales.Sale) ([]shared.DomainEvent, error) {
	products, err := repos.ProductRepo().FindByIDs(ctx, productIDsOf(sale))
	if err != nil {
		return nil, err
	}
	thresholds := make(map[uuid.UUID]int64, len(products))
	for _, product := range products {
		thresholds[product.ID] = product.LowStockThreshold
	}

	events := make([]shared.DomainEvent, 0, len(sale.Items))
	for _, item := range sale.Items {
		for {
			record, err := repos.StockRepo().GetOrCreate(ctx, item.ProductID, sale.BranchID)
			if err != nil {
				return nil, err
			}
			if err := record.ApplyDelta(item.Quantity, thresholds[item.ProductID]); err != nil {
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

func productIDsOf(sale *sales.Sale) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(sale.Items))
	for _, item := range sale.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func hasCreditLeg(payments []CheckoutPaymentRequest) bool {
	for _, payment := range payments {
		if payment.Method == string(sales.PaymentMethodCredit) {
			return true
		}
	}
	return false
}
