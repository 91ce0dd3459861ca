package sales

import (
	"context"

	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditService records installments against credit sales and answers
// outstanding-balance queries per customer.
type CreditService struct {
	scope    TransactionScope
	saleRepo sales.SaleRepository
	logger   *zap.Logger
}

// NewCreditService creates a new CreditService
func NewCreditService(scope TransactionScope, saleRepo sales.SaleRepository, logger *zap.Logger) *CreditService {
	return &CreditService{
		scope:    scope,
		saleRepo: saleRepo,
		logger:   logger,
	}
}

// RecordPayment applies an installment to a credit sale. The credit
// status is refolded from the full payment history inside the same
// transaction.
func (s *CreditService) RecordPayment(ctx context.Context, operator identity.Operator, saleID uuid.UUID, req CreditPaymentRequest) (*SaleResponse, error) {
	var response SaleResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sale, err := repos.SaleRepo().FindByID(ctx, saleID)
		if err != nil {
			return err
		}
		if err := sale.RecordCreditPayment(req.Amount, sales.PaymentMethod(req.Method), operator.ID); err != nil {
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
	s.logger.Info("credit installment recorded",
		zap.String("sale_id", saleID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("credit_status", response.CreditStatus))
	return &response, nil
}

// OutstandingBalance folds every credit sale held against a customer
// phone number into one balance
func (s *CreditService) OutstandingBalance(ctx context.Context, phone string) (*OutstandingBalanceResponse, error) {
	parsed, err := valueobject.NewPhoneNumber(phone)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	creditSales, err := s.saleRepo.FindCreditByCustomerPhone(ctx, parsed)
	if err != nil {
		return nil, err
	}

	response := OutstandingBalanceResponse{
		CustomerPhone: parsed.String(),
		Outstanding:   decimal.Zero,
		Sales:         make([]OutstandingSaleResponse, 0, len(creditSales)),
	}
	for _, sale := range creditSales {
		outstanding := sale.OutstandingCredit()
		response.Outstanding = response.Outstanding.Add(outstanding)
		response.Sales = append(response.Sales, OutstandingSaleResponse{
			SaleID:        sale.ID,
			ReceiptNumber: sale.ReceiptNumber,
			Total:         sale.Total,
			Paid:          sale.TotalCreditPaid(),
			Outstanding:   outstanding,
			CreditStatus:  string(sale.CreditStatus),
			SoldAt:        sale.SoldAt,
		})
	}
	return &response, nil
}
