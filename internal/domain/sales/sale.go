package sales

import (
	"fmt"
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment leg or credit installment was settled
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodMpesa  PaymentMethod = "MPESA"
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

// IsValid checks if the method is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMpesa, PaymentMethodCredit:
		return true
	}
	return false
}

// IsSettlement reports whether the method settles value immediately.
// Credit installments must be settled, never re-deferred.
func (m PaymentMethod) IsSettlement() bool {
	return m == PaymentMethodCash || m == PaymentMethodMpesa
}

// CreditStatus is the repayment state of a sale's credit leg
type CreditStatus string

const (
	CreditStatusPending CreditStatus = "PENDING"
	CreditStatusPartial CreditStatus = "PARTIAL"
	CreditStatusPaid    CreditStatus = "PAID"
)

// ReversalStatus is the state of a sale's reversal request
type ReversalStatus string

const (
	ReversalStatusNone     ReversalStatus = "NONE"
	ReversalStatusPending  ReversalStatus = "PENDING"
	ReversalStatusApproved ReversalStatus = "APPROVED"
	ReversalStatusRejected ReversalStatus = "REJECTED"
)

// paymentTolerance is the absolute slack allowed between the payment
// legs and the sale total, covering rounding on split payments.
var paymentTolerance = decimal.NewFromFloat(0.01)

// SaleItem is a line on the receipt. Product name and unit price are
// snapshotted at sale time so later catalog edits never rewrite history.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(255);not null"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (SaleItem) TableName() string {
	return "sale_items"
}

// NewSaleItem creates a receipt line
func NewSaleItem(saleID, productID uuid.UUID, productName string, quantity int64, unitPrice decimal.Decimal) (*SaleItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit price cannot be negative")
	}

	return &SaleItem{
		ID:          uuid.New(),
		SaleID:      saleID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(quantity)),
		CreatedAt:   time.Now(),
	}, nil
}

// SalePayment is one leg of a (possibly split) payment
type SalePayment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method    PaymentMethod   `gorm:"type:varchar(16);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Reference string          `gorm:"type:varchar(64)"` // M-Pesa code etc.
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (SalePayment) TableName() string {
	return "sale_payments"
}

// CreditPayment is an append-only installment against a sale's credit leg
type CreditPayment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Method     PaymentMethod   `gorm:"type:varchar(16);not null"`
	ReceivedBy uuid.UUID       `gorm:"type:uuid;not null"`
	PaidAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CreditPayment) TableName() string {
	return "credit_payments"
}

// Sale is the sale aggregate root: one completed checkout at a branch,
// with its receipt lines, payment legs, credit installments and
// reversal record.
type Sale struct {
	shared.BaseAggregateRoot
	ReceiptNumber string                  `gorm:"type:varchar(32);not null;uniqueIndex"`
	BranchID      uuid.UUID               `gorm:"type:uuid;not null;index"`
	OperatorID    uuid.UUID               `gorm:"type:uuid;not null"`
	CustomerName  string                  `gorm:"type:varchar(255)"`
	CustomerPhone valueobject.PhoneNumber `gorm:"type:varchar(16);index"`
	Subtotal      decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Discount      decimal.Decimal         `gorm:"type:decimal(18,2);not null;default:0"`
	Total         decimal.Decimal         `gorm:"type:decimal(18,2);not null"`

	IsCredit     bool         `gorm:"not null;default:false;index"`
	CreditStatus CreditStatus `gorm:"type:varchar(16)"`

	IsReversed          bool            `gorm:"not null;default:false"`
	ReversalStatus      ReversalStatus  `gorm:"type:varchar(16);not null;default:'NONE'"`
	ReversalReason      string          `gorm:"type:text"`
	ReversalAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	ReversalRequestedBy *uuid.UUID      `gorm:"type:uuid"`
	ReversalDecidedBy   *uuid.UUID      `gorm:"type:uuid"`
	ReversalRequestedAt *time.Time
	ReversalDecidedAt   *time.Time

	SoldAt time.Time `gorm:"not null;index"`

	Items          []SaleItem      `gorm:"foreignKey:SaleID;references:ID"`
	Payments       []SalePayment   `gorm:"foreignKey:SaleID;references:ID"`
	CreditPayments []CreditPayment `gorm:"foreignKey:SaleID;references:ID"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// ReceiptPrefix is the document number prefix for sales
const ReceiptPrefix = "RCP"

// GenerateReceiptNumber produces a candidate receipt number for a sale
// created at t. Uniqueness is re-checked against storage by the caller.
func GenerateReceiptNumber(t time.Time) string {
	return shared.GenerateReference(ReceiptPrefix, t)
}

// NewSale creates a sale under construction. Items and payments are
// added before Finalize validates and seals the aggregate.
func NewSale(receiptNumber string, branchID, operatorID uuid.UUID, customerName string, customerPhone valueobject.PhoneNumber) (*Sale, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Receipt number cannot be empty")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Branch ID cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Operator ID cannot be empty")
	}

	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptNumber:     receiptNumber,
		BranchID:          branchID,
		OperatorID:        operatorID,
		CustomerName:      customerName,
		CustomerPhone:     customerPhone,
		Subtotal:          decimal.Zero,
		Discount:          decimal.Zero,
		Total:             decimal.Zero,
		ReversalStatus:    ReversalStatusNone,
		ReversalAmount:    decimal.Zero,
		SoldAt:            time.Now(),
		Items:             make([]SaleItem, 0),
		Payments:          make([]SalePayment, 0),
		CreditPayments:    make([]CreditPayment, 0),
	}, nil
}

// AddItem appends a receipt line and recalculates totals
func (s *Sale) AddItem(productID uuid.UUID, productName string, quantity int64, unitPrice decimal.Decimal) error {
	item, err := NewSaleItem(s.ID, productID, productName, quantity, unitPrice)
	if err != nil {
		return err
	}
	s.Items = append(s.Items, *item)
	s.recalculateTotals()
	return nil
}

// ApplyDiscount sets the order-level discount
func (s *Sale) ApplyDiscount(discount decimal.Decimal) error {
	if discount.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot be negative")
	}
	if discount.GreaterThan(s.Subtotal) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Discount cannot exceed subtotal")
	}
	s.Discount = discount
	s.recalculateTotals()
	return nil
}

// AddPayment appends a payment leg
func (s *Sale) AddPayment(method PaymentMethod, amount decimal.Decimal, reference string) error {
	if !method.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown payment method %q", method))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Payment amount must be positive")
	}
	s.Payments = append(s.Payments, SalePayment{
		ID:        uuid.New(),
		SaleID:    s.ID,
		Method:    method,
		Amount:    amount,
		Reference: reference,
		CreatedAt: time.Now(),
	})
	return nil
}

// Finalize validates the assembled sale and seals it. Payment legs must
// cover the total within tolerance; a CREDIT leg demands customer name
// and a valid mobile number. Emits the sale.created event on success.
func (s *Sale) Finalize() error {
	if len(s.Items) == 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Sale must contain at least one item")
	}
	if len(s.Payments) == 0 {
		return shared.NewDomainError(shared.CodePaymentSumMismatch, "Sale has no payment legs")
	}

	paid := valueobject.ZeroKES()
	hasCredit := false
	for _, payment := range s.Payments {
		paid = paid.MustAdd(valueobject.NewMoneyKES(payment.Amount))
		if payment.Method == PaymentMethodCredit {
			hasCredit = true
		}
	}
	gap := paid.MustSubtract(s.TotalMoney())
	if gap.IsNegative() {
		gap = gap.Negate()
	}
	if gap.Amount().GreaterThan(paymentTolerance) {
		return shared.NewDomainError(shared.CodePaymentSumMismatch,
			fmt.Sprintf("Payments total %s but sale total is %s", paid.StringFixed(2), s.TotalMoney().StringFixed(2)))
	}

	if hasCredit {
		if s.CustomerName == "" || s.CustomerPhone.IsZero() {
			return shared.NewDomainError(shared.CodeMissingCreditDetails,
				"Credit payment requires customer name and a valid mobile number")
		}
		s.IsCredit = true
		s.CreditStatus = CreditStatusPending
	}

	s.AddDomainEvent(NewSaleCreatedEvent(s))
	return nil
}

// CreditPrincipal returns the deferred portion of the sale: the sum of
// its CREDIT payment legs.
func (s *Sale) CreditPrincipal() decimal.Decimal {
	principal := decimal.Zero
	for _, payment := range s.Payments {
		if payment.Method == PaymentMethodCredit {
			principal = principal.Add(payment.Amount)
		}
	}
	return principal
}

// TotalCreditPaid returns the sum of recorded installments
func (s *Sale) TotalCreditPaid() decimal.Decimal {
	paid := decimal.Zero
	for _, installment := range s.CreditPayments {
		paid = paid.Add(installment.Amount)
	}
	return paid
}

// OutstandingCredit returns the unpaid remainder of the credit principal
func (s *Sale) OutstandingCredit() decimal.Decimal {
	return s.CreditPrincipal().Sub(s.TotalCreditPaid())
}

// RecordCreditPayment appends an installment and refolds CreditStatus.
// The fold is a pure function of the installment set: zero paid is
// PENDING, anything short of the principal is PARTIAL, the full
// principal is PAID. Installments may only settle (CASH/MPESA) and may
// never exceed the remaining balance.
func (s *Sale) RecordCreditPayment(amount decimal.Decimal, method PaymentMethod, receivedBy uuid.UUID) error {
	if !s.IsCredit {
		return shared.NewDomainError(shared.CodeInvalidState, "Sale has no credit leg")
	}
	if s.IsReversed {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot record payment against a reversed sale")
	}
	if !method.IsSettlement() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Installments must be CASH or MPESA")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Installment amount must be positive")
	}
	if receivedBy == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Receiving operator is required")
	}
	if s.TotalCreditPaid().Add(amount).GreaterThan(s.CreditPrincipal()) {
		return shared.NewDomainError(shared.CodeOverpaymentRejected,
			fmt.Sprintf("Installment %s exceeds outstanding balance %s", amount.StringFixed(2), s.OutstandingCredit().StringFixed(2)))
	}

	s.CreditPayments = append(s.CreditPayments, CreditPayment{
		ID:         uuid.New(),
		SaleID:     s.ID,
		Amount:     amount,
		Method:     method,
		ReceivedBy: receivedBy,
		PaidAt:     time.Now(),
	})
	s.refoldCreditStatus()
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// refoldCreditStatus recomputes CreditStatus from the installment set
func (s *Sale) refoldCreditStatus() {
	paid := s.TotalCreditPaid()
	switch {
	case paid.IsZero():
		s.CreditStatus = CreditStatusPending
	case paid.GreaterThanOrEqual(s.CreditPrincipal()):
		s.CreditStatus = CreditStatusPaid
	default:
		s.CreditStatus = CreditStatusPartial
	}
}

// RequestReversal opens a reversal request. The requester must not be
// the operator who made the sale, the amount may not exceed the total,
// and a sale can only ever carry one live request.
func (s *Sale) RequestReversal(requestedBy uuid.UUID, reason string, amount decimal.Decimal) error {
	if s.IsReversed {
		return shared.NewDomainError(shared.CodeInvalidState, "Sale is already reversed")
	}
	if s.ReversalStatus == ReversalStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, "A reversal request is already pending")
	}
	if requestedBy == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Requesting operator is required")
	}
	if requestedBy == s.OperatorID {
		return shared.NewDomainError(shared.CodeForbidden, "The selling operator cannot request the reversal")
	}
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Reversal reason is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(s.Total) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Reversal amount must be positive and at most the sale total")
	}

	now := time.Now()
	s.ReversalStatus = ReversalStatusPending
	s.ReversalReason = reason
	s.ReversalAmount = amount
	s.ReversalRequestedBy = &requestedBy
	s.ReversalRequestedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// DecideReversal resolves a pending reversal request. Approval marks
// the sale reversed and emits sale.reversed; the caller re-credits the
// stock. Rejection only records the decision. The decider must differ
// from the requester; the role check lives with the caller.
func (s *Sale) DecideReversal(decidedBy uuid.UUID, approve bool) error {
	if s.ReversalStatus != ReversalStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, "No pending reversal request")
	}
	if decidedBy == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Deciding operator is required")
	}
	if s.ReversalRequestedBy != nil && decidedBy == *s.ReversalRequestedBy {
		return shared.NewDomainError(shared.CodeForbidden, "The requester cannot decide their own reversal")
	}

	now := time.Now()
	s.ReversalDecidedBy = &decidedBy
	s.ReversalDecidedAt = &now
	if approve {
		s.ReversalStatus = ReversalStatusApproved
		s.IsReversed = true
		s.AddDomainEvent(NewSaleReversedEvent(s))
	} else {
		s.ReversalStatus = ReversalStatusRejected
	}
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// recalculateTotals recomputes Subtotal and Total from the line items
func (s *Sale) recalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	s.Subtotal = subtotal
	s.Total = subtotal.Sub(s.Discount)
	if s.Total.IsNegative() {
		s.Discount = s.Subtotal
		s.Total = decimal.Zero
	}
}

// TotalMoney returns the sale total as Money
func (s *Sale) TotalMoney() valueobject.Money {
	return valueobject.NewMoneyKES(s.Total)
}

// ItemCount returns the number of receipt lines
func (s *Sale) ItemCount() int {
	return len(s.Items)
}
