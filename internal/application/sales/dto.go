package sales

import (
	"time"

	"github.com/dukapos/backend/internal/domain/sales"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutItemRequest is one line in a checkout request
type CheckoutItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

// CheckoutPaymentRequest is one payment leg in a checkout request
type CheckoutPaymentRequest struct {
	Method    string          `json:"method" binding:"required,oneof=CASH MPESA CREDIT"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reference string          `json:"reference"`
}

// CheckoutRequest is a complete point-of-sale checkout
type CheckoutRequest struct {
	BranchID      uuid.UUID                `json:"branch_id" binding:"required"`
	Items         []CheckoutItemRequest    `json:"items" binding:"required,min=1,dive"`
	Discount      decimal.Decimal          `json:"discount"`
	Payments      []CheckoutPaymentRequest `json:"payments" binding:"required,min=1,dive"`
	CustomerName  string                   `json:"customer_name"`
	CustomerPhone string                   `json:"customer_phone" binding:"omitempty,msisdn"`
	// AllowBelowFloor lets a manager or admin push a line below the
	// product floor price; it is ignored for cashiers.
	AllowBelowFloor bool `json:"allow_below_floor"`
}

// ReversalRequest opens a reversal request against a sale
type ReversalRequest struct {
	Reason string          `json:"reason" binding:"required,min=3,max=500"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// ReversalDecisionRequest resolves a pending reversal request
type ReversalDecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
}

// CreditPaymentRequest records an installment against a credit sale
type CreditPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method" binding:"required,oneof=CASH MPESA"`
}

// SaleItemResponse is one receipt line in API responses
type SaleItemResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// SalePaymentResponse is one payment leg in API responses
type SalePaymentResponse struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// CreditPaymentResponse is one installment in API responses
type CreditPaymentResponse struct {
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	ReceivedBy uuid.UUID       `json:"received_by"`
	PaidAt     time.Time       `json:"paid_at"`
}

// SaleResponse represents a sale in API responses
type SaleResponse struct {
	ID             uuid.UUID               `json:"id"`
	ReceiptNumber  string                  `json:"receipt_number"`
	BranchID       uuid.UUID               `json:"branch_id"`
	OperatorID     uuid.UUID               `json:"operator_id"`
	CustomerName   string                  `json:"customer_name,omitempty"`
	CustomerPhone  string                  `json:"customer_phone,omitempty"`
	Subtotal       decimal.Decimal         `json:"subtotal"`
	Discount       decimal.Decimal         `json:"discount"`
	Total          decimal.Decimal         `json:"total"`
	IsCredit       bool                    `json:"is_credit"`
	CreditStatus   string                  `json:"credit_status,omitempty"`
	Outstanding    decimal.Decimal         `json:"outstanding_credit"`
	IsReversed     bool                    `json:"is_reversed"`
	ReversalStatus string                  `json:"reversal_status"`
	SoldAt         time.Time               `json:"sold_at"`
	Items          []SaleItemResponse      `json:"items"`
	Payments       []SalePaymentResponse   `json:"payments"`
	CreditPayments []CreditPaymentResponse `json:"credit_payments,omitempty"`
	Version        int                     `json:"version"`
}

// ToSaleResponse converts a sale aggregate to its API representation
func ToSaleResponse(sale *sales.Sale) SaleResponse {
	response := SaleResponse{
		ID:             sale.ID,
		ReceiptNumber:  sale.ReceiptNumber,
		BranchID:       sale.BranchID,
		OperatorID:     sale.OperatorID,
		CustomerName:   sale.CustomerName,
		CustomerPhone:  sale.CustomerPhone.String(),
		Subtotal:       sale.Subtotal,
		Discount:       sale.Discount,
		Total:          sale.Total,
		IsCredit:       sale.IsCredit,
		CreditStatus:   string(sale.CreditStatus),
		Outstanding:    sale.OutstandingCredit(),
		IsReversed:     sale.IsReversed,
		ReversalStatus: string(sale.ReversalStatus),
		SoldAt:         sale.SoldAt,
		Items:          make([]SaleItemResponse, 0, len(sale.Items)),
		Payments:       make([]SalePaymentResponse, 0, len(sale.Payments)),
		Version:        sale.Version,
	}
	for _, item := range sale.Items {
		response.Items = append(response.Items, SaleItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	for _, payment := range sale.Payments {
		response.Payments = append(response.Payments, SalePaymentResponse{
			Method:    string(payment.Method),
			Amount:    payment.Amount,
			Reference: payment.Reference,
		})
	}
	for _, installment := range sale.CreditPayments {
		response.CreditPayments = append(response.CreditPayments, CreditPaymentResponse{
			Amount:     installment.Amount,
			Method:     string(installment.Method),
			ReceivedBy: installment.ReceivedBy,
			PaidAt:     installment.PaidAt,
		})
	}
	return response
}

// OutstandingSaleResponse is one credit sale in a customer's balance breakdown
type OutstandingSaleResponse struct {
	SaleID        uuid.UUID       `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	CreditStatus  string          `json:"credit_status"`
	SoldAt        time.Time       `json:"sold_at"`
}

// OutstandingBalanceResponse is a customer's aggregate credit position
type OutstandingBalanceResponse struct {
	CustomerPhone string                    `json:"customer_phone"`
	Outstanding   decimal.Decimal           `json:"outstanding"`
	Sales         []OutstandingSaleResponse `json:"sales"`
}

// SaleListFilter represents filter options for sale listing. BranchID
// is parsed from the query string by the handler.
type SaleListFilter struct {
	BranchID uuid.UUID `form:"-"`
	Page     int       `form:"page"`
	PageSize int       `form:"page_size" binding:"omitempty,min=1,max=100"`
}
