package sales

import (
	"regexp"
	"testing"
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPhone(t *testing.T) valueobject.PhoneNumber {
	t.Helper()
	phone, err := valueobject.NewPhoneNumber("0712345678")
	require.NoError(t, err)
	return phone
}

func newDraftSale(t *testing.T) *Sale {
	t.Helper()
	sale, err := NewSale(GenerateReceiptNumber(time.Now()), uuid.New(), uuid.New(), "Wanjiku", testPhone(t))
	require.NoError(t, err)
	return sale
}

func TestGenerateReceiptNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^RCP-\d{8}-\d{6}-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}$`)

	at := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	number := GenerateReceiptNumber(at)
	assert.Regexp(t, pattern, number)
	assert.Contains(t, number, "RCP-20260314-150926-")

	// Numbers generated later sort after earlier ones
	later := GenerateReceiptNumber(at.Add(time.Second))
	assert.Less(t, number[:len("RCP-20260314-150926")], later[:len("RCP-20260314-150927")])
}

func TestSale_TotalsAndDiscount(t *testing.T) {
	sale := newDraftSale(t)
	require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 3, decimal.NewFromInt(150)))
	require.NoError(t, sale.AddItem(uuid.New(), "Sukari 1kg", 2, decimal.NewFromInt(145)))

	assert.Equal(t, "740.00", sale.Subtotal.StringFixed(2))
	assert.Equal(t, "740.00", sale.Total.StringFixed(2))

	require.NoError(t, sale.ApplyDiscount(decimal.NewFromInt(40)))
	assert.Equal(t, "700.00", sale.Total.StringFixed(2))

	t.Run("discount beyond subtotal rejected", func(t *testing.T) {
		err := sale.ApplyDiscount(decimal.NewFromInt(1000))
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})

	t.Run("negative discount rejected", func(t *testing.T) {
		err := sale.ApplyDiscount(decimal.NewFromInt(-1))
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})
}

func TestSale_TotalMoney(t *testing.T) {
	sale := newDraftSale(t)
	require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 3, decimal.NewFromInt(150)))

	total := sale.TotalMoney()
	assert.Equal(t, valueobject.KES, total.Currency())
	assert.True(t, total.Equals(valueobject.NewMoneyKES(decimal.NewFromInt(450))))

	// Payment legs in shillings cover the total within tolerance
	require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.RequireFromString("450.01"), ""))
	require.NoError(t, sale.Finalize())
}

func TestSale_Finalize(t *testing.T) {
	t.Run("empty item list rejected", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(100), ""))
		err := sale.Finalize()
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})

	t.Run("payments must sum to total", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 2, decimal.NewFromInt(150)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(250), ""))

		err := sale.Finalize()
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodePaymentSumMismatch))
	})

	t.Run("one cent tolerance accepted", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 1, decimal.NewFromFloat(99.99)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(100), ""))
		assert.NoError(t, sale.Finalize())
	})

	t.Run("two cents over rejected", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 1, decimal.NewFromFloat(99.98)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(100), ""))
		err := sale.Finalize()
		assert.True(t, shared.IsCode(err, shared.CodePaymentSumMismatch))
	})

	t.Run("split payment settles", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Mafuta 1L", 4, decimal.NewFromInt(250)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(400), ""))
		require.NoError(t, sale.AddPayment(PaymentMethodMpesa, decimal.NewFromInt(600), "SBC1XYZ"))

		require.NoError(t, sale.Finalize())
		assert.False(t, sale.IsCredit)
		assert.Empty(t, sale.CreditStatus)
	})

	t.Run("credit leg marks sale as credit", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Mchele 5kg", 1, decimal.NewFromInt(800)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(300), ""))
		require.NoError(t, sale.AddPayment(PaymentMethodCredit, decimal.NewFromInt(500), ""))

		require.NoError(t, sale.Finalize())
		assert.True(t, sale.IsCredit)
		assert.Equal(t, CreditStatusPending, sale.CreditStatus)
		assert.Equal(t, "500.00", sale.CreditPrincipal().StringFixed(2))
	})

	t.Run("credit without customer details rejected", func(t *testing.T) {
		sale, err := NewSale(GenerateReceiptNumber(time.Now()), uuid.New(), uuid.New(), "", valueobject.PhoneNumber{})
		require.NoError(t, err)
		require.NoError(t, sale.AddItem(uuid.New(), "Mchele 5kg", 1, decimal.NewFromInt(800)))
		require.NoError(t, sale.AddPayment(PaymentMethodCredit, decimal.NewFromInt(800), ""))

		err = sale.Finalize()
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeMissingCreditDetails))
	})

	t.Run("emits sale.created", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 1, decimal.NewFromInt(150)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(150), ""))
		require.NoError(t, sale.Finalize())

		events := sale.GetDomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*SaleCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, sale.ReceiptNumber, created.ReceiptNumber)
		assert.Equal(t, EventTypeSaleCreated, created.EventType())
	})
}

func newCreditSale(t *testing.T, cashLeg, creditLeg int64) *Sale {
	t.Helper()
	sale := newDraftSale(t)
	require.NoError(t, sale.AddItem(uuid.New(), "Mchele 5kg", 1, decimal.NewFromInt(cashLeg+creditLeg)))
	if cashLeg > 0 {
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(cashLeg), ""))
	}
	require.NoError(t, sale.AddPayment(PaymentMethodCredit, decimal.NewFromInt(creditLeg), ""))
	require.NoError(t, sale.Finalize())
	return sale
}

func TestSale_RecordCreditPayment(t *testing.T) {
	t.Run("fold walks pending partial paid", func(t *testing.T) {
		sale := newCreditSale(t, 0, 1000)
		assert.Equal(t, CreditStatusPending, sale.CreditStatus)

		require.NoError(t, sale.RecordCreditPayment(decimal.NewFromInt(400), PaymentMethodMpesa, uuid.New()))
		assert.Equal(t, CreditStatusPartial, sale.CreditStatus)
		assert.Equal(t, "600.00", sale.OutstandingCredit().StringFixed(2))

		require.NoError(t, sale.RecordCreditPayment(decimal.NewFromInt(600), PaymentMethodCash, uuid.New()))
		assert.Equal(t, CreditStatusPaid, sale.CreditStatus)
		assert.True(t, sale.OutstandingCredit().IsZero())
	})

	t.Run("fold is order independent", func(t *testing.T) {
		amounts := [][]int64{{100, 400, 500}, {500, 400, 100}, {400, 500, 100}}
		for _, order := range amounts {
			sale := newCreditSale(t, 0, 1000)
			for _, amount := range order {
				require.NoError(t, sale.RecordCreditPayment(decimal.NewFromInt(amount), PaymentMethodCash, uuid.New()))
			}
			assert.Equal(t, CreditStatusPaid, sale.CreditStatus)
		}
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		sale := newCreditSale(t, 0, 1000)
		require.NoError(t, sale.RecordCreditPayment(decimal.NewFromInt(900), PaymentMethodCash, uuid.New()))

		err := sale.RecordCreditPayment(decimal.NewFromInt(101), PaymentMethodCash, uuid.New())
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeOverpaymentRejected))
		assert.Equal(t, CreditStatusPartial, sale.CreditStatus)
		assert.Len(t, sale.CreditPayments, 1)
	})

	t.Run("split sale folds against credit leg only", func(t *testing.T) {
		sale := newCreditSale(t, 700, 300)

		err := sale.RecordCreditPayment(decimal.NewFromInt(301), PaymentMethodCash, uuid.New())
		assert.True(t, shared.IsCode(err, shared.CodeOverpaymentRejected))

		require.NoError(t, sale.RecordCreditPayment(decimal.NewFromInt(300), PaymentMethodCash, uuid.New()))
		assert.Equal(t, CreditStatusPaid, sale.CreditStatus)
	})

	t.Run("installment cannot be credit", func(t *testing.T) {
		sale := newCreditSale(t, 0, 500)
		err := sale.RecordCreditPayment(decimal.NewFromInt(100), PaymentMethodCredit, uuid.New())
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})

	t.Run("non-credit sale rejects installments", func(t *testing.T) {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 1, decimal.NewFromInt(150)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(150), ""))
		require.NoError(t, sale.Finalize())

		err := sale.RecordCreditPayment(decimal.NewFromInt(50), PaymentMethodCash, uuid.New())
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	})
}

func TestSale_ReversalProtocol(t *testing.T) {
	newFinalizedSale := func(t *testing.T) *Sale {
		sale := newDraftSale(t)
		require.NoError(t, sale.AddItem(uuid.New(), "Unga 2kg", 2, decimal.NewFromInt(150)))
		require.NoError(t, sale.AddPayment(PaymentMethodCash, decimal.NewFromInt(300), ""))
		require.NoError(t, sale.Finalize())
		sale.ClearDomainEvents()
		return sale
	}

	t.Run("seller cannot request their own reversal", func(t *testing.T) {
		sale := newFinalizedSale(t)
		err := sale.RequestReversal(sale.OperatorID, "wrong item", sale.Total)
		assert.True(t, shared.IsCode(err, shared.CodeForbidden))
	})

	t.Run("amount above total rejected", func(t *testing.T) {
		sale := newFinalizedSale(t)
		err := sale.RequestReversal(uuid.New(), "wrong item", sale.Total.Add(decimal.NewFromInt(1)))
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})

	t.Run("reason is required", func(t *testing.T) {
		sale := newFinalizedSale(t)
		err := sale.RequestReversal(uuid.New(), "", sale.Total)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidInput))
	})

	t.Run("only one pending request at a time", func(t *testing.T) {
		sale := newFinalizedSale(t)
		require.NoError(t, sale.RequestReversal(uuid.New(), "wrong item", sale.Total))
		err := sale.RequestReversal(uuid.New(), "again", sale.Total)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	})

	t.Run("requester cannot decide", func(t *testing.T) {
		sale := newFinalizedSale(t)
		requester := uuid.New()
		require.NoError(t, sale.RequestReversal(requester, "wrong item", sale.Total))
		err := sale.DecideReversal(requester, true)
		assert.True(t, shared.IsCode(err, shared.CodeForbidden))
	})

	t.Run("approval reverses and emits event", func(t *testing.T) {
		sale := newFinalizedSale(t)
		require.NoError(t, sale.RequestReversal(uuid.New(), "wrong item", sale.Total))
		require.NoError(t, sale.DecideReversal(uuid.New(), true))

		assert.True(t, sale.IsReversed)
		assert.Equal(t, ReversalStatusApproved, sale.ReversalStatus)

		events := sale.GetDomainEvents()
		require.Len(t, events, 1)
		reversed, ok := events[0].(*SaleReversedEvent)
		require.True(t, ok)
		assert.Equal(t, EventTypeSaleReversed, reversed.EventType())
	})

	t.Run("rejection leaves sale intact and allows a new request", func(t *testing.T) {
		sale := newFinalizedSale(t)
		require.NoError(t, sale.RequestReversal(uuid.New(), "wrong item", sale.Total))
		require.NoError(t, sale.DecideReversal(uuid.New(), false))

		assert.False(t, sale.IsReversed)
		assert.Equal(t, ReversalStatusRejected, sale.ReversalStatus)
		assert.Empty(t, sale.GetDomainEvents())

		assert.NoError(t, sale.RequestReversal(uuid.New(), "second attempt", sale.Total))
	})

	t.Run("reversed sale cannot go again", func(t *testing.T) {
		sale := newFinalizedSale(t)
		require.NoError(t, sale.RequestReversal(uuid.New(), "wrong item", sale.Total))
		require.NoError(t, sale.DecideReversal(uuid.New(), true))

		err := sale.RequestReversal(uuid.New(), "again", sale.Total)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	})

	t.Run("no decision without a pending request", func(t *testing.T) {
		sale := newFinalizedSale(t)
		err := sale.DecideReversal(uuid.New(), true)
		assert.True(t, shared.IsCode(err, shared.CodeInvalidState))
	})
}
