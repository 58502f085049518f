package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/washline/api/internal/domain"
)

var (
	// ErrPaymentInvalidAmount is returned for zero or negative collection amounts.
	ErrPaymentInvalidAmount = errors.New("payment ledger: invalid amount")
	// ErrPaymentExceedsBalance is returned when a collection would overshoot the balance due.
	ErrPaymentExceedsBalance = errors.New("payment ledger: amount exceeds balance due")
	// ErrPaymentUnknownMethod is returned for methods other than cash or online.
	ErrPaymentUnknownMethod = errors.New("payment ledger: unknown method")
)

// paymentLedger applies collections against an order's grand total. It never
// mutates the allocation it is given; callers receive an updated copy.
type paymentLedger struct {
	now   func() time.Time
	idGen func() string
}

type PaymentLedgerDeps struct {
	Now         func() time.Time
	IDGenerator func() string
}

func NewPaymentLedger(deps PaymentLedgerDeps) PaymentLedger {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &paymentLedger{
		now:   func() time.Time { return now().UTC() },
		idGen: idGen,
	}
}

func (l *paymentLedger) Record(alloc PaymentAllocation, grandTotal int64, amount int64, method PaymentMethod) (PaymentAllocation, error) {
	if amount <= 0 {
		return alloc, fmt.Errorf("%w: %d", ErrPaymentInvalidAmount, amount)
	}

	balance := l.BalanceDue(alloc, grandTotal)
	if amount > balance {
		return alloc, fmt.Errorf("%w: amount %d, balance due %d", ErrPaymentExceedsBalance, amount, balance)
	}

	updated := alloc
	updated.Entries = make([]domain.PaymentEntry, len(alloc.Entries), len(alloc.Entries)+1)
	copy(updated.Entries, alloc.Entries)

	switch method {
	case domain.PaymentMethodCash:
		updated.CashPaid += amount
	case domain.PaymentMethodOnline:
		updated.OnlinePaid += amount
	default:
		return alloc, fmt.Errorf("%w: %q", ErrPaymentUnknownMethod, method)
	}

	updated.Entries = append(updated.Entries, domain.PaymentEntry{
		ID:         l.idGen(),
		Method:     method,
		Amount:     amount,
		RecordedAt: l.now(),
	})

	return updated, nil
}

// DeriveStatus classifies total collections against the grand total. An order
// whose collections exceed its current total owes the customer a refund; that
// can only happen after an edit shrinks the total, never through Record.
func (l *paymentLedger) DeriveStatus(alloc PaymentAllocation, grandTotal int64) PaymentStatus {
	paid := alloc.TotalPaid()
	switch {
	case paid == 0 && grandTotal > 0:
		return domain.PaymentStatusUnpaid
	case paid > grandTotal:
		return domain.PaymentStatusRefundDue
	case paid == grandTotal:
		return domain.PaymentStatusPaid
	default:
		return domain.PaymentStatusPartial
	}
}

func (l *paymentLedger) BalanceDue(alloc PaymentAllocation, grandTotal int64) int64 {
	balance := grandTotal - alloc.TotalPaid()
	if balance < 0 {
		return 0
	}
	return balance
}

func (l *paymentLedger) RefundDue(alloc PaymentAllocation, grandTotal int64) int64 {
	refund := alloc.TotalPaid() - grandTotal
	if refund < 0 {
		return 0
	}
	return refund
}
