package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/washline/api/internal/domain"
	"github.com/washline/api/internal/repositories"
)

type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepoError) Error() string       { return "repository error" }
func (e stubRepoError) IsNotFound() bool    { return e.notFound }
func (e stubRepoError) IsConflict() bool    { return e.conflict }
func (e stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubOrderRepo struct {
	orders    map[string]domain.Order
	insertErr error
	updateErr error
	findErr   error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[string]domain.Order)}
}

func (r *stubOrderRepo) Insert(_ context.Context, order domain.Order) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, exists := r.orders[order.OrderNumber]; exists {
		return stubRepoError{conflict: true}
	}
	r.orders[order.OrderNumber] = order
	return nil
}

func (r *stubOrderRepo) Update(_ context.Context, order domain.Order) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	stored, exists := r.orders[order.OrderNumber]
	if !exists {
		return stubRepoError{notFound: true}
	}
	if stored.Version != order.Version {
		return stubRepoError{conflict: true}
	}
	order.Version++
	r.orders[order.OrderNumber] = order
	return nil
}

func (r *stubOrderRepo) FindByNumber(_ context.Context, orderNumber string) (domain.Order, error) {
	if r.findErr != nil {
		return domain.Order{}, r.findErr
	}
	order, exists := r.orders[orderNumber]
	if !exists {
		return domain.Order{}, stubRepoError{notFound: true}
	}
	return order, nil
}

func (r *stubOrderRepo) List(_ context.Context, _ repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	items := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		items = append(items, order)
	}
	return domain.CursorPage[domain.Order]{Items: items}, nil
}

func (r *stubOrderRepo) ListNumbers(context.Context) ([]string, error) {
	numbers := make([]string, 0, len(r.orders))
	for number := range r.orders {
		numbers = append(numbers, number)
	}
	return numbers, nil
}

type stubCatalog struct {
	snapshot CatalogSnapshot
	err      error
}

func (c *stubCatalog) Snapshot(context.Context) (CatalogSnapshot, error) {
	return c.snapshot, c.err
}
func (c *stubCatalog) UpdatePrices(context.Context, UpdatePricesCommand) (CatalogSnapshot, error) {
	return CatalogSnapshot{}, errors.New("not implemented")
}
func (c *stubCatalog) UpdateTaxPolicy(context.Context, UpdateTaxPolicyCommand) (CatalogSnapshot, error) {
	return CatalogSnapshot{}, errors.New("not implemented")
}
func (c *stubCatalog) UpdateItems(context.Context, UpdateItemsCommand) (CatalogSnapshot, error) {
	return CatalogSnapshot{}, errors.New("not implemented")
}
func (c *stubCatalog) UpdateServiceTypes(context.Context, UpdateServiceTypesCommand) (CatalogSnapshot, error) {
	return CatalogSnapshot{}, errors.New("not implemented")
}
func (c *stubCatalog) Invalidate() {}

type stubBookingCounter struct {
	next    int64
	nextErr error
}

func (c *stubBookingCounter) NextBookingNumber(context.Context) (string, error) {
	if c.nextErr != nil {
		return "", c.nextErr
	}
	c.next++
	return fmt.Sprintf("%04d", c.next), nil
}

func (c *stubBookingCounter) SeedFromExisting(context.Context) error { return nil }

type capturePublisher struct {
	messages   []OrderEventMessage
	publishErr error
}

func (p *capturePublisher) PublishOrderEvent(_ context.Context, event OrderEventMessage) (string, error) {
	if p.publishErr != nil {
		return "", p.publishErr
	}
	p.messages = append(p.messages, event)
	return fmt.Sprintf("msg-%d", len(p.messages)), nil
}

type orderServiceFixture struct {
	service   OrderService
	repo      *stubOrderRepo
	counter   *stubBookingCounter
	publisher *capturePublisher
	now       time.Time
}

func newOrderServiceFixture(t *testing.T) *orderServiceFixture {
	t.Helper()

	repo := newStubOrderRepo()
	counter := &stubBookingCounter{}
	publisher := &capturePublisher{}
	now := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)

	engine, err := NewOrderPricingEngine(OrderPricingEngineDeps{})
	if err != nil {
		t.Fatalf("NewOrderPricingEngine: %v", err)
	}

	var seq int
	ledger := NewPaymentLedger(PaymentLedgerDeps{
		Now: func() time.Time { return now },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("pay-%03d", seq)
		},
	})

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   repo,
		Catalog:  &stubCatalog{snapshot: testSnapshot()},
		Pricing:  engine,
		Ledger:   ledger,
		Counters: counter,
		Clock:    func() time.Time { return now },
		Events:   publisher,
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}

	return &orderServiceFixture{service: svc, repo: repo, counter: counter, publisher: publisher, now: now}
}

func (f *orderServiceFixture) createBooking(t *testing.T) Order {
	t.Helper()
	order, err := f.service.CreateBooking(context.Background(), CreateBookingCommand{
		CustomerName: "Asha Rao",
		Phone:        "9876543210",
		ServiceType:  "wash-fold",
		Quantities:   map[string]float64{"shirt": 10, "pant": 5},
		Discount:     Discount{Type: domain.DiscountTypePercent, Value: 10},
		PickupDate:   "2025-05-07",
		DeliveryDate: "2025-05-09",
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return order
}

func TestOrderServiceCreateBooking(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	order := fixture.createBooking(t)

	if order.OrderNumber != "0001" {
		t.Fatalf("expected order number 0001, got %q", order.OrderNumber)
	}
	if order.Status != domain.OrderStatusInProgress {
		t.Fatalf("expected in-progress status, got %q", order.Status)
	}
	if order.PaymentStatus != domain.PaymentStatusUnpaid {
		t.Fatalf("expected unpaid, got %q", order.PaymentStatus)
	}
	if order.Totals.GrandTotal != 37170 {
		t.Fatalf("expected grand total 37170, got %d", order.Totals.GrandTotal)
	}
	if order.Version != 1 {
		t.Fatalf("expected version 1, got %d", order.Version)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 item lines, got %d", len(order.Items))
	}
	if item := order.Items["shirt"]; item.Quantity != 10 || item.LineTotal != 20000 {
		t.Fatalf("unexpected shirt line %+v", item)
	}

	if _, exists := fixture.repo.orders["0001"]; !exists {
		t.Fatal("expected booking to be persisted")
	}
	if len(fixture.publisher.messages) != 1 || fixture.publisher.messages[0].Type != "order.created" {
		t.Fatalf("expected order.created event, got %+v", fixture.publisher.messages)
	}
}

func TestOrderServiceCreateBookingWithAdvance(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	order, err := fixture.service.CreateBooking(context.Background(), CreateBookingCommand{
		CustomerName:  "Asha Rao",
		Phone:         "9876543210",
		ServiceType:   "wash-fold",
		Quantities:    map[string]float64{"shirt": 10, "pant": 5},
		Discount:      Discount{Type: domain.DiscountTypePercent, Value: 10},
		InitialPaid:   10000,
		InitialMethod: domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if order.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("expected partial, got %q", order.PaymentStatus)
	}
	if order.Payment.CashPaid != 10000 || len(order.Payment.Entries) != 1 {
		t.Fatalf("unexpected payment allocation %+v", order.Payment)
	}
	if order.BalanceDue() != 27170 {
		t.Fatalf("expected balance due 27170, got %d", order.BalanceDue())
	}
}

type recordingUnitOfWork struct {
	active bool
	runs   int
}

func (u *recordingUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	u.active = true
	u.runs++
	defer func() { u.active = false }()
	return fn(ctx)
}

type txScopedCounter struct {
	unit       *recordingUnitOfWork
	calledInTx bool
}

func (c *txScopedCounter) NextBookingNumber(context.Context) (string, error) {
	c.calledInTx = c.unit.active
	return "0001", nil
}

func (c *txScopedCounter) SeedFromExisting(context.Context) error { return nil }

func TestOrderServiceCreateBookingAllocatesNumberInUnitOfWork(t *testing.T) {
	unit := &recordingUnitOfWork{}
	counter := &txScopedCounter{unit: unit}
	engine, err := NewOrderPricingEngine(OrderPricingEngineDeps{})
	if err != nil {
		t.Fatalf("NewOrderPricingEngine: %v", err)
	}

	svc, err := NewOrderService(OrderServiceDeps{
		Orders:     newStubOrderRepo(),
		Catalog:    &stubCatalog{snapshot: testSnapshot()},
		Pricing:    engine,
		Ledger:     NewPaymentLedger(PaymentLedgerDeps{}),
		Counters:   counter,
		UnitOfWork: unit,
	})
	if err != nil {
		t.Fatalf("NewOrderService: %v", err)
	}

	order, err := svc.CreateBooking(context.Background(), CreateBookingCommand{
		CustomerName: "Asha Rao",
		Phone:        "9876543210",
		ServiceType:  "wash-fold",
		Quantities:   map[string]float64{"shirt": 1},
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if !counter.calledInTx {
		t.Fatal("expected the booking number to be allocated inside the unit of work")
	}
	if order.OrderNumber != "0001" {
		t.Fatalf("expected order number 0001, got %q", order.OrderNumber)
	}
	if unit.runs != 1 {
		t.Fatalf("expected a single transaction, got %d", unit.runs)
	}
}

func TestOrderServiceCreateBookingValidation(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	cases := []struct {
		name string
		cmd  CreateBookingCommand
	}{
		{name: "missing name", cmd: CreateBookingCommand{Phone: "9876543210", ServiceType: "wash-fold", Quantities: map[string]float64{"shirt": 1}}},
		{name: "short phone", cmd: CreateBookingCommand{CustomerName: "A", Phone: "12345", ServiceType: "wash-fold", Quantities: map[string]float64{"shirt": 1}}},
		{name: "no items", cmd: CreateBookingCommand{CustomerName: "A", Phone: "9876543210", ServiceType: "wash-fold"}},
		{name: "unknown item", cmd: CreateBookingCommand{CustomerName: "A", Phone: "9876543210", ServiceType: "wash-fold", Quantities: map[string]float64{"towel": 1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fixture.service.CreateBooking(context.Background(), tc.cmd); !errors.Is(err, ErrOrderInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestOrderServiceApplyEditReprices(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	edited, err := fixture.service.ApplyEdit(context.Background(), EditOrderCommand{
		OrderNumber:     order.OrderNumber,
		ExpectedVersion: order.Version,
		CustomerName:    "Asha Rao",
		Phone:           "9876543210",
		ServiceType:     "wash-fold",
		Quantities:      map[string]float64{"shirt": 2},
		Discount:        Discount{},
	})
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	if edited.Totals.Subtotal != 4000 {
		t.Fatalf("expected repriced subtotal 4000, got %d", edited.Totals.Subtotal)
	}
	if edited.Version != order.Version+1 {
		t.Fatalf("expected version bump to %d, got %d", order.Version+1, edited.Version)
	}
	if len(edited.Items) != 1 {
		t.Fatalf("expected items replaced, got %d lines", len(edited.Items))
	}
	last := fixture.publisher.messages[len(fixture.publisher.messages)-1]
	if last.Type != "order.updated" {
		t.Fatalf("expected order.updated event, got %q", last.Type)
	}
}

func TestOrderServiceApplyEditPreservesPaymentsAndFlagsRefund(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	paid, err := fixture.service.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderNumber: order.OrderNumber,
		Amount:      20000,
		Method:      domain.PaymentMethodOnline,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	edited, err := fixture.service.ApplyEdit(context.Background(), EditOrderCommand{
		OrderNumber:     order.OrderNumber,
		ExpectedVersion: paid.Version,
		CustomerName:    "Asha Rao",
		Phone:           "9876543210",
		ServiceType:     "wash-fold",
		Quantities:      map[string]float64{"shirt": 2},
	})
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	if edited.Payment.OnlinePaid != 20000 {
		t.Fatalf("expected payments preserved, got %+v", edited.Payment)
	}
	if edited.PaymentStatus != domain.PaymentStatusRefundDue {
		t.Fatalf("expected refund_due after shrinking total, got %q", edited.PaymentStatus)
	}
	if refund := edited.RefundDue(); refund != 20000-edited.Totals.GrandTotal {
		t.Fatalf("unexpected refund due %d", refund)
	}
}

func TestOrderServiceApplyEditLockedAndStale(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	editCmd := EditOrderCommand{
		OrderNumber:     order.OrderNumber,
		ExpectedVersion: 99,
		CustomerName:    "Asha Rao",
		Phone:           "9876543210",
		ServiceType:     "wash-fold",
		Quantities:      map[string]float64{"shirt": 2},
	}
	if _, err := fixture.service.ApplyEdit(context.Background(), editCmd); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected stale version conflict, got %v", err)
	}

	if _, err := fixture.service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderNumber:  order.OrderNumber,
		TargetStatus: domain.OrderStatusReady,
	}); err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}

	editCmd.ExpectedVersion = 0
	if _, err := fixture.service.ApplyEdit(context.Background(), editCmd); !errors.Is(err, ErrOrderLocked) {
		t.Fatalf("expected locked error once order left in-progress, got %v", err)
	}
}

func TestOrderServiceRecordPayment(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	updated, err := fixture.service.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderNumber: order.OrderNumber,
		Amount:      20000,
		Method:      domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPartial {
		t.Fatalf("expected partial, got %q", updated.PaymentStatus)
	}

	if _, err := fixture.service.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderNumber: order.OrderNumber,
		Amount:      20000,
		Method:      domain.PaymentMethodOnline,
	}); !errors.Is(err, ErrPaymentExceedsBalance) {
		t.Fatalf("expected exceeds balance, got %v", err)
	}

	last := fixture.publisher.messages[len(fixture.publisher.messages)-1]
	if last.Type != "order.payment.recorded" || last.PaymentStatus != "partial" {
		t.Fatalf("unexpected last event %+v", last)
	}
}

func TestOrderServiceRecordPaymentAfterCompletion(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	for _, target := range []domain.OrderStatus{domain.OrderStatusReady, domain.OrderStatusCompleted} {
		if _, err := fixture.service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
			OrderNumber:  order.OrderNumber,
			TargetStatus: target,
		}); err != nil {
			t.Fatalf("TransitionStatus to %s: %v", target, err)
		}
	}

	updated, err := fixture.service.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderNumber: order.OrderNumber,
		Amount:      37170,
		Method:      domain.PaymentMethodOnline,
	})
	if err != nil {
		t.Fatalf("settling dues after completion should be allowed: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid, got %q", updated.PaymentStatus)
	}
}

func TestOrderServiceRecordPaymentOnCanceledOrder(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	if _, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{OrderNumber: order.OrderNumber}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := fixture.service.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderNumber: order.OrderNumber,
		Amount:      100,
		Method:      domain.PaymentMethodCash,
	}); !errors.Is(err, ErrOrderInvalidState) {
		t.Fatalf("expected invalid state for canceled order, got %v", err)
	}
}

func TestOrderServiceTransitions(t *testing.T) {
	cases := []struct {
		name    string
		path    []domain.OrderStatus
		target  domain.OrderStatus
		wantErr error
	}{
		{name: "in-progress to ready", target: domain.OrderStatusReady},
		{name: "ready to completed", path: []domain.OrderStatus{domain.OrderStatusReady}, target: domain.OrderStatusCompleted},
		{name: "ready to canceled", path: []domain.OrderStatus{domain.OrderStatusReady}, target: domain.OrderStatusCanceled},
		{name: "in-progress to completed skips ready", target: domain.OrderStatusCompleted, wantErr: ErrOrderInvalidState},
		{name: "completed back to in-progress", path: []domain.OrderStatus{domain.OrderStatusReady, domain.OrderStatusCompleted}, target: domain.OrderStatusInProgress, wantErr: ErrOrderInvalidState},
		{name: "canceled is terminal", path: []domain.OrderStatus{domain.OrderStatusCanceled}, target: domain.OrderStatusReady, wantErr: ErrOrderInvalidState},
		{name: "unknown status", target: domain.OrderStatus("misplaced"), wantErr: ErrOrderInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fixture := newOrderServiceFixture(t)
			order := fixture.createBooking(t)

			for _, step := range tc.path {
				if _, err := fixture.service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
					OrderNumber:  order.OrderNumber,
					TargetStatus: step,
				}); err != nil {
					t.Fatalf("setup transition to %s: %v", step, err)
				}
			}

			_, err := fixture.service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
				OrderNumber:  order.OrderNumber,
				TargetStatus: tc.target,
			})
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected transition to succeed, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestOrderServiceTransitionExpectedStatusMismatch(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	expected := domain.OrderStatusReady
	if _, err := fixture.service.TransitionStatus(context.Background(), OrderStatusTransitionCommand{
		OrderNumber:    order.OrderNumber,
		TargetStatus:   domain.OrderStatusReady,
		ExpectedStatus: &expected,
	}); !errors.Is(err, ErrOrderConflict) {
		t.Fatalf("expected conflict on status precondition, got %v", err)
	}
}

func TestOrderServiceCancelRecordsReason(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	order := fixture.createBooking(t)

	canceled, err := fixture.service.Cancel(context.Background(), CancelOrderCommand{
		OrderNumber: order.OrderNumber,
		Reason:      "customer request",
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != domain.OrderStatusCanceled {
		t.Fatalf("expected canceled, got %q", canceled.Status)
	}
	if canceled.CancelReason == nil || *canceled.CancelReason != "customer request" {
		t.Fatalf("expected cancel reason recorded, got %v", canceled.CancelReason)
	}
	if canceled.CanceledAt == nil || !canceled.CanceledAt.Equal(fixture.now) {
		t.Fatalf("expected canceled timestamp %v, got %v", fixture.now, canceled.CanceledAt)
	}
}

func TestOrderServiceGetOrderNotFound(t *testing.T) {
	fixture := newOrderServiceFixture(t)

	if _, err := fixture.service.GetOrder(context.Background(), "9999"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderServicePublishFailureDoesNotFailMutation(t *testing.T) {
	fixture := newOrderServiceFixture(t)
	fixture.publisher.publishErr = errors.New("broker down")

	order, err := fixture.service.CreateBooking(context.Background(), CreateBookingCommand{
		CustomerName: "Asha Rao",
		Phone:        "9876543210",
		ServiceType:  "wash-fold",
		Quantities:   map[string]float64{"shirt": 1},
	})
	if err != nil {
		t.Fatalf("CreateBooking should survive publish failure: %v", err)
	}
	if _, exists := fixture.repo.orders[order.OrderNumber]; !exists {
		t.Fatal("expected booking to be persisted despite publish failure")
	}
}
