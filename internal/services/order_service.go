package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	domain "github.com/washline/api/internal/domain"
	"github.com/washline/api/internal/platform/pagination"
	"github.com/washline/api/internal/repositories"
)

const (
	orderEventCreated         = "order.created"
	orderEventUpdated         = "order.updated"
	orderEventStatusChanged   = "order.status.changed"
	orderEventPaymentRecorded = "order.payment.recorded"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderLocked indicates the order left in-progress and can no longer be edited.
	ErrOrderLocked = errors.New("order: locked for edits")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusInProgress: {domain.OrderStatusReady, domain.OrderStatusCanceled},
	domain.OrderStatusReady:      {domain.OrderStatusCompleted, domain.OrderStatusCanceled},
}

var cancellableStatuses = []domain.OrderStatus{
	domain.OrderStatusInProgress,
	domain.OrderStatusReady,
}

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders     repositories.OrderRepository
	Catalog    CatalogService
	Pricing    PricingEngine
	Ledger     PaymentLedger
	Counters   CounterService
	UnitOfWork repositories.UnitOfWork
	Clock      func() time.Time
	Events     OrderEventPublisher
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	catalog    CatalogService
	pricing    PricingEngine
	ledger     PaymentLedger
	counters   CounterService
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	events     OrderEventPublisher
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("order service: catalog service is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricing engine is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("order service: payment ledger is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter service is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		catalog:    deps.Catalog,
		pricing:    deps.Pricing,
		ledger:     deps.Ledger,
		counters:   deps.Counters,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *orderService) CreateBooking(ctx context.Context, cmd CreateBookingCommand) (Order, error) {
	if err := validateBookingInput(cmd.CustomerName, cmd.Phone, cmd.Quantities); err != nil {
		return Order{}, err
	}

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("load catalog: %w", err)
	}

	breakdown, err := s.pricing.Calculate(ctx, PriceOrderCommand{
		ServiceType: cmd.ServiceType,
		Quantities:  cmd.Quantities,
		Discount:    cmd.Discount,
		Snapshot:    snapshot,
	})
	if err != nil {
		return Order{}, mapPricingError(err)
	}

	now := s.clock()

	order := Order{
		CustomerName: strings.TrimSpace(cmd.CustomerName),
		Phone:        strings.TrimSpace(cmd.Phone),
		ServiceType:  strings.TrimSpace(cmd.ServiceType),
		Urgent:       cmd.Urgent,
		PickupDate:   strings.TrimSpace(cmd.PickupDate),
		DeliveryDate: strings.TrimSpace(cmd.DeliveryDate),
		Instructions: strings.TrimSpace(cmd.Instructions),
		Items:        buildOrderItems(breakdown),
		Discount:     cmd.Discount,
		Tax:          breakdown.Tax,
		Totals:       buildOrderTotals(breakdown),
		Status:       domain.OrderStatusInProgress,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if cmd.InitialPaid > 0 {
		alloc, err := s.ledger.Record(order.Payment, order.Totals.GrandTotal, cmd.InitialPaid, cmd.InitialMethod)
		if err != nil {
			return Order{}, err
		}
		order.Payment = alloc
	}
	order.PaymentStatus = s.ledger.DeriveStatus(order.Payment, order.Totals.GrandTotal)

	// Allocate the booking number inside the unit of work so a failed
	// insert does not burn a number.
	err = s.runInTx(ctx, func(txCtx context.Context) error {
		number, err := s.counters.NextBookingNumber(txCtx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, orderEventCreated, order, now)

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderNumber string) (Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
		}
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// ApplyEdit replaces the editable portion of an order and reprices it against
// the current catalog. Collections already recorded are preserved; if the new
// grand total falls below the amount collected the payment status flips to
// refund due.
func (s *orderService) ApplyEdit(ctx context.Context, cmd EditOrderCommand) (Order, error) {
	orderNumber := strings.TrimSpace(cmd.OrderNumber)
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}
	if err := validateBookingInput(cmd.CustomerName, cmd.Phone, cmd.Quantities); err != nil {
		return Order{}, err
	}

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if order.Status != domain.OrderStatusInProgress {
		return Order{}, fmt.Errorf("%w: order %s is %s", ErrOrderLocked, orderNumber, order.Status)
	}
	if cmd.ExpectedVersion != 0 && cmd.ExpectedVersion != order.Version {
		return Order{}, fmt.Errorf("%w: expected version %d but order is at %d", ErrOrderConflict, cmd.ExpectedVersion, order.Version)
	}

	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("load catalog: %w", err)
	}

	breakdown, err := s.pricing.Calculate(ctx, PriceOrderCommand{
		ServiceType: cmd.ServiceType,
		Quantities:  cmd.Quantities,
		Discount:    cmd.Discount,
		Snapshot:    snapshot,
	})
	if err != nil {
		return Order{}, mapPricingError(err)
	}

	now := s.clock()

	order.CustomerName = strings.TrimSpace(cmd.CustomerName)
	order.Phone = strings.TrimSpace(cmd.Phone)
	order.ServiceType = strings.TrimSpace(cmd.ServiceType)
	order.Urgent = cmd.Urgent
	order.PickupDate = strings.TrimSpace(cmd.PickupDate)
	order.DeliveryDate = strings.TrimSpace(cmd.DeliveryDate)
	order.Instructions = strings.TrimSpace(cmd.Instructions)
	order.Items = buildOrderItems(breakdown)
	order.Discount = cmd.Discount
	order.Tax = breakdown.Tax
	order.Totals = buildOrderTotals(breakdown)
	order.PaymentStatus = s.ledger.DeriveStatus(order.Payment, order.Totals.GrandTotal)
	order.UpdatedAt = now

	if err := s.updateOrder(ctx, &order); err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, orderEventUpdated, order, now)

	return order, nil
}

func (s *orderService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (Order, error) {
	orderNumber := strings.TrimSpace(cmd.OrderNumber)
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	// Collections stay open after completion so dues can be settled at pickup,
	// but a canceled order takes no further money.
	if order.Status == domain.OrderStatusCanceled {
		return Order{}, fmt.Errorf("%w: order %s is canceled", ErrOrderInvalidState, orderNumber)
	}

	alloc, err := s.ledger.Record(order.Payment, order.Totals.GrandTotal, cmd.Amount, cmd.Method)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	order.Payment = alloc
	order.PaymentStatus = s.ledger.DeriveStatus(order.Payment, order.Totals.GrandTotal)
	order.UpdatedAt = now

	if err := s.updateOrder(ctx, &order); err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, orderEventPaymentRecorded, order, now)

	return order, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderNumber := strings.TrimSpace(cmd.OrderNumber)
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}
	target := cmd.TargetStatus
	if !isKnownStatus(target) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, target)
	}

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
		return Order{}, fmt.Errorf("%w: expected status %q but was %q", ErrOrderConflict, *cmd.ExpectedStatus, order.Status)
	}

	if order.Status == target {
		return order, nil
	}
	if !canTransition(order.Status, target) {
		return Order{}, fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, order.Status, target)
	}

	now := s.clock()
	order.Status = target
	order.UpdatedAt = now
	if target == domain.OrderStatusCanceled {
		if reason := strings.TrimSpace(cmd.Reason); reason != "" {
			order.CancelReason = &reason
		}
		if order.CanceledAt == nil {
			order.CanceledAt = &now
		}
	}

	if err := s.updateOrder(ctx, &order); err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, orderEventStatusChanged, order, now)

	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	orderNumber := strings.TrimSpace(cmd.OrderNumber)
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if !slices.Contains(cancellableStatuses, order.Status) {
		return Order{}, fmt.Errorf("%w: order status %q cannot be canceled", ErrOrderInvalidState, order.Status)
	}

	now := s.clock()
	reason := strings.TrimSpace(cmd.Reason)

	order.Status = domain.OrderStatusCanceled
	if reason != "" {
		order.CancelReason = &reason
	}
	order.CanceledAt = &now
	order.UpdatedAt = now

	if err := s.updateOrder(ctx, &order); err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, orderEventStatusChanged, order, now)

	return order, nil
}

// updateOrder persists the order inside the unit of work. The repository
// verifies the stored version still matches order.Version before writing and
// persists the increment; the in-memory copy is bumped to match on success.
func (s *orderService) updateOrder(ctx context.Context, order *Order) error {
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, *order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.Version++
	return nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) publishEvent(ctx context.Context, eventType string, order Order, occurredAt time.Time) {
	if s.events == nil {
		return
	}
	message := OrderEventMessage{
		Type:          eventType,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		GrandTotal:    order.Totals.GrandTotal,
		BalanceDue:    order.BalanceDue(),
		OccurredAt:    occurredAt,
	}
	if _, err := s.events.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   eventType,
			"order":  order.OrderNumber,
			"error":  err.Error(),
			"status": string(order.Status),
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func validateBookingInput(customerName, phone string, quantities map[string]float64) error {
	if strings.TrimSpace(customerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrOrderInvalidInput)
	}
	if !phonePattern.MatchString(strings.TrimSpace(phone)) {
		return fmt.Errorf("%w: phone must be a 10 digit number", ErrOrderInvalidInput)
	}
	if len(quantities) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrOrderInvalidInput)
	}
	return nil
}

func mapPricingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPricingInvalidInput) || errors.Is(err, ErrPricingUnknownService) {
		return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}
	return err
}

func buildOrderItems(breakdown TotalsBreakdown) map[string]OrderItem {
	items := make(map[string]OrderItem, len(breakdown.Lines))
	for _, line := range breakdown.Lines {
		items[line.ItemType] = OrderItem{
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		}
	}
	return items
}

func buildOrderTotals(breakdown TotalsBreakdown) OrderTotals {
	return OrderTotals{
		TotalItems:  breakdown.TotalItems,
		Subtotal:    breakdown.Subtotal,
		Discount:    breakdown.Discount,
		TaxableBase: breakdown.TaxableBase,
		SGST:        breakdown.SGST,
		CGST:        breakdown.CGST,
		GrandTotal:  breakdown.GrandTotal,
	}
}

func isKnownStatus(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusInProgress, domain.OrderStatusReady, domain.OrderStatusCompleted, domain.OrderStatusCanceled:
		return true
	default:
		return false
	}
}

func canTransition(current, target domain.OrderStatus) bool {
	if current == target {
		return true
	}
	next, ok := orderStateTransitions[current]
	if !ok {
		return false
	}
	return slices.Contains(next, target)
}
