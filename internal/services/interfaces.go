package services

import (
	"context"
	"time"

	domain "github.com/washline/api/internal/domain"
	"github.com/washline/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	OrderTotals        = domain.OrderTotals
	PaymentStatus      = domain.PaymentStatus
	PaymentMethod      = domain.PaymentMethod
	PaymentEntry       = domain.PaymentEntry
	PaymentAllocation  = domain.PaymentAllocation
	Discount           = domain.Discount
	DiscountType       = domain.DiscountType
	TaxPolicy          = domain.TaxPolicy
	PriceCatalog       = domain.PriceCatalog
	CatalogItem        = domain.CatalogItem
	ServiceType        = domain.ServiceType
	CatalogSnapshot    = domain.CatalogSnapshot
	TotalsBreakdown    = domain.TotalsBreakdown
	SystemHealthReport = domain.SystemHealthReport
)

// PricingEngine computes order totals from priced lines, a discount, and the
// GST policy. It is deterministic: identical inputs produce identical outputs.
type PricingEngine interface {
	Calculate(ctx context.Context, cmd PriceOrderCommand) (TotalsBreakdown, error)
}

// PaymentLedger validates and applies payment collections against an order's
// grand total and derives the resulting payment status.
type PaymentLedger interface {
	Record(alloc PaymentAllocation, grandTotal int64, amount int64, method PaymentMethod) (PaymentAllocation, error)
	DeriveStatus(alloc PaymentAllocation, grandTotal int64) PaymentStatus
	BalanceDue(alloc PaymentAllocation, grandTotal int64) int64
	RefundDue(alloc PaymentAllocation, grandTotal int64) int64
}

// OrderService encapsulates booking read/write flows including edits,
// payments, and lifecycle transitions.
type OrderService interface {
	CreateBooking(ctx context.Context, cmd CreateBookingCommand) (Order, error)
	GetOrder(ctx context.Context, orderNumber string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	ApplyEdit(ctx context.Context, cmd EditOrderCommand) (Order, error)
	RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (Order, error)
	TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
}

// CounterService allocates the sequential booking numbers used as order IDs.
type CounterService interface {
	NextBookingNumber(ctx context.Context) (string, error)
	SeedFromExisting(ctx context.Context) error
}

// CatalogService serves immutable snapshots of the shop configuration and
// applies admin updates to it.
type CatalogService interface {
	Snapshot(ctx context.Context) (CatalogSnapshot, error)
	UpdatePrices(ctx context.Context, cmd UpdatePricesCommand) (CatalogSnapshot, error)
	UpdateTaxPolicy(ctx context.Context, cmd UpdateTaxPolicyCommand) (CatalogSnapshot, error)
	UpdateItems(ctx context.Context, cmd UpdateItemsCommand) (CatalogSnapshot, error)
	UpdateServiceTypes(ctx context.Context, cmd UpdateServiceTypesCommand) (CatalogSnapshot, error)
	Invalidate()
}

// SystemService aggregates utility endpoints (health checks, counters).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// OrderEventPublisher accepts order lifecycle notifications for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEventMessage) (string, error)
}

// OrderEventMessage is the JSON payload published for order lifecycle events.
type OrderEventMessage struct {
	Type          string    `json:"type"`
	OrderNumber   string    `json:"orderNumber"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	GrandTotal    int64     `json:"grandTotal"`
	BalanceDue    int64     `json:"balanceDue"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Command and DTO definitions ------------------------------------------------

// PriceOrderCommand carries everything the pricing engine needs. Quantities
// are keyed by item type; unit prices come from the snapshot for the selected
// service type.
type PriceOrderCommand struct {
	ServiceType string
	Quantities  map[string]float64
	Discount    Discount
	Snapshot    CatalogSnapshot
}

type CreateBookingCommand struct {
	CustomerName  string
	Phone         string
	ServiceType   string
	Urgent        bool
	PickupDate    string
	DeliveryDate  string
	Instructions  string
	Quantities    map[string]float64
	Discount      Discount
	InitialPaid   int64
	InitialMethod PaymentMethod
}

// EditOrderCommand replaces the editable portion of an order. ExpectedVersion
// must match the version the caller read or the edit fails as stale.
type EditOrderCommand struct {
	OrderNumber     string
	ExpectedVersion int64
	CustomerName    string
	Phone           string
	ServiceType     string
	Urgent          bool
	PickupDate      string
	DeliveryDate    string
	Instructions    string
	Quantities      map[string]float64
	Discount        Discount
}

type RecordPaymentCommand struct {
	OrderNumber string
	Amount      int64
	Method      PaymentMethod
}

type OrderStatusTransitionCommand struct {
	OrderNumber    string
	TargetStatus   OrderStatus
	Reason         string
	ExpectedStatus *OrderStatus
}

type CancelOrderCommand struct {
	OrderNumber string
	Reason      string
}

type OrderListFilter = repositories.OrderListFilter

type UpdatePricesCommand struct {
	Prices map[string]map[string]int64
}

type UpdateTaxPolicyCommand struct {
	Policy TaxPolicy
}

type UpdateItemsCommand struct {
	Items []CatalogItem
}

type UpdateServiceTypesCommand struct {
	Services []ServiceType
}
