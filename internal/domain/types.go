package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusInProgress indicates the order has been booked and items are being processed.
	OrderStatusInProgress OrderStatus = "in-progress"
	// OrderStatusReady indicates processing is finished and the order awaits pickup or delivery.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusCompleted indicates the order has been handed over to the customer.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCanceled indicates the order was canceled before completion.
	OrderStatusCanceled OrderStatus = "canceled"
)

// PaymentStatus is derived from the collected amount relative to the grand total.
type PaymentStatus string

const (
	// PaymentStatusUnpaid indicates nothing has been collected yet.
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PaymentStatusPartial indicates a part of the grand total has been collected.
	PaymentStatusPartial PaymentStatus = "partial"
	// PaymentStatusPaid indicates the grand total has been collected in full.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusRefundDue indicates collections exceed the current grand total,
	// typically after an edit shrank the order.
	PaymentStatusRefundDue PaymentStatus = "refund_due"
)

// PaymentMethod identifies the channel a payment was collected through.
type PaymentMethod string

const (
	// PaymentMethodCash marks amounts collected in cash.
	PaymentMethodCash PaymentMethod = "cash"
	// PaymentMethodOnline marks amounts collected through online transfer or UPI.
	PaymentMethodOnline PaymentMethod = "online"
)

// PaymentMethodLabel summarises the mix of channels used on an order.
type PaymentMethodLabel string

const (
	// PaymentLabelPending indicates no payment has been recorded.
	PaymentLabelPending PaymentMethodLabel = "pending"
	// PaymentLabelCash indicates all collections were cash.
	PaymentLabelCash PaymentMethodLabel = "cash"
	// PaymentLabelOnline indicates all collections were online.
	PaymentLabelOnline PaymentMethodLabel = "online"
	// PaymentLabelSplit indicates collections arrived through both channels.
	PaymentLabelSplit PaymentMethodLabel = "split"
)

// DiscountType enumerates the supported discount shapes.
type DiscountType string

const (
	// DiscountTypePercent applies a percentage of the subtotal, clamped to [0, 100].
	DiscountTypePercent DiscountType = "percent"
	// DiscountTypeFixed subtracts a fixed amount, clamped to [0, subtotal].
	DiscountTypeFixed DiscountType = "fixed"
)

// Discount describes the discount requested for an order. Value carries a
// percentage for percent discounts and paise for fixed discounts.
type Discount struct {
	Type  DiscountType
	Value float64
}

// TaxPolicy is the GST configuration snapshot applied to the post-discount base.
type TaxPolicy struct {
	Enabled     bool
	SGSTPercent float64
	CGSTPercent float64
}

// ServiceType describes one offered laundry service.
type ServiceType struct {
	ID      string
	Name    string
	Enabled bool
}

// CatalogItem describes one priced garment or bundle type.
type CatalogItem struct {
	ID      string
	Name    string
	Icon    string
	Enabled bool
	// PerKg items are weighed, so fractional quantities are valid for them.
	PerKg bool
}

// PriceCatalog maps (service type, item type) to unit prices in paise and
// carries the display metadata for both axes.
type PriceCatalog struct {
	Prices   map[string]map[string]int64
	Services []ServiceType
	Items    []CatalogItem
}

// UnitPrice resolves the price for the given service/item pair.
func (c PriceCatalog) UnitPrice(serviceType, itemType string) (int64, bool) {
	byItem, ok := c.Prices[serviceType]
	if !ok {
		return 0, false
	}
	price, ok := byItem[itemType]
	return price, ok
}

// Item looks up catalog item metadata by ID.
func (c PriceCatalog) Item(itemType string) (CatalogItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemType {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// Service looks up service type metadata by ID.
func (c PriceCatalog) Service(serviceType string) (ServiceType, bool) {
	for _, svc := range c.Services {
		if svc.ID == serviceType {
			return svc, true
		}
	}
	return ServiceType{}, false
}

// CatalogSnapshot bundles the immutable configuration an order is priced against.
type CatalogSnapshot struct {
	Catalog PriceCatalog
	Tax     TaxPolicy
}

// OrderItem stores one priced line within an order, keyed by item type on the order.
type OrderItem struct {
	Quantity  float64
	UnitPrice int64
	LineTotal int64
}

// OrderTotals holds the rolled-up monetary fields in paise.
type OrderTotals struct {
	TotalItems  float64
	Subtotal    int64
	Discount    int64
	TaxableBase int64
	SGST        int64
	CGST        int64
	GrandTotal  int64
}

// PaymentEntry records a single collected payment.
type PaymentEntry struct {
	ID         string
	Method     PaymentMethod
	Amount     int64
	RecordedAt time.Time
}

// PaymentAllocation tracks what has been collected per channel.
type PaymentAllocation struct {
	CashPaid   int64
	OnlinePaid int64
	Entries    []PaymentEntry
}

// TotalPaid is the amount collected across all channels.
func (a PaymentAllocation) TotalPaid() int64 {
	return a.CashPaid + a.OnlinePaid
}

// MethodLabel derives the human-facing payment method summary.
func (a PaymentAllocation) MethodLabel() PaymentMethodLabel {
	switch {
	case a.CashPaid > 0 && a.OnlinePaid > 0:
		return PaymentLabelSplit
	case a.CashPaid > 0:
		return PaymentLabelCash
	case a.OnlinePaid > 0:
		return PaymentLabelOnline
	default:
		return PaymentLabelPending
	}
}

// Order is the booking aggregate shared across layers. The order number doubles
// as the document ID and is a zero-padded four digit sequence.
type Order struct {
	OrderNumber   string
	CustomerName  string
	Phone         string
	ServiceType   string
	Urgent        bool
	PickupDate    string
	DeliveryDate  string
	Instructions  string
	Items         map[string]OrderItem
	Discount      Discount
	Tax           TaxPolicy
	Totals        OrderTotals
	Payment       PaymentAllocation
	PaymentStatus PaymentStatus
	Status        OrderStatus
	CancelReason  *string
	CanceledAt    *time.Time
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BalanceDue is the outstanding amount, never negative.
func (o Order) BalanceDue() int64 {
	due := o.Totals.GrandTotal - o.Payment.TotalPaid()
	if due < 0 {
		return 0
	}
	return due
}

// RefundDue is the amount collected beyond the grand total, never negative.
func (o Order) RefundDue() int64 {
	over := o.Payment.TotalPaid() - o.Totals.GrandTotal
	if over < 0 {
		return 0
	}
	return over
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
