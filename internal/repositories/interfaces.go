package repositories

import (
	"context"
	"time"

	domain "github.com/washline/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Settings() SettingsRepository
	Counters() CounterRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists booking documents keyed by their order number.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	// Update replaces the stored document. The write runs against the version
	// the caller read; a mismatch surfaces as a conflict RepositoryError.
	Update(ctx context.Context, order domain.Order) error
	FindByNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// ListNumbers returns every order document ID, used to seed the booking
	// counter from legacy data.
	ListNumbers(ctx context.Context) ([]string, error)
}

// SettingsRepository reads and writes the shop configuration documents.
type SettingsRepository interface {
	LoadSnapshot(ctx context.Context) (domain.CatalogSnapshot, error)
	SavePrices(ctx context.Context, prices map[string]map[string]int64) error
	SaveTaxPolicy(ctx context.Context, policy domain.TaxPolicy) error
	SaveItems(ctx context.Context, items []domain.CatalogItem) error
	SaveServiceTypes(ctx context.Context, services []domain.ServiceType) error
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// OrderListFilter narrows order listings for handlers and reporting.
type OrderListFilter struct {
	Status        []domain.OrderStatus
	PaymentStatus []domain.PaymentStatus
	Urgent        *bool
	CreatedRange  domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}
