package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/washline/api/internal/platform/config"
	"github.com/washline/api/internal/repositories"
	"github.com/washline/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders   services.OrderService
	Catalog  services.CatalogService
	Counters services.CounterService
	System   services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises the container before services are assembled.
type Option func(*containerOptions)

type containerOptions struct {
	events services.OrderEventPublisher
	logger func(ctx context.Context, event string, fields map[string]any)
	build  services.BuildInfo
	clock  func() time.Time
}

// WithOrderEventPublisher attaches a publisher for order lifecycle events.
// Publishing stays disabled when none is provided.
func WithOrderEventPublisher(publisher services.OrderEventPublisher) Option {
	return func(o *containerOptions) {
		o.events = publisher
	}
}

// WithServiceLogger installs a structured logging callback used by the order
// service and pricing engine.
func WithServiceLogger(logger func(ctx context.Context, event string, fields map[string]any)) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithBuildInfo records version metadata surfaced through health endpoints.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = build
	}
}

// WithClock overrides time.Now, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		o.clock = clock
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	options := containerOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	if options.clock == nil {
		options.clock = time.Now
	}

	svc, err := buildServices(ctx, reg, cfg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, options containerOptions) (Services, error) {
	var svc Services

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Settings: reg.Settings(),
		Clock:    options.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	counterSvc, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Orders:     reg.Orders(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build counter service: %w", err)
	}
	svc.Counters = counterSvc

	pricing, err := services.NewOrderPricingEngine(services.OrderPricingEngineDeps{
		Logger: options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pricing engine: %w", err)
	}

	ledger := services.NewPaymentLedger(services.PaymentLedgerDeps{Now: options.clock})

	var events services.OrderEventPublisher
	if cfg.Features.EnableEvents {
		events = options.events
	}

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Catalog:    catalogSvc,
		Pricing:    pricing,
		Ledger:     ledger,
		Counters:   counterSvc,
		UnitOfWork: reg,
		Clock:      options.clock,
		Events:     events,
		Logger:     options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		build := options.build
		if build.Environment == "" {
			build.Environment = cfg.Environment
		}
		if build.Version == "" {
			build.Version = cfg.Version
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            options.clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
