package firestore

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"

	"github.com/washline/api/internal/platform/config"
	pfirestore "github.com/washline/api/internal/platform/firestore"
	"github.com/washline/api/internal/repositories"
)

// Registry wires the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider
	orders   *OrderRepository
	settings *SettingsRepository
	counters *CounterRepository
	health   repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the repository registry from a shared provider and
// the configured collection names.
func NewRegistry(provider *pfirestore.Provider, cfg config.FirestoreConfig) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider, cfg.OrdersCollection)
	if err != nil {
		return nil, err
	}
	settings, err := NewSettingsRepository(provider, cfg.SettingsCollection)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider, cfg.CountersCollection)
	if err != nil {
		return nil, err
	}
	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "firestore", Check: firestoreProbe(provider, cfg.SettingsCollection)},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		orders:   orders,
		settings: settings,
		counters: counters,
		health:   health,
	}, nil
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Settings returns the settings repository.
func (r *Registry) Settings() repositories.SettingsRepository { return r.settings }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health returns the dependency health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

// RunInTx executes fn directly. Every mutation in this package already runs
// its own Firestore transaction, so there is no outer boundary to open.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	return fn(ctx)
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func firestoreProbe(provider *pfirestore.Provider, collection string) func(context.Context) error {
	return func(ctx context.Context) error {
		client, err := provider.Client(ctx)
		if err != nil {
			return err
		}
		iter := client.Collection(collection).Limit(1).Documents(ctx)
		defer iter.Stop()
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}
