package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/washline/api/internal/domain"
	"github.com/washline/api/internal/repositories"
)

var (
	// ErrCatalogRepositoryMissing indicates the settings repository dependency is absent.
	ErrCatalogRepositoryMissing = errors.New("catalog service: repository is not configured")
	// ErrCatalogInvalidInput indicates the caller supplied invalid data to a catalog mutation.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Settings repositories.SettingsRepository
	Clock    func() time.Time
	CacheTTL time.Duration
}

// catalogService caches the shop configuration for a short TTL so pricing does
// not hit the settings collection on every booking.
type catalogService struct {
	repo  repositories.SettingsRepository
	clock func() time.Time
	ttl   time.Duration

	mu       sync.RWMutex
	snapshot CatalogSnapshot
	cachedAt time.Time
	hasCache bool
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Settings == nil {
		return nil, ErrCatalogRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &catalogService{
		repo:  deps.Settings,
		clock: func() time.Time { return clock().UTC() },
		ttl:   ttl,
	}, nil
}

func (s *catalogService) Snapshot(ctx context.Context) (CatalogSnapshot, error) {
	now := s.clock()

	s.mu.RLock()
	if s.hasCache && now.Sub(s.cachedAt) < s.ttl {
		snapshot := s.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	snapshot, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return CatalogSnapshot{}, err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.cachedAt = now
	s.hasCache = true
	s.mu.Unlock()

	return snapshot, nil
}

func (s *catalogService) UpdatePrices(ctx context.Context, cmd UpdatePricesCommand) (CatalogSnapshot, error) {
	if len(cmd.Prices) == 0 {
		return CatalogSnapshot{}, fmt.Errorf("%w: price table is empty", ErrCatalogInvalidInput)
	}
	for serviceType, byItem := range cmd.Prices {
		if strings.TrimSpace(serviceType) == "" {
			return CatalogSnapshot{}, fmt.Errorf("%w: empty service type key", ErrCatalogInvalidInput)
		}
		for itemType, price := range byItem {
			if strings.TrimSpace(itemType) == "" {
				return CatalogSnapshot{}, fmt.Errorf("%w: empty item type under service %s", ErrCatalogInvalidInput, serviceType)
			}
			if price < 0 {
				return CatalogSnapshot{}, fmt.Errorf("%w: negative price for %s/%s", ErrCatalogInvalidInput, serviceType, itemType)
			}
		}
	}

	if err := s.repo.SavePrices(ctx, cmd.Prices); err != nil {
		return CatalogSnapshot{}, err
	}
	return s.reload(ctx)
}

func (s *catalogService) UpdateTaxPolicy(ctx context.Context, cmd UpdateTaxPolicyCommand) (CatalogSnapshot, error) {
	policy := cmd.Policy
	if policy.SGSTPercent < 0 || policy.SGSTPercent > 100 {
		return CatalogSnapshot{}, fmt.Errorf("%w: sgst percent out of range", ErrCatalogInvalidInput)
	}
	if policy.CGSTPercent < 0 || policy.CGSTPercent > 100 {
		return CatalogSnapshot{}, fmt.Errorf("%w: cgst percent out of range", ErrCatalogInvalidInput)
	}

	if err := s.repo.SaveTaxPolicy(ctx, policy); err != nil {
		return CatalogSnapshot{}, err
	}
	return s.reload(ctx)
}

func (s *catalogService) UpdateItems(ctx context.Context, cmd UpdateItemsCommand) (CatalogSnapshot, error) {
	if len(cmd.Items) == 0 {
		return CatalogSnapshot{}, fmt.Errorf("%w: item list is empty", ErrCatalogInvalidInput)
	}
	seen := make(map[string]struct{}, len(cmd.Items))
	items := make([]domain.CatalogItem, 0, len(cmd.Items))
	for _, item := range cmd.Items {
		item.ID = strings.TrimSpace(item.ID)
		item.Name = strings.TrimSpace(item.Name)
		if item.ID == "" || item.Name == "" {
			return CatalogSnapshot{}, fmt.Errorf("%w: item id and name are required", ErrCatalogInvalidInput)
		}
		if _, dup := seen[item.ID]; dup {
			return CatalogSnapshot{}, fmt.Errorf("%w: duplicate item %s", ErrCatalogInvalidInput, item.ID)
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	if err := s.repo.SaveItems(ctx, items); err != nil {
		return CatalogSnapshot{}, err
	}
	return s.reload(ctx)
}

func (s *catalogService) UpdateServiceTypes(ctx context.Context, cmd UpdateServiceTypesCommand) (CatalogSnapshot, error) {
	if len(cmd.Services) == 0 {
		return CatalogSnapshot{}, fmt.Errorf("%w: service list is empty", ErrCatalogInvalidInput)
	}
	seen := make(map[string]struct{}, len(cmd.Services))
	servicesList := make([]domain.ServiceType, 0, len(cmd.Services))
	for _, svc := range cmd.Services {
		svc.ID = strings.TrimSpace(svc.ID)
		svc.Name = strings.TrimSpace(svc.Name)
		if svc.ID == "" || svc.Name == "" {
			return CatalogSnapshot{}, fmt.Errorf("%w: service id and name are required", ErrCatalogInvalidInput)
		}
		if _, dup := seen[svc.ID]; dup {
			return CatalogSnapshot{}, fmt.Errorf("%w: duplicate service %s", ErrCatalogInvalidInput, svc.ID)
		}
		seen[svc.ID] = struct{}{}
		servicesList = append(servicesList, svc)
	}

	if err := s.repo.SaveServiceTypes(ctx, servicesList); err != nil {
		return CatalogSnapshot{}, err
	}
	return s.reload(ctx)
}

// Invalidate drops the cached snapshot so the next read hits the repository.
func (s *catalogService) Invalidate() {
	s.mu.Lock()
	s.hasCache = false
	s.mu.Unlock()
}

func (s *catalogService) reload(ctx context.Context) (CatalogSnapshot, error) {
	s.Invalidate()
	return s.Snapshot(ctx)
}
