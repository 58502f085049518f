package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/washline/api/internal/domain"
	pfirestore "github.com/washline/api/internal/platform/firestore"
	"github.com/washline/api/internal/repositories"
)

const (
	serviceConfigDocID = "serviceConfig"
	clothConfigDocID   = "clothConfig"
	gstConfigDocID     = "gstConfig"
)

type serviceTypeDocument struct {
	ID      string `firestore:"id"`
	Name    string `firestore:"name"`
	Enabled bool   `firestore:"enabled"`
}

type catalogItemDocument struct {
	ID      string `firestore:"id"`
	Name    string `firestore:"name"`
	Icon    string `firestore:"icon,omitempty"`
	Enabled bool   `firestore:"enabled"`
	PerKg   bool   `firestore:"perKg"`
}

type serviceConfigDocument struct {
	Services  []serviceTypeDocument       `firestore:"services"`
	Prices    map[string]map[string]int64 `firestore:"prices"`
	UpdatedAt time.Time                   `firestore:"updatedAt"`
}

type clothConfigDocument struct {
	Items     []catalogItemDocument `firestore:"items"`
	UpdatedAt time.Time             `firestore:"updatedAt"`
}

type gstConfigDocument struct {
	Enabled     bool      `firestore:"enabled"`
	SGSTPercent float64   `firestore:"sgstPercent"`
	CGSTPercent float64   `firestore:"cgstPercent"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// SettingsRepository reads and writes the shop configuration documents stored
// in the settings collection.
type SettingsRepository struct {
	provider *pfirestore.Provider
	services *pfirestore.BaseRepository[serviceConfigDocument]
	clothes  *pfirestore.BaseRepository[clothConfigDocument]
	gst      *pfirestore.BaseRepository[gstConfigDocument]
}

var _ repositories.SettingsRepository = (*SettingsRepository)(nil)

// NewSettingsRepository constructs a Firestore-backed settings repository.
func NewSettingsRepository(provider *pfirestore.Provider, collection string) (*SettingsRepository, error) {
	if provider == nil {
		return nil, errors.New("settings repository requires firestore provider")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("settings repository requires a collection name")
	}
	return &SettingsRepository{
		provider: provider,
		services: pfirestore.NewBaseRepository[serviceConfigDocument](provider, collection, nil, nil),
		clothes:  pfirestore.NewBaseRepository[clothConfigDocument](provider, collection, nil, nil),
		gst:      pfirestore.NewBaseRepository[gstConfigDocument](provider, collection, nil, nil),
	}, nil
}

// LoadSnapshot assembles the catalog snapshot from the three configuration
// documents. Missing documents produce empty sections so a fresh deployment
// starts from a blank catalog instead of failing.
func (r *SettingsRepository) LoadSnapshot(ctx context.Context) (domain.CatalogSnapshot, error) {
	if r == nil || r.provider == nil {
		return domain.CatalogSnapshot{}, errors.New("settings repository not initialised")
	}

	var snapshot domain.CatalogSnapshot

	serviceDoc, err := r.services.Get(ctx, serviceConfigDocID)
	if err != nil && !isNotFound(err) {
		return domain.CatalogSnapshot{}, err
	}
	if err == nil {
		snapshot.Catalog.Prices = serviceDoc.Data.Prices
		snapshot.Catalog.Services = toDomainServices(serviceDoc.Data.Services)
	}

	clothDoc, err := r.clothes.Get(ctx, clothConfigDocID)
	if err != nil && !isNotFound(err) {
		return domain.CatalogSnapshot{}, err
	}
	if err == nil {
		snapshot.Catalog.Items = toDomainItems(clothDoc.Data.Items)
	}

	gstDoc, err := r.gst.Get(ctx, gstConfigDocID)
	if err != nil && !isNotFound(err) {
		return domain.CatalogSnapshot{}, err
	}
	if err == nil {
		snapshot.Tax = domain.TaxPolicy{
			Enabled:     gstDoc.Data.Enabled,
			SGSTPercent: gstDoc.Data.SGSTPercent,
			CGSTPercent: gstDoc.Data.CGSTPercent,
		}
	}

	if snapshot.Catalog.Prices == nil {
		snapshot.Catalog.Prices = map[string]map[string]int64{}
	}
	return snapshot, nil
}

// SavePrices persists the price matrix on the service configuration document.
func (r *SettingsRepository) SavePrices(ctx context.Context, prices map[string]map[string]int64) error {
	if r == nil || r.provider == nil {
		return errors.New("settings repository not initialised")
	}
	return r.merge(ctx, serviceConfigDocID, map[string]any{
		"prices":    prices,
		"updatedAt": time.Now().UTC(),
	})
}

// SaveTaxPolicy persists the GST configuration document.
func (r *SettingsRepository) SaveTaxPolicy(ctx context.Context, policy domain.TaxPolicy) error {
	if r == nil || r.provider == nil {
		return errors.New("settings repository not initialised")
	}
	return r.merge(ctx, gstConfigDocID, map[string]any{
		"enabled":     policy.Enabled,
		"sgstPercent": policy.SGSTPercent,
		"cgstPercent": policy.CGSTPercent,
		"updatedAt":   time.Now().UTC(),
	})
}

// SaveItems persists the garment metadata document.
func (r *SettingsRepository) SaveItems(ctx context.Context, items []domain.CatalogItem) error {
	if r == nil || r.provider == nil {
		return errors.New("settings repository not initialised")
	}
	docs := make([]catalogItemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, catalogItemDocument{
			ID:      item.ID,
			Name:    item.Name,
			Icon:    item.Icon,
			Enabled: item.Enabled,
			PerKg:   item.PerKg,
		})
	}
	return r.merge(ctx, clothConfigDocID, map[string]any{
		"items":     docs,
		"updatedAt": time.Now().UTC(),
	})
}

// SaveServiceTypes persists the service type list on the service configuration document.
func (r *SettingsRepository) SaveServiceTypes(ctx context.Context, services []domain.ServiceType) error {
	if r == nil || r.provider == nil {
		return errors.New("settings repository not initialised")
	}
	docs := make([]serviceTypeDocument, 0, len(services))
	for _, svc := range services {
		docs = append(docs, serviceTypeDocument{
			ID:      svc.ID,
			Name:    svc.Name,
			Enabled: svc.Enabled,
		})
	}
	return r.merge(ctx, serviceConfigDocID, map[string]any{
		"services":  docs,
		"updatedAt": time.Now().UTC(),
	})
}

func (r *SettingsRepository) merge(ctx context.Context, docID string, payload map[string]any) error {
	// All three documents live in the same collection, so any base resolves the ref.
	ref, err := r.services.DocumentRef(ctx, docID)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, payload, firestore.MergeAll); err != nil {
		return pfirestore.WrapError("settings.save", err)
	}
	return nil
}

func toDomainServices(docs []serviceTypeDocument) []domain.ServiceType {
	out := make([]domain.ServiceType, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.ServiceType{
			ID:      doc.ID,
			Name:    doc.Name,
			Enabled: doc.Enabled,
		})
	}
	return out
}

func toDomainItems(docs []catalogItemDocument) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.CatalogItem{
			ID:      doc.ID,
			Name:    doc.Name,
			Icon:    doc.Icon,
			Enabled: doc.Enabled,
			PerKg:   doc.PerKg,
		})
	}
	return out
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
