package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/washline/api/internal/domain"
	"github.com/washline/api/internal/platform/httpx"
	"github.com/washline/api/internal/services"
)

const maxCatalogBodySize = 256 * 1024

// CatalogHandlers exposes the price matrix read endpoint and admin updates.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes registers the /catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCatalog)
	r.Put("/prices", h.updatePrices)
	r.Put("/tax", h.updateTax)
	r.Put("/items", h.updateItems)
	r.Put("/services", h.updateServices)
}

type catalogResponse struct {
	Services []serviceTypePayload         `json:"services"`
	Items    []catalogItemPayload         `json:"items"`
	Prices   map[string]map[string]string `json:"prices"`
	Tax      taxPolicyPayload             `json:"tax"`
}

type serviceTypePayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type catalogItemPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Icon    string `json:"icon,omitempty"`
	Enabled bool   `json:"enabled"`
	PerKg   bool   `json:"per_kg"`
}

type updatePricesRequest struct {
	Prices map[string]map[string]string `json:"prices"`
}

type updateTaxRequest struct {
	Enabled     bool    `json:"enabled"`
	SGSTPercent float64 `json:"sgst_percent"`
	CGSTPercent float64 `json:"cgst_percent"`
}

type updateItemsRequest struct {
	Items []catalogItemPayload `json:"items"`
}

type updateServicesRequest struct {
	Services []serviceTypePayload `json:"services"`
}

func (h *CatalogHandlers) getCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	snapshot, err := h.catalog.Snapshot(ctx)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCatalogResponse(snapshot))
}

func (h *CatalogHandlers) updatePrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updatePricesRequest
	if !decodeCatalogBody(ctx, w, r, &req) {
		return
	}

	prices := make(map[string]map[string]int64, len(req.Prices))
	for serviceType, byItem := range req.Prices {
		converted := make(map[string]int64, len(byItem))
		for itemType, raw := range byItem {
			amount, err := parseRupees(raw)
			if err != nil {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price for "+serviceType+"/"+itemType+" "+err.Error(), http.StatusBadRequest))
				return
			}
			converted[itemType] = amount
		}
		prices[serviceType] = converted
	}

	snapshot, err := h.catalog.UpdatePrices(ctx, services.UpdatePricesCommand{Prices: prices})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCatalogResponse(snapshot))
}

func (h *CatalogHandlers) updateTax(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateTaxRequest
	if !decodeCatalogBody(ctx, w, r, &req) {
		return
	}

	snapshot, err := h.catalog.UpdateTaxPolicy(ctx, services.UpdateTaxPolicyCommand{
		Policy: domain.TaxPolicy{
			Enabled:     req.Enabled,
			SGSTPercent: req.SGSTPercent,
			CGSTPercent: req.CGSTPercent,
		},
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCatalogResponse(snapshot))
}

func (h *CatalogHandlers) updateItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateItemsRequest
	if !decodeCatalogBody(ctx, w, r, &req) {
		return
	}

	items := make([]domain.CatalogItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.CatalogItem{
			ID:      strings.TrimSpace(item.ID),
			Name:    strings.TrimSpace(item.Name),
			Icon:    strings.TrimSpace(item.Icon),
			Enabled: item.Enabled,
			PerKg:   item.PerKg,
		})
	}

	snapshot, err := h.catalog.UpdateItems(ctx, services.UpdateItemsCommand{Items: items})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCatalogResponse(snapshot))
}

func (h *CatalogHandlers) updateServices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req updateServicesRequest
	if !decodeCatalogBody(ctx, w, r, &req) {
		return
	}

	serviceTypes := make([]domain.ServiceType, 0, len(req.Services))
	for _, svc := range req.Services {
		serviceTypes = append(serviceTypes, domain.ServiceType{
			ID:      strings.TrimSpace(svc.ID),
			Name:    strings.TrimSpace(svc.Name),
			Enabled: svc.Enabled,
		})
	}

	snapshot, err := h.catalog.UpdateServiceTypes(ctx, services.UpdateServiceTypesCommand{Services: serviceTypes})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCatalogResponse(snapshot))
}

func decodeCatalogBody(ctx context.Context, w http.ResponseWriter, r *http.Request, target any) bool {
	body, err := readLimitedBody(r, maxCatalogBodySize)
	if err != nil {
		writeOrderBodyError(ctx, w, err)
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return false
	}
	return true
}

func buildCatalogResponse(snapshot services.CatalogSnapshot) catalogResponse {
	response := catalogResponse{
		Services: make([]serviceTypePayload, 0, len(snapshot.Catalog.Services)),
		Items:    make([]catalogItemPayload, 0, len(snapshot.Catalog.Items)),
		Prices:   make(map[string]map[string]string, len(snapshot.Catalog.Prices)),
		Tax: taxPolicyPayload{
			Enabled:     snapshot.Tax.Enabled,
			SGSTPercent: snapshot.Tax.SGSTPercent,
			CGSTPercent: snapshot.Tax.CGSTPercent,
		},
	}

	for _, svc := range snapshot.Catalog.Services {
		response.Services = append(response.Services, serviceTypePayload{
			ID:      svc.ID,
			Name:    svc.Name,
			Enabled: svc.Enabled,
		})
	}
	for _, item := range snapshot.Catalog.Items {
		response.Items = append(response.Items, catalogItemPayload{
			ID:      item.ID,
			Name:    item.Name,
			Icon:    item.Icon,
			Enabled: item.Enabled,
			PerKg:   item.PerKg,
		})
	}
	for serviceType, byItem := range snapshot.Catalog.Prices {
		converted := make(map[string]string, len(byItem))
		for itemType, amount := range byItem {
			converted[itemType] = formatPaise(amount)
		}
		response.Prices[serviceType] = converted
	}

	return response
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
