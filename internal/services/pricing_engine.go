package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	domain "github.com/washline/api/internal/domain"
)

var (
	// ErrPricingInvalidInput signals bad request data such as unknown items or fractional unit quantities.
	ErrPricingInvalidInput = errors.New("order pricing: invalid input")
	// ErrPricingUnknownService is returned when the selected service type is missing or disabled.
	ErrPricingUnknownService = errors.New("order pricing: unknown service type")
)

// OrderPricingEngine prices an order from the shop catalog. All monetary
// amounts are integer paise; rounding is half-up at each derivation step and
// the grand total is the exact sum of taxable base and both GST components.
type OrderPricingEngine struct {
	logger func(context.Context, string, map[string]any)
}

type OrderPricingEngineDeps struct {
	Logger func(context.Context, string, map[string]any)
}

func NewOrderPricingEngine(deps OrderPricingEngineDeps) (*OrderPricingEngine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &OrderPricingEngine{logger: logger}, nil
}

// Calculate prices the command against the snapshot. Non-positive quantities
// and negative unit prices are normalized to zero rather than rejected.
func (e *OrderPricingEngine) Calculate(ctx context.Context, cmd PriceOrderCommand) (TotalsBreakdown, error) {
	serviceID := strings.TrimSpace(cmd.ServiceType)
	if serviceID == "" {
		return TotalsBreakdown{}, fmt.Errorf("%w: service type is required", ErrPricingInvalidInput)
	}
	service, ok := cmd.Snapshot.Catalog.Service(serviceID)
	if !ok || !service.Enabled {
		return TotalsBreakdown{}, fmt.Errorf("%w: %s", ErrPricingUnknownService, serviceID)
	}
	if len(cmd.Quantities) == 0 {
		return TotalsBreakdown{}, fmt.Errorf("%w: at least one item is required", ErrPricingInvalidInput)
	}

	itemTypes := make([]string, 0, len(cmd.Quantities))
	for itemType := range cmd.Quantities {
		itemTypes = append(itemTypes, itemType)
	}
	sort.Strings(itemTypes)

	lines := make([]domain.LinePricingBreakdown, 0, len(itemTypes))
	var totalItems float64
	var subtotal int64

	for _, itemType := range itemTypes {
		quantity := cmd.Quantities[itemType]
		if quantity <= 0 {
			// Malformed quantities price to nothing; the line is dropped.
			e.logger(ctx, "pricing_quantity_normalized", map[string]any{"item": itemType, "quantity": quantity})
			continue
		}
		item, ok := cmd.Snapshot.Catalog.Item(itemType)
		if !ok || !item.Enabled {
			return TotalsBreakdown{}, fmt.Errorf("%w: unknown item %s", ErrPricingInvalidInput, itemType)
		}
		if !item.PerKg && quantity != math.Trunc(quantity) {
			return TotalsBreakdown{}, fmt.Errorf("%w: item %s quantity must be a whole number", ErrPricingInvalidInput, itemType)
		}
		unitPrice, ok := cmd.Snapshot.Catalog.UnitPrice(serviceID, itemType)
		if !ok {
			return TotalsBreakdown{}, fmt.Errorf("%w: no price for item %s under service %s", ErrPricingInvalidInput, itemType, serviceID)
		}
		if unitPrice < 0 {
			// Negative catalog prices clamp to zero, like out-of-range discounts.
			e.logger(ctx, "pricing_price_clamped", map[string]any{"item": itemType, "unit_price": unitPrice})
			unitPrice = 0
		}

		lineTotal := roundHalfUp(quantity * float64(unitPrice))
		if lineTotal < 0 || subtotal > math.MaxInt64-lineTotal {
			return TotalsBreakdown{}, fmt.Errorf("%w: subtotal overflow", ErrPricingInvalidInput)
		}
		subtotal += lineTotal
		totalItems += quantity

		lines = append(lines, domain.LinePricingBreakdown{
			ItemType:  itemType,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
	}

	discountAmount := e.discountAmount(ctx, cmd.Discount, subtotal)

	taxableBase := subtotal - discountAmount
	if taxableBase < 0 {
		taxableBase = 0
	}

	var sgst, cgst int64
	tax := cmd.Snapshot.Tax
	if tax.Enabled {
		sgst = percentOf(taxableBase, tax.SGSTPercent)
		cgst = percentOf(taxableBase, tax.CGSTPercent)
	}

	grandTotal := taxableBase + sgst + cgst

	return TotalsBreakdown{
		TotalItems:  totalItems,
		Subtotal:    subtotal,
		Discount:    discountAmount,
		TaxableBase: taxableBase,
		SGST:        sgst,
		CGST:        cgst,
		GrandTotal:  grandTotal,
		Lines:       lines,
		Tax:         tax,
	}, nil
}

// discountAmount clamps out-of-range discounts instead of rejecting them.
// Percent values clamp to [0,100]; fixed values clamp to [0,subtotal].
func (e *OrderPricingEngine) discountAmount(ctx context.Context, discount Discount, subtotal int64) int64 {
	switch discount.Type {
	case domain.DiscountTypePercent:
		pct := discount.Value
		if pct < 0 || pct > 100 {
			e.logger(ctx, "pricing_discount_clamped", map[string]any{"type": "percent", "value": pct})
			pct = math.Min(math.Max(pct, 0), 100)
		}
		return percentOf(subtotal, pct)
	case domain.DiscountTypeFixed:
		amount := roundHalfUp(discount.Value)
		if amount < 0 || amount > subtotal {
			e.logger(ctx, "pricing_discount_clamped", map[string]any{"type": "fixed", "value": discount.Value, "subtotal": subtotal})
			if amount < 0 {
				amount = 0
			} else {
				amount = subtotal
			}
		}
		return amount
	default:
		return 0
	}
}

func percentOf(amount int64, percent float64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return roundHalfUp(float64(amount) * percent / 100)
}

func roundHalfUp(value float64) int64 {
	return int64(math.Floor(value + 0.5))
}
