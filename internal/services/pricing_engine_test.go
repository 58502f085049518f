package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/washline/api/internal/domain"
)

func testSnapshot() CatalogSnapshot {
	return CatalogSnapshot{
		Catalog: domain.PriceCatalog{
			Prices: map[string]map[string]int64{
				"wash-fold": {
					"shirt":       2000,
					"pant":        3000,
					"clothsPerKg": 6000,
				},
				"dry-clean": {
					"shirt": 5000,
				},
			},
			Services: []domain.ServiceType{
				{ID: "wash-fold", Name: "Wash & Fold", Enabled: true},
				{ID: "dry-clean", Name: "Dry Clean", Enabled: false},
			},
			Items: []domain.CatalogItem{
				{ID: "shirt", Name: "Shirt", Enabled: true},
				{ID: "pant", Name: "Pant", Enabled: true},
				{ID: "clothsPerKg", Name: "Mixed Cloths (per kg)", Enabled: true, PerKg: true},
				{ID: "curtain", Name: "Curtain", Enabled: false},
			},
		},
		Tax: domain.TaxPolicy{Enabled: true, SGSTPercent: 9, CGSTPercent: 9},
	}
}

func newTestPricingEngine(t *testing.T) *OrderPricingEngine {
	t.Helper()
	engine, err := NewOrderPricingEngine(OrderPricingEngineDeps{})
	if err != nil {
		t.Fatalf("NewOrderPricingEngine: %v", err)
	}
	return engine
}

func TestPricingEngineCalculatesGSTTotals(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"shirt": 10, "pant": 5},
		Discount:    Discount{Type: domain.DiscountTypePercent, Value: 10},
		Snapshot:    testSnapshot(),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.Subtotal != 35000 {
		t.Fatalf("expected subtotal 35000, got %d", result.Subtotal)
	}
	if result.Discount != 3500 {
		t.Fatalf("expected discount 3500, got %d", result.Discount)
	}
	if result.TaxableBase != 31500 {
		t.Fatalf("expected taxable base 31500, got %d", result.TaxableBase)
	}
	if result.SGST != 2835 || result.CGST != 2835 {
		t.Fatalf("expected SGST/CGST 2835/2835, got %d/%d", result.SGST, result.CGST)
	}
	if result.GrandTotal != 37170 {
		t.Fatalf("expected grand total 37170, got %d", result.GrandTotal)
	}
	if result.TotalItems != 15 {
		t.Fatalf("expected 15 total items, got %v", result.TotalItems)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(result.Lines))
	}
	if result.Lines[0].ItemType != "pant" || result.Lines[0].LineTotal != 15000 {
		t.Fatalf("unexpected first line %+v", result.Lines[0])
	}
}

func TestPricingEngineGrandTotalIsExactSum(t *testing.T) {
	engine := newTestPricingEngine(t)

	// 12.5% of 12500 produces a fractional intermediate that must round
	// half-up before the grand total is assembled.
	result, err := engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"shirt": 1, "pant": 3, "clothsPerKg": 0.25},
		Discount:    Discount{Type: domain.DiscountTypePercent, Value: 12.5},
		Snapshot:    testSnapshot(),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.Subtotal != 12500 {
		t.Fatalf("expected subtotal 12500, got %d", result.Subtotal)
	}
	if result.Discount != 1563 {
		t.Fatalf("expected discount 1563 (1562.5 rounded half-up), got %d", result.Discount)
	}
	if got, want := result.GrandTotal, result.TaxableBase+result.SGST+result.CGST; got != want {
		t.Fatalf("grand total %d should equal taxable+SGST+CGST %d", got, want)
	}
}

func TestPricingEngineFractionalQuantities(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"clothsPerKg": 2.5},
		Snapshot:    testSnapshot(),
	})
	if err != nil {
		t.Fatalf("fractional per-kg quantity should be accepted: %v", err)
	}
	if result.Subtotal != 15000 {
		t.Fatalf("expected subtotal 15000, got %d", result.Subtotal)
	}

	_, err = engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"shirt": 1.5},
		Snapshot:    testSnapshot(),
	})
	if !errors.Is(err, ErrPricingInvalidInput) {
		t.Fatalf("expected invalid input for fractional unit quantity, got %v", err)
	}
}

func TestPricingEngineDiscountClamping(t *testing.T) {
	engine := newTestPricingEngine(t)
	snapshot := testSnapshot()

	cases := []struct {
		name     string
		discount Discount
		want     int64
	}{
		{name: "percent above range", discount: Discount{Type: domain.DiscountTypePercent, Value: 150}, want: 20000},
		{name: "percent below range", discount: Discount{Type: domain.DiscountTypePercent, Value: -5}, want: 0},
		{name: "fixed above subtotal", discount: Discount{Type: domain.DiscountTypeFixed, Value: 99999}, want: 20000},
		{name: "fixed negative", discount: Discount{Type: domain.DiscountTypeFixed, Value: -100}, want: 0},
		{name: "no discount type", discount: Discount{}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := engine.Calculate(context.Background(), PriceOrderCommand{
				ServiceType: "wash-fold",
				Quantities:  map[string]float64{"shirt": 10},
				Discount:    tc.discount,
				Snapshot:    snapshot,
			})
			if err != nil {
				t.Fatalf("Calculate: %v", err)
			}
			if result.Discount != tc.want {
				t.Fatalf("expected discount %d, got %d", tc.want, result.Discount)
			}
			if result.GrandTotal != result.TaxableBase+result.SGST+result.CGST {
				t.Fatalf("grand total must equal taxable+SGST+CGST")
			}
		})
	}
}

func TestPricingEngineNormalizesMalformedLines(t *testing.T) {
	engine := newTestPricingEngine(t)

	result, err := engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"shirt": -1, "pant": 2},
		Snapshot:    testSnapshot(),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Subtotal != 6000 {
		t.Fatalf("expected subtotal 6000 from the pant line alone, got %d", result.Subtotal)
	}
	if len(result.Lines) != 1 || result.Lines[0].ItemType != "pant" {
		t.Fatalf("expected the negative-quantity line to be dropped, got %+v", result.Lines)
	}
	if result.TotalItems != 2 {
		t.Fatalf("expected 2 total items, got %v", result.TotalItems)
	}

	snapshot := testSnapshot()
	snapshot.Catalog.Prices["wash-fold"]["shirt"] = -2000
	result, err = engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"shirt": 3},
		Snapshot:    snapshot,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Subtotal != 0 || result.GrandTotal != 0 {
		t.Fatalf("expected negative unit price to clamp to zero, got %+v", result)
	}

	result, err = engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"shirt": 0, "pant": -3},
		Snapshot:    testSnapshot(),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.GrandTotal != 0 || len(result.Lines) != 0 {
		t.Fatalf("expected an empty breakdown when every line is non-positive, got %+v", result)
	}
}

func TestPricingEngineTaxDisabled(t *testing.T) {
	engine := newTestPricingEngine(t)
	snapshot := testSnapshot()
	snapshot.Tax = domain.TaxPolicy{Enabled: false, SGSTPercent: 9, CGSTPercent: 9}

	result, err := engine.Calculate(context.Background(), PriceOrderCommand{
		ServiceType: "wash-fold",
		Quantities:  map[string]float64{"shirt": 2},
		Snapshot:    snapshot,
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.SGST != 0 || result.CGST != 0 {
		t.Fatalf("expected zero GST when disabled, got %d/%d", result.SGST, result.CGST)
	}
	if result.GrandTotal != result.TaxableBase {
		t.Fatalf("expected grand total %d to equal taxable base %d", result.GrandTotal, result.TaxableBase)
	}
}

func TestPricingEngineRejectsBadInput(t *testing.T) {
	engine := newTestPricingEngine(t)
	snapshot := testSnapshot()

	cases := []struct {
		name    string
		cmd     PriceOrderCommand
		wantErr error
	}{
		{
			name:    "missing service type",
			cmd:     PriceOrderCommand{Quantities: map[string]float64{"shirt": 1}, Snapshot: snapshot},
			wantErr: ErrPricingInvalidInput,
		},
		{
			name:    "disabled service type",
			cmd:     PriceOrderCommand{ServiceType: "dry-clean", Quantities: map[string]float64{"shirt": 1}, Snapshot: snapshot},
			wantErr: ErrPricingUnknownService,
		},
		{
			name:    "no items",
			cmd:     PriceOrderCommand{ServiceType: "wash-fold", Snapshot: snapshot},
			wantErr: ErrPricingInvalidInput,
		},
		{
			name:    "unknown item",
			cmd:     PriceOrderCommand{ServiceType: "wash-fold", Quantities: map[string]float64{"towel": 1}, Snapshot: snapshot},
			wantErr: ErrPricingInvalidInput,
		},
		{
			name:    "disabled item",
			cmd:     PriceOrderCommand{ServiceType: "wash-fold", Quantities: map[string]float64{"curtain": 1}, Snapshot: snapshot},
			wantErr: ErrPricingInvalidInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Calculate(context.Background(), tc.cmd); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
