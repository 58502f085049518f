package domain

// TotalsBreakdown captures the aggregated monetary results of pricing an order.
// All amounts are paise. GrandTotal always equals TaxableBase + SGST + CGST and
// TaxableBase always equals Subtotal - Discount.
type TotalsBreakdown struct {
	TotalItems  float64
	Subtotal    int64
	Discount    int64
	TaxableBase int64
	SGST        int64
	CGST        int64
	GrandTotal  int64
	Lines       []LinePricingBreakdown
	Tax         TaxPolicy
}

// LinePricingBreakdown stores the per-item pricing outputs after running the engine.
type LinePricingBreakdown struct {
	ItemType  string
	Quantity  float64
	UnitPrice int64
	LineTotal int64
}
