package models

// StockRow is one SKU from the cleaned warehouse report.
type StockRow struct {
	SKU               string
	Name              string
	DaysToSellOut     int
	EndingStock       int
	AvgDailySales     float64
	DaysSinceLastSale int
}

// InfinitySentinel stands in for "no finite days" in DaysToSellOut and
// DaysSinceLastSale. It is mapped from the report's infinity glyph during
// normalization and is a legitimate value downstream.
const InfinitySentinel = -1

// OutcomeKind tags the horizon classification of a row.
type OutcomeKind string

const (
	OutcomeReorder   OutcomeKind = "reorder"
	OutcomeOverstock OutcomeKind = "overstock"
)

// Outcome is the horizon classification of a row together with its
// quantity. Exactly one of the two kinds applies to any row; the quantity
// is not clamped to non-negative here.
type Outcome struct {
	Kind OutcomeKind
	Qty  float64
}

// RecommendedOrder returns the reorder quantity, zero for overstocked rows.
func (o Outcome) RecommendedOrder() float64 {
	if o.Kind == OutcomeReorder {
		return o.Qty
	}
	return 0
}

// OverstockQty returns the surplus quantity, zero for reorder rows.
func (o Outcome) OverstockQty() float64 {
	if o.Kind == OutcomeOverstock {
		return o.Qty
	}
	return 0
}

// ComputedRow is a StockRow augmented with the derived replenishment fields.
type ComputedRow struct {
	StockRow

	PeriodDemand      float64
	Outcome           Outcome
	OutOfStockDeficit float64
	CollectionTag     string
}

// Parameters are the operator-supplied knobs collected by the dialogue and
// consumed exactly once by the computation engine.
type Parameters struct {
	HorizonDays          int
	AdjustedBrand        bool
	AdjustmentPercentage float64
}
