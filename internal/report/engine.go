package report

import (
	"strings"

	"github.com/otabekdev/restockbot/internal/domain/models"
)

// DefaultVocabulary lists the collection codes recognized in product
// nomenclature, checked in order with first match winning. The first entry
// spells EMR with a Cyrillic Е; both spellings occur in real nomenclature.
var DefaultVocabulary = []string{
	"ЕMR", "EMR", "YEL", "WHT", "ULT", "SF", "RUB", "RED", "PG", "ORN", "NC",
	"LM", "LAG", "IND", "GRN", "GREY", "FP STNX", "FP PLC", "FP NTR", "CHR",
	"BLU", "BLA", "AMB",
}

// NoMatchTag is assigned when no vocabulary entry occurs in a product name.
const NoMatchTag = "No Match"

// Engine computes the per-row replenishment recommendation. It is a pure
// function of its inputs; the vocabulary and threshold are read-only after
// construction.
type Engine struct {
	vocabulary        []string
	lowStockThreshold int
}

// NewEngine builds an engine. A nil vocabulary falls back to
// DefaultVocabulary.
func NewEngine(vocabulary []string, lowStockThreshold int) *Engine {
	if vocabulary == nil {
		vocabulary = DefaultVocabulary
	}
	return &Engine{
		vocabulary:        vocabulary,
		lowStockThreshold: lowStockThreshold,
	}
}

// Compute augments each row with period demand, the horizon classification,
// the low-stock deficit and the collection tag.
//
// The horizon classification and the deficit are deliberately independent:
// a SKU can fail the sell-out-day test yet still be critically low on hand,
// and the deficit exists to catch exactly that case.
func (e *Engine) Compute(rows []models.StockRow, p models.Parameters) []models.ComputedRow {
	adjustment := 1.0
	if p.AdjustedBrand {
		adjustment = p.AdjustmentPercentage
	}

	out := make([]models.ComputedRow, 0, len(rows))
	for _, row := range rows {
		periodDemand := row.AvgDailySales * float64(p.HorizonDays) * adjustment

		var outcome models.Outcome
		if row.DaysToSellOut >= 0 && row.DaysToSellOut <= p.HorizonDays {
			outcome = models.Outcome{
				Kind: models.OutcomeReorder,
				Qty:  periodDemand - float64(row.EndingStock),
			}
		} else {
			// Covers both the -1 "never sells out" sentinel and rows whose
			// sell-out day lies beyond the horizon.
			outcome = models.Outcome{
				Kind: models.OutcomeOverstock,
				Qty:  float64(row.EndingStock) - periodDemand,
			}
		}

		deficit := 0.0
		if row.EndingStock <= e.lowStockThreshold {
			deficit = float64(row.DaysSinceLastSale)*row.AvgDailySales*adjustment - float64(row.EndingStock)
		}

		out = append(out, models.ComputedRow{
			StockRow:          row,
			PeriodDemand:      periodDemand,
			Outcome:           outcome,
			OutOfStockDeficit: deficit,
			CollectionTag:     e.classify(row.Name),
		})
	}

	return out
}

func (e *Engine) classify(name string) string {
	if name == "" {
		return NoMatchTag
	}
	for _, entry := range e.vocabulary {
		if strings.Contains(name, entry) {
			return entry
		}
	}
	return NoMatchTag
}
