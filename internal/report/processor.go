package report

import (
	"time"

	"go.uber.org/zap"

	"github.com/otabekdev/restockbot/internal/config"
	"github.com/otabekdev/restockbot/internal/domain/models"
)

// Processor runs the normalize → compute → emit stages as one sequential
// unit once the dialogue has collected all parameters.
type Processor struct {
	normalizer *Normalizer
	engine     *Engine
	emitter    *Emitter
	logger     *zap.Logger
}

// NewProcessor wires a processor from the report configuration.
func NewProcessor(cfg config.ReportConfig, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		normalizer: NewNormalizer(cfg),
		engine:     NewEngine(nil, cfg.LowStockThreshold),
		emitter:    NewEmitter(),
		logger:     logger,
	}
}

// Process transforms a loaded table into the output workbook bytes.
func (p *Processor) Process(table *Table, params models.Parameters) ([]byte, error) {
	start := time.Now()

	rows, err := p.normalizer.Normalize(table)
	if err != nil {
		return nil, err
	}

	computed := p.engine.Compute(rows, params)

	payload, err := p.emitter.Emit(computed)
	if err != nil {
		return nil, err
	}

	p.logger.Info("report processed",
		zap.Int("input_rows", len(table.Rows)),
		zap.Int("output_rows", len(computed)),
		zap.Int("horizon_days", params.HorizonDays),
		zap.Bool("adjusted_brand", params.AdjustedBrand),
		zap.Duration("duration", time.Since(start)))

	return payload, nil
}
