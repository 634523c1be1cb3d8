package valuation

import (
	"context"
	"time"

	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/models"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the storage precision of valuation amounts.
const AmountPlaces = 2

type ValuationRepository interface {
	Save(ctx context.Context, v *models.Valuation) (*models.Valuation, error)
}

// Indexer publishes recorded valuations to a search store. It is optional.
type Indexer interface {
	IndexValuation(ctx context.Context, v *models.Valuation) error
}

// Workflow persists estimates as valuation history. Repeated valuations of
// one vehicle accumulate; nothing is deduplicated.
type Workflow struct {
	repo    ValuationRepository
	indexer Indexer
	now     func() time.Time
	log     logger.Logger
}

type WorkflowOption func(*Workflow)

func WithIndexer(indexer Indexer) WorkflowOption {
	return func(w *Workflow) { w.indexer = indexer }
}

func WithWorkflowClock(now func() time.Time) WorkflowOption {
	return func(w *Workflow) { w.now = now }
}

func NewWorkflow(repo ValuationRepository, log logger.Logger, opts ...WorkflowOption) *Workflow {
	w := &Workflow{repo: repo, now: time.Now, log: log}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RecordValuation stores the estimate for vehicle. The amount is rounded
// half-to-even to AmountPlaces here and nowhere earlier.
func (w *Workflow) RecordValuation(ctx context.Context, attrs models.VehicleAttributes, amount decimal.Decimal, vehicle models.Vehicle) (*models.Valuation, error) {
	now := w.now().UTC()

	saved, err := w.repo.Save(ctx, &models.Valuation{
		VehicleID:       vehicle.ID,
		VIN:             vehicle.VIN,
		Manufacturer:    attrs.Manufacturer,
		Model:           attrs.Model,
		Year:            attrs.Year,
		Class:           attrs.Class,
		ValuationAmount: amount.RoundBank(AmountPlaces),
		ValuationDate:   now,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	if w.indexer != nil {
		if err := w.indexer.IndexValuation(ctx, saved); err != nil {
			w.log.Warn("Failed to index valuation", map[string]interface{}{
				"valuationId": saved.ID,
				"vin":         saved.VIN,
				"error":       err.Error(),
			})
		}
	}

	return saved, nil
}
