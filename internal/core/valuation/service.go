package valuation

import (
	"context"
	"fmt"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/metrics"
	"vehicle-financing/internal/models"
)

type VehicleFinder interface {
	FindByVIN(ctx context.Context, vin string) (*models.Vehicle, error)
}

// Service runs a valuation simulation for a registered vehicle.
type Service struct {
	vehicles  VehicleFinder
	estimator *Estimator
	workflow  *Workflow
	log       logger.Logger
}

func NewService(vehicles VehicleFinder, estimator *Estimator, workflow *Workflow, log logger.Logger) *Service {
	return &Service{
		vehicles:  vehicles,
		estimator: estimator,
		workflow:  workflow,
		log:       log,
	}
}

// Simulate values the vehicle registered under vin from its base amount and
// records the result.
func (s *Service) Simulate(ctx context.Context, vin string) (_ *models.Valuation, err error) {
	defer func() { metrics.RecordValuation(err) }()

	vin = models.NormalizeVIN(vin)
	if vin == "" {
		return nil, apperrors.NewValidationError("VIN is required", "")
	}

	vehicle, err := s.vehicles.FindByVIN(ctx, vin)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, apperrors.NewVehicleNotFoundError(fmt.Sprintf("vin: %s", vin))
	}

	attrs, amount, err := s.estimator.Estimate(ctx, vin, vehicle.BaseAmount)
	if err != nil {
		s.log.Warn("Valuation estimate failed", map[string]interface{}{
			"vin":   vin,
			"error": err.Error(),
		})
		return nil, err
	}

	valuation, err := s.workflow.RecordValuation(ctx, attrs, amount, *vehicle)
	if err != nil {
		return nil, err
	}

	s.log.Info("Valuation recorded", map[string]interface{}{
		"vin":             vin,
		"vehicleId":       vehicle.ID,
		"valuationId":     valuation.ID,
		"valuationAmount": valuation.ValuationAmount.StringFixed(AmountPlaces),
	})
	return valuation, nil
}
