// Package valuation estimates a vehicle's value from its VIN and records the
// estimate as an immutable valuation history entry.
package valuation

import (
	"context"
	"strings"
	"time"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/models"

	"github.com/shopspring/decimal"
)

// VehicleLookupService fetches descriptive attributes for a VIN from an
// external source. A non-nil error means the lookup did not succeed.
type VehicleLookupService interface {
	Lookup(ctx context.Context, vin string) (models.VehicleAttributes, error)
}

var (
	multiplierNew    = decimal.RequireFromString("1.5")
	multiplierRecent = decimal.RequireFromString("1.2")
	multiplierOld    = decimal.RequireFromString("0.8")

	multiplierSUV   = decimal.RequireFromString("1.1")
	multiplierSedan = decimal.RequireFromString("0.9")
)

// AgeMultiplier returns the price multiplier for a vehicle of the given age
// in years. Tiers are exclusive: under 5, 5 to 9, 10 and over.
func AgeMultiplier(age int) decimal.Decimal {
	switch {
	case age < 5:
		return multiplierNew
	case age < 10:
		return multiplierRecent
	default:
		return multiplierOld
	}
}

// ClassMultiplier returns the price multiplier for a vehicle class, compared
// case-insensitively. Unknown or empty classes are not adjusted.
func ClassMultiplier(class string) decimal.Decimal {
	switch strings.ToLower(strings.TrimSpace(class)) {
	case "suv":
		return multiplierSUV
	case "sedan", "saloon", "sedan/saloon":
		return multiplierSedan
	default:
		return decimal.NewFromInt(1)
	}
}

// Estimator derives a valuation amount from a base price and the attributes
// the lookup reports. It does not retry failed lookups.
type Estimator struct {
	lookup VehicleLookupService
	now    func() time.Time
}

type EstimatorOption func(*Estimator)

// WithClock overrides the clock used to compute vehicle age.
func WithClock(now func() time.Time) EstimatorOption {
	return func(e *Estimator) { e.now = now }
}

func NewEstimator(lookup VehicleLookupService, opts ...EstimatorOption) *Estimator {
	e := &Estimator{lookup: lookup, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate looks up vin and returns the attributes used together with the
// unrounded amount basePrice × age multiplier × class multiplier.
func (e *Estimator) Estimate(ctx context.Context, vin string, basePrice decimal.Decimal) (models.VehicleAttributes, decimal.Decimal, error) {
	attrs, err := e.lookup.Lookup(ctx, vin)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindUpstreamFailure {
			return models.VehicleAttributes{}, decimal.Zero, err
		}
		return models.VehicleAttributes{}, decimal.Zero, apperrors.NewVehicleDataFetchFailedError(err)
	}
	if attrs.VIN == "" {
		attrs.VIN = vin
	}

	age := e.now().Year() - attrs.Year
	amount := basePrice.Mul(AgeMultiplier(age)).Mul(ClassMultiplier(attrs.Class))

	return attrs, amount, nil
}
