package eligibility

import (
	"fmt"

	"vehicle-financing/internal/common/config"

	"github.com/shopspring/decimal"
)

// PolicyFromConfig starts from DefaultPolicy and applies any thresholds set
// in cfg.
func PolicyFromConfig(cfg config.EligibilityConfig) (Policy, error) {
	p := DefaultPolicy()

	if cfg.MinMonthlyIncome != "" {
		v, err := decimal.NewFromString(cfg.MinMonthlyIncome)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid min monthly income: %w", err)
		}
		p.MinMonthlyIncome = v
	}
	if cfg.MaxDebtToIncome != "" {
		v, err := decimal.NewFromString(cfg.MaxDebtToIncome)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid max debt to income: %w", err)
		}
		p.MaxDebtToIncome = v
	}
	if cfg.MinCreditScore > 0 {
		p.MinCreditScore = cfg.MinCreditScore
	}
	if cfg.MinApplicantAge > 0 {
		p.MinAge = cfg.MinApplicantAge
	}
	return p, nil
}
