// Package eligibility decides whether a loan applicant meets the lending
// policy. All criteria are conjunctive; there is no scoring or weighting.
package eligibility

import (
	"github.com/shopspring/decimal"
)

// Criterion names one eligibility condition.
type Criterion string

const (
	CriterionMinIncome    Criterion = "min_income"
	CriterionDebtToIncome Criterion = "debt_to_income"
	CriterionCreditScore  Criterion = "credit_score"
	CriterionMinAge       Criterion = "min_age"
)

// Policy holds the thresholds an applicant is measured against.
type Policy struct {
	MinMonthlyIncome decimal.Decimal
	MaxDebtToIncome  decimal.Decimal // exclusive upper bound
	MinCreditScore   int
	MinAge           int
}

// DefaultPolicy is the reference lending policy.
func DefaultPolicy() Policy {
	return Policy{
		MinMonthlyIncome: decimal.NewFromInt(500000),
		MaxDebtToIncome:  decimal.RequireFromString("0.4"),
		MinCreditScore:   600,
		MinAge:           18,
	}
}

// Decision is the diagnostic form of an evaluation.
type Decision struct {
	Eligible bool
	Failed   []Criterion
	// DebtToIncome is zero when income is not positive.
	DebtToIncome decimal.Decimal
}

// FailedNames returns the failed criteria as strings, for error details and logs.
func (d Decision) FailedNames() []string {
	names := make([]string, len(d.Failed))
	for i, c := range d.Failed {
		names[i] = string(c)
	}
	return names
}

// Evaluator applies a Policy. It holds no state besides the policy and is
// safe for concurrent use.
type Evaluator struct {
	policy Policy
}

func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Evaluate reports whether the applicant meets every criterion.
// It never fails; a non-positive income is ineligible.
func (e *Evaluator) Evaluate(income, debt decimal.Decimal, creditScore, age int) bool {
	return e.Assess(income, debt, creditScore, age).Eligible
}

// Assess evaluates every criterion and records the ones that failed.
func (e *Evaluator) Assess(income, debt decimal.Decimal, creditScore, age int) Decision {
	var d Decision

	if income.LessThan(e.policy.MinMonthlyIncome) {
		d.Failed = append(d.Failed, CriterionMinIncome)
	}

	// income is a divisor: a ratio against zero or negative income is
	// undefined and fails the criterion outright.
	if !income.IsPositive() {
		d.Failed = append(d.Failed, CriterionDebtToIncome)
	} else {
		d.DebtToIncome = debt.Div(income)
		if !d.DebtToIncome.LessThan(e.policy.MaxDebtToIncome) {
			d.Failed = append(d.Failed, CriterionDebtToIncome)
		}
	}

	if creditScore < e.policy.MinCreditScore {
		d.Failed = append(d.Failed, CriterionCreditScore)
	}
	if age < e.policy.MinAge {
		d.Failed = append(d.Failed, CriterionMinAge)
	}

	d.Eligible = len(d.Failed) == 0
	return d
}
