package createloanapplication

import (
	"vehicle-financing/internal/models"

	"github.com/shopspring/decimal"
)

type Input struct {
	VehicleID       int64           `json:"vehicleId"`
	UserID          int64           `json:"userId"`
	AmountRequested decimal.Decimal `json:"amountRequested"`
	MonthlyIncome   decimal.Decimal `json:"monthlyIncome"`
	MonthlyDebt     decimal.Decimal `json:"monthlyDebt"`
	CreditScore     int             `json:"creditScore"`
	Age             int             `json:"age"`
}

func (in *Input) request() models.LoanApplicationRequest {
	return models.LoanApplicationRequest{
		VehicleID:       in.VehicleID,
		UserID:          in.UserID,
		AmountRequested: in.AmountRequested,
		MonthlyIncome:   in.MonthlyIncome,
		MonthlyDebt:     in.MonthlyDebt,
		CreditScore:     in.CreditScore,
		Age:             in.Age,
	}
}

type Output struct {
	LoanID          int64  `json:"loanId"`
	LoanStatus      string `json:"loanStatus"`
	AmountRequested string `json:"amountRequested"`
	ApplicationDate string `json:"applicationDate"` // YYYY-MM-DD
}
