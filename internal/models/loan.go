package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the review state of a loan application.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusApproved LoanStatus = "approved"
	LoanStatusRejected LoanStatus = "rejected"
)

// Valid reports whether s is one of the persisted statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether a review decision has been made.
func (s LoanStatus) Terminal() bool {
	return s == LoanStatusApproved || s == LoanStatusRejected
}

// LoanApplicationRequest is the transient input to loan creation.
type LoanApplicationRequest struct {
	VehicleID       int64           `json:"vehicleId"`
	UserID          int64           `json:"userId"`
	AmountRequested decimal.Decimal `json:"amountRequested"`
	MonthlyIncome   decimal.Decimal `json:"monthlyIncome"`
	MonthlyDebt     decimal.Decimal `json:"monthlyDebt"`
	CreditScore     int             `json:"creditScore"`
	Age             int             `json:"age"`
}

// Loan is a persisted loan application.
type Loan struct {
	ID              int64           `json:"id"`
	VehicleID       int64           `json:"vehicleId"`
	UserID          int64           `json:"userId"`
	AmountRequested decimal.Decimal `json:"amountRequested"`
	Status          LoanStatus      `json:"status"`
	ApplicationDate time.Time       `json:"applicationDate"`
	Comment         *string         `json:"comment,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CommentText returns the review comment or "" when none was given.
func (l *Loan) CommentText() string {
	if l.Comment == nil {
		return ""
	}
	return *l.Comment
}
