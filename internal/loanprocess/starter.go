// Package loanprocess hands new loan applications to the Camunda loan review
// process and tells waiting instances about review decisions.
package loanprocess

import (
	"context"
	"strconv"

	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/core/loan"
)

const MessageLoanReviewed = "loan-reviewed"

// Engine is satisfied by *camunda.Client.
type Engine interface {
	StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)
	PublishMessage(ctx context.Context, name, correlationKey string, variables map[string]interface{}) error
}

// Starter implements loan.Notifier on top of the workflow engine.
type Starter struct {
	engine    Engine
	processID string
	log       logger.Logger
}

func NewStarter(engine Engine, processID string, log logger.Logger) *Starter {
	return &Starter{engine: engine, processID: processID, log: log}
}

// LoanSubmitted starts one review instance per application.
func (s *Starter) LoanSubmitted(ctx context.Context, event loan.Event) error {
	if event.Loan == nil {
		return nil
	}
	key, err := s.engine.StartProcess(ctx, s.processID, Variables(event))
	if err != nil {
		return err
	}
	s.log.Info("loan review process started", map[string]interface{}{
		"loanId":             event.Loan.ID,
		"processId":          s.processID,
		"processInstanceKey": key,
	})
	return nil
}

// LoanStatusChanged publishes the decision, correlated by loan ID.
func (s *Starter) LoanStatusChanged(ctx context.Context, event loan.Event) error {
	if event.Loan == nil {
		return nil
	}
	return s.engine.PublishMessage(ctx, MessageLoanReviewed, strconv.FormatInt(event.Loan.ID, 10), Variables(event))
}

// Variables is the process variable set for a loan event. Amounts travel as
// strings so no precision is lost in JSON.
func Variables(event loan.Event) map[string]interface{} {
	l := event.Loan
	vars := map[string]interface{}{
		"loanId":          l.ID,
		"vehicleId":       l.VehicleID,
		"userId":          l.UserID,
		"amountRequested": l.AmountRequested.StringFixed(2),
		"status":          string(l.Status),
		"applicationDate": l.ApplicationDate.Format("2006-01-02"),
	}
	if l.Comment != nil {
		vars["comment"] = *l.Comment
	}
	if event.Vehicle != nil {
		vars["vin"] = event.Vehicle.VIN
	}
	if event.User != nil {
		vars["username"] = event.User.Username
	}
	return vars
}
