// Package loan creates loan applications after eligibility screening and
// records review decisions on them.
package loan

import (
	"context"
	"fmt"
	"time"

	apperrors "vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/metrics"
	"vehicle-financing/internal/core/eligibility"
	"vehicle-financing/internal/models"

	"github.com/shopspring/decimal"
)

type VehicleRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Vehicle, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type LoanRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Loan, error)
	Save(ctx context.Context, loan *models.Loan) (*models.Loan, error)
}

// Evaluator screens an applicant. *eligibility.Evaluator satisfies it.
type Evaluator interface {
	Assess(income, debt decimal.Decimal, creditScore, age int) eligibility.Decision
}

// Event describes a loan change for notifiers. Vehicle and User may be nil
// when they could not be resolved.
type Event struct {
	Loan    *models.Loan
	Vehicle *models.Vehicle
	User    *models.User
}

// Notifier is told about loan changes after they are persisted. Its errors
// are logged and never fail the operation that triggered them.
type Notifier interface {
	LoanSubmitted(ctx context.Context, event Event) error
	LoanStatusChanged(ctx context.Context, event Event) error
}

// Lifecycle coordinates loan creation and review. It keeps no state between
// calls; concurrent UpdateStatus calls on one loan are last-write-wins.
type Lifecycle struct {
	vehicles   VehicleRepository
	users      UserRepository
	loans      LoanRepository
	evaluator  Evaluator
	notifiers  []Notifier
	transition TransitionPolicy
	now        func() time.Time
	log        logger.Logger
}

type Option func(*Lifecycle)

func WithNotifier(n Notifier) Option {
	return func(l *Lifecycle) { l.notifiers = append(l.notifiers, n) }
}

func WithTransitionPolicy(p TransitionPolicy) Option {
	return func(l *Lifecycle) { l.transition = p }
}

func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

func NewLifecycle(vehicles VehicleRepository, users UserRepository, loans LoanRepository, evaluator Evaluator, log logger.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		vehicles:   vehicles,
		users:      users,
		loans:      loans,
		evaluator:  evaluator,
		transition: Unrestricted,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create resolves the vehicle and user, screens the applicant and records a
// pending application. Eligibility is never evaluated for a request whose
// vehicle or user does not exist.
func (l *Lifecycle) Create(ctx context.Context, req models.LoanApplicationRequest) (_ *models.Loan, err error) {
	defer func() { metrics.RecordLoanApplication(err) }()

	vehicle, err := l.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, apperrors.NewVehicleNotFoundError(fmt.Sprintf("vehicleId: %d", req.VehicleID))
	}

	user, err := l.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewUserNotFoundError(fmt.Sprintf("userId: %d", req.UserID))
	}

	decision := l.evaluator.Assess(req.MonthlyIncome, req.MonthlyDebt, req.CreditScore, req.Age)
	if !decision.Eligible {
		l.log.Info("Applicant not eligible", map[string]interface{}{
			"userId":    req.UserID,
			"vehicleId": req.VehicleID,
			"failed":    decision.FailedNames(),
		})
		return nil, apperrors.NewApplicantNotEligibleError(decision.FailedNames())
	}

	now := l.now().UTC()
	saved, err := l.loans.Save(ctx, &models.Loan{
		VehicleID:       vehicle.ID,
		UserID:          user.ID,
		AmountRequested: req.AmountRequested.RoundBank(2),
		Status:          models.LoanStatusPending,
		ApplicationDate: truncateToDate(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("Loan application created", map[string]interface{}{
		"loanId":    saved.ID,
		"userId":    saved.UserID,
		"vehicleId": saved.VehicleID,
	})

	event := Event{Loan: saved, Vehicle: vehicle, User: user}
	for _, n := range l.notifiers {
		if err := n.LoanSubmitted(ctx, event); err != nil {
			l.log.Warn("Loan submission notification failed", map[string]interface{}{
				"loanId": saved.ID,
				"error":  err.Error(),
			})
		}
	}

	return saved, nil
}

// UpdateStatus records a review decision. An empty comment clears it.
func (l *Lifecycle) UpdateStatus(ctx context.Context, loanID int64, status models.LoanStatus, comment string) (_ *models.Loan, err error) {
	defer func() { metrics.RecordLoanStatusUpdate(string(status), err) }()

	if !status.Valid() {
		return nil, apperrors.NewInvalidLoanStatusError(string(status))
	}

	loan, err := l.loans.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, apperrors.NewLoanNotFoundError(fmt.Sprintf("loanId: %d", loanID))
	}

	if !l.transition(loan.Status, status) {
		return nil, apperrors.NewInvalidStatusTransitionError(string(loan.Status), string(status))
	}

	previous := loan.Status
	loan.Status = status
	loan.Comment = nil
	if comment != "" {
		loan.Comment = &comment
	}
	loan.UpdatedAt = l.now().UTC()

	saved, err := l.loans.Save(ctx, loan)
	if err != nil {
		return nil, err
	}

	l.log.Info("Loan status updated", map[string]interface{}{
		"loanId": saved.ID,
		"from":   string(previous),
		"to":     string(saved.Status),
	})

	if len(l.notifiers) > 0 {
		event := l.resolveEvent(ctx, saved)
		for _, n := range l.notifiers {
			if err := n.LoanStatusChanged(ctx, event); err != nil {
				l.log.Warn("Loan status notification failed", map[string]interface{}{
					"loanId": saved.ID,
					"error":  err.Error(),
				})
			}
		}
	}

	return saved, nil
}

// resolveEvent loads the loan's user and vehicle for notifiers. Lookup
// failures leave the field nil.
func (l *Lifecycle) resolveEvent(ctx context.Context, loan *models.Loan) Event {
	event := Event{Loan: loan}
	if vehicle, err := l.vehicles.FindByID(ctx, loan.VehicleID); err == nil {
		event.Vehicle = vehicle
	}
	if user, err := l.users.FindByID(ctx, loan.UserID); err == nil {
		event.User = user
	}
	return event
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
