package createloanapplication

import (
	"context"
	"encoding/json"
	"time"

	"vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/metrics"
	"vehicle-financing/internal/common/validation"
	"vehicle-financing/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "create-loan-application"

// LoanCreator is satisfied by *loan.Lifecycle.
type LoanCreator interface {
	Create(ctx context.Context, req models.LoanApplicationRequest) (*models.Loan, error)
}

type Handler struct {
	config       *Config
	loans        LoanCreator
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, loans LoanCreator, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		loans:        loans,
		validator:    validator,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job)
	metrics.RecordJob(TaskType, err, time.Since(start))
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.execute(ctx, input)
}

// parseInput validates the process variables before decoding them. The
// user must be named explicitly; there is no caller identity on a job.
func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	if err := h.validator.Validate(validation.SchemaLoanApplication, []byte(job.Variables)).Err(); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewValidationError("failed to parse job variables", err.Error())
	}
	if input.UserID <= 0 {
		return nil, errors.NewValidationError("request validation failed", "userId: userId is required")
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	loan, err := h.loans.Create(ctx, input.request())
	if err != nil {
		return nil, err
	}

	h.logger.Info("loan application created", map[string]interface{}{
		"loanId":    loan.ID,
		"vehicleId": loan.VehicleID,
		"userId":    loan.UserID,
	})

	return &Output{
		LoanID:          loan.ID,
		LoanStatus:      string(loan.Status),
		AmountRequested: loan.AmountRequested.StringFixed(2),
		ApplicationDate: loan.ApplicationDate.Format("2006-01-02"),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
