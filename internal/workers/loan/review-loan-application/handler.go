package reviewloanapplication

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"vehicle-financing/internal/common/errors"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/metrics"
	"vehicle-financing/internal/common/validation"
	"vehicle-financing/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "review-loan-application"

// LoanReviewer is satisfied by *loan.Lifecycle.
type LoanReviewer interface {
	UpdateStatus(ctx context.Context, loanID int64, status models.LoanStatus, comment string) (*models.Loan, error)
}

type Handler struct {
	config       *Config
	loans        LoanReviewer
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, loans LoanReviewer, validator *validation.Validator, log logger.Logger) *Handler {
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

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	if err := h.validator.Validate(validation.SchemaLoanReview, []byte(job.Variables)).Err(); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewValidationError("failed to parse job variables", err.Error())
	}
	input.Comments = strings.TrimSpace(input.Comments)
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	loan, err := h.loans.UpdateStatus(ctx, input.LoanID, models.LoanStatus(input.LoanStatus), input.Comments)
	if err != nil {
		return nil, err
	}

	h.logger.Info("loan reviewed", map[string]interface{}{
		"loanId": loan.ID,
		"status": string(loan.Status),
	})

	return &Output{
		LoanID:     loan.ID,
		LoanStatus: string(loan.Status),
		Comment:    loan.CommentText(),
		ReviewedAt: loan.UpdatedAt.UTC().Format(time.RFC3339),
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
