// Package simulatevaluation values a registered vehicle from a process step.
// A failed VIN lookup is failed with retries; an unknown VIN is thrown as a
// BPMN error.
package simulatevaluation

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

const TaskType = "simulate-vehicle-valuation"

// Simulator is satisfied by *valuation.Service.
type Simulator interface {
	Simulate(ctx context.Context, vin string) (*models.Valuation, error)
}

type Handler struct {
	config       *Config
	valuations   Simulator
	validator    *validation.Validator
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, valuations Simulator, validator *validation.Validator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		valuations:   valuations,
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

	var output *Output
	input, err := h.parseInput(job)
	if err == nil {
		output, err = h.execute(ctx, input)
	}
	metrics.RecordJob(TaskType, err, time.Since(start))
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
	}
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	if err := h.validator.Validate(validation.SchemaValuation, []byte(job.Variables)).Err(); err != nil {
		return nil, err
	}
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewValidationError("failed to parse job variables", err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	v, err := h.valuations.Simulate(ctx, models.NormalizeVIN(input.VIN))
	if err != nil {
		return nil, err
	}
	return &Output{
		ValuationID:     v.ID,
		VehicleID:       v.VehicleID,
		VIN:             v.VIN,
		Manufacturer:    v.Manufacturer,
		Model:           v.Model,
		Year:            v.Year,
		Class:           v.Class,
		ValuationAmount: v.ValuationAmount.StringFixed(2),
		ValuationDate:   v.ValuationDate.UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
