package metrics

import (
	"time"

	apperrors "vehicle-financing/internal/common/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "financing_worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	LoanApplications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_loan_applications_total",
			Help: "Loan applications by outcome",
		},
		[]string{"outcome"},
	)

	LoanStatusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_loan_status_updates_total",
			Help: "Loan review decisions by resulting status and outcome",
		},
		[]string{"status", "outcome"},
	)

	Valuations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_valuations_total",
			Help: "Valuation simulations by outcome",
		},
		[]string{"outcome"},
	)

	VINLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "financing_vin_lookups_total",
			Help: "VIN attribute lookups by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	VINLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "financing_vin_lookup_duration_seconds",
			Help:    "Latency of upstream VIN lookups",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

// Outcome labels an operation result by error kind.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindIneligible:
		return "ineligible"
	case apperrors.KindUpstreamFailure:
		return "upstream_failure"
	case apperrors.KindValidationFailure:
		return "invalid"
	case apperrors.KindConflict:
		return "conflict"
	}
	return "error"
}

func RecordLoanApplication(err error) {
	LoanApplications.WithLabelValues(Outcome(err)).Inc()
}

func RecordLoanStatusUpdate(status string, err error) {
	LoanStatusUpdates.WithLabelValues(status, Outcome(err)).Inc()
}

func RecordValuation(err error) {
	Valuations.WithLabelValues(Outcome(err)).Inc()
}

func RecordVINLookup(source string, err error, elapsed time.Duration) {
	outcome := Outcome(err)
	VINLookups.WithLabelValues(source, outcome).Inc()
	if source == "upstream" {
		VINLookupDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

// RecordJob records a finished Zeebe job.
func RecordJob(taskType string, err error, elapsed time.Duration) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
	if err == nil {
		WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		return
	}
	code := string(apperrors.ErrCodeInternal)
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		code = string(stdErr.Code)
	}
	WorkerJobsFailed.WithLabelValues(taskType, code).Inc()
}
