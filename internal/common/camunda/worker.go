package camunda

import (
	"sync"
	"time"

	"vehicle-financing/internal/common/config"
	"vehicle-financing/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandlerFunc matches the Handle method of every job worker.
type JobHandlerFunc func(client worker.JobClient, job entities.Job)

// WorkerManager opens job workers and closes them on shutdown.
type WorkerManager struct {
	client  zbc.Client
	log     logger.Logger
	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerManager(client zbc.Client, log logger.Logger) *WorkerManager {
	return &WorkerManager{
		client:  client,
		log:     log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Register opens a worker for taskType unless wcfg disables it. It reports
// whether a worker was opened.
func (m *WorkerManager) Register(taskType string, wcfg config.WorkerConfig, handler JobHandlerFunc) bool {
	if !wcfg.Enabled {
		m.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workers[taskType]; exists {
		m.log.Warn("worker already registered", map[string]interface{}{"taskType": taskType})
		return false
	}

	m.workers[taskType] = m.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	m.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// TaskTypes lists the registered task types.
func (m *WorkerManager) TaskTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.workers))
	for t := range m.workers {
		out = append(out, t)
	}
	return out
}

// Stop closes every worker, waiting for in-flight jobs up to timeout each.
func (m *WorkerManager) Stop(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for taskType, w := range m.workers {
		m.log.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		done := make(chan struct{})
		go func(w worker.JobWorker) {
			w.AwaitClose()
			close(done)
		}(w)
		select {
		case <-done:
		case <-time.After(timeout):
			m.log.Warn("worker did not stop in time", map[string]interface{}{"taskType": taskType})
		}
		delete(m.workers, taskType)
	}
}
