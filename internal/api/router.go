// Package api serves the vehicle financing HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/observability"
	"vehicle-financing/internal/common/validation"
	"vehicle-financing/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auth          AuthService
	Authenticator Authenticator
	Vehicles      VehicleStore
	Valuations    ValuationSimulator
	History       ValuationHistory
	Loans         LoanService
	Validator     *validation.Validator
	Observability *observability.Observability
	Readiness     map[string]Pinger
	Logger        logger.Logger
}

// NewRouter wires the API routes, probes and /metrics.
func NewRouter(deps Deps) *mux.Router {
	obs := deps.Observability
	if obs == nil {
		obs = observability.NewNoop()
	}
	h := &Handlers{
		auth:       deps.Auth,
		vehicles:   deps.Vehicles,
		valuations: deps.Valuations,
		history:    deps.History,
		loans:      deps.Loans,
		validator:  deps.Validator,
		log:        deps.Logger,
		now:        time.Now,
	}

	r := mux.NewRouter()
	r.Use(withRequestID)

	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.Handle("/ready", readiness(deps.Readiness, deps.Logger)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(withObservability(obs, deps.Logger))

	v1.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	vehicles := v1.PathPrefix("/vehicles").Subrouter()
	vehicles.HandleFunc("", h.ListVehicles).Methods(http.MethodGet)
	vehicles.HandleFunc("/valuation", h.SimulateValuation).Methods(http.MethodGet)
	vehicles.Handle("/{id:[0-9]+}/valuations", guarded(deps, h.ListValuations, models.RoleDealer, models.RoleAdmin)).Methods(http.MethodGet)
	vehicles.Handle("", guarded(deps, h.CreateVehicle, models.RoleDealer, models.RoleAdmin)).Methods(http.MethodPost)

	loans := v1.PathPrefix("/loan").Subrouter()
	loans.Handle("/apply", guarded(deps, h.ApplyForLoan, models.RoleCustomer)).Methods(http.MethodPost)
	loans.Handle("/review", guarded(deps, h.ReviewLoan, models.RoleAdmin)).Methods(http.MethodPatch)

	return r
}

func guarded(deps Deps, fn http.HandlerFunc, roles ...models.Role) http.Handler {
	return requireRole(deps.Authenticator, deps.Logger, roles...)(fn)
}

func health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness pings every dependency and reports 503 when any is down.
func readiness(checks map[string]Pinger, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				log.Warn("readiness check failed", map[string]interface{}{"dependency": name, "error": err.Error()})
				result[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "up"
		}
		respondJSON(w, status, result)
	})
}
