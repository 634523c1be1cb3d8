package api

import (
	"net/http"
	"time"

	"vehicle-financing/internal/common/auth"
	"vehicle-financing/internal/common/logger"
	"vehicle-financing/internal/common/observability"
	"vehicle-financing/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const requestIDHeader = "X-Request-ID"

// Authenticator resolves the caller of a request. *auth.TokenIssuer
// satisfies it.
type Authenticator interface {
	Authenticate(r *http.Request) (*auth.Principal, error)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestID propagates the caller's request ID or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// withObservability traces each request, records it in the request metrics
// and writes an access log line.
func withObservability(obs *observability.Observability, log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeTemplate(r)

			ctx, span := obs.Tracer().Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String("http.route", route)),
			)
			defer span.End()

			reqLog := log.WithFields(map[string]interface{}{
				"requestId": r.Header.Get(requestIDHeader),
				"traceId":   span.SpanContext().TraceID().String(),
			})
			ctx = logger.IntoContext(ctx, reqLog)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			elapsed := time.Since(start)
			span.SetAttributes(attribute.Int("http.status_code", rec.status))
			obs.RecordRequest(ctx, route, r.Method, rec.status, elapsed)

			reqLog.Info("http request", map[string]interface{}{
				"method":     r.Method,
				"route":      route,
				"status":     rec.status,
				"durationMs": elapsed.Milliseconds(),
			})
		})
	}
}

func routeTemplate(r *http.Request) string {
	if current := mux.CurrentRoute(r); current != nil {
		if tpl, err := current.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// requireRole authenticates the request and admits principals holding one
// of roles. No roles means any authenticated caller.
func requireRole(authn Authenticator, log logger.Logger, roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authn.Authenticate(r)
			if err != nil {
				respondError(w, logger.FromContext(r.Context(), log), err)
				return
			}
			if !principal.HasRole(roles...) {
				respondError(w, logger.FromContext(r.Context(), log), forbidden(principal))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
