package guard

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
)

// StateFunc resolves the session state behind a request.
type StateFunc func(r *http.Request) session.State

type decisionContextKey struct{}

// DecisionFromContext returns the render decision attached by Middleware.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   errorBody `json:"error"`
}

// denial maps a non-render decision to an HTTP status and envelope.
func denial(d Decision) (int, errorEnvelope) {
	switch d.Outcome {
	case OutcomeBoot:
		return http.StatusServiceUnavailable, errorEnvelope{Error: errorBody{
			Code:    "SESSION_INITIALIZING",
			Message: "session is still initializing",
		}}
	default:
		return http.StatusForbidden, errorEnvelope{Error: errorBody{
			Code:    "FORBIDDEN",
			Message: "access denied",
			Details: map[string]any{
				"reason":   d.Reason,
				"required": d.Required,
				"current":  d.Current,
			},
		}}
	}
}

// Middleware gates requests whose path matches table. Unmatched paths pass
// through unguarded so health checks, metrics and static files can share the
// router; [Guard.Evaluate] instead treats an unknown path as a page that
// needs a signed-in user. Redirects use 302, forbidden responses 403 and an
// uninitialized session 503, the latter two with a JSON error envelope.
func Middleware(table *Table, resolver *permission.Resolver, state StateFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := table.Match(r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			var st session.State
			if state != nil {
				st = state(r)
			}
			d := Evaluate(st, route, r.URL.RequestURI(), resolver)

			switch d.Outcome {
			case OutcomeRender:
				ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
				next.ServeHTTP(w, r.WithContext(ctx))
			case OutcomeRedirect:
				http.Redirect(w, r, d.Location, http.StatusFound)
			default:
				status, body := denial(d)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(body)
			}
		})
	}
}
