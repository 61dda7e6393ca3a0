// Package health provides the HTTP liveness and readiness endpoints for
// soundcheck.
//
//   - /healthz — liveness; a process that serves HTTP is alive, so this
//     always returns 200.
//   - /readyz  — readiness; 200 only when every registered [Checker]
//     passes. For soundcheck that means the speech synthesizer subprocess
//     works and the gateway connection is up — a bot that cannot announce
//     recordings must not be considered ready, because the announcement
//     gates every recording.
//
// Responses are JSON: {"status": "ok"|"fail", "checks": {name: result}}.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrWong99/soundcheck/pkg/synth"
)

// checkTimeout bounds each individual readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is healthy; it must respect context cancellation.
type Checker struct {
	// Name keys the check's result in the JSON response.
	Name string

	// Check probes the dependency.
	Check func(ctx context.Context) error
}

// SynthChecker probes the speech synthesizer. Probing runs the synthesizer
// subprocess on a short fixed text and requires non-empty output.
func SynthChecker(p synth.Provider) Checker {
	return Checker{Name: "synth", Check: p.Probe}
}

// GatewayChecker reports whether the chat gateway connection is established.
func GatewayChecker(connected func() bool) Checker {
	return Checker{
		Name: "gateway",
		Check: func(_ context.Context) error {
			if !connected() {
				return errors.New("gateway connection not established")
			}
			return nil
		},
	}
}

// result is the JSON response body.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints. The checker list is
// fixed at construction time, so the handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates the given checkers, in order, on
// each /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every registered [Checker] passes. Each check
// runs with a [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ready = false
			continue
		}
		checks[c.Name] = "ok"
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
