// Package health serves liveness and readiness probes for the voice server.
//
// /healthz reports liveness: a process that can answer HTTP is alive.
// /readyz runs every registered [Checker] and reports 200 only when all of
// them pass, so an orchestrator will not route traffic to an instance whose
// microphone or synthesis backend is gone.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds each readiness check individually.
const checkTimeout = 5 * time.Second

// Checker probes one dependency. Check returns nil when healthy and must
// respect context cancellation.
type Checker struct {
	// Name keys the check's entry in the readiness response.
	Name string

	Check func(ctx context.Context) error
}

// checkResult is one check's entry in the readiness response body.
type checkResult struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// response is the body served by both probes.
type response struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler serves the two probe endpoints. The checker set is fixed at
// construction; the handler itself is stateless and safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler over the given checkers.
func New(checkers ...Checker) *Handler {
	h := &Handler{checkers: make([]Checker, len(checkers))}
	copy(h.checkers, checkers)
	return h
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz runs all checkers concurrently, each under its own timeout, and
// answers 503 if any of them fails. Checks are independent probes of
// independent devices, so one slow backend does not delay the others.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	results := make([]checkResult, len(h.checkers))

	g, ctx := errgroup.WithContext(r.Context())
	for i, c := range h.checkers {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			if err := c.Check(checkCtx); err != nil {
				results[i] = checkResult{Error: err.Error()}
			} else {
				results[i] = checkResult{Healthy: true}
			}
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors

	resp := response{Status: "ok", Checks: make(map[string]checkResult, len(h.checkers))}
	status := http.StatusOK
	for i, c := range h.checkers {
		resp.Checks[c.Name] = results[i]
		if !results[i].Healthy {
			resp.Status = "fail"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body) //nolint:errcheck // nothing to do about a failed write
}
