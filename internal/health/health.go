// Package health provides the HTTP liveness and readiness handlers of the
// scribe server.
//
//   - /healthz is the liveness probe and always returns 200 OK.
//   - /readyz is the readiness probe. It runs every registered [Checker]
//     concurrently and returns 200 unless a required check fails.
//
// Responses are JSON objects with a top-level "status" field ("ok",
// "degraded" or "fail") and a "checks" map with the result of each checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// ErrDegraded is returned by [DegradedChecker] while persistence runs in
// degraded mode.
var ErrDegraded = errors.New("persistence degraded; edits are kept in memory only")

// Checker is a named readiness check.
type Checker struct {
	// Name appears as a key in the JSON response, e.g. "storage".
	Name string

	// Check probes the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error

	// Optional checks report "warn: ..." on failure and turn the overall
	// status into "degraded" without failing the probe.
	Optional bool
}

// Pinger is implemented by every persistence gateway.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Degrader is implemented by the persistence guard.
type Degrader interface {
	IsDegraded() bool
}

// StorageChecker returns a required check that pings the storage backend.
func StorageChecker(p Pinger) Checker {
	return Checker{Name: "storage", Check: p.Ping}
}

// DegradedChecker returns an optional check that warns while the storage
// guard is swallowing persistence errors.
func DegradedChecker(d Degrader) Checker {
	return Checker{
		Name:     "persistence",
		Optional: true,
		Check: func(context.Context) error {
			if d.IsDegraded() {
				return ErrDegraded
			}
			return nil
		},
	}
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] evaluating checkers on each /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs all checkers concurrently, each bounded by [checkTimeout].
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	errs := make([]error, len(h.checkers))

	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			errs[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	res := result{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK
	for i, c := range h.checkers {
		switch {
		case errs[i] == nil:
			res.Checks[c.Name] = "ok"
		case c.Optional:
			res.Checks[c.Name] = "warn: " + errs[i].Error()
			if res.Status == "ok" {
				res.Status = "degraded"
			}
		default:
			res.Checks[c.Name] = "fail: " + errs[i].Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		}
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
