package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/blacklist-api/internal/pkg/httputil"
	"github.com/ignite/blacklist-api/internal/pkg/logger"
)

// MsgAPIRunning is the fixed liveness response message.
const MsgAPIRunning = "API running"

// MsgUnreachable is reported for a dependency whose ping failed.
const MsgUnreachable = "unreachable"

// ComponentCheck represents the health of a single dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// PingFunc probes one dependency.
type PingFunc func(ctx context.Context) error

type probe struct {
	name     string
	ping     PingFunc
	timeout  time.Duration
	slowOver time.Duration
}

// HealthChecker serves liveness and readiness probes. Liveness never touches
// a dependency; readiness pings every registered one.
type HealthChecker struct {
	probes []probe
}

// NewHealthChecker creates a checker with no dependencies registered.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// AddCheck registers a dependency for the readiness probe. A response slower
// than slowOver reports "degraded".
func (hc *HealthChecker) AddCheck(name string, ping PingFunc, timeout, slowOver time.Duration) {
	hc.probes = append(hc.probes, probe{name: name, ping: ping, timeout: timeout, slowOver: slowOver})
}

// HandleLiveness always returns 200 while the process is serving.
//
//	GET /health/
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"message": MsgAPIRunning})
}

// HandleReadiness returns 200 only when every dependency answers.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	ready := true
	for _, c := range checks {
		if c.Status == "down" {
			ready = false
		}
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	// Run checks concurrently for minimal total latency.
	ch := make(chan result, len(hc.probes))
	for _, p := range hc.probes {
		go func(p probe) { ch <- result{p.name, runProbe(ctx, p)} }(p)
	}

	checks := make(map[string]ComponentCheck, len(hc.probes))
	for range hc.probes {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func runProbe(ctx context.Context, p probe) ComponentCheck {
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		// The endpoint is unauthenticated; driver errors stay in the log.
		logger.Warn("readiness check failed",
			"component", p.name,
			"latency", latency.String(),
			"error", err,
		)
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: MsgUnreachable,
		}
	}
	if p.slowOver > 0 && latency > p.slowOver {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}
