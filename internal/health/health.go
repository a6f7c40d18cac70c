// Package health aggregates component liveness checks for the /health
// endpoint.
package health

import "context"

// Checker probes one component.
type Checker interface {
	Ping(ctx context.Context) error
}

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates named health checks. The search engine is deliberately
// not probed here: its handle is lazy and a health poll must not force dials.
type Service struct {
	checkers map[string]Checker
}

// New creates a Service.
func New() *Service {
	return &Service{checkers: make(map[string]Checker)}
}

// With adds a named checker. Nil checkers are ignored.
func (s *Service) With(name string, c Checker) *Service {
	if c != nil {
		s.checkers[name] = c
	}
	return s
}

// Check runs all registered checks.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checkers))

	status := Healthy
	for name, c := range s.checkers {
		if err := c.Ping(ctx); err != nil {
			checks[name] = CheckError
			status = Degraded
		} else {
			checks[name] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
