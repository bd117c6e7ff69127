package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the search backend works but the cache does not.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	SearchBackend = "search_backend"
	Cache         = "cache"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	backend Pinger
	cache   Pinger
}

// New creates a Service. cache can be nil.
func New(backend, cache Pinger) *Service {
	return &Service{backend: backend, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{SearchBackend: probe(ctx, s.backend)}
	if s.cache != nil {
		checks[Cache] = probe(ctx, s.cache)
	}

	status := Healthy
	switch {
	case checks[SearchBackend] == CheckError:
		status = Unhealthy
	case checks[Cache] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func probe(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
