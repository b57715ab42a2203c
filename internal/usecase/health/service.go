package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "healthy"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// Report aggregates component health for the health endpoint.
type Report struct {
	Backend     string            `json:"backend"`
	Status      Status            `json:"status"`
	Details     map[string]string `json:"details"`
	GDPREnabled bool              `json:"gdpr_enabled"`
}

// Service coordinates health checks.
type Service struct {
	backend     BackendChecker
	store       StorePinger
	gdprEnabled bool
}

// New creates a health service.
func New(backend BackendChecker, store StorePinger, gdprEnabled bool) *Service {
	return &Service{backend: backend, store: store, gdprEnabled: gdprEnabled}
}

// Check probes the backend and the shared store.
func (s *Service) Check(ctx context.Context) Report {
	details := make(map[string]string)
	status := Healthy

	if err := s.backend.HealthCheck(ctx); err != nil {
		details["backend"] = err.Error()
		status = Degraded
	} else {
		details["backend"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		details["store"] = err.Error()
		status = Degraded
	} else {
		details["store"] = "ok"
	}

	return Report{
		Backend:     s.backend.Name(),
		Status:      status,
		Details:     details,
		GDPREnabled: s.gdprEnabled,
	}
}
