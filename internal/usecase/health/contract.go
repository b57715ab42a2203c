package health

import "context"

// BackendChecker checks search backend availability.
type BackendChecker interface {
	Name() string
	HealthCheck(ctx context.Context) error
}

// StorePinger checks cache/metric store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}
