package ports

import "context"

//go:generate mockgen -source=health.go -destination=mocks/mock_health.go -package=mocks

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	// Ping returns nil when the dependency is healthy.
	Ping(ctx context.Context) error
	// Name identifies the dependency in health output ("postgresql", "redis", "memory").
	Name() string
}
