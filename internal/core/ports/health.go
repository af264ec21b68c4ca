package ports

import "context"

//go:generate mockgen -source=health.go -destination=mocks/health_mock.go -package=mocks

// HealthChecker reports whether a backing store is usable. Name keys the
// entry in the /health response.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
