package ports

import "context"

// HealthChecker is a dependency the readiness probe can ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
