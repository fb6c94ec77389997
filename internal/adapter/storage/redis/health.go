package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	heartbeatKey = keyPrefix + "health"
	heartbeatTTL = 30 * time.Second
)

// HealthCheck implements ports.HealthChecker for Redis. Idempotency
// reservations and rate-limit counters need writes, so a read-only replica
// counts as unhealthy.
type HealthCheck struct {
	client goredis.Cmdable
	now    func() time.Time
}

func NewHealthCheck(client goredis.Cmdable) *HealthCheck {
	return &HealthCheck{client: client, now: time.Now}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Set(ctx, heartbeatKey, h.now().Unix(), heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("redis heartbeat write: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "redis"
}
