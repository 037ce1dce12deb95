package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "healthgate/pkg/domain"
)

// DefaultTTL bounds staleness for cached activity checks. Mutations
// invalidate eagerly; the TTL is a backstop for missed invalidations
// (e.g. a competing instance without pub/sub).
const DefaultTTL = 30 * time.Second

// Redis caches consent-activity answers per (patient, doctor) pair.
// Best-effort by design: any Redis failure degrades to a store lookup,
// never to a wrong answer.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func key(patientID id.PatientID, doctorID id.DoctorID) string {
	return "consent:active:" + patientID.String() + ":" + doctorID.String()
}

// Get returns the cached answer for the pair, with ok=false on miss or error.
func (c *Redis) Get(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) (bool, bool) {
	val, err := c.client.Get(ctx, key(patientID, doctorID)).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		c.warn(ctx, "consent cache read failed", err)
		return false, false
	}
	return val == "1", true
}

// Set stores the answer for the pair with the configured TTL.
func (c *Redis) Set(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID, active bool) {
	val := "0"
	if active {
		val = "1"
	}
	if err := c.client.Set(ctx, key(patientID, doctorID), val, c.ttl).Err(); err != nil {
		c.warn(ctx, "consent cache write failed", err)
	}
}

// Invalidate drops the cached answer for the pair. Called on every consent
// mutation so revocations are visible on the next check.
func (c *Redis) Invalidate(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) {
	if err := c.client.Del(ctx, key(patientID, doctorID)).Err(); err != nil {
		c.warn(ctx, "consent cache invalidation failed", err)
	}
}

func (c *Redis) warn(ctx context.Context, msg string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, "error", err.Error())
	}
}
