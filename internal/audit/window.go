package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultFailureWindow is the rolling window for repeated-failure counts.
const DefaultFailureWindow = 15 * time.Minute

// FailureWindow tracks failed attempts per actor+IP inside a rolling
// window, and which source IPs have been seen for each actor. Counters
// use redis INCR, so concurrent failures from the same source never lose
// counts.
type FailureWindow struct {
	client *redis.Client
	window time.Duration
}

// NewFailureWindow constructs a window over the given redis client.
func NewFailureWindow(client *redis.Client, window time.Duration) *FailureWindow {
	if window <= 0 {
		window = DefaultFailureWindow
	}
	return &FailureWindow{client: client, window: window}
}

// Failures returns the failed-attempt count for the actor+IP pair within
// the current window.
func (f *FailureWindow) Failures(ctx context.Context, actorID int64, ip string) (int64, error) {
	n, err := f.client.Get(ctx, f.failureKey(actorID, ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// RecordFailure atomically increments the failure count, starting the
// window on the first failure.
func (f *FailureWindow) RecordFailure(ctx context.Context, actorID int64, ip string) (int64, error) {
	key := f.failureKey(actorID, ip)
	n, err := f.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := f.client.Expire(ctx, key, f.window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// ObserveIP records the source IP for the actor and reports whether it
// was first-seen. The set has no expiry: novelty is per actor lifetime.
func (f *FailureWindow) ObserveIP(ctx context.Context, actorID int64, ip string) (bool, error) {
	if ip == "" {
		return false, nil
	}
	added, err := f.client.SAdd(ctx, f.ipSetKey(actorID), ip).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

func (f *FailureWindow) failureKey(actorID int64, ip string) string {
	return fmt.Sprintf("audit:failures:%s:%s", actorKey(actorID), ipKey(ip))
}

func (f *FailureWindow) ipSetKey(actorID int64) string {
	return "audit:ips:" + actorKey(actorID)
}

func actorKey(actorID int64) string {
	if actorID == 0 {
		return "anon"
	}
	return fmt.Sprintf("%d", actorID)
}

func ipKey(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}
