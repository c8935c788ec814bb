package notifier

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockPrefix = "notify:lock:"

// lockTTL bounds how long a single-flight lock can be held, well above any
// expected send latency, so a crashed worker can't wedge a subject forever.
const lockTTL = 20 * time.Second

// acquireLock takes a per-subject single-flight lock so two workers racing
// on the same notify intent (e.g. a reminder firing while an open intent is
// still in flight) don't double-send, per §4.5/§5.
func acquireLock(ctx context.Context, rdb *redis.Client, subjectKey string) (bool, error) {
	ok, err := rdb.SetNX(ctx, lockPrefix+subjectKey, "1", lockTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func releaseLock(ctx context.Context, rdb *redis.Client, subjectKey string) {
	rdb.Del(ctx, lockPrefix+subjectKey)
}

// reminderInterval resolves the reminder cooldown per §4.5's three-tier
// fallback: per-client setting, then the deployment-wide default, then a
// hardcoded floor so a misconfigured client never gets paged every tick.
func reminderInterval(clientSeconds, defaultMinutes int) time.Duration {
	if clientSeconds > 0 {
		return time.Duration(clientSeconds) * time.Second
	}
	if defaultMinutes > 0 {
		return time.Duration(defaultMinutes) * time.Minute
	}
	return 30 * time.Minute
}

// cooldownElapsed reports whether enough time has passed since the last
// successful send for a reminder to go out now.
func cooldownElapsed(lastSuccess *time.Time, interval time.Duration, now time.Time) bool {
	if lastSuccess == nil {
		return true
	}
	return now.Sub(*lastSuccess) >= interval
}
