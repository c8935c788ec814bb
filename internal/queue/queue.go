// Package queue implements the named-queue worker runtime described in
// §4.6: evaluate, notify, heartbeat, and outbox queues, each with an
// independently sized worker pool, backed by Redis lists for
// at-least-once redelivery across restarts — unfinished tasks are
// reclaimed and re-enqueued on the next boot rather than dropped.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pulsegrid:queue:"

// Queue is a single named work queue backed by two Redis lists: the main
// list work is popped from, and a processing list items are parked in
// between pop and ack so a crashed worker's in-flight items can be
// reclaimed on the next boot.
type Queue struct {
	rdb  *redis.Client
	name string
}

func newQueue(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name}
}

func (q *Queue) mainKey() string       { return keyPrefix + q.name }
func (q *Queue) processingKey() string { return keyPrefix + q.name + ":processing" }

// push encodes v as JSON and appends it to the queue.
func (q *Queue) push(ctx context.Context, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s task: %w", q.name, err)
	}
	return q.rdb.LPush(ctx, q.mainKey(), payload).Err()
}

// pop blocks up to timeout for the next item, atomically moving it into the
// processing list. A timeout with nothing available returns redis.Nil.
func (q *Queue) pop(ctx context.Context, timeout time.Duration) (string, error) {
	return q.rdb.BRPopLPush(ctx, q.mainKey(), q.processingKey(), timeout).Result()
}

// ack removes one copy of payload from the processing list after it has
// been handled (successfully or not — a handler error is logged, not
// retried indefinitely; there's no dead-letter queue here).
func (q *Queue) ack(ctx context.Context, payload string) error {
	return q.rdb.LRem(ctx, q.processingKey(), 1, payload).Err()
}

// reclaim moves every item stranded in the processing list (left behind by
// a worker that crashed between pop and ack) back onto the main queue, for
// at-least-once redelivery on boot.
func (q *Queue) reclaim(ctx context.Context) error {
	for {
		_, err := q.rdb.RPopLPush(ctx, q.processingKey(), q.mainKey()).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reclaiming %s queue: %w", q.name, err)
		}
	}
}

// depth reports the current length of the main list, for telemetry.
func (q *Queue) depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.mainKey()).Result()
}
