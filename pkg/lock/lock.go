// Package lock provides a per-workstream advisory lock. The engine assumes
// a single invoker at a time per workstream and provides no mutual exclusion
// of its own; API and advancer processes take this lock around each
// advance or resume call.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when releasing or extending a lock owned by
// someone else, or one that already expired.
var ErrNotHeld = errors.New("lock not held")

const keyPrefix = "playrun:workstream-lock:"

// unlockScript releases the key only when the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript refreshes the TTL only when the caller still owns the key.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

type WorkstreamLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// Lease is one held lock. Release or Extend with the same lease only.
type Lease struct {
	locker       *WorkstreamLocker
	workstreamID string
	owner        string
}

func NewWorkstreamLocker(client redis.UniversalClient, ttl time.Duration) *WorkstreamLocker {
	return &WorkstreamLocker{
		client: client,
		ttl:    ttl,
	}
}

// Acquire attempts to take the workstream's lock. Returns a nil lease when
// another invoker currently holds it.
func (l *WorkstreamLocker) Acquire(ctx context.Context, workstreamID string) (*Lease, error) {
	owner := uuid.NewString()

	ok, err := l.client.SetNX(ctx, keyPrefix+workstreamID, owner, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring workstream lock: %w", err)
	}

	if !ok {
		return nil, nil
	}

	return &Lease{
		locker:       l,
		workstreamID: workstreamID,
		owner:        owner,
	}, nil
}

// Release frees the lock. ErrNotHeld when the lease expired and was taken
// over by another invoker.
func (lease *Lease) Release(ctx context.Context) error {
	deleted, err := unlockScript.Run(ctx, lease.locker.client,
		[]string{keyPrefix + lease.workstreamID}, lease.owner).Int()
	if err != nil {
		return fmt.Errorf("releasing workstream lock: %w", err)
	}

	if deleted == 0 {
		return ErrNotHeld
	}

	return nil
}

// Extend refreshes the lease TTL for long-running advances.
func (lease *Lease) Extend(ctx context.Context) error {
	extended, err := extendScript.Run(ctx, lease.locker.client,
		[]string{keyPrefix + lease.workstreamID},
		lease.owner, lease.locker.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extending workstream lock: %w", err)
	}

	if extended == 0 {
		return ErrNotHeld
	}

	return nil
}
