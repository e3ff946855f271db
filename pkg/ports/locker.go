package ports

import (
	"context"
	"strconv"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes writers of the same entity across processes
// sharing one LogStore. Within a process the session manager already
// guarantees a single writer per entity.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after ttl
	// if the holder dies. The returned UnlockFunc MUST be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// EntityLockKey is the DistributedLocker key guarding an entity's log.
func EntityLockKey(entityID int) string {
	return "entity:" + strconv.Itoa(entityID)
}
