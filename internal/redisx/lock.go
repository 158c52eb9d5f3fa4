package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another run is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SupplierLocker fences catalog syncs so that at most one sync per supplier id
// is in flight at any time, across processes.
type SupplierLocker struct {
	RDB *redis.Client
	TTL time.Duration
}

// TryLock returns ok=false without error when another run already holds the
// supplier. The returned release func is safe to call once.
func (l *SupplierLocker) TryLock(ctx context.Context, supplierID string) (release func(), ok bool, err error) {
	key := fmt.Sprintf(KeySyncLock, supplierID)
	token := uuid.NewString()

	ok, err = l.RDB.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		// Release outlives a cancelled run ctx on purpose.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(rctx, l.RDB, []string{key}, token).Err()
	}, true, nil
}
