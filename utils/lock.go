package utils

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/ledger_import/config"
	"github.com/bsm/redislock"
)

// ObtainKeyLock serializes writers of a shared key across instances. Returns
// a release func. When Redis is not configured the lock degrades to a no-op;
// callers must still be protected by a DB uniqueness constraint.
func ObtainKeyLock(ctx context.Context, lockType string, key string) (func(), error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("%s:%s", lockType, key)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(250*time.Millisecond), 8),
	})
	if err == redislock.ErrNotObtained {
		return nil, fmt.Errorf("could not obtain %s lock for %s", lockType, key)
	} else if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(ctx)
	}, nil
}
