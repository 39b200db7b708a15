package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	customError "github.com/kreditlab/loan-engine/pkg/errors"
)

const lockKeyPrefix = "loan:lock:"

// loanLocker serializes mutations per loan id with a redis SETNX lease.
// Two concurrent mutations of the same loan must not interleave their
// read-modify-write of the schedule; operations on different loans proceed
// independently. The TTL bounds how long a crashed holder can block a loan.
type loanLocker struct {
	redis *redis.Client
	ttl   time.Duration
}

func newLoanLocker(redis *redis.Client, ttl time.Duration) *loanLocker {
	return &loanLocker{redis: redis, ttl: ttl}
}

// Acquire takes the lease for a loan. It returns ErrLoanBusy when another
// operation holds it, and a release func that must be called when done.
func (l *loanLocker) Acquire(ctx context.Context, loanID uuid.UUID) (func(), error) {
	key := lockKeyPrefix + loanID.String()

	ok, err := l.redis.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, customError.WrapCacheError(err)
	}
	if !ok {
		return nil, customError.WrapLoanBusy(loanID.String())
	}

	release := func() {
		l.redis.Del(context.WithoutCancel(ctx), key)
	}
	return release, nil
}
