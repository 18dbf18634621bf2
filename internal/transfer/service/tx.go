package service

import (
	"context"
	"sync"
	"time"

	dErrors "ardhi/pkg/domain-errors"
)

// StoreTx provides the transactional boundary for operations that touch both
// the transfer and parcel stores. Implementations may wrap a database
// transaction or, in-memory, a sharded lock. The key identifies the parcel the
// operation serializes on.
type StoreTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// shardedTx provides fine-grained locking using sharded mutexes. Operations
// are distributed across N shards based on a hash of the parcel ID, so
// concurrent workflows on different parcels do not contend.
const numTransferShards = 128

// defaultTxTimeout is the maximum duration for a workflow transaction.
const defaultTxTimeout = 5 * time.Second

type shardedTx struct {
	shards  [numTransferShards]sync.Mutex
	timeout time.Duration
}

// NewShardedTx builds the in-memory transaction boundary used by unit tests
// and dev mode. It serializes only; it cannot roll back, so callers order
// validations before mutations.
func NewShardedTx() StoreTx {
	return &shardedTx{}
}

func (t *shardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := hashKey(key) % numTransferShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// hashKey uses FNV-1a for even shard distribution.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
