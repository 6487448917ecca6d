package leadassignment

import (
	"context"
	"hash/fnv"
	"sync"
)

const counterShards = 64

type counterShard struct {
	mu     sync.Mutex
	values map[string]int64
}

// ShardedCounters is an in-process CursorStore. Keys are spread over
// mutex-guarded shards so unrelated tenants do not contend on one lock.
type ShardedCounters struct {
	shards [counterShards]counterShard
}

// NewShardedCounters creates an empty counter set.
func NewShardedCounters() *ShardedCounters {
	c := &ShardedCounters{}
	for i := range c.shards {
		c.shards[i].values = make(map[string]int64)
	}
	return c
}

func (c *ShardedCounters) shard(key string) *counterShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &c.shards[h.Sum32()%counterShards]
}

// Next increments key and returns the new value.
func (c *ShardedCounters) Next(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.Add(key, 1), nil
}

// Add adds delta to key and returns the new value.
func (c *ShardedCounters) Add(key string, delta int64) int64 {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] += delta
	return s.values[key]
}

// Get returns the current value of key.
func (c *ShardedCounters) Get(key string) int64 {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}
