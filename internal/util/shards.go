package util

import "runtime"

// maxShards bounds the lock-striped table.
const maxShards = 256

// ReasonableShardCount picks a shard count for the lock-striped table from
// a requested concurrency level. A non-positive level means nextPow2(2*GOMAXPROCS).
// The result is a power of two clamped to [1..256].
func ReasonableShardCount(concurrencyLevel int) int {
	if concurrencyLevel <= 0 {
		p := runtime.GOMAXPROCS(0)
		if p < 1 {
			p = 1
		}
		concurrencyLevel = 2 * p
	}
	n := int(NextPow2(uint64(concurrencyLevel)))
	if n > maxShards {
		n = maxShards
	}
	return n
}

// StripeCount is the number of read buffers: nextPow2(GOMAXPROCS).
func StripeCount() int {
	p := runtime.GOMAXPROCS(0)
	if p < 1 {
		p = 1
	}
	return int(NextPow2(uint64(p)))
}

// ShardIndex maps a 64-bit hash to a shard index.
// Assumes shard count is a power of two for the fast mask path,
// but remains correct for arbitrary shard counts (uses modulo).
func ShardIndex(hash uint64, shards int) int {
	if shards <= 1 {
		return 0
	}
	if IsPowerOfTwo(uint64(shards)) {
		return int(hash & uint64(shards-1))
	}
	return int(hash % uint64(shards))
}
