package service

import "sync"

// pairLock provides fine-grained mutual exclusion for consent creation.
// Operations are distributed across N shards by a hash of the
// (patient, doctor) pair, so concurrent creates for the same pair serialize
// while unrelated pairs proceed in parallel. The store's uniqueness check is
// the invariant of record; this lock keeps the surrounding
// validate-create-audit sequence from interleaving for one pair.
const numPairShards = 128

type pairLock struct {
	shards [numPairShards]sync.Mutex
}

func (l *pairLock) lock(key string) *sync.Mutex {
	m := &l.shards[hashPair(key)%numPairShards]
	m.Lock()
	return m
}

// hashPair uses FNV-1a for cheap, well-distributed shard selection.
func hashPair(s string) uint32 {
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
