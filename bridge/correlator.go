package bridge

import (
	"fmt"
	"hash/fnv"
)

// UIDPolicy selects how a CorrelatorKey is built from an observation:
// stable per upstream object identifier, or stable per raw detection
// identifier.
type UIDPolicy int

const (
	StablePerObject UIDPolicy = iota
	StablePerDetection
)

// CorrelatorKey is the canonicalized string a UID is derived from.
type CorrelatorKey string

// NewCorrelatorKey builds the canonical key for policy, per spec §3.
func NewCorrelatorKey(policy UIDPolicy, node, id string) CorrelatorKey {
	if policy == StablePerDetection {
		return CorrelatorKey(fmt.Sprintf("node=%s;detection=%s", node, id))
	}
	return CorrelatorKey(fmt.Sprintf("node=%s;object=%s", node, id))
}

// hashHalf computes fnv1a64(prefix|key|salt|part) as specified in §3,
// the exact algorithm name fixing fnv1a64 as the hash — not a library
// choice, hence hash/fnv directly rather than a third-party hasher.
func hashHalf(prefix string, key CorrelatorKey, salt uint64, part byte) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%d|%c", prefix, key, salt, part)
	return h.Sum64()
}

func deriveUID(prefix string, key CorrelatorKey, salt uint64) string {
	hi := hashHalf(prefix, key, salt, 'a')
	lo := hashHalf(prefix, key, salt, 'b')
	return fmt.Sprintf("%s-%016x%016x", prefix, hi, lo)
}

// CorrelatorEntry is one row of a Correlator snapshot.
type CorrelatorEntry struct {
	Key CorrelatorKey
	UID string
}

// CorrelatorSnapshot captures the full key<->UID bijection in
// insertion order, durable across restart.
type CorrelatorSnapshot struct {
	Prefix  string
	Entries []CorrelatorEntry
}

// Correlator assigns stable, deterministic UIDs to canonical keys. The
// key<->UID mapping is a bijection held as two ordered maps rather than
// a pointer cycle (spec §9).
type Correlator struct {
	prefix   string
	keyToUID map[CorrelatorKey]string
	uidToKey map[string]CorrelatorKey
	order    []CorrelatorKey
}

// NewCorrelator builds an empty correlator that derives UIDs under prefix.
func NewCorrelator(prefix string) *Correlator {
	return &Correlator{
		prefix:   prefix,
		keyToUID: make(map[CorrelatorKey]string),
		uidToKey: make(map[string]CorrelatorKey),
	}
}

// RestoreCorrelator rebuilds a Correlator from a prior Snapshot.
func RestoreCorrelator(snap CorrelatorSnapshot) *Correlator {
	c := NewCorrelator(snap.Prefix)
	for _, e := range snap.Entries {
		c.keyToUID[e.Key] = e.UID
		c.uidToKey[e.UID] = e.Key
		c.order = append(c.order, e.Key)
	}
	return c
}

// Correlate returns the existing UID for key, or allocates a new one by
// hashing prefix|key|salt and incrementing salt on collision until a
// free UID is found.
func (c *Correlator) Correlate(key CorrelatorKey) string {
	if uid, ok := c.keyToUID[key]; ok {
		return uid
	}
	for salt := uint64(0); ; salt++ {
		uid := deriveUID(c.prefix, key, salt)
		if _, taken := c.uidToKey[uid]; taken {
			continue
		}
		c.keyToUID[key] = uid
		c.uidToKey[uid] = key
		c.order = append(c.order, key)
		return uid
	}
}

// Lookup returns the UID already assigned to key, if any, without
// allocating one.
func (c *Correlator) Lookup(key CorrelatorKey) (string, bool) {
	uid, ok := c.keyToUID[key]
	return uid, ok
}

// Snapshot captures the current bijection in insertion order.
func (c *Correlator) Snapshot() CorrelatorSnapshot {
	entries := make([]CorrelatorEntry, 0, len(c.order))
	for _, k := range c.order {
		entries = append(entries, CorrelatorEntry{Key: k, UID: c.keyToUID[k]})
	}
	return CorrelatorSnapshot{Prefix: c.prefix, Entries: entries}
}
