// Package transport implements spec §4.4–§4.5: the outbound send queue
// with FIFO / priority / coalesce-latest eviction modes, and the UDP MTU
// fragmentation policy. Grounded on the teacher's node/p2p/peer.go
// connection-loop idiom (deadline-per-message, ctx-cancel-via-close).
package transport

import (
	"tak.dev/bridge/internal/errs"
)

// QueueMode selects the send queue's storage/eviction discipline.
type QueueMode int

const (
	Fifo QueueMode = iota
	Priority
	CoalesceLatestByKey
)

// MessagePriority is only meaningful in Priority mode.
type MessagePriority int

const (
	PriorityLow MessagePriority = iota
	PriorityNormal
	PriorityHigh
)

// Classifier exposes the small set of per-message capabilities the queue
// needs: byte size, priority (Priority mode), and coalesce key
// (CoalesceLatestByKey mode). Spec §9 models this as a classifier rather
// than a polymorphic message hierarchy.
type Classifier[T any] interface {
	ByteSize(msg T) uint64
	Priority(msg T) MessagePriority
	CoalesceKey(msg T) (key string, ok bool)
}

type entry[T any] struct {
	msg    T
	size   uint64
	key    string
	hasKey bool
}

// EnqueueReport describes what happened as a side effect of one Enqueue call.
type EnqueueReport struct {
	ReplacedExisting bool
	DroppedMessages  int
	DroppedBytes     uint64
}

// SendQueue is the bounded outbound queue of spec §4.4.
type SendQueue[T any] struct {
	mode        QueueMode
	classifier  Classifier[T]
	maxMessages uint64
	maxBytes    uint64

	fifo    []entry[T]
	buckets [3][]entry[T]  // indexed by MessagePriority
	byKey   map[string]int // key -> index into fifo, CoalesceLatestByKey only

	totalBytes uint64
	totalCount uint64
}

// NewSendQueue builds a queue; construction fails on zero caps.
func NewSendQueue[T any](mode QueueMode, classifier Classifier[T], maxMessages, maxBytes uint64) (*SendQueue[T], error) {
	if maxMessages == 0 {
		return nil, errs.New(errs.KindZeroMaxMessages, "max_messages must be positive")
	}
	if maxBytes == 0 {
		return nil, errs.New(errs.KindZeroMaxBytes, "max_bytes must be positive")
	}
	q := &SendQueue[T]{
		mode:        mode,
		classifier:  classifier,
		maxMessages: maxMessages,
		maxBytes:    maxBytes,
	}
	if mode == CoalesceLatestByKey {
		q.byKey = make(map[string]int)
	}
	return q, nil
}

// Len reports the current message count.
func (q *SendQueue[T]) Len() uint64 { return q.totalCount }

// Bytes reports the current byte-size total.
func (q *SendQueue[T]) Bytes() uint64 { return q.totalBytes }

// Enqueue adds msg to the queue and evicts until both caps hold.
func (q *SendQueue[T]) Enqueue(msg T) EnqueueReport {
	size := q.classifier.ByteSize(msg)
	e := entry[T]{msg: msg, size: size}

	var report EnqueueReport
	switch q.mode {
	case Fifo, Priority:
		if q.mode == Priority {
			p := q.classifier.Priority(msg)
			q.buckets[p] = append(q.buckets[p], e)
		} else {
			q.fifo = append(q.fifo, e)
		}
		q.totalCount++
		q.totalBytes += size
	case CoalesceLatestByKey:
		key, ok := q.classifier.CoalesceKey(msg)
		if ok {
			e.key, e.hasKey = key, true
			if idx, exists := q.byKey[key]; exists {
				old := q.fifo[idx]
				q.totalBytes = q.totalBytes - old.size + size
				q.fifo[idx] = e
				report.ReplacedExisting = true
			} else {
				q.byKey[key] = len(q.fifo)
				q.fifo = append(q.fifo, e)
				q.totalCount++
				q.totalBytes += size
			}
		} else {
			q.fifo = append(q.fifo, e)
			q.totalCount++
			q.totalBytes += size
		}
	}

	for q.totalCount > q.maxMessages || q.totalBytes > q.maxBytes {
		dropped, size, ok := q.evictOne()
		if !ok {
			break
		}
		report.DroppedMessages++
		report.DroppedBytes += size
		_ = dropped
	}
	return report
}

// evictOne drops exactly one message per the mode's eviction policy.
func (q *SendQueue[T]) evictOne() (T, uint64, bool) {
	var zero T
	switch q.mode {
	case Fifo:
		if len(q.fifo) == 0 {
			return zero, 0, false
		}
		e := q.fifo[0]
		q.fifo = q.fifo[1:]
		q.totalCount--
		q.totalBytes -= e.size
		return e.msg, e.size, true
	case Priority:
		for p := PriorityLow; p <= PriorityHigh; p++ {
			b := q.buckets[p]
			if len(b) == 0 {
				continue
			}
			e := b[0]
			q.buckets[p] = b[1:]
			q.totalCount--
			q.totalBytes -= e.size
			return e.msg, e.size, true
		}
		return zero, 0, false
	case CoalesceLatestByKey:
		if len(q.fifo) == 0 {
			return zero, 0, false
		}
		e := q.fifo[0]
		q.fifo = q.fifo[1:]
		if e.hasKey {
			delete(q.byKey, e.key)
			q.reindexKeys()
		}
		q.totalCount--
		q.totalBytes -= e.size
		return e.msg, e.size, true
	}
	return zero, 0, false
}

func (q *SendQueue[T]) reindexKeys() {
	for k := range q.byKey {
		delete(q.byKey, k)
	}
	for i, e := range q.fifo {
		if e.hasKey {
			q.byKey[e.key] = i
		}
	}
}

// Dequeue removes and returns the next message, per mode ordering:
// Fifo/CoalesceLatestByKey pop the head; Priority pops the head of the
// highest non-empty bucket (High > Normal > Low).
func (q *SendQueue[T]) Dequeue() (T, bool) {
	var zero T
	switch q.mode {
	case Fifo, CoalesceLatestByKey:
		if len(q.fifo) == 0 {
			return zero, false
		}
		e := q.fifo[0]
		q.fifo = q.fifo[1:]
		if e.hasKey {
			delete(q.byKey, e.key)
			q.reindexKeys()
		}
		q.totalCount--
		q.totalBytes -= e.size
		return e.msg, true
	case Priority:
		for p := PriorityHigh; p >= PriorityLow; p-- {
			b := q.buckets[p]
			if len(b) == 0 {
				continue
			}
			e := b[0]
			q.buckets[p] = b[1:]
			q.totalCount--
			q.totalBytes -= e.size
			return e.msg, true
		}
		return zero, false
	}
	return zero, false
}
