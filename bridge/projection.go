package bridge

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
)

// Observation is one SAPIENT detection entering the projection.
type Observation struct {
	StreamID       string
	Sequence       uint64
	TimestampNanos int64 // observed_time
	MessageTime    *TimestampUtc
	Node           string
	ObjectID       string
	DetectionID    string
	Classification string
	Behavior       string
}

// Emission is one canonicalized CoT event the projection produces for
// an Accepted observation.
type Emission struct {
	StreamID      string
	Sequence      uint64
	CorrelatedUID string
	CotType       string
	Behavior      string
	Time          TimestampUtc
	Start         TimestampUtc
	Stale         TimestampUtc
}

// ObservationDecision pairs an observation with the deduplicator's verdict, so
// callers (and the determinism tests) can observe the full decision
// sequence alongside the final emission list.
type ObservationDecision struct {
	Observation Observation
	Decision    Decision
	Emission    *Emission // nil when Decision == Duplicate
}

// Projection is the pure, stateful four-stage pipeline of spec §4.6:
// correlate -> resolve time -> deduplicate -> map classification. It
// is not safe for concurrent use; the owning task serializes calls to
// Observe (spec §5).
type Projection struct {
	UIDPolicy  UIDPolicy
	correlator *Correlator
	time       TimePolicy
	dedup      *Deduplicator
	classifier *Classifier
}

// NewProjection builds a Projection from its four stage configurations.
func NewProjection(uidPolicy UIDPolicy, correlator *Correlator, time TimePolicy, dedup *Deduplicator, classifier *Classifier) *Projection {
	return &Projection{
		UIDPolicy:  uidPolicy,
		correlator: correlator,
		time:       time,
		dedup:      dedup,
		classifier: classifier,
	}
}

// correlationID chooses the object or detection identifier per the
// configured UID policy.
func (p *Projection) correlationID(obs Observation) string {
	if p.UIDPolicy == StablePerDetection {
		return obs.DetectionID
	}
	return obs.ObjectID
}

// Observe runs one observation through all four stages and returns the
// decision, mirroring the caller through to the Emission the bridge
// should forward downstream (nil when duplicate).
func (p *Projection) Observe(obs Observation) ObservationDecision {
	key := NewCorrelatorKey(p.UIDPolicy, obs.Node, p.correlationID(obs))
	uid := p.correlator.Correlate(key)

	resolved := p.time.Resolve(obs.MessageTime, NewTimestampUtc(obs.TimestampNanos))

	dedupKey := uid + ":" + strconv.FormatUint(obs.Sequence, 10)
	decision := p.dedup.Observe(dedupKey, resolved.Time)
	if decision == Duplicate {
		return ObservationDecision{Observation: obs, Decision: Duplicate}
	}

	emission := &Emission{
		StreamID:      obs.StreamID,
		Sequence:      obs.Sequence,
		CorrelatedUID: uid,
		CotType:       p.classifier.Map(obs.Classification),
		Behavior:      obs.Behavior,
		Time:          resolved.Time,
		Start:         resolved.Start,
		Stale:         resolved.Stale,
	}
	return ObservationDecision{Observation: obs, Decision: Accepted, Emission: emission}
}

// ObserveAll runs Observe over an ordered observation stream and
// returns every decision in input order (spec §4.6: "emission order
// matches input order after deduplication").
func (p *Projection) ObserveAll(observations []Observation) []ObservationDecision {
	decisions := make([]ObservationDecision, 0, len(observations))
	for _, obs := range observations {
		decisions = append(decisions, p.Observe(obs))
	}
	return decisions
}

// Emissions filters decisions down to the Accepted emissions, in order.
func Emissions(decisions []ObservationDecision) []Emission {
	out := make([]Emission, 0, len(decisions))
	for _, d := range decisions {
		if d.Emission != nil {
			out = append(out, *d.Emission)
		}
	}
	return out
}

// CanonicalDigest computes the SHA-256 digest of emissions after
// sorting by (stream_id, sequence), the canonical order spec §4.6 and
// §8 require replay-stability to be measured against.
func CanonicalDigest(emissions []Emission) [32]byte {
	sorted := make([]Emission, len(emissions))
	copy(sorted, emissions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StreamID != sorted[j].StreamID {
			return sorted[i].StreamID < sorted[j].StreamID
		}
		return sorted[i].Sequence < sorted[j].Sequence
	})

	h := sha256.New()
	for _, e := range sorted {
		fmt.Fprintf(h, "%s|%d|%s|%s|%s|%d|%d|%d;",
			e.StreamID, e.Sequence, e.CorrelatedUID, e.CotType, e.Behavior,
			e.Time.UnixNanos(), e.Start.UnixNanos(), e.Stale.UnixNanos())
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
