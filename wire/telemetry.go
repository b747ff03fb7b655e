package wire

import "fmt"

// TelemetryKind identifies the event kind of a telemetry record, per the
// wire.negotiation.v1 channel format in spec §6.
type TelemetryKind string

const (
	KindNoChange         TelemetryKind = "no_change"
	KindUpgradeAccepted  TelemetryKind = "upgrade_accepted"
	KindFallbackToLegacy TelemetryKind = "fallback_to_legacy"
	KindTerminated       TelemetryKind = "terminated"
)

// Reason identifies why a negotiation terminated or fell back.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonTimeout            Reason = "timeout"
	ReasonMalformedControl   Reason = "malformed_control"
	ReasonUnsupportedVersion Reason = "unsupported_version"
	ReasonPolicyDenied       Reason = "policy_denied"
)

// TelemetryRecord is one sequenced entry on the wire.negotiation.v1 channel.
type TelemetryRecord struct {
	SessionID uint64
	Sequence  uint64
	State     string
	Kind      TelemetryKind
	Reason    Reason
}

// Format renders the record per spec §6's line-oriented UTF-8 layout.
func (r TelemetryRecord) Format() string {
	reason := "none"
	if r.Reason != ReasonNone {
		reason = string(r.Reason)
	}
	return fmt.Sprintf("session=%d;sequence=%d;state=%s;kind=%s;reason=%s",
		r.SessionID, r.Sequence, r.State, r.Kind, reason)
}

// TelemetryBuffer is a per-session sequenced collector drained on demand;
// durability is the collaborator's choice (spec §9 open question).
type TelemetryBuffer struct {
	sessionID uint64
	sequence  uint64
	records   []TelemetryRecord
}

// NewTelemetryBuffer builds a buffer for the given session.
func NewTelemetryBuffer(sessionID uint64) *TelemetryBuffer {
	return &TelemetryBuffer{sessionID: sessionID}
}

func (b *TelemetryBuffer) emit(state string, kind TelemetryKind, reason Reason) TelemetryRecord {
	rec := TelemetryRecord{
		SessionID: b.sessionID,
		Sequence:  b.sequence,
		State:     state,
		Kind:      kind,
		Reason:    reason,
	}
	b.sequence++
	b.records = append(b.records, rec)
	return rec
}

// Drain returns every record collected so far and empties the buffer.
func (b *TelemetryBuffer) Drain() []TelemetryRecord {
	out := b.records
	b.records = nil
	return out
}
