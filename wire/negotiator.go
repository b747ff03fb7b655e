package wire

import (
	"log/slog"

	"tak.dev/bridge/internal/errs"
	"tak.dev/bridge/internal/logging"
)

// State is one of the negotiator's states, per spec §3.
type State int

const (
	StateLegacyXml State = iota
	StateAwaitingResponse
	StateUpgraded
	StateTerminated
)

func (s State) code(version int) string {
	switch s {
	case StateLegacyXml:
		return "legacy_xml"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateUpgraded:
		return "upgraded:v1"
	default:
		return "terminated"
	}
}

// DowngradePolicy selects Terminated vs LegacyXml on non-policy failures
// while AwaitingResponse.
type DowngradePolicy int

const (
	FailOpen DowngradePolicy = iota
	FailClosed
)

// Negotiator drives the protocol-version upgrade handshake of spec §4.3.
// It is not safe for concurrent use; a connection owns its negotiator
// exclusively per spec §5.
type Negotiator struct {
	state    State
	reason   Reason
	upgraded int // negotiated version, valid when state == StateUpgraded

	policy    DowngradePolicy
	telemetry *TelemetryBuffer
	log       *slog.Logger
}

// NewNegotiator builds a negotiator in the initial LegacyXml state.
func NewNegotiator(sessionID uint64, policy DowngradePolicy, log *slog.Logger) *Negotiator {
	return &Negotiator{
		state:     StateLegacyXml,
		policy:    policy,
		telemetry: NewTelemetryBuffer(sessionID),
		log:       logging.Or(log, "wire.negotiator"),
	}
}

// State returns the current state.
func (n *Negotiator) State() State { return n.state }

// Reason returns the terminal/fallback reason, if any.
func (n *Negotiator) Reason() Reason { return n.reason }

// UpgradedVersion returns the negotiated version; valid only when
// State() == StateUpgraded.
func (n *Negotiator) UpgradedVersion() int { return n.upgraded }

// Telemetry returns the session's telemetry buffer for draining.
func (n *Negotiator) Telemetry() *TelemetryBuffer { return n.telemetry }

func (n *Negotiator) stateCode() string {
	if n.state == StateTerminated {
		return "terminated:" + string(n.reason)
	}
	return n.state.code(n.upgraded)
}

func (n *Negotiator) emit(kind TelemetryKind, reason Reason) {
	rec := n.telemetry.emit(n.stateCode(), kind, reason)
	if kind == KindNoChange {
		n.log.Debug("negotiation no-op", "state", rec.State)
		return
	}
	n.log.Debug("negotiation transition", "state", rec.State, "kind", rec.Kind, "reason", rec.Reason)
}

// BeginAttempt transitions LegacyXml -> AwaitingResponse. A no-op in any
// other state.
func (n *Negotiator) BeginAttempt() {
	if n.state != StateLegacyXml {
		n.emit(KindNoChange, ReasonNone)
		return
	}
	n.state = StateAwaitingResponse
	n.emit(KindNoChange, ReasonNone)
}

// ObserveSupported transitions AwaitingResponse -> Upgraded(version) and
// emits UpgradeAccepted. A no-op in any other state.
func (n *Negotiator) ObserveSupported(version int) {
	if n.state != StateAwaitingResponse {
		n.emit(KindNoChange, ReasonNone)
		return
	}
	n.state = StateUpgraded
	n.upgraded = version
	n.emit(KindUpgradeAccepted, ReasonNone)
}

func (n *Negotiator) fail(reason Reason) {
	if n.state != StateAwaitingResponse {
		n.emit(KindNoChange, ReasonNone)
		return
	}
	if n.policy == FailOpen {
		n.state = StateLegacyXml
		n.reason = ReasonNone
		n.emit(KindFallbackToLegacy, reason)
		return
	}
	n.state = StateTerminated
	n.reason = reason
	n.emit(KindTerminated, reason)
}

// ObserveTimeout handles a handshake timeout while AwaitingResponse.
func (n *Negotiator) ObserveTimeout() { n.fail(ReasonTimeout) }

// ObserveMalformed handles a malformed control frame while AwaitingResponse.
func (n *Negotiator) ObserveMalformed() { n.fail(ReasonMalformedControl) }

// ObserveUnsupported handles an unsupported protocol version while
// AwaitingResponse.
func (n *Negotiator) ObserveUnsupported() { n.fail(ReasonUnsupportedVersion) }

// PolicyDenied unconditionally terminates from any non-terminated state.
func (n *Negotiator) PolicyDenied() {
	if n.state == StateTerminated {
		n.emit(KindNoChange, ReasonNone)
		return
	}
	n.state = StateTerminated
	n.reason = ReasonPolicyDenied
	n.emit(KindTerminated, ReasonPolicyDenied)
}

// ControlFrame is the 2-byte negotiation control frame of spec §6.
type ControlFrame struct {
	Version int
}

// ParseControlFrame decodes the 2-byte control frame: byte 0 must equal
// 'V' (0x56); byte 1 is the version. v=1 is supported.
func ParseControlFrame(b []byte) (ControlFrame, error) {
	if len(b) < 2 {
		return ControlFrame{}, errs.New(errs.KindMalformedControl, "control frame shorter than 2 bytes")
	}
	if b[0] != 0x56 {
		return ControlFrame{}, errs.New(errs.KindMalformedControl, "control frame missing 'V' marker")
	}
	return ControlFrame{Version: int(b[1])}, nil
}

// SupportedVersion reports whether v is a version this negotiator accepts.
func SupportedVersion(v int) bool { return v == 1 }
