// Package limits defines the single validated budget object propagated to
// every boundary (frame, scan, queue) in the bridge, per spec §3.
package limits

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"tak.dev/bridge/internal/errs"
)

// Limits is immutable after Validate succeeds; clone with Clone, never
// share a mutable reference across boundaries.
type Limits struct {
	MaxFrameBytes     uint64 `validate:"gt=0"`
	MaxXMLScanBytes   uint64 `validate:"gt=0"`
	MaxProtobufBytes  uint64 `validate:"gt=0"`
	MaxQueueMessages  uint64 `validate:"gt=0"`
	MaxQueueBytes     uint64 `validate:"gt=0"`
	MaxDetailElements uint64 `validate:"gt=0"`

	validated bool
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func v() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks every invariant in spec §3: all fields strictly
// positive (enforced via struct tags), plus the cross-field ordering
// invariants that the tag language alone cannot express:
//
//	scan <= frame
//	protobuf <= frame
//	queue_bytes >= frame_bytes
//	queue_messages <= queue_bytes  (each message costs >= 1 byte)
func (l Limits) Validate() (Limits, error) {
	if err := v().Struct(l); err != nil {
		return Limits{}, errs.New(errs.KindInvalidLimits, err.Error())
	}
	switch {
	case l.MaxXMLScanBytes > l.MaxFrameBytes:
		return Limits{}, errs.New(errs.KindInvalidLimits, "max_xml_scan_bytes exceeds max_frame_bytes")
	case l.MaxProtobufBytes > l.MaxFrameBytes:
		return Limits{}, errs.New(errs.KindInvalidLimits, "max_protobuf_bytes exceeds max_frame_bytes")
	case l.MaxQueueBytes < l.MaxFrameBytes:
		return Limits{}, errs.New(errs.KindInvalidLimits, "max_queue_bytes below max_frame_bytes")
	case l.MaxQueueMessages > l.MaxQueueBytes:
		return Limits{}, errs.New(errs.KindInvalidLimits, "max_queue_messages exceeds max_queue_bytes")
	}
	l.validated = true
	return l, nil
}

// Clone returns an independent copy; Limits has no reference fields so
// a value copy already suffices, but Clone documents the intended usage
// at call sites that pass Limits across a boundary.
func (l Limits) Clone() Limits {
	return l
}

// Valid reports whether this value has passed Validate.
func (l Limits) Valid() bool { return l.validated }
