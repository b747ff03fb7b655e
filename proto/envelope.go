// Package proto implements the canonical length-prefixed envelope of
// spec §4.2/§4.3: an outer message with a single length-delimited
// cot_message field (protobuf field 1, wire type 2 / tag byte 0x0A).
//
// The envelope's shape is fixed by the wire spec itself — not a general
// message schema — so no .proto file or generated code is introduced.
// Encoding uses protowire's low-level tag/varint/length-delimited
// primitives directly, the same module (google.golang.org/protobuf) that
// reaches this corpus transitively via prometheus/client_golang in three
// pack repos.
package proto

import (
	"google.golang.org/protobuf/encoding/protowire"

	"tak.dev/bridge/internal/errs"
)

// CotMessageFieldNumber is the envelope's single field number, matching
// the tag byte 0x0A (field 1, length-delimited) named in spec §6.
const CotMessageFieldNumber protowire.Number = 1

// EncodeEnvelope wraps an opaque CoT payload in the canonical envelope.
// Encoding an empty payload fails per spec §4.2.
func EncodeEnvelope(cotMessage []byte) ([]byte, error) {
	if len(cotMessage) == 0 {
		return nil, errs.New(errs.KindEmptyPayload, "cot_message payload must be non-empty")
	}
	var dst []byte
	dst = protowire.AppendTag(dst, CotMessageFieldNumber, protowire.BytesType)
	dst = protowire.AppendBytes(dst, cotMessage)
	return dst, nil
}

// DecodeEnvelope extracts the cot_message field from an encoded envelope.
// Decoding an empty payload, or an envelope missing the field, fails.
func DecodeEnvelope(envelope []byte) ([]byte, error) {
	if len(envelope) == 0 {
		return nil, errs.New(errs.KindEmptyPayload, "envelope must be non-empty")
	}
	num, typ, n := protowire.ConsumeTag(envelope)
	if n < 0 {
		return nil, errs.Wrap(errs.KindDecode, protowire.ParseError(n))
	}
	if num != CotMessageFieldNumber || typ != protowire.BytesType {
		return nil, errs.New(errs.KindDecode, "envelope missing cot_message field")
	}
	rest := envelope[n:]
	cotMessage, m := protowire.ConsumeBytes(rest)
	if m < 0 {
		return nil, errs.Wrap(errs.KindDecode, protowire.ParseError(m))
	}
	if len(cotMessage) == 0 {
		return nil, errs.New(errs.KindEmptyPayload, "decoded cot_message is empty")
	}
	return cotMessage, nil
}
