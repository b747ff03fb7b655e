// Package errs is the shared typed-error taxonomy for every boundary in
// this repository. Each error carries a Kind plus kind-specific fields so
// callers can recover structured detail via errors.As instead of string
// matching, mirroring the teacher's p2p.ReadError shape.
package errs

import "fmt"

// Kind identifies one entry of the error taxonomy in spec §7.
type Kind string

const (
	KindLimitExceeded         Kind = "limit_exceeded"
	KindIntegerOverflow       Kind = "integer_overflow"
	KindFrameTooLarge         Kind = "frame_too_large"
	KindPrefixOverflow        Kind = "prefix_overflow"
	KindVarintTooLong         Kind = "varint_too_long"
	KindVarintOverflow        Kind = "varint_overflow"
	KindUnexpectedEOF         Kind = "unexpected_eof"
	KindEmptyDelimiter        Kind = "empty_delimiter"
	KindIO                    Kind = "io"
	KindEmptyPayload          Kind = "empty_payload"
	KindEncode                Kind = "encode"
	KindDecode                Kind = "decode"
	KindTimeout               Kind = "timeout"
	KindMalformedControl      Kind = "malformed_control"
	KindUnsupportedVersion    Kind = "unsupported_version"
	KindPolicyDenied          Kind = "policy_denied"
	KindZeroMaxMessages       Kind = "zero_max_messages"
	KindZeroMaxBytes          Kind = "zero_max_bytes"
	KindChunkTooLarge         Kind = "chunk_too_large"
	KindSequenceOverflow      Kind = "sequence_overflow"
	KindCorruptChunkMagic     Kind = "corrupt_chunk_magic"
	KindChecksumMismatch      Kind = "checksum_mismatch"
	KindCommitMarkerMismatch  Kind = "commit_marker_mismatch"
	KindInvalidFileMagic      Kind = "invalid_file_magic"
	KindTruncatedHeader       Kind = "truncated_header"
	KindPayloadCountMismatch  Kind = "payload_count_mismatch"
	KindSequenceMismatch      Kind = "sequence_mismatch"
	KindPayloadHashMismatch   Kind = "payload_hash_mismatch"
	KindChainHashMismatch     Kind = "chain_hash_mismatch"
	KindMissingSignature      Kind = "missing_signature"
	KindMissingVerifier       Kind = "missing_verifier"
	KindInvalidSignature      Kind = "invalid_signature"
	KindOutOfRange            Kind = "out_of_range"
	KindInvalidLimits         Kind = "invalid_limits"
	KindInvalidClassification Kind = "invalid_classification"
)

// Error is the typed error returned at every core boundary.
type Error struct {
	Kind Kind
	Msg  string

	Max       uint64
	Attempted uint64
	Sequence  uint64
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a bare Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind wrapping an underlying error.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: err.Error(), Err: err}
}

// LimitExceeded builds the bounded-reader over-budget error.
func LimitExceeded(max, attempted uint64) *Error {
	return &Error{
		Kind:      KindLimitExceeded,
		Msg:       fmt.Sprintf("limit exceeded: max=%d attempted=%d", max, attempted),
		Max:       max,
		Attempted: attempted,
	}
}

// FrameTooLarge builds the over-budget frame-length error.
func FrameTooLarge(frameLen, max uint64) *Error {
	return &Error{
		Kind:      KindFrameTooLarge,
		Msg:       fmt.Sprintf("frame_len=%d exceeds max=%d", frameLen, max),
		Max:       max,
		Attempted: frameLen,
	}
}

// Sequenced builds a sequence-tagged record error (checksum/commit-marker/hash mismatches).
func Sequenced(kind Kind, sequence uint64, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Sequence: sequence}
}

// Is reports whether target is an *Error of the same Kind, so
// errors.Is(err, errs.New(errs.KindX, "")) matches any error of kind KindX.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
