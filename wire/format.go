// Package wire implements spec §4.2 and §4.3: the frame codec dispatch
// between legacy XML and TAK protocol v1, the negotiator state machine,
// and its telemetry buffer. Grounded on the teacher's node/p2p/handshake.go
// version/verack exchange and node/p2p/banscore.go's small deterministic
// policy-primitive shape.
package wire

import (
	"io"

	"tak.dev/bridge/internal/errs"
	"tak.dev/bridge/limits"
	"tak.dev/bridge/netio"
	"tak.dev/bridge/proto"
)

// Format selects the active wire codec.
type Format int

const (
	Xml Format = iota
	TakProtocolV1
)

// xmlDelimiter is the single newline byte terminating every XML frame.
var xmlDelimiter = []byte{'\n'}

// Codec reads/writes whole application frames for the given Format,
// dispatching to the newline-delimited XML framer or the varint-length
// TakProtocolV1 framer (whose payload is the proto envelope of spec §4.3).
type Codec struct {
	Format Format
	Limits limits.Limits
}

// ReadFrame reads one frame and returns the decoded CoT payload bytes.
func (c Codec) ReadFrame(r io.Reader) ([]byte, error) {
	switch c.Format {
	case Xml:
		f := netio.DelimiterFramer{Delimiter: xmlDelimiter, MaxScanBytes: c.Limits.MaxXMLScanBytes}
		return f.ReadFrame(r)
	case TakProtocolV1:
		f := netio.LengthFramer{Prefix: netio.PrefixVarint, MaxFrameBytes: c.Limits.MaxProtobufBytes}
		envelope, err := f.ReadFrame(r)
		if err != nil {
			return nil, err
		}
		return proto.DecodeEnvelope(envelope)
	default:
		return nil, errs.New(errs.KindDecode, "unknown wire format")
	}
}

// WriteFrame writes payload (a CoT event, already serialized) as one frame.
func (c Codec) WriteFrame(w io.Writer, cotPayload []byte) error {
	switch c.Format {
	case Xml:
		f := netio.DelimiterFramer{Delimiter: xmlDelimiter, MaxScanBytes: c.Limits.MaxXMLScanBytes, MaxFrameBytes: c.Limits.MaxFrameBytes}
		return f.WriteFrame(w, cotPayload)
	case TakProtocolV1:
		envelope, err := proto.EncodeEnvelope(cotPayload)
		if err != nil {
			return err
		}
		f := netio.LengthFramer{Prefix: netio.PrefixVarint, MaxFrameBytes: c.Limits.MaxProtobufBytes}
		return f.WriteFrame(w, envelope)
	default:
		return errs.New(errs.KindEncode, "unknown wire format")
	}
}
