package transport

import (
	"context"
	"log/slog"
	"time"

	"tak.dev/bridge/internal/logging"
	"tak.dev/bridge/record"
)

// Observed is the dual timestamp spec §3 attaches to every envelope: a
// wall-clock reading for human/record consumption and a monotonic
// reading (elapsed since process start) so ordering survives a wall
// clock step.
type Observed struct {
	Wall      time.Time
	Monotonic int64
}

var processStart = time.Now()

// systemObserved stamps the current instant using the system clock.
func systemObserved() Observed {
	now := time.Now()
	return Observed{Wall: now.UTC(), Monotonic: now.Sub(processStart).Nanoseconds()}
}

// MessageEnvelope⟨T⟩ is spec §3's generic carrier: `{observed, peer?,
// raw_frame?, message}`. RawFrame preserves the wire bytes for
// recording; it is created by any Source and consumed by any Sink.
type MessageEnvelope[T any] struct {
	Observed Observed
	Peer     *string
	RawFrame []byte
	Message  T
}

// Sink consumes envelopes, most simply by writing them to the wire.
// Spec §9 models sinks/sources as objects carrying an async send/recv
// method over typed envelopes.
type Sink[T any] interface {
	Send(ctx context.Context, env MessageEnvelope[T]) error
}

// Source produces envelopes, most simply by reading them off the wire.
type Source[T any] interface {
	Recv(ctx context.Context) (MessageEnvelope[T], error)
}

// ConnSink adapts a FramedConn's WriteFrame into a Sink: it writes
// env.RawFrame directly when already populated (e.g. by an upstream
// decorator or a relayed Source envelope), otherwise serializes
// env.Message via toWire first.
type ConnSink[T any] struct {
	conn   *FramedConn[T]
	toWire func(T) ([]byte, error)
}

// NewConnSink builds a ConnSink over conn using toWire to serialize
// messages that don't already carry a raw frame.
func NewConnSink[T any](conn *FramedConn[T], toWire func(T) ([]byte, error)) *ConnSink[T] {
	return &ConnSink[T]{conn: conn, toWire: toWire}
}

// Send implements Sink.
func (s *ConnSink[T]) Send(_ context.Context, env MessageEnvelope[T]) error {
	payload := env.RawFrame
	if payload == nil {
		p, err := s.toWire(env.Message)
		if err != nil {
			return err
		}
		payload = p
	}
	return s.conn.WriteFrame(payload)
}

// ConnSource adapts a FramedConn's ReadFrame into a Source, stamping
// each envelope with clock's Observed pair (defaulting to the system
// clock) and preserving the read payload as RawFrame.
type ConnSource[T any] struct {
	conn     *FramedConn[T]
	fromWire func([]byte) (T, error)
	clock    func() Observed
}

// NewConnSource builds a ConnSource over conn using fromWire to decode
// each frame's payload. A nil clock uses the system clock.
func NewConnSource[T any](conn *FramedConn[T], fromWire func([]byte) (T, error), clock func() Observed) *ConnSource[T] {
	if clock == nil {
		clock = systemObserved
	}
	return &ConnSource[T]{conn: conn, fromWire: fromWire, clock: clock}
}

// Recv implements Source.
func (s *ConnSource[T]) Recv(_ context.Context) (MessageEnvelope[T], error) {
	raw, err := s.conn.ReadFrame()
	if err != nil {
		return MessageEnvelope[T]{}, err
	}
	msg, err := s.fromWire(raw)
	if err != nil {
		return MessageEnvelope[T]{}, err
	}
	return MessageEnvelope[T]{Observed: s.clock(), RawFrame: raw, Message: msg}, nil
}

// RecordingSink decorates next by appending each envelope's raw frame
// to a write-ahead log before delegating (spec §9: "the recording
// adapter decorates a sink by appending to the WAL before delegation";
// spec §2: "the recorder optionally commits the raw frame" — optional
// in the sense that a FramedConn with no recorder attached skips this
// decorator entirely). A WAL append failure is treated as fatal and
// aborts the send rather than silently losing a frame the recorder was
// configured to capture.
type RecordingSink[T any] struct {
	next   Sink[T]
	writer *record.Writer
	log    *slog.Logger
}

// NewRecordingSink builds a RecordingSink wrapping next.
func NewRecordingSink[T any](next Sink[T], writer *record.Writer, log *slog.Logger) *RecordingSink[T] {
	return &RecordingSink[T]{next: next, writer: writer, log: logging.Or(log, "transport.recordingsink")}
}

// Send implements Sink: append then delegate.
func (s *RecordingSink[T]) Send(ctx context.Context, env MessageEnvelope[T]) error {
	if len(env.RawFrame) > 0 {
		if _, err := s.writer.Append(env.RawFrame); err != nil {
			s.log.Warn("wal append failed, frame not sent", "error", err)
			return err
		}
		s.log.Debug("wal appended raw frame", "bytes", len(env.RawFrame))
	}
	return s.next.Send(ctx, env)
}
