package transport

import (
	"context"
	"io"
	"log/slog"

	"tak.dev/bridge/internal/logging"
	"tak.dev/bridge/record"
	"tak.dev/bridge/wire"
)

// Duplex is the abstract bidirectional byte stream a FramedConn wraps.
// net.Conn satisfies it; tests may supply an in-memory pipe.
type Duplex interface {
	io.Reader
	io.Writer
	Close() error
}

// FramedConn pairs a wire.Codec with a Duplex and a send queue, mirroring
// the teacher's Peer: a connection owns its reader/writer/queue
// exclusively (spec §5), suspends only at byte I/O, and unblocks
// cancellation by closing the underlying Duplex.
type FramedConn[T any] struct {
	conn     Duplex
	codec    wire.Codec
	queue    *SendQueue[T]
	log      *slog.Logger
	recorder *record.Writer
	clock    func() Observed
}

// NewFramedConn builds a connection over conn using codec for framing and
// queue for outbound backpressure.
func NewFramedConn[T any](conn Duplex, codec wire.Codec, queue *SendQueue[T], log *slog.Logger) *FramedConn[T] {
	return &FramedConn[T]{conn: conn, codec: codec, queue: queue, log: logging.Or(log, "transport.conn")}
}

// WithRecorder attaches a WAL writer so Run's outbound sink commits
// each frame's raw bytes before it reaches the wire (spec §2/§9
// recording adapter). A nil writer (the zero value) disables recording.
func (c *FramedConn[T]) WithRecorder(w *record.Writer) *FramedConn[T] {
	c.recorder = w
	return c
}

// WithClock overrides the Observed clock Run stamps onto each outbound
// envelope; nil restores the system clock. Primarily for deterministic
// tests.
func (c *FramedConn[T]) WithClock(clock func() Observed) *FramedConn[T] {
	c.clock = clock
	return c
}

func (c *FramedConn[T]) observe() Observed {
	if c.clock != nil {
		return c.clock()
	}
	return systemObserved()
}

// ReadFrame blocks on the underlying Duplex until one frame arrives.
func (c *FramedConn[T]) ReadFrame() ([]byte, error) {
	payload, err := c.codec.ReadFrame(c.conn)
	if err != nil {
		c.log.Debug("frame read failed", "error", err)
		return nil, err
	}
	c.log.Debug("frame read", "bytes", len(payload))
	return payload, nil
}

// WriteFrame blocks on the underlying Duplex until the frame is written.
func (c *FramedConn[T]) WriteFrame(payload []byte) error {
	if err := c.codec.WriteFrame(c.conn, payload); err != nil {
		c.log.Debug("frame write failed", "error", err)
		return err
	}
	c.log.Debug("frame written", "bytes", len(payload))
	return nil
}

// Enqueue offers msg to the outbound queue for a later drain.
func (c *FramedConn[T]) Enqueue(msg T) EnqueueReport {
	report := c.queue.Enqueue(msg)
	if report.DroppedMessages > 0 {
		c.log.Warn("send queue evicted under pressure",
			"dropped_messages", report.DroppedMessages, "dropped_bytes", report.DroppedBytes)
	}
	return report
}

// Dequeue removes the next message per the queue's mode ordering.
func (c *FramedConn[T]) Dequeue() (T, bool) { return c.queue.Dequeue() }

// Run drains the outbound queue onto the wire and returns nil once the
// queue is empty. It returns early with an error when ctx is cancelled,
// when toWire fails to serialize a message, or when the sink fails,
// mirroring the teacher's Peer.Run: ctx cancellation unblocks the loop
// by closing the Duplex.
func (c *FramedConn[T]) Run(ctx context.Context, toWire func(T) ([]byte, error)) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	var sink Sink[T] = NewConnSink(c, toWire)
	if c.recorder != nil {
		sink = NewRecordingSink(sink, c.recorder, c.log)
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
			return ctx.Err()
		default:
		}
		msg, ok := c.Dequeue()
		if !ok {
			return nil
		}
		payload, err := toWire(msg)
		if err != nil {
			return err
		}
		env := MessageEnvelope[T]{Observed: c.observe(), RawFrame: payload, Message: msg}
		if err := sink.Send(ctx, env); err != nil {
			return err
		}
	}
}
