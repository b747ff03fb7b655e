package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"tak.dev/bridge/limits"
	"tak.dev/bridge/wire"
)

type memDuplex struct {
	bytes.Buffer
	closed bool
}

func (m *memDuplex) Close() error { m.closed = true; return nil }

func baseLimits(t *testing.T) limits.Limits {
	t.Helper()
	l, err := limits.Limits{
		MaxFrameBytes:     1024,
		MaxXMLScanBytes:   1024,
		MaxProtobufBytes:  1024,
		MaxQueueMessages:  16,
		MaxQueueBytes:     4096,
		MaxDetailElements: 8,
	}.Validate()
	if err != nil {
		t.Fatalf("limits: %v", err)
	}
	return l
}

func TestFramedConnReadWriteXml(t *testing.T) {
	d := &memDuplex{}
	codec := wire.Codec{Format: wire.Xml, Limits: baseLimits(t)}
	q, err := NewSendQueue[string](Fifo, stringClassifier{}, 4, 1024)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	fc := NewFramedConn[string](d, codec, q, nil)
	if err := fc.WriteFrame([]byte("<event/>")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := fc.ReadFrame()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "<event/>" {
		t.Fatalf("got %q", got)
	}
}

type stringClassifier struct{}

func (stringClassifier) ByteSize(s string) uint64           { return uint64(len(s)) }
func (stringClassifier) Priority(string) MessagePriority    { return PriorityNormal }
func (stringClassifier) CoalesceKey(string) (string, bool)  { return "", false }

func TestFramedConnRunDrainsQueueAndStopsWhenEmpty(t *testing.T) {
	d := &memDuplex{}
	codec := wire.Codec{Format: wire.Xml, Limits: baseLimits(t)}
	q, err := NewSendQueue[string](Fifo, stringClassifier{}, 4, 1024)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	fc := NewFramedConn[string](d, codec, q, nil)
	fc.Enqueue("<a/>")
	fc.Enqueue("<b/>")

	err = fc.Run(context.Background(), func(s string) ([]byte, error) { return []byte(s), nil })
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	first, err := fc.ReadFrame()
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if string(first) != "<a/>" {
		t.Fatalf("got %q", first)
	}
	second, err := fc.ReadFrame()
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if string(second) != "<b/>" {
		t.Fatalf("got %q", second)
	}
}

func TestFramedConnRunCancelUnblocksAndClosesDuplex(t *testing.T) {
	d := &memDuplex{}
	codec := wire.Codec{Format: wire.Xml, Limits: baseLimits(t)}
	q, err := NewSendQueue[string](Fifo, stringClassifier{}, 4, 1024)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	fc := NewFramedConn[string](d, codec, q, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = fc.Run(ctx, func(s string) ([]byte, error) { return []byte(s), nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for !d.closed && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !d.closed {
		t.Fatal("expected duplex to be closed on cancellation")
	}
}

var _ io.ReadWriteCloser = (*memDuplex)(nil)
