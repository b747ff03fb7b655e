// Package sapient implements the bounded inbound/outbound session
// buffers of spec §4.8: push-never-evicts FIFOs with frame, message,
// and byte caps that preserve insertion order across reconnects.
package sapient

import "tak.dev/bridge/internal/errs"

// Caps bounds one direction of a session's buffered frames.
type Caps struct {
	MaxFrameBytes    uint64
	MaxQueueMessages uint64
	MaxQueueBytes    uint64
}

// Buffer is a single bounded FIFO of raw frames. Push fails fast on an
// oversize frame or a cap violation; it never evicts to make room
// (spec §4.8).
type Buffer struct {
	caps       Caps
	frames     [][]byte
	totalBytes uint64
}

// NewBuffer builds an empty Buffer governed by caps.
func NewBuffer(caps Caps) *Buffer {
	return &Buffer{caps: caps}
}

// Push appends frame, failing without mutating state if frame exceeds
// MaxFrameBytes or would push the buffer over its message/byte caps.
func (b *Buffer) Push(frame []byte) error {
	size := uint64(len(frame))
	if size > b.caps.MaxFrameBytes {
		return errs.FrameTooLarge(size, b.caps.MaxFrameBytes)
	}
	if uint64(len(b.frames))+1 > b.caps.MaxQueueMessages {
		return errs.LimitExceeded(b.caps.MaxQueueMessages, uint64(len(b.frames))+1)
	}
	if b.totalBytes+size > b.caps.MaxQueueBytes {
		return errs.LimitExceeded(b.caps.MaxQueueBytes, b.totalBytes+size)
	}
	b.frames = append(b.frames, frame)
	b.totalBytes += size
	return nil
}

// Pop removes and returns the oldest frame, FIFO order.
func (b *Buffer) Pop() ([]byte, bool) {
	if len(b.frames) == 0 {
		return nil, false
	}
	frame := b.frames[0]
	b.frames = b.frames[1:]
	b.totalBytes -= uint64(len(frame))
	return frame, true
}

// Len reports the number of buffered frames.
func (b *Buffer) Len() int { return len(b.frames) }

// Bytes reports the total buffered payload size.
func (b *Buffer) Bytes() uint64 { return b.totalBytes }

// Session pairs the inbound and outbound buffers of one SAPIENT
// connection. Reconnect is a caller concern (spec §4.8): the caller may
// drain Outbound for resend or leave it queued; Session itself never
// discards on reconnect.
type Session struct {
	Inbound  *Buffer
	Outbound *Buffer
}

// NewSession builds a Session with independently capped inbound and
// outbound buffers.
func NewSession(inboundCaps, outboundCaps Caps) *Session {
	return &Session{
		Inbound:  NewBuffer(inboundCaps),
		Outbound: NewBuffer(outboundCaps),
	}
}
