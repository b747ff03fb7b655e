// Package netio implements the net primitives component of spec §4.1: a
// cumulative byte-budget reader and the length-prefixed / delimiter
// framers built on top of it. Grounded on the teacher's
// consensus/wire_read.go checked-offset readers and node/p2p/envelope.go's
// io.ReadFull truncation handling.
package netio

import (
	"io"
	"math"

	"tak.dev/bridge/internal/errs"
)

// BoundedReader wraps any byte source and enforces a cumulative budget:
// no more than Max bytes may ever be consumed across the reader's lifetime.
type BoundedReader struct {
	r        io.Reader
	max      uint64
	consumed uint64
}

// NewBoundedReader builds a BoundedReader with the given cumulative budget.
func NewBoundedReader(r io.Reader, max uint64) *BoundedReader {
	return &BoundedReader{r: r, max: max}
}

// Consumed reports the number of bytes read so far.
func (b *BoundedReader) Consumed() uint64 { return b.consumed }

func (b *BoundedReader) checkBudget(n uint64) error {
	if n > math.MaxUint64-b.consumed {
		return errs.New(errs.KindIntegerOverflow, "read size overflows counter")
	}
	if b.consumed+n > b.max {
		return errs.LimitExceeded(b.max, b.consumed+n)
	}
	return nil
}

// ReadExact fails with LimitExceeded if consumed+n would exceed Max;
// otherwise reads exactly n bytes, advancing the counter.
func (b *BoundedReader) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, errs.New(errs.KindIntegerOverflow, "negative read length")
	}
	if err := b.checkBudget(uint64(n)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, errs.Wrap(errs.KindIO, err)
	}
	b.consumed += uint64(n)
	return buf, nil
}

// ReadUpTo reads min(n, remaining-budget) bytes from the underlying source
// in a single Read call; short reads are permitted. It never fails on
// budget grounds — the request is clamped instead, since the budget is
// the reader's own invariant, not the caller's to violate.
func (b *BoundedReader) ReadUpTo(n int) ([]byte, error) {
	if n < 0 {
		return nil, errs.New(errs.KindIntegerOverflow, "negative read length")
	}
	remaining := b.max - b.consumed
	if uint64(n) > remaining {
		n = int(remaining)
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := b.r.Read(buf)
	if read > 0 {
		b.consumed += uint64(read)
	}
	if err != nil && err != io.EOF {
		return buf[:read], errs.Wrap(errs.KindIO, err)
	}
	if err == io.EOF {
		return buf[:read], io.EOF
	}
	return buf[:read], nil
}

// ReadToEnd streams chunks until EOF, failing if any byte beyond Max is
// observable (i.e. the underlying source keeps producing data once the
// budget is already exhausted).
func (b *BoundedReader) ReadToEnd() ([]byte, error) {
	const chunkSize = 4096
	var out []byte
	for {
		if b.consumed >= b.max {
			// Budget exhausted: the stream must have nothing left to give.
			probe := make([]byte, 1)
			n, err := b.r.Read(probe)
			if n > 0 || err == nil {
				return out, errs.LimitExceeded(b.max, b.consumed+1)
			}
			if err == io.EOF {
				return out, nil
			}
			return out, errs.Wrap(errs.KindIO, err)
		}
		chunk, err := b.ReadUpTo(chunkSize)
		out = append(out, chunk...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if len(chunk) == 0 {
			return out, nil
		}
	}
}

// DiscardExact honors the same budget as ReadExact but discards the bytes.
func (b *BoundedReader) DiscardExact(n int) error {
	_, err := b.ReadExact(n)
	return err
}
