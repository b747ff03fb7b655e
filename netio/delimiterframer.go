package netio

import (
	"bytes"
	"io"

	"tak.dev/bridge/internal/errs"
)

// DelimiterFramer scans byte-by-byte for a non-empty terminator.
type DelimiterFramer struct {
	Delimiter []byte
	// MaxScanBytes bounds how far ReadFrame will scan before giving up.
	MaxScanBytes uint64
	// MaxFrameBytes bounds WriteFrame's combined payload+delimiter size.
	// Defaults to MaxScanBytes when zero.
	MaxFrameBytes uint64
}

func (f DelimiterFramer) maxFrameBytes() uint64 {
	if f.MaxFrameBytes != 0 {
		return f.MaxFrameBytes
	}
	return f.MaxScanBytes
}

// ReadFrame scans for Delimiter, failing with FrameTooLarge if MaxScanBytes
// is exceeded before finding it, or UnexpectedEOF if the stream ends first.
// The delimiter itself is stripped from the returned payload.
func (f DelimiterFramer) ReadFrame(r io.Reader) ([]byte, error) {
	if len(f.Delimiter) == 0 {
		return nil, errs.New(errs.KindEmptyDelimiter, "delimiter must be non-empty")
	}
	br := NewBoundedReader(r, f.MaxScanBytes)
	var buf []byte
	one := make([]byte, 1)
	for {
		if uint64(len(buf)) >= f.MaxScanBytes {
			return nil, errs.FrameTooLarge(uint64(len(buf)+1), f.MaxScanBytes)
		}
		n, err := br.r.Read(one)
		if n == 1 {
			br.consumed++
			buf = append(buf, one[0])
			if bytes.HasSuffix(buf, f.Delimiter) {
				return buf[:len(buf)-len(f.Delimiter)], nil
			}
		}
		if err == io.EOF {
			return nil, errs.New(errs.KindUnexpectedEOF, "stream ended before delimiter")
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err)
		}
	}
}

// WriteFrame appends Delimiter to payload and writes it to w, refusing the
// combined payload+delimiter length if it exceeds MaxFrameBytes (or
// MaxScanBytes when MaxFrameBytes is zero).
func (f DelimiterFramer) WriteFrame(w io.Writer, payload []byte) error {
	total := uint64(len(payload) + len(f.Delimiter))
	max := f.maxFrameBytes()
	if total > max {
		return errs.FrameTooLarge(total, max)
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(errs.KindIO, err)
	}
	if _, err := w.Write(f.Delimiter); err != nil {
		return errs.Wrap(errs.KindIO, err)
	}
	return nil
}
