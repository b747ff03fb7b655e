package netio

import (
	"encoding/binary"
	"io"
	"math"

	"tak.dev/bridge/internal/errs"
)

// LengthPrefix selects the length-prefix encoding used by LengthFramer.
type LengthPrefix int

const (
	PrefixU16BE LengthPrefix = iota
	PrefixU32BE
	PrefixVarint
)

const maxVarintBytes = 10

// LengthFramer reads/writes length-prefixed frames bounded by maxFrameBytes.
type LengthFramer struct {
	Prefix        LengthPrefix
	MaxFrameBytes uint64
}

// ReadFrame reads one length-prefixed frame from r.
func (f LengthFramer) ReadFrame(r io.Reader) ([]byte, error) {
	br := NewBoundedReader(r, f.MaxFrameBytes+maxVarintBytes+8)
	length, err := f.readLength(br)
	if err != nil {
		return nil, err
	}
	if length > f.MaxFrameBytes {
		return nil, errs.FrameTooLarge(length, f.MaxFrameBytes)
	}
	if length > uint64(^uint(0)>>1) {
		return nil, errs.New(errs.KindIntegerOverflow, "frame length overflows platform int")
	}
	payload, err := br.ReadExact(int(length))
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (f LengthFramer) readLength(br *BoundedReader) (uint64, error) {
	switch f.Prefix {
	case PrefixU16BE:
		b, err := br.ReadExact(2)
		if err != nil {
			return 0, err
		}
		return uint64(binary.BigEndian.Uint16(b)), nil
	case PrefixU32BE:
		b, err := br.ReadExact(4)
		if err != nil {
			return 0, err
		}
		return uint64(binary.BigEndian.Uint32(b)), nil
	case PrefixVarint:
		return readVarint(br)
	default:
		return 0, errs.New(errs.KindIO, "unknown length prefix kind")
	}
}

func readVarint(br *BoundedReader) (uint64, error) {
	var result uint64
	for i := 0; i < maxVarintBytes; i++ {
		b, err := br.ReadExact(1)
		if err != nil {
			return 0, err
		}
		cur := b[0]
		if i == maxVarintBytes-1 {
			// 10th byte: only bit 0 may be set (groups are least
			// significant first, so the 10th 7-bit group of a u64 only
			// carries bit 63).
			if cur&0xFE != 0 {
				return 0, errs.New(errs.KindVarintOverflow, "10th varint byte has non-zero high bits")
			}
			result |= uint64(cur&0x01) << (7 * i)
			return result, nil
		}
		result |= uint64(cur&0x7F) << (7 * i)
		if cur&0x80 == 0 {
			return result, nil
		}
	}
	return 0, errs.New(errs.KindVarintTooLong, "varint exceeds 10 bytes")
}

func appendVarint(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
			continue
		}
		dst = append(dst, b)
		return dst
	}
}

// WriteFrame writes payload as one length-prefixed frame to w. It refuses
// payloads longer than MaxFrameBytes; the length prefix itself is not
// counted against that bound.
func (f LengthFramer) WriteFrame(w io.Writer, payload []byte) error {
	length := uint64(len(payload))
	if length > f.MaxFrameBytes {
		return errs.FrameTooLarge(length, f.MaxFrameBytes)
	}
	var header []byte
	switch f.Prefix {
	case PrefixU16BE:
		if length > math.MaxUint16 {
			return errs.New(errs.KindPrefixOverflow, "payload length exceeds u16 prefix range")
		}
		header = make([]byte, 2)
		binary.BigEndian.PutUint16(header, uint16(length))
	case PrefixU32BE:
		if length > math.MaxUint32 {
			return errs.New(errs.KindPrefixOverflow, "payload length exceeds u32 prefix range")
		}
		header = make([]byte, 4)
		binary.BigEndian.PutUint32(header, uint32(length))
	case PrefixVarint:
		header = appendVarint(nil, length)
	default:
		return errs.New(errs.KindIO, "unknown length prefix kind")
	}
	if _, err := w.Write(header); err != nil {
		return errs.Wrap(errs.KindIO, err)
	}
	if length == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return errs.Wrap(errs.KindIO, err)
	}
	return nil
}
