package bridge

import (
	"bytes"
	"encoding/binary"
	"math"

	"tak.dev/bridge/internal/errs"
	"tak.dev/bridge/netio"
)

const (
	detailKindTrack     byte = 0
	detailKindUnknown   byte = 1
	detailKindExtension byte = 2
)

// DetailCodec serializes and parses a CotDetail's ordered element
// sequence, consulting a per-instance ExtensionRegistry so a registered
// Extension key round-trips through its typed encode/decode pair
// instead of staying opaque bytes (spec §3, §9: "constructed per
// CotDetail codec instance"). maxElements mirrors Limits.MaxDetailElements.
type DetailCodec struct {
	registry    *ExtensionRegistry
	maxElements uint64
}

// NewDetailCodec builds a codec bound to registry (nil registers none,
// so every Extension stays opaque passthrough).
func NewDetailCodec(registry *ExtensionRegistry, maxElements uint64) *DetailCodec {
	if registry == nil {
		registry = NewExtensionRegistry()
	}
	return &DetailCodec{registry: registry, maxElements: maxElements}
}

func writeU16String(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errs.New(errs.KindPrefixOverflow, "detail string exceeds u16 length prefix")
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
	return nil
}

func writeU32Bytes(buf *bytes.Buffer, b []byte) error {
	if len(b) > math.MaxUint32 {
		return errs.New(errs.KindPrefixOverflow, "detail payload exceeds u32 length prefix")
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
	return nil
}

func writeFloat64(buf *bytes.Buffer, f float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(f))
	buf.Write(b[:])
}

// Encode serializes detail's elements in their canonical order.
func (c *DetailCodec) Encode(detail CotDetail) ([]byte, error) {
	if len(detail.Elements) > math.MaxUint16 {
		return nil, errs.New(errs.KindPrefixOverflow, "too many detail elements for u16 count")
	}
	var buf bytes.Buffer
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(detail.Elements)))
	buf.Write(countBuf[:])

	for _, el := range detail.Elements {
		switch v := el.(type) {
		case TrackDetail:
			buf.WriteByte(detailKindTrack)
			if err := encodeTrack(&buf, v.Track); err != nil {
				return nil, err
			}
		case UnknownDetail:
			buf.WriteByte(detailKindUnknown)
			if err := writeU16String(&buf, v.XMLName); err != nil {
				return nil, err
			}
			if err := writeU32Bytes(&buf, v.Payload); err != nil {
				return nil, err
			}
		case ExtensionDetail:
			buf.WriteByte(detailKindExtension)
			if err := writeU16String(&buf, v.Key); err != nil {
				return nil, err
			}
			encoded, err := c.registry.Encode(v)
			if err != nil {
				return nil, err
			}
			if err := writeU32Bytes(&buf, encoded); err != nil {
				return nil, err
			}
		default:
			return nil, errs.New(errs.KindEncode, "unknown detail element type")
		}
	}
	return buf.Bytes(), nil
}

func encodeTrack(buf *bytes.Buffer, t Track) error {
	if len(t.Kinematics) > math.MaxUint16 {
		return errs.New(errs.KindPrefixOverflow, "too many kinematics for u16 count")
	}
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(t.Kinematics)))
	buf.Write(countBuf[:])
	for _, k := range t.Kinematics {
		var flags byte
		if k.Position != nil {
			flags |= 0x01
		}
		if k.Course != nil {
			flags |= 0x02
		}
		buf.WriteByte(flags)
		if k.Position != nil {
			writeFloat64(buf, k.Position.Lat)
			writeFloat64(buf, k.Position.Lon)
			var posFlags byte
			if k.Position.HAE != nil {
				posFlags |= 0x01
			}
			if k.Position.CE != nil {
				posFlags |= 0x02
			}
			if k.Position.LE != nil {
				posFlags |= 0x04
			}
			buf.WriteByte(posFlags)
			if k.Position.HAE != nil {
				writeFloat64(buf, *k.Position.HAE)
			}
			if k.Position.CE != nil {
				writeFloat64(buf, *k.Position.CE)
			}
			if k.Position.LE != nil {
				writeFloat64(buf, *k.Position.LE)
			}
		}
		if k.Course != nil {
			writeFloat64(buf, *k.Course)
		}
	}
	return nil
}

// Decode parses a serialized detail block back into a CotDetail,
// routing Extension bytes through the codec's registry so a registered
// key yields its codec's interpretation rather than raw passthrough.
func (c *DetailCodec) Decode(raw []byte) (CotDetail, error) {
	br := netio.NewBoundedReader(bytes.NewReader(raw), uint64(len(raw)))

	countBuf, err := br.ReadExact(2)
	if err != nil {
		return CotDetail{}, err
	}
	count := binary.BigEndian.Uint16(countBuf)
	if c.maxElements > 0 && uint64(count) > c.maxElements {
		return CotDetail{}, errs.LimitExceeded(c.maxElements, uint64(count))
	}

	var detail CotDetail
	for i := uint16(0); i < count; i++ {
		kindBuf, err := br.ReadExact(1)
		if err != nil {
			return CotDetail{}, err
		}
		var el DetailElement
		switch kindBuf[0] {
		case detailKindTrack:
			track, err := decodeTrack(br)
			if err != nil {
				return CotDetail{}, err
			}
			el = TrackDetail{Track: track}
		case detailKindUnknown:
			name, err := readU16String(br)
			if err != nil {
				return CotDetail{}, err
			}
			payload, err := readU32Bytes(br)
			if err != nil {
				return CotDetail{}, err
			}
			el = UnknownDetail{XMLName: name, Payload: payload}
		case detailKindExtension:
			key, err := readU16String(br)
			if err != nil {
				return CotDetail{}, err
			}
			raw, err := readU32Bytes(br)
			if err != nil {
				return CotDetail{}, err
			}
			decoded, err := c.registry.Decode(key, raw)
			if err != nil {
				return CotDetail{}, err
			}
			el = decoded
		default:
			return CotDetail{}, errs.New(errs.KindDecode, "unknown detail element kind byte")
		}
		if err := detail.Add(el); err != nil {
			return CotDetail{}, err
		}
	}
	return detail, nil
}

func decodeTrack(br *netio.BoundedReader) (Track, error) {
	countBuf, err := br.ReadExact(2)
	if err != nil {
		return Track{}, err
	}
	count := binary.BigEndian.Uint16(countBuf)
	kinematics := make([]Kinematics, 0, count)
	for i := uint16(0); i < count; i++ {
		flagBuf, err := br.ReadExact(1)
		if err != nil {
			return Track{}, err
		}
		flags := flagBuf[0]
		var pos *Position
		var course *float64
		if flags&0x01 != 0 {
			lat, err := readFloat64(br)
			if err != nil {
				return Track{}, err
			}
			lon, err := readFloat64(br)
			if err != nil {
				return Track{}, err
			}
			posFlagBuf, err := br.ReadExact(1)
			if err != nil {
				return Track{}, err
			}
			posFlags := posFlagBuf[0]
			var hae, ce, le *float64
			if posFlags&0x01 != 0 {
				v, err := readFloat64(br)
				if err != nil {
					return Track{}, err
				}
				hae = &v
			}
			if posFlags&0x02 != 0 {
				v, err := readFloat64(br)
				if err != nil {
					return Track{}, err
				}
				ce = &v
			}
			if posFlags&0x04 != 0 {
				v, err := readFloat64(br)
				if err != nil {
					return Track{}, err
				}
				le = &v
			}
			p, err := NewPosition(lat, lon, hae, ce, le)
			if err != nil {
				return Track{}, err
			}
			pos = &p
		}
		if flags&0x02 != 0 {
			v, err := readFloat64(br)
			if err != nil {
				return Track{}, err
			}
			course = &v
		}
		k, err := NewKinematics(pos, course)
		if err != nil {
			return Track{}, err
		}
		kinematics = append(kinematics, k)
	}
	return NewTrack(kinematics)
}

func readFloat64(br *netio.BoundedReader) (float64, error) {
	b, err := br.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func readU16String(br *netio.BoundedReader) (string, error) {
	lb, err := br.ReadExact(2)
	if err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lb)
	if n == 0 {
		return "", nil
	}
	b, err := br.ReadExact(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readU32Bytes(br *netio.BoundedReader) ([]byte, error) {
	lb, err := br.ReadExact(4)
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lb)
	if n == 0 {
		return nil, nil
	}
	if n > math.MaxInt32 {
		return nil, errs.New(errs.KindIntegerOverflow, "detail payload length overflows int")
	}
	return br.ReadExact(int(n))
}
