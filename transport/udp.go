package transport

// UDPPolicy configures the MTU-aware UDP fan-out of spec §4.5.
type UDPPolicy struct {
	MaxUDPPayloadBytes uint64
	DropOversize       bool
}

// Outcome describes what UDPPolicy.Apply decided for one payload.
type Outcome struct {
	Dropped            bool
	PayloadBytes       uint64
	MaxUDPPayloadBytes uint64
	Datagrams          [][]byte
}

// Apply decides how to fan payload out over UDP datagrams: a single
// datagram if it fits, a drop decision if oversize and DropOversize is
// set, or a deterministic contiguous fragmentation otherwise. Spec §9:
// no fragment/sequence header is added — raw payload slices only.
func (p UDPPolicy) Apply(payload []byte) Outcome {
	if uint64(len(payload)) <= p.MaxUDPPayloadBytes {
		return Outcome{Datagrams: [][]byte{payload}}
	}
	if p.DropOversize {
		return Outcome{Dropped: true, PayloadBytes: uint64(len(payload)), MaxUDPPayloadBytes: p.MaxUDPPayloadBytes}
	}
	limit := int(p.MaxUDPPayloadBytes)
	var out [][]byte
	for off := 0; off < len(payload); off += limit {
		end := off + limit
		if end > len(payload) {
			end = len(payload)
		}
		out = append(out, payload[off:end])
	}
	return Outcome{Datagrams: out}
}
