package bridge

// ExtensionCodec decodes and encodes the opaque bytes of one registered
// Extension detail element kind.
type ExtensionCodec interface {
	Decode(raw []byte) (ExtensionDetail, error)
	Encode(el ExtensionDetail) ([]byte, error)
}

// ExtensionRegistry is a parameterised, non-global mapping of extension
// key to codec (spec §9: "the extension registry is parameterised, not
// process-global"). A key with no registered codec falls back to opaque
// passthrough. Consumed by DetailCodec, constructed per codec instance
// per spec §3.
type ExtensionRegistry struct {
	codecs map[string]ExtensionCodec
}

// NewExtensionRegistry returns an empty registry.
func NewExtensionRegistry() *ExtensionRegistry {
	return &ExtensionRegistry{codecs: make(map[string]ExtensionCodec)}
}

// Register installs codec for key, overwriting any prior registration.
func (r *ExtensionRegistry) Register(key string, codec ExtensionCodec) {
	r.codecs[key] = codec
}

// Decode looks up key's codec and decodes raw; with no registered codec
// it returns an opaque passthrough ExtensionDetail.
func (r *ExtensionRegistry) Decode(key string, raw []byte) (ExtensionDetail, error) {
	if codec, ok := r.codecs[key]; ok {
		return codec.Decode(raw)
	}
	return ExtensionDetail{Key: key, Bytes: raw}, nil
}

// Encode re-serializes el via its registered codec, or returns its raw
// bytes unchanged when no codec is registered.
func (r *ExtensionRegistry) Encode(el ExtensionDetail) ([]byte, error) {
	if codec, ok := r.codecs[el.Key]; ok {
		return codec.Encode(el)
	}
	return el.Bytes, nil
}
