package bridge

import "tak.dev/bridge/internal/errs"

// Classifier maps a SAPIENT classification label onto a CoT type code,
// falling back to a configured default when the label is unmapped.
type Classifier struct {
	mapping  map[string]string
	fallback string
}

// NewClassifier builds a Classifier from mapping and fallback without
// strict validation (used when strict_startup is disabled).
func NewClassifier(mapping map[string]string, fallback string) *Classifier {
	cloned := make(map[string]string, len(mapping))
	for k, v := range mapping {
		cloned[k] = v
	}
	return &Classifier{mapping: cloned, fallback: fallback}
}

// NewStrictClassifier builds a Classifier and enforces spec §4.6's
// strict-startup invariant: the mapping must be non-empty, every
// key/value non-blank, and the fallback non-blank.
func NewStrictClassifier(mapping map[string]string, fallback string) (*Classifier, error) {
	if len(mapping) == 0 {
		return nil, errs.New(errs.KindInvalidClassification, "classification mapping must be non-empty under strict_startup")
	}
	if fallback == "" {
		return nil, errs.New(errs.KindInvalidClassification, "unknown_class_fallback must be non-blank under strict_startup")
	}
	for k, v := range mapping {
		if k == "" || v == "" {
			return nil, errs.New(errs.KindInvalidClassification, "classification mapping keys/values must be non-blank under strict_startup")
		}
	}
	return NewClassifier(mapping, fallback), nil
}

// Map resolves classification to its configured CoT type, or the
// fallback when unmapped.
func (c *Classifier) Map(classification string) string {
	if v, ok := c.mapping[classification]; ok {
		return v
	}
	return c.fallback
}
