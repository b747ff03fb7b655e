// Package bridge implements the four-stage SAPIENT-to-CoT projection:
// correlate, resolve time, deduplicate, map classification. This file
// holds the shared data model — positions, tracks, detail elements, and
// the canonical UTC timestamp — that the later stages operate on.
package bridge

import (
	"fmt"
	"math"
	"time"

	"tak.dev/bridge/internal/errs"
)

// Position is a WGS84 fix with optional height-above-ellipsoid and
// circular/linear error bounds. Zero values are canonicalized so that
// -0.0 never survives construction.
type Position struct {
	Lat float64
	Lon float64
	HAE *float64
	CE  *float64
	LE  *float64
}

func canonicalizeZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}

// NewPosition validates and canonicalizes a fix per spec §3/§8.
func NewPosition(lat, lon float64, hae, ce, le *float64) (Position, error) {
	lat = canonicalizeZero(lat)
	lon = canonicalizeZero(lon)
	if lat < -90 || lat > 90 {
		return Position{}, errs.New(errs.KindOutOfRange, fmt.Sprintf("lat %v out of range [-90,90]", lat))
	}
	if lon < -180 || lon > 180 {
		return Position{}, errs.New(errs.KindOutOfRange, fmt.Sprintf("lon %v out of range [-180,180]", lon))
	}
	p := Position{Lat: lat, Lon: lon}
	if hae != nil {
		h := canonicalizeZero(*hae)
		if math.IsNaN(h) || math.IsInf(h, 0) {
			return Position{}, errs.New(errs.KindOutOfRange, "hae must be finite")
		}
		p.HAE = &h
	}
	if ce != nil {
		c := canonicalizeZero(*ce)
		if c < 0 {
			return Position{}, errs.New(errs.KindOutOfRange, fmt.Sprintf("ce %v must be non-negative", c))
		}
		p.CE = &c
	}
	if le != nil {
		l := canonicalizeZero(*le)
		if l < 0 {
			return Position{}, errs.New(errs.KindOutOfRange, fmt.Sprintf("le %v must be non-negative", l))
		}
		p.LE = &l
	}
	return p, nil
}

// canonicalizeCourse maps 360.0 to 0.0 and rejects anything outside
// [0,360) after that canonicalization (spec §8: 360.0001 -> OutOfRange).
func canonicalizeCourse(c float64) (float64, error) {
	c = canonicalizeZero(c)
	if c == 360.0 {
		return 0.0, nil
	}
	if c < 0 || c >= 360.0 {
		return 0, errs.New(errs.KindOutOfRange, fmt.Sprintf("course %v out of range [0,360)", c))
	}
	return c, nil
}

// Kinematics is one positional/course sample within a Track.
type Kinematics struct {
	Position *Position
	Course   *float64
}

// NewKinematics canonicalizes Course and validates Position if present.
func NewKinematics(pos *Position, course *float64) (Kinematics, error) {
	k := Kinematics{Position: pos}
	if course != nil {
		c, err := canonicalizeCourse(*course)
		if err != nil {
			return Kinematics{}, err
		}
		k.Course = &c
	}
	return k, nil
}

// Track is an ordered sequence of kinematic samples; it requires at
// least one.
type Track struct {
	Kinematics []Kinematics
}

// NewTrack rejects an empty kinematic sequence per spec §3.
func NewTrack(k []Kinematics) (Track, error) {
	if len(k) == 0 {
		return Track{}, errs.New(errs.KindOutOfRange, "track requires at least one kinematic component")
	}
	return Track{Kinematics: k}, nil
}

// DetailElementKind ranks DetailElement variants for CotDetail's
// deterministic ordering.
type DetailElementKind int

const (
	DetailKindTrack DetailElementKind = iota
	DetailKindUnknown
	DetailKindExtension
)

// DetailElement is one member of a CotDetail sequence.
type DetailElement interface {
	Kind() DetailElementKind
	sortKey() string
}

// TrackDetail wraps a Track as a DetailElement. CotDetail permits at
// most one.
type TrackDetail struct{ Track Track }

func (TrackDetail) Kind() DetailElementKind { return DetailKindTrack }
func (TrackDetail) sortKey() string         { return "" }

// UnknownDetail preserves an unrecognized XML element verbatim so it
// round-trips through the bridge untouched.
type UnknownDetail struct {
	XMLName string
	Payload []byte
}

func (u UnknownDetail) Kind() DetailElementKind { return DetailKindUnknown }
func (u UnknownDetail) sortKey() string         { return u.XMLName }

// ExtensionDetail is an opaque registry-keyed extension; Key selects the
// codec that knows how to interpret Bytes.
type ExtensionDetail struct {
	Key   string
	Bytes []byte
}

func (e ExtensionDetail) Kind() DetailElementKind { return DetailKindExtension }
func (e ExtensionDetail) sortKey() string         { return e.Key }

// CotDetail is the deterministically sorted detail block of a CoT
// event. At most one TrackDetail may be present.
type CotDetail struct {
	Elements []DetailElement
}

// Add appends el, rejecting a second TrackDetail, and resorts.
func (d *CotDetail) Add(el DetailElement) error {
	if _, ok := el.(TrackDetail); ok {
		for _, existing := range d.Elements {
			if existing.Kind() == DetailKindTrack {
				return errs.New(errs.KindOutOfRange, "cot detail already has a track element")
			}
		}
	}
	d.Elements = append(d.Elements, el)
	d.sort()
	return nil
}

func (d *CotDetail) sort() {
	els := d.Elements
	for i := 1; i < len(els); i++ {
		for j := i; j > 0 && less(els[j], els[j-1]); j-- {
			els[j], els[j-1] = els[j-1], els[j]
		}
	}
}

func less(a, b DetailElement) bool {
	if a.Kind() != b.Kind() {
		return a.Kind() < b.Kind()
	}
	return a.sortKey() < b.sortKey()
}

const billion = int64(1_000_000_000)

// TimestampUtc is signed nanoseconds since the Unix epoch, exposed only
// through accessors that guarantee a Euclidean (always non-negative)
// subsecond component.
type TimestampUtc struct {
	nanos int64
}

// NewTimestampUtc wraps a raw nanosecond count.
func NewTimestampUtc(nanos int64) TimestampUtc { return TimestampUtc{nanos: nanos} }

// FromTime converts a system time.Time, preserving it exactly.
func FromTime(t time.Time) TimestampUtc { return TimestampUtc{nanos: t.UnixNano()} }

// ToTime recovers the system time.Time this timestamp represents.
func (t TimestampUtc) ToTime() time.Time { return time.Unix(0, t.nanos).UTC() }

// UnixNanos returns the raw signed nanosecond count.
func (t TimestampUtc) UnixNanos() int64 { return t.nanos }

// Split returns the whole-second and subsecond-nanosecond components
// under Euclidean division: subsec is always in [0, 1e9).
func (t TimestampUtc) Split() (sec int64, subsecNanos int64) {
	sec = t.nanos / billion
	subsecNanos = t.nanos % billion
	if subsecNanos < 0 {
		subsecNanos += billion
		sec--
	}
	return sec, subsecNanos
}

// AddSaturating adds delta nanoseconds, clamping to the int64 range
// instead of overflowing (used by the time policy's stale-time output).
func (t TimestampUtc) AddSaturating(delta int64) TimestampUtc {
	if delta > 0 && t.nanos > math.MaxInt64-delta {
		return TimestampUtc{nanos: math.MaxInt64}
	}
	if delta < 0 && t.nanos < math.MinInt64-delta {
		return TimestampUtc{nanos: math.MinInt64}
	}
	return TimestampUtc{nanos: t.nanos + delta}
}

// Before reports whether t occurs strictly before o.
func (t TimestampUtc) Before(o TimestampUtc) bool { return t.nanos < o.nanos }

// Compare returns -1, 0, or 1 as t is less than, equal to, or greater
// than o.
func (t TimestampUtc) Compare(o TimestampUtc) int {
	switch {
	case t.nanos < o.nanos:
		return -1
	case t.nanos > o.nanos:
		return 1
	default:
		return 0
	}
}
