package bridge

// TimeMode selects how the projection resolves an observation's
// canonical time from an optional message time and a required observed
// time.
type TimeMode int

const (
	MessageTime TimeMode = iota
	ObservedTime
	ObservedWithSkewClamp
)

// TimePolicy resolves {time, start, stale} for one observation.
type TimePolicy struct {
	Mode         TimeMode
	MaxClockSkew int64 // nanoseconds
	CotStale     int64 // nanoseconds, added with saturation
}

// Resolved is the time policy's output for one observation.
type Resolved struct {
	Time  TimestampUtc
	Start TimestampUtc
	Stale TimestampUtc
}

// clamp bounds candidate to [observed-skew, observed+skew].
func clamp(candidate, observed TimestampUtc, skew int64) TimestampUtc {
	lo := observed.AddSaturating(-skew)
	hi := observed.AddSaturating(skew)
	if candidate.Before(lo) {
		return lo
	}
	if hi.Before(candidate) {
		return hi
	}
	return candidate
}

// Resolve implements spec §4.6 stage 2. messageTime is nil when the
// observation carries no message_time field.
func (p TimePolicy) Resolve(messageTime *TimestampUtc, observedTime TimestampUtc) Resolved {
	var resolved TimestampUtc
	switch p.Mode {
	case ObservedTime:
		resolved = observedTime
	case ObservedWithSkewClamp:
		candidate := observedTime
		if messageTime != nil {
			candidate = *messageTime
		}
		resolved = clamp(candidate, observedTime, p.MaxClockSkew)
	default: // MessageTime
		resolved = observedTime
		if messageTime != nil {
			resolved = *messageTime
		}
	}
	return Resolved{
		Time:  resolved,
		Start: resolved,
		Stale: resolved.AddSaturating(p.CotStale),
	}
}
