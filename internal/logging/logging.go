// Package logging centralizes the slog.Logger defaulting convention used
// across the bridge: every component accepts an optional *slog.Logger and
// falls back to slog.Default() when nil, matching the teacher's
// crypto/hsm_monitor.go use of slog.
package logging

import "log/slog"

// Or returns l (or the process default logger when l is nil) tagged with component.
func Or(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", component)
}
