package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath       = "path"
	KeyOutput     = "output"
	KeyKind       = "kind"
	KeyMime       = "mime"
	KeyStem       = "stem"
	KeyLayout     = "layout"
	KeyBuildID    = "build_id"
	KeyScope      = "scope"
	KeyState      = "state"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyClients    = "clients"
	KeyWords      = "words"
	KeyTimings    = "timings"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr              { return slog.String(KeyPath, p) }
func Output(p string) slog.Attr            { return slog.String(KeyOutput, p) }
func Kind(k string) slog.Attr              { return slog.String(KeyKind, k) }
func Mime(m string) slog.Attr              { return slog.String(KeyMime, m) }
func Stem(s string) slog.Attr              { return slog.String(KeyStem, s) }
func Layout(name string) slog.Attr         { return slog.String(KeyLayout, name) }
func BuildID(id string) slog.Attr          { return slog.String(KeyBuildID, id) }
func Scope(s string) slog.Attr             { return slog.String(KeyScope, s) }
func State(s string) slog.Attr             { return slog.String(KeyState, s) }
func DurationMS(d time.Duration) slog.Attr { return slog.Int64(KeyDurationMS, d.Milliseconds()) }
func Count(n int) slog.Attr                { return slog.Int(KeyCount, n) }
func Clients(n int) slog.Attr              { return slog.Int(KeyClients, n) }
func Words(n int) slog.Attr                { return slog.Int(KeyWords, n) }
func Timings(n int) slog.Attr              { return slog.Int(KeyTimings, n) }
func URL(u string) slog.Attr               { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
