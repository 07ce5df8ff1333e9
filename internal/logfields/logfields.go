package logfields

import "log/slog"

// Canonical log field names shared by all packages.
const (
	KeyPage       = "page"
	KeyPermalink  = "permalink"
	KeyGroup      = "group"
	KeyPath       = "path"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
	KeyBuildID    = "build_id"
	KeyCount      = "count"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
)

func Page(source string) slog.Attr    { return slog.String(KeyPage, source) }
func Permalink(p string) slog.Attr    { return slog.String(KeyPermalink, p) }
func Group(name string) slog.Attr     { return slog.String(KeyGroup, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
