// Package logging builds the slog.Logger used by the command line. Besides
// slog's own text and JSON handlers it offers two human-oriented formats:
// compact, one line per record with attributes as JSON, and pretty, one line
// per attribute under the message.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format names an output format.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatCompact Format = "compact"
	FormatPretty  Format = "pretty"
)

// ParseFormat maps a format name to a Format. Unknown names yield FormatText.
func ParseFormat(s string) Format {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON
	case FormatCompact:
		return FormatCompact
	case FormatPretty:
		return FormatPretty
	default:
		return FormatText
	}
}

// ParseLevel reads a slog level name ("debug", "warn", "error+2"...).
// Unreadable values yield slog.LevelInfo.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// New returns a logger writing records at or above level to w in format.
func New(format Format, level slog.Level, w io.Writer) *slog.Logger {
	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case FormatCompact, FormatPretty:
		return slog.New(NewHandler(w, &HandlerOptions{Format: format, Level: level}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
