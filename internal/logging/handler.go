package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const timeLayout = "2006-01-02 15:04:05"

// ANSI colors, applied to the level column only.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Format Format // FormatCompact or FormatPretty
	Level  slog.Leveler
	// Colors forces ANSI colors on. They are enabled anyway when the output
	// is a terminal.
	Colors bool
}

// Handler is a slog.Handler for the compact and pretty formats:
//
//	2026-01-02 15:04:05  INFO llm send completed → {"provider":"ollama","model":"llama3.1"}
//
//	2026-01-02 15:04:05  INFO llm send completed
//	                    ├─ provider: ollama
//	                    └─ model: llama3.1
//
// Attributes keep the order in which they were added. Grouped keys are
// joined with dots.
type Handler struct {
	format Format
	level  slog.Leveler
	colors bool

	mu  *sync.Mutex
	out io.Writer

	attrs  []slog.Attr
	prefix string
}

// NewHandler creates a Handler writing to w.
func NewHandler(w io.Writer, opts *HandlerOptions) *Handler {
	if opts == nil {
		opts = &HandlerOptions{}
	}
	h := &Handler{
		format: opts.Format,
		level:  opts.Level,
		colors: opts.Colors || isTerminal(w),
		mu:     &sync.Mutex{},
		out:    w,
	}
	if h.format != FormatPretty {
		h.format = FormatCompact
	}
	if h.level == nil {
		h.level = slog.LevelInfo
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + attr.Key, Value: attr.Value})
	}
	return &clone
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	fields := h.fields(r)

	var b strings.Builder
	b.WriteString(r.Time.Format(timeLayout))
	b.WriteByte(' ')
	h.writeLevel(&b, r.Level)
	b.WriteByte(' ')
	b.WriteString(r.Message)

	if h.format == FormatPretty {
		b.WriteByte('\n')
		for i, field := range fields {
			branch := "├─ "
			if i == len(fields)-1 {
				branch = "└─ "
			}
			fmt.Fprintf(&b, "%20s%s%s: %v\n", "", branch, field.key, field.value)
		}
	} else {
		if len(fields) > 0 {
			b.WriteString(" → ")
			b.Write(encodeFields(fields))
		}
		b.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

type field struct {
	key   string
	value any
}

func (h *Handler) fields(r slog.Record) []field {
	fields := make([]field, 0, len(h.attrs)+r.NumAttrs())
	for _, attr := range h.attrs {
		fields = appendAttr(fields, "", attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		fields = appendAttr(fields, h.prefix, attr)
		return true
	})
	return fields
}

// appendAttr flattens group values into dotted keys and drops empty attrs.
func appendAttr(fields []field, prefix string, attr slog.Attr) []field {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return fields
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			fields = appendAttr(fields, prefix, member)
		}
		return fields
	}
	value := attr.Value.Any()
	if err, ok := value.(error); ok {
		value = err.Error()
	}
	return append(fields, field{key: prefix + attr.Key, value: value})
}

// encodeFields renders fields as a JSON object in insertion order.
func encodeFields(fields []field) []byte {
	buf := []byte{'{'}
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, _ := json.Marshal(f.key)
		buf = append(buf, key...)
		buf = append(buf, ':')

		value, err := json.Marshal(f.value)
		if err != nil {
			value, _ = json.Marshal(fmt.Sprint(f.value))
		}
		buf = append(buf, value...)
	}
	return append(buf, '}')
}

func (h *Handler) writeLevel(b *strings.Builder, level slog.Level) {
	name := fmt.Sprintf("%5s", levelName(level))
	if !h.colors {
		b.WriteString(name)
		return
	}
	b.WriteString(levelColor(level))
	b.WriteString(name)
	b.WriteString(colorReset)
}

func levelName(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "DEBUG"
	case level < slog.LevelWarn:
		return "INFO"
	case level < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return colorBlue
	case level < slog.LevelWarn:
		return colorGreen
	case level < slog.LevelError:
		return colorYellow
	default:
		return colorRed
	}
}
