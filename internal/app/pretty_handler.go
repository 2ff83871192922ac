package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset   = "\x1b[0m"
	ansiDim     = "\x1b[2m"
	ansiBright  = "\x1b[1m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

// prettyHandler renders logfmt-style lines for local development.
// Production always uses the JSON handler.
type prettyHandler struct {
	w     io.Writer
	opts  slog.HandlerOptions
	attrs []slog.Attr
	color bool
	mu    *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{
		w:     w,
		color: color,
		mu:    &sync.Mutex{},
	}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString("ts=")
	b.WriteString(h.dim(ts.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString("lvl=")
	b.WriteString(h.levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString("msg=")
	b.WriteString(h.bold(r.Message))

	for _, a := range h.attrs {
		h.appendAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, a)
		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *prettyHandler) WithGroup(string) slog.Handler { return h }

func (h *prettyHandler) appendAttr(b *strings.Builder, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := strings.TrimSpace(a.Key)
	if key == "" {
		return
	}

	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(h.prettyValue(key, a.Value))
}

func (h *prettyHandler) prettyValue(key string, v slog.Value) string {
	if h.color {
		switch key {
		case "path":
			return ansiCyan + strings.TrimSpace(v.String()) + ansiReset
		case "status":
			if n, ok := valueToInt64(v); ok {
				return colorizeStatusCode(int(n))
			}
		case "err":
			return ansiRed + quoteIfNeeded(valueToString(v)) + ansiReset
		}
	}
	return quoteIfNeeded(valueToString(v))
}

func (h *prettyHandler) levelTag(level slog.Level) string {
	tag, color := "[INFO]", ansiBlue
	switch {
	case level >= slog.LevelError:
		tag, color = "[ERROR]", ansiRed
	case level >= slog.LevelWarn:
		tag, color = "[WARN]", ansiYellow
	case level < slog.LevelInfo:
		tag, color = "[DEBUG]", ansiMagenta
	}
	if !h.color {
		return tag
	}
	return color + tag + ansiReset
}

func (h *prettyHandler) dim(s string) string {
	if !h.color {
		return s
	}
	return ansiDim + s + ansiReset
}

func (h *prettyHandler) bold(s string) string {
	if !h.color {
		return s
	}
	return ansiBright + s + ansiReset
}

func colorizeStatusCode(code int) string {
	s := strconv.Itoa(code)
	switch {
	case code >= 500:
		return ansiRed + s + ansiReset
	case code >= 400:
		return ansiYellow + s + ansiReset
	case code >= 300:
		return ansiCyan + s + ansiReset
	default:
		return ansiGreen + s + ansiReset
	}
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	default:
		return 0, false
	}
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
