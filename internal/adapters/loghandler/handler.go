// Package loghandler renders slog records as compact single lines for the
// terminal and the daemon log file.
package loghandler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ComponentKey is rendered as a "[name]" prefix instead of a key=value pair.
const ComponentKey = "component"

const (
	colorReset   = "\033[0m"
	colorDim     = "\033[2m"
	colorCyan    = "\033[36m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorMagenta = "\033[35m"
	colorBoldRed = "\033[1;31m"
)

// Options configures the Handler.
type Options struct {
	Level    slog.Leveler
	UseColor bool
	// ShowDate prefixes the clock with YYYY-MM-DD, used by long running daemons.
	ShowDate bool
}

// Handler is a compact, optionally colored slog.Handler.
type Handler struct {
	w         io.Writer
	opts      Options
	mu        *sync.Mutex
	component string
	attrs     []slog.Attr
	groups    []string
	bufPool   *sync.Pool
}

// NewHandler creates a new Handler writing to w.
func NewHandler(w io.Writer, opts *Options) *Handler {
	h := &Handler{
		w:  w,
		mu: &sync.Mutex{},
		bufPool: &sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
	}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle formats and writes the log record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	buf := h.bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.bufPool.Put(buf)

	h.formatTime(buf, r.Time)
	buf.WriteByte(' ')
	h.formatLevel(buf, r.Level)

	component := h.component
	var recordAttrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if len(h.groups) == 0 && a.Key == ComponentKey {
			component = a.Value.Resolve().String()
			return true
		}
		recordAttrs = append(recordAttrs, h.resolveAttr(a, h.groups))
		return true
	})
	if component != "" {
		buf.WriteByte(' ')
		h.colored(buf, colorMagenta, "["+component+"]")
	}
	if r.Message != "" {
		buf.WriteByte(' ')
		buf.WriteString(r.Message)
	}
	for _, a := range h.attrs {
		h.writeAttr(buf, a)
	}
	for _, a := range recordAttrs {
		h.writeAttr(buf, a)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new Handler with the given attributes appended.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		if len(h.groups) == 0 && a.Key == ComponentKey {
			h2.component = a.Value.Resolve().String()
			continue
		}
		h2.attrs = append(h2.attrs, h.resolveAttr(a, h.groups))
	}
	return h2
}

// WithGroup returns a new Handler with the given group name appended.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *Handler) clone() *Handler {
	return &Handler{
		w:         h.w,
		opts:      h.opts,
		mu:        h.mu,
		component: h.component,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
		bufPool:   h.bufPool,
	}
}

func (h *Handler) colored(buf *bytes.Buffer, color, text string) {
	if h.opts.UseColor {
		buf.WriteString(color)
	}
	buf.WriteString(text)
	if h.opts.UseColor {
		buf.WriteString(colorReset)
	}
}

func (h *Handler) formatTime(buf *bytes.Buffer, t time.Time) {
	if h.opts.UseColor {
		buf.WriteString(colorDim)
	}
	if h.opts.ShowDate {
		year, month, day := t.Date()
		fmt.Fprintf(buf, "%04d-", year)
		writePad2(buf, int(month))
		buf.WriteByte('-')
		writePad2(buf, day)
		buf.WriteByte(' ')
	}
	hour, min, sec := t.Clock()
	writePad2(buf, hour)
	buf.WriteByte(':')
	writePad2(buf, min)
	buf.WriteByte(':')
	writePad2(buf, sec)
	if h.opts.UseColor {
		buf.WriteString(colorReset)
	}
}

func (h *Handler) formatLevel(buf *bytes.Buffer, level slog.Level) {
	switch {
	case level >= slog.LevelError:
		h.colored(buf, colorBoldRed, "ERR")
	case level >= slog.LevelWarn:
		h.colored(buf, colorYellow, "WRN")
	case level >= slog.LevelInfo:
		h.colored(buf, colorGreen, "INF")
	default:
		h.colored(buf, colorCyan, "DBG")
	}
}

func (h *Handler) resolveAttr(a slog.Attr, groups []string) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return a
	}
	if len(groups) > 0 {
		var b bytes.Buffer
		for _, g := range groups {
			b.WriteString(g)
			b.WriteByte('.')
		}
		b.WriteString(a.Key)
		a.Key = b.String()
	}
	return a
}

func (h *Handler) writeAttr(buf *bytes.Buffer, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}

	buf.WriteByte(' ')
	if h.opts.UseColor {
		buf.WriteString(colorDim)
	}
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	h.writeValue(buf, a.Value)
	if h.opts.UseColor {
		buf.WriteString(colorReset)
	}
}

func (h *Handler) writeValue(buf *bytes.Buffer, v slog.Value) {
	switch v.Kind() {
	case slog.KindGroup:
		for i, a := range v.Group() {
			if i > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(a.Key)
			buf.WriteByte('=')
			h.writeValue(buf, a.Value.Resolve())
		}
	case slog.KindDuration:
		writeString(buf, v.Duration().Round(time.Millisecond).String())
	case slog.KindTime:
		writeString(buf, v.Time().Format(time.RFC3339))
	case slog.KindString:
		writeString(buf, v.String())
	default:
		writeString(buf, fmt.Sprint(v.Any()))
	}
}

func writeString(buf *bytes.Buffer, s string) {
	if needsQuoting(s) {
		fmt.Fprintf(buf, "%q", s)
		return
	}
	buf.WriteString(s)
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	for i := range len(s) {
		c := s[i]
		if c <= ' ' || c == '"' || c == '\\' || c == '=' {
			return true
		}
	}
	return false
}

func writePad2(buf *bytes.Buffer, n int) {
	if n >= 0 && n < 100 {
		buf.WriteByte(byte('0' + n/10))
		buf.WriteByte(byte('0' + n%10))
		return
	}
	fmt.Fprintf(buf, "%d", n)
}

var _ slog.Handler = (*Handler)(nil)
