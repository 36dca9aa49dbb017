package loghandler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func fixedTime() time.Time {
	return time.Date(2025, 1, 15, 14, 32, 5, 0, time.UTC)
}

func newTestHandler(buf *bytes.Buffer, color bool) *Handler {
	return NewHandler(buf, &Options{
		Level:    slog.LevelDebug,
		UseColor: color,
	})
}

func handle(t *testing.T, h slog.Handler, r slog.Record) {
	t.Helper()
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatal(err)
	}
}

func TestHandle_PlainFormat(t *testing.T) {
	var buf bytes.Buffer
	handle(t, newTestHandler(&buf, false), slog.NewRecord(fixedTime(), slog.LevelInfo, "backup created", 0))

	want := "14:32:05 INF backup created\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHandle_ShowDate(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, &Options{ShowDate: true})
	handle(t, h, slog.NewRecord(time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), slog.LevelWarn, "tick", 0))

	want := "2025-03-04 05:06:07 WRN tick\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHandle_AllLevels(t *testing.T) {
	tests := []struct {
		level slog.Level
		label string
	}{
		{slog.LevelDebug, "DBG"},
		{slog.LevelInfo, "INF"},
		{slog.LevelWarn, "WRN"},
		{slog.LevelError, "ERR"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			var buf bytes.Buffer
			handle(t, newTestHandler(&buf, false), slog.NewRecord(fixedTime(), tt.level, "msg", 0))
			if !strings.Contains(buf.String(), tt.label) {
				t.Errorf("output %q does not contain level label %q", buf.String(), tt.label)
			}
		})
	}
}

func TestHandle_Attributes(t *testing.T) {
	var buf bytes.Buffer
	r := slog.NewRecord(fixedTime(), slog.LevelInfo, "retention applied", 0)
	r.AddAttrs(
		slog.String("save", "Survival/Alpha"),
		slog.Int("deleted", 2),
		slog.Bool("dry", false),
		slog.String("err", "disk full"),
		slog.String("empty", ""),
		slog.Duration("took", 1500*time.Microsecond),
	)
	handle(t, newTestHandler(&buf, false), r)

	want := `14:32:05 INF retention applied save=Survival/Alpha deleted=2 dry=false err="disk full" empty="" took=2ms` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHandle_ComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, false)).With(ComponentKey, "scheduler", "interval", "5m0s")
	logger.Info("started")

	got := buf.String()
	if !strings.Contains(got, " INF [scheduler] started interval=5m0s\n") {
		t.Errorf("expected component prefix, got %q", got)
	}
	if strings.Contains(got, "component=") {
		t.Errorf("component must not be rendered as attr: %q", got)
	}
}

func TestHandle_RecordComponentOverridesBound(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, false)).With(ComponentKey, "app")
	logger.Info("done", ComponentKey, "restore")

	if !strings.Contains(buf.String(), "[restore] done") {
		t.Errorf("expected record component, got %q", buf.String())
	}
}

func TestHandle_ColorFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, true)).With(ComponentKey, "lock")
	logger.Error("lock is held")

	got := buf.String()
	for _, code := range []string{colorBoldRed, colorReset, colorDim, colorMagenta} {
		if !strings.Contains(got, code) {
			t.Errorf("expected %q in colored output: %q", code, got)
		}
	}
}

func TestHandle_NoColorNoANSI(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newTestHandler(&buf, false)).With(ComponentKey, "x").Info("msg", "k", "v")
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("no-color output contains ANSI escape codes: %q", buf.String())
	}
}

func TestWithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, false)).WithGroup("archive").With("save", "A")
	logger.Info("created", "size", 10, ComponentKey, "grouped")

	got := buf.String()
	for _, want := range []string{"archive.save=A", "archive.size=10", "archive.component=grouped"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestEnabled(t *testing.T) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	h := NewHandler(&bytes.Buffer{}, &Options{Level: level})

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("INFO should not be enabled at WARN level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("ERROR should be enabled at WARN level")
	}
	level.Set(slog.LevelDebug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("DEBUG should be enabled after lowering the level")
	}
}

func TestNewHandler_NilOptsDefaultsToInfo(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, nil)
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("DEBUG should be disabled by default")
	}
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("INFO should be enabled by default")
	}
}

func TestWithAttrsAndGroup_EmptyReturnsSame(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, nil)
	if h.WithAttrs(nil) != slog.Handler(h) {
		t.Error("WithAttrs(nil) should return same handler")
	}
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("WithGroup empty should return same handler")
	}
}

func TestConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTestHandler(&buf, false))

	var wg sync.WaitGroup
	const n = 100
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			logger.Info("concurrent", "i", 1)
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != n {
		t.Errorf("expected %d lines, got %d", n, len(lines))
	}
}

func TestNeedsQuoting(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"simple", false},
		{"Survival/Alpha", false},
		{"has space", true},
		{"has=equals", true},
		{`has"quote`, true},
		{`has\backslash`, true},
		{"tab\there", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := needsQuoting(tt.input); got != tt.want {
				t.Errorf("needsQuoting(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestMultiHandler(t *testing.T) {
	var terminal, file bytes.Buffer
	m := NewMultiHandler(
		NewHandler(&terminal, &Options{Level: slog.LevelWarn}),
		nil,
		NewHandler(&file, &Options{Level: slog.LevelDebug, ShowDate: true}),
	)
	logger := slog.New(m).With(ComponentKey, "serve")
	logger.Debug("poll")
	logger.Warn("backup failed", "save", "A")

	if strings.Contains(terminal.String(), "poll") {
		t.Errorf("terminal should skip debug: %q", terminal.String())
	}
	if !strings.Contains(terminal.String(), "[serve] backup failed save=A") {
		t.Errorf("terminal missing warn: %q", terminal.String())
	}
	if strings.Count(file.String(), "\n") != 2 {
		t.Errorf("file should have both records: %q", file.String())
	}
	if !m.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("multi handler should be enabled when any handler is")
	}
}

func TestMultiHandler_ContinuesAfterError(t *testing.T) {
	var buf bytes.Buffer
	m := NewMultiHandler(NewHandler(failingWriter{}, nil), NewHandler(&buf, nil))
	err := m.Handle(context.Background(), slog.NewRecord(fixedTime(), slog.LevelInfo, "msg", 0))
	if err == nil {
		t.Fatal("expected write error")
	}
	if !strings.Contains(buf.String(), "msg") {
		t.Errorf("second handler should still receive the record: %q", buf.String())
	}
}
