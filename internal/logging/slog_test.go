package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// captureStdout points the console sink at a pipe. The returned func
// restores it and yields what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}

func TestSetup_ConsoleOnlyWithoutFile(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		stdout := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("anchor resolved")

		assert.Empty(t, stdout())
		assert.Contains(t, file.String(), "Logging initialized")
		assert.Contains(t, file.String(), "anchor resolved")
	})

	t.Run("console", func(t *testing.T) {
		stdout := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("anchor resolved")

		assert.Contains(t, stdout(), "anchor resolved")
	})
}

func TestSetup_Level(t *testing.T) {
	tests := map[string]struct {
		level     string
		wantDebug bool
	}{
		"debug":   {"debug", true},
		"info":    {"info", false},
		"unknown": {"verbose", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)

			m.Logger().Debug("waiting for session")
			m.Logger().Info("host started")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("waiting for session")))
			assert.Contains(t, buf.String(), "host started")
		})
	}
}

func TestSetup_TimeIsUTC(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)

	assert.Regexp(t, `time=\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z `, buf.String())
}

func TestSetup_ExtraHandlersReceiveEveryRecord(t *testing.T) {
	var file, graylog, second bytes.Buffer
	m := NewSlogManager()
	m.AddHandler(slog.NewJSONHandler(&graylog, nil))
	m.AddHandler(slog.NewTextHandler(&second, nil))
	m.Setup(&file, "info", nil)

	m.Logger().Warn("anchor resolution panicked", "anchor", "pier")

	for name, buf := range map[string]*bytes.Buffer{"file": &file, "graylog": &graylog, "second": &second} {
		assert.Contains(t, buf.String(), "anchor resolution panicked", name)
	}
	assert.Equal(t, "pier", decodeLine(t, lastLine(graylog.Bytes()))["anchor"])
}

func TestSetup_ContextProviderStampsAllSinks(t *testing.T) {
	var file, graylog bytes.Buffer
	var tick uint64
	m := NewSlogManager()
	m.SetContextProvider(func() []slog.Attr { return []slog.Attr{slog.Uint64("tick", tick)} })
	m.AddHandler(slog.NewJSONHandler(&graylog, nil))
	m.Setup(&file, "info", nil)

	tick = 3
	m.Logger().Info("ticked")

	assert.Contains(t, file.String(), "msg=ticked tick=3")
	assert.Equal(t, float64(3), decodeLine(t, lastLine(graylog.Bytes()))["tick"])
}

func TestSetup_WithoutContextProvider(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)
	m.Logger().Info("plain")

	assert.NotContains(t, file.String(), "tick=")
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup(&first, "info", nil)
	m.Logger().Info("before")
	m.Setup(&second, "info", nil)
	m.Logger().Info("after")

	assert.NotContains(t, first.String(), "after")
	assert.Contains(t, second.String(), "after")
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)
	m.Logger().Info("bridged")

	assert.Contains(t, buf.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLoggerAndFlush_BeforeSetup(t *testing.T) {
	m := NewSlogManager()

	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	m.WriteLog("fn", "dropped", "info")
}

func TestWriteLog(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)

			m.WriteLog("resolveAnchor", level+" message", level)

			assert.Contains(t, buf.String(), level+" message")
			assert.Contains(t, buf.String(), "function=resolveAnchor")
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"Info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
		"":      slog.LevelInfo,
		"trace": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "level %q", in)
	}
}

func lastLine(b []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	return lines[len(lines)-1]
}
