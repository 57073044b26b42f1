package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(zerolog.New(&buf), "chatserver", zerolog.InfoLevel)

	l.Debug("hidden")
	l.With(F("session_id", uint64(7))).Info("session joined", F("name", "Alice"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "chatserver", entry["service"])
	assert.Equal(t, "session joined", entry["message"])
	assert.Equal(t, "Alice", entry["name"])
	assert.EqualValues(t, 7, entry["session_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "chatclient", zerolog.WarnLevel)

	l.Info("not shown")
	l.Warn("connection lost", F("addr", "127.0.0.1:50000"))

	out := buf.String()
	assert.NotContains(t, out, "not shown")
	assert.Contains(t, out, "connection lost")
	assert.Contains(t, out, "addr=127.0.0.1:50000")
	assert.NoError(t, l.Close())
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("nothing happens")
	assert.NotNil(t, l.With(F("k", "v")))
	assert.NoError(t, l.Close())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":       zerolog.InfoLevel,
		"debug":  zerolog.DebugLevel,
		" WARN ": zerolog.WarnLevel,
		"error":  zerolog.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewZerologFileLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewZerologFileLogger("chatserver", dir, zerolog.InfoLevel)
	require.NoError(t, err)

	l.Info("server started")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	name := filepath.Join(dir, "chatserver_"+time.Now().Format(dateLayout)+".log")
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server started")
}

func TestDailyFileWriter(t *testing.T) {
	t.Run("rotates when the date changes", func(t *testing.T) {
		dir := t.TempDir()
		w, err := NewDailyFileWriter("svc", dir)
		require.NoError(t, err)

		day := time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC)
		w.now = func() time.Time { return day }

		_, err = w.Write([]byte("first\n"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "svc_2026-01-02.log"), w.CurrentLogFile())

		day = day.Add(2 * time.Minute)
		_, err = w.Write([]byte("second\n"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "svc_2026-01-03.log"), w.CurrentLogFile())

		require.NoError(t, w.Close())

		first, err := os.ReadFile(filepath.Join(dir, "svc_2026-01-02.log"))
		require.NoError(t, err)
		assert.Equal(t, "first\n", string(first))
	})

	t.Run("write after close fails", func(t *testing.T) {
		w, err := NewDailyFileWriter("svc", t.TempDir())
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = w.Write([]byte("x"))
		assert.Error(t, err)
		assert.Empty(t, w.CurrentLogFile())
	})

	t.Run("missing directory is an error", func(t *testing.T) {
		_, err := NewDailyFileWriter("svc", filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
}
