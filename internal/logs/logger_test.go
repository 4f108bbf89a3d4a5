package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noJournal() *bool {
	b := false
	return &b
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Format: FormatText, Journal: noJournal()})

	logger.Info("render finished", "samples", 64)
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "msg=\"render finished\"")
	assert.Contains(t, out, "samples=64")
	assert.NotContains(t, out, "hidden")
}

func TestNew_JSONWithLevelVar(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := New(Options{Writer: &buf, Level: level, Format: FormatJSON, Journal: noJournal()})

	logger.Info("dropped")
	level.Set(slog.LevelDebug)
	logger.Debug("kept", "component", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, float64(3), rec["component"])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestToJournalKey(t *testing.T) {
	assert.Equal(t, "SAMPLE_RATE", toJournalKey("sample_rate"))
	assert.Equal(t, "PATCH_HASH", toJournalKey("patch.hash"))
	assert.Equal(t, "TAP_0", toJournalKey("tap-0"))
}
