package logger

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "step26.log")
	require.NoError(t, Init(Config{Level: "info", File: path, MaxSizeMB: 1, Quiet: true}))

	Info("habit logged", "habit_id", 7)
	Debug("below threshold")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "habit logged")
	assert.Contains(t, string(data), "habit_id=7")
	assert.NotContains(t, string(data), "below threshold")
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	require.NoError(t, Init(Config{Level: "loud", Quiet: true}))
	assert.Equal(t, io.Discard, Output)
	require.NotNil(t, Logger)
	assert.Equal(t, "info", Logger.GetLevel().String())
}

func TestHelpersWithoutInit(t *testing.T) {
	saved := Logger
	Logger = nil
	defer func() { Logger = saved }()

	assert.NotPanics(t, func() {
		Debug("x")
		Info("x")
		Warn("x")
		Error("x")
	})
}
