package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"expiring-cache-api/internal/cache"
	"expiring-cache-api/internal/config"
	"expiring-cache-api/internal/realtime"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("", ":7000")
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Server.Addr)

	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9001\"\n"), 0o600))
	cfg, err = loadConfig(path, "")
	require.NoError(t, err)
	require.Equal(t, ":9001", cfg.Server.Addr)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.ErrorIs(t, err, config.ErrLoadFailed)
}

func TestOnReload_SetsLevelAndBumpsEpoch(t *testing.T) {
	var logs bytes.Buffer
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: level}))
	reload := onReload(logger, level, realtime.NewHub())

	before := cache.CurrentEpoch()
	cfg := config.Default()
	cfg.Log.Level = "warn"
	reload(cfg, nil)

	require.Equal(t, slog.LevelWarn, level.Level())
	require.Equal(t, before+1, cache.CurrentEpoch())

	reload(config.Config{}, errors.New("bad file"))
	require.Equal(t, before+1, cache.CurrentEpoch())
	require.Contains(t, logs.String(), "configuration reload failed")
}
