package runtimeinit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/history"
)

func TestBootstrapOpensAndPrunesHistory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HISTORY_RETENTION_DAYS", "30")

	old := time.Now().Add(-40 * 24 * time.Hour)
	store, err := history.Open(filepath.Join(dir, history.FileName), history.WithClock(func() time.Time { return old }))
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), "stale")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	rt, err := Bootstrap(context.Background(), Options{
		LoadOptions: config.LoadOptions{DataDirOverride: dir, EnvPath: filepath.Join(dir, "missing.env")},
		History:     true,
		Prune:       true,
		Recognizer:  true,
	})
	require.NoError(t, err)
	defer rt.Close()

	require.Equal(t, dir, rt.Config.DataDir)
	require.NotNil(t, rt.Recognizer)
	n, err := rt.History.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n, "entries older than the retention window should be pruned")
}

func TestBootstrapMinimal(t *testing.T) {
	dir := t.TempDir()
	rt, err := Bootstrap(context.Background(), Options{
		LoadOptions: config.LoadOptions{DataDirOverride: dir, EnvPath: filepath.Join(dir, "missing.env")},
	})
	require.NoError(t, err)
	require.Nil(t, rt.History)
	require.Nil(t, rt.Recognizer)
	require.NoError(t, rt.Close())
}
