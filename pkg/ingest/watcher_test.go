package ingest_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/ingest"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store"
	"github.com/stretchr/testify/require"
)

const (
	watcherTick    = 10 * time.Millisecond
	watcherTimeout = 5 * time.Second
)

func startWatcher(t *testing.T, env *testEnv) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	watcher := ingest.NewWatcher(ingest.WatcherParams{
		Pipeline: env.pipeline,
		Dir:      env.watchDir,
	})
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(watcherTimeout):
			t.Fatal("watcher did not stop")
		}
	})
	// give the watcher a moment to set up its watches
	time.Sleep(50 * time.Millisecond)
}

func writeDescriptor(t *testing.T, dir string, d *ingest.Descriptor) {
	t.Helper()
	data, err := json.Marshal(d)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644))
}

func TestWatcher_IngestsUpload(t *testing.T) {
	env := newTestEnv(t)
	startWatcher(t, env)

	// simulate an upload: directory first, then artifact, then descriptor
	stagingDir := filepath.Join(env.watchDir, "paper-50")
	require.NoError(t, os.Mkdir(stagingDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stagingDir, "paper-50.jar"), []byte("jar"), 0o644))
	writeDescriptor(t, stagingDir, descriptorFixture("paper", "1.19.4", 50, map[string]store.Download{
		"application": {Name: "paper-50.jar", Checksum: "abc"},
	}))

	require.Eventually(t, func() bool {
		return len(env.store.Builds()) == 1
	}, watcherTimeout, watcherTick)

	relocated := filepath.Join(env.storageDir, "paper", "1.19.4", "50", "paper-50.jar")
	require.Eventually(t, func() bool {
		_, err := os.Stat(relocated)
		return err == nil
	}, watcherTimeout, watcherTick)

	// staging directory cleaned up
	require.Eventually(t, func() bool {
		_, err := os.Stat(stagingDir)
		return os.IsNotExist(err)
	}, watcherTimeout, watcherTick)
}

func TestWatcher_DescriptorAtRoot(t *testing.T) {
	env := newTestEnv(t)
	startWatcher(t, env)

	require.NoError(t, os.WriteFile(filepath.Join(env.watchDir, "paper-1.jar"), []byte("jar"), 0o644))
	writeDescriptor(t, env.watchDir, descriptorFixture("paper", "1.19", 1, map[string]store.Download{
		"application": {Name: "paper-1.jar", Checksum: "abc"},
	}))

	require.Eventually(t, func() bool {
		return len(env.store.Builds()) == 1
	}, watcherTimeout, watcherTick)

	// watch root survives cleanup and keeps working
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(env.watchDir)
		return err == nil && len(entries) == 0
	}, watcherTimeout, watcherTick)

	stagingDir := filepath.Join(env.watchDir, "second")
	require.NoError(t, os.Mkdir(stagingDir, 0o755))
	writeDescriptor(t, stagingDir, descriptorFixture("paper", "1.19", 2, nil))
	require.Eventually(t, func() bool {
		return len(env.store.Builds()) == 2
	}, watcherTimeout, watcherTick)
}

func TestWatcher_IgnoresHiddenAndInternal(t *testing.T) {
	env := newTestEnv(t)
	startWatcher(t, env)

	hidden := filepath.Join(env.watchDir, ".hidden")
	require.NoError(t, os.Mkdir(hidden, 0o755))
	writeDescriptor(t, hidden, descriptorFixture("paper", "1.19", 3, nil))

	internal := filepath.Join(env.watchDir, ingest.DefaultInternalDirName)
	require.NoError(t, os.MkdirAll(internal, 0o755))
	writeDescriptor(t, internal, descriptorFixture("paper", "1.19", 4, nil))

	// nothing should be ingested from skipped directories
	time.Sleep(300 * time.Millisecond)
	require.Empty(t, env.store.Builds())
}

func TestWatcher_PicksUpPreexistingDescriptor(t *testing.T) {
	env := newTestEnv(t)

	// upload completed before the watcher started
	stagingDir := filepath.Join(env.watchDir, "paper-60")
	require.NoError(t, os.Mkdir(stagingDir, 0o755))
	writeDescriptor(t, stagingDir, descriptorFixture("paper", "1.20.1", 60, nil))

	startWatcher(t, env)

	require.Eventually(t, func() bool {
		return len(env.store.Builds()) == 1
	}, watcherTimeout, watcherTick)
}
