package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/ingest"
	"github.com/stretchr/testify/require"
)

const validDescriptorJSON = `{
	"project": "paper",
	"repo": "Paper",
	"version": "1.19.4",
	"number": 50,
	"changes": [
		{"commit": "abcdef0", "summary": "Fix the thing", "message": "Fix the thing\n\nLong form"}
	],
	"downloads": {
		"application": {"name": "paper-50.jar", "checksum": "abc"}
	},
	"supportedJavaVersions": ["17"],
	"supportedBedrockVersions": []
}`

func TestParseDescriptor(t *testing.T) {
	d, err := ingest.ParseDescriptor([]byte(validDescriptorJSON))
	require.NoError(t, err)
	require.Equal(t, "paper", d.Project)
	require.Equal(t, "Paper", d.Repo)
	require.Equal(t, "1.19.4", d.Version)
	require.Equal(t, 50, d.Number)
	require.Len(t, d.Changes, 1)
	require.Equal(t, "abcdef0", d.Changes[0].Commit)
	require.Equal(t, "paper-50.jar", d.Downloads["application"].Name)
	require.Equal(t, "abc", d.Downloads["application"].Checksum)
	require.Equal(t, []string{"17"}, d.SupportedJavaVersions)
}

func TestParseDescriptor_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing_project", data: `{"repo":"r","version":"1.0.0","number":1}`},
		{name: "missing_repo", data: `{"project":"p","version":"1.0.0","number":1}`},
		{name: "missing_version", data: `{"project":"p","repo":"r","number":1}`},
		{name: "zero_number", data: `{"project":"p","repo":"r","version":"1.0.0","number":0}`},
		{name: "negative_number", data: `{"project":"p","repo":"r","version":"1.0.0","number":-3}`},
		{name: "project_traversal", data: `{"project":"../p","repo":"r","version":"1.0.0","number":1}`},
		{name: "version_with_separator", data: `{"project":"p","repo":"r","version":"1.0/0","number":1}`},
		{name: "download_with_path", data: `{"project":"p","repo":"r","version":"1.0.0","number":1,"downloads":{"application":{"name":"a/b.jar","checksum":"x"}}}`},
		{name: "download_without_name", data: `{"project":"p","repo":"r","version":"1.0.0","number":1,"downloads":{"application":{"checksum":"x"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.ParseDescriptor([]byte(tt.data))
			require.ErrorIs(t, err, ingest.ErrBadDescriptor)
		})
	}
}

func TestVersionGroupName(t *testing.T) {
	tests := []struct {
		version string
		group   string
	}{
		{version: "1.19.4", group: "1.19"},
		{version: "1.19", group: "1.19"},
		{version: "1", group: "1"},
		{version: "1.20.1-rc1", group: "1.20"},
		{version: "2.0.0.1", group: "2.0"},
		{version: "", group: ""},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			require.Equal(t, tt.group, ingest.VersionGroupName(tt.version))
		})
	}
}

func TestFriendlyProjectName(t *testing.T) {
	require.Equal(t, "Paper", ingest.FriendlyProjectName("paper"))
	require.Equal(t, "Velocity", ingest.FriendlyProjectName("velocity"))
	require.Equal(t, "X", ingest.FriendlyProjectName("x"))
	require.Equal(t, "", ingest.FriendlyProjectName(""))
}

func TestWaitForDescriptor(t *testing.T) {
	ctx := context.Background()
	const (
		pollInterval = 10 * time.Millisecond
		waitTimeout  = 500 * time.Millisecond
	)

	t.Run("ready", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "metadata.json")
		require.NoError(t, os.WriteFile(p, []byte(validDescriptorJSON), 0o644))
		d, err := ingest.WaitForDescriptor(ctx, p, pollInterval, waitTimeout)
		require.NoError(t, err)
		require.Equal(t, "paper", d.Project)
	})

	t.Run("written_late", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "metadata.json")
		go func() {
			time.Sleep(5 * pollInterval)
			_ = os.WriteFile(p, []byte(validDescriptorJSON), 0o644)
		}()
		d, err := ingest.WaitForDescriptor(ctx, p, pollInterval, waitTimeout)
		require.NoError(t, err)
		require.Equal(t, 50, d.Number)
	})

	t.Run("empty", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "metadata.json")
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		_, err := ingest.WaitForDescriptor(ctx, p, pollInterval, waitTimeout)
		require.ErrorIs(t, err, ingest.ErrEmptyDescriptor)
	})

	t.Run("invalid_fields", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "metadata.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"repo":"r"}`), 0o644))
		_, err := ingest.WaitForDescriptor(ctx, p, pollInterval, waitTimeout)
		require.ErrorIs(t, err, ingest.ErrBadDescriptor)
	})

	t.Run("never_parseable", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "metadata.json")
		require.NoError(t, os.WriteFile(p, []byte(`{"project": "paper",`), 0o644))
		_, err := ingest.WaitForDescriptor(ctx, p, pollInterval, waitTimeout)
		require.ErrorIs(t, err, ingest.ErrWaitTimeout)
	})

	t.Run("never_written", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "metadata.json")
		_, err := ingest.WaitForDescriptor(ctx, p, pollInterval, waitTimeout)
		require.ErrorIs(t, err, ingest.ErrWaitTimeout)
	})

	t.Run("cancelled", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "metadata.json")
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := ingest.WaitForDescriptor(cancelCtx, p, pollInterval, time.Minute)
		require.ErrorIs(t, err, context.Canceled)
	})
}
