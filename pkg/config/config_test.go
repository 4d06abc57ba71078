package config_test

import (
	"testing"
	"time"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newConfig(t *testing.T, settings map[string]interface{}) *config.Config {
	t.Helper()
	viper.Reset()
	for key, value := range settings {
		viper.Set(key, value)
	}
	t.Cleanup(viper.Reset)
	cfg, err := config.NewConfig()
	require.NoError(t, err)
	return cfg
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := newConfig(t, nil)
	require.NoError(t, cfg.Validate())

	require.Equal(t, config.DefaultWatchDescriptorFilename, cfg.GetDescriptorFilename())
	require.Equal(t, []string{config.DefaultWatchArtifactExtensions}, cfg.GetArtifactExtensions())
	require.Equal(t, config.DefaultWatchInternalDirName, cfg.GetInternalDirName())
	require.Equal(t, config.DefaultIngestPollInterval, cfg.GetIngestPollInterval())
	require.Equal(t, config.DefaultIngestWaitTimeout, cfg.GetIngestWaitTimeout())
	require.Equal(t, config.DefaultIngestChannel, cfg.GetIngestChannel())
	require.False(t, cfg.GetStatsEnabled())

	p := cfg.GetStoreParams()
	require.Equal(t, config.MongoDBDatabaseType, p.Type)
	require.NotNil(t, p.MongoDB)
	require.Equal(t, config.DefaultDatabaseMongoDBURI, p.MongoDB.URI)
	require.Equal(t, config.DefaultDatabaseMongoDBDatabase, p.MongoDB.Database)
}

func TestNewConfig_Overrides(t *testing.T) {
	cfg := newConfig(t, map[string]interface{}{
		config.WatchDirKey:                "/srv/upload",
		config.WatchArtifactExtensionsKey: ".jar,.zip",
		config.DatabaseTypeKey:            config.MemDatabaseType,
		config.IngestWaitTimeoutKey:       "5m",
		config.IngestChannelKey:           "experimental",
	})
	require.NoError(t, cfg.Validate())

	dir, err := cfg.GetWatchDir()
	require.NoError(t, err)
	require.Equal(t, "/srv/upload", dir)
	require.Equal(t, []string{".jar", ".zip"}, cfg.GetArtifactExtensions())
	require.Equal(t, 5*time.Minute, cfg.GetIngestWaitTimeout())
	require.Equal(t, "experimental", cfg.GetIngestChannel())

	p := cfg.GetStoreParams()
	require.Equal(t, config.MemDatabaseType, p.Type)
	require.Nil(t, p.MongoDB)
}

func TestConfig_Validate(t *testing.T) {
	t.Run("descriptor_with_path", func(t *testing.T) {
		cfg := newConfig(t, map[string]interface{}{
			config.WatchDescriptorFilenameKey: "uploads/metadata.json",
		})
		require.ErrorIs(t, cfg.Validate(), config.ErrBadConfiguration)
	})

	t.Run("timeout_below_interval", func(t *testing.T) {
		cfg := newConfig(t, map[string]interface{}{
			config.IngestPollIntervalKey: "10s",
			config.IngestWaitTimeoutKey:  "1s",
		})
		require.ErrorIs(t, cfg.Validate(), config.ErrBadConfiguration)
	})
}
