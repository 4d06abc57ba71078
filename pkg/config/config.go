package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	storeparams "github.com/lukeeey/bibliothek-build-monitor/pkg/store/params"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var (
	ErrBadConfiguration   = errors.New("bad configuration")
	ErrInvalidDescriptor  = fmt.Errorf("%w: watch.descriptor_filename must be a bare filename", ErrBadConfiguration)
	ErrInvalidWaitTimeout = fmt.Errorf("%w: ingest.wait_timeout must not be smaller than ingest.poll_interval", ErrBadConfiguration)
)

type configuration struct {
	Watch struct {
		Dir                string  `mapstructure:"dir"`
		DescriptorFilename string  `mapstructure:"descriptor_filename"`
		ArtifactExtensions Strings `mapstructure:"artifact_extensions"`
		InternalDirName    string  `mapstructure:"internal_dir_name"`
	} `mapstructure:"watch"`
	Storage struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"storage"`
	Database struct {
		Type    string `mapstructure:"type"`
		MongoDB struct {
			URI      SecureString `mapstructure:"uri"`
			Database string       `mapstructure:"database"`
		} `mapstructure:"mongodb"`
	} `mapstructure:"database"`
	Ingest struct {
		PollInterval time.Duration `mapstructure:"poll_interval"`
		WaitTimeout  time.Duration `mapstructure:"wait_timeout"`
		Channel      string        `mapstructure:"channel"`
	} `mapstructure:"ingest"`
	Stats struct {
		Enabled       bool   `mapstructure:"enabled"`
		ListenAddress string `mapstructure:"listen_address"`
	} `mapstructure:"stats"`
	Logging struct {
		Format        string  `mapstructure:"format"`
		Level         string  `mapstructure:"level"`
		Output        Strings `mapstructure:"output"`
		FileMaxSizeMB int     `mapstructure:"file_max_size_mb"`
		FilesKeep     int     `mapstructure:"files_keep"`
	} `mapstructure:"logging"`
}

type Config struct {
	values configuration
}

func NewConfig() (*Config, error) {
	c := &Config{}

	setDefaults()
	setupLogger()

	err := viper.Unmarshal(&c.values, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			DecodeStrings, mapstructure.StringToTimeDurationHookFunc())))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if strings.ContainsRune(c.values.Watch.DescriptorFilename, '/') {
		return ErrInvalidDescriptor
	}
	if c.values.Ingest.WaitTimeout < c.values.Ingest.PollInterval {
		return ErrInvalidWaitTimeout
	}
	return nil
}

func (c *Config) GetWatchDir() (string, error) {
	dir, err := homedir.Expand(c.values.Watch.Dir)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", c.values.Watch.Dir, err)
	}
	return dir, nil
}

func (c *Config) GetStorageDir() (string, error) {
	dir, err := homedir.Expand(c.values.Storage.Dir)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", c.values.Storage.Dir, err)
	}
	return dir, nil
}

func (c *Config) GetDescriptorFilename() string {
	return c.values.Watch.DescriptorFilename
}

func (c *Config) GetArtifactExtensions() []string {
	return c.values.Watch.ArtifactExtensions
}

func (c *Config) GetInternalDirName() string {
	return c.values.Watch.InternalDirName
}

func (c *Config) GetStoreParams() storeparams.Store {
	p := storeparams.Store{
		Type: c.values.Database.Type,
	}
	if c.values.Database.Type == MongoDBDatabaseType {
		p.MongoDB = &storeparams.MongoDB{
			URI:      c.values.Database.MongoDB.URI.SecureValue(),
			Database: c.values.Database.MongoDB.Database,
		}
	}
	return p
}

func (c *Config) GetIngestPollInterval() time.Duration {
	return c.values.Ingest.PollInterval
}

func (c *Config) GetIngestWaitTimeout() time.Duration {
	return c.values.Ingest.WaitTimeout
}

func (c *Config) GetIngestChannel() string {
	return c.values.Ingest.Channel
}

func (c *Config) GetStatsEnabled() bool {
	return c.values.Stats.Enabled
}

func (c *Config) GetStatsListenAddress() string {
	return c.values.Stats.ListenAddress
}
