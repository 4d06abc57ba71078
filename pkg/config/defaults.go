package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	WatchDirKey     = "watch.dir"
	DefaultWatchDir = "~/bibliothek/upload"

	WatchDescriptorFilenameKey     = "watch.descriptor_filename"
	DefaultWatchDescriptorFilename = "metadata.json"

	WatchArtifactExtensionsKey     = "watch.artifact_extensions"
	DefaultWatchArtifactExtensions = ".jar"

	WatchInternalDirNameKey     = "watch.internal_dir_name"
	DefaultWatchInternalDirName = ".bibmon"

	StorageDirKey     = "storage.dir"
	DefaultStorageDir = "~/bibliothek/storage"

	DatabaseTypeKey     = "database.type"
	MongoDBDatabaseType = "mongodb"
	MemDatabaseType     = "mem"
	DefaultDatabaseType = MongoDBDatabaseType

	DatabaseMongoDBURIKey     = "database.mongodb.uri"
	DefaultDatabaseMongoDBURI = "mongodb://localhost:27017"

	DatabaseMongoDBDatabaseKey     = "database.mongodb.database"
	DefaultDatabaseMongoDBDatabase = "library"

	IngestPollIntervalKey     = "ingest.poll_interval"
	DefaultIngestPollInterval = time.Second

	IngestWaitTimeoutKey     = "ingest.wait_timeout"
	DefaultIngestWaitTimeout = time.Minute

	IngestChannelKey     = "ingest.channel"
	DefaultIngestChannel = "default"

	StatsEnabledKey     = "stats.enabled"
	DefaultStatsEnabled = false

	StatsListenAddressKey     = "stats.listen_address"
	DefaultStatsListenAddress = ":8001"

	LoggingFormatKey     = "logging.format"
	DefaultLoggingFormat = "text"

	LoggingLevelKey     = "logging.level"
	DefaultLoggingLevel = "INFO"

	LoggingOutputKey     = "logging.output"
	DefaultLoggingOutput = "-"

	LoggingFileMaxSizeMBKey     = "logging.file_max_size_mb"
	DefaultLoggingFileMaxSizeMB = 100

	LoggingFilesKeepKey     = "logging.files_keep"
	DefaultLoggingFilesKeep = 7
)

func setDefaults() {
	viper.SetDefault(WatchDirKey, DefaultWatchDir)
	viper.SetDefault(WatchDescriptorFilenameKey, DefaultWatchDescriptorFilename)
	viper.SetDefault(WatchArtifactExtensionsKey, DefaultWatchArtifactExtensions)
	viper.SetDefault(WatchInternalDirNameKey, DefaultWatchInternalDirName)

	viper.SetDefault(StorageDirKey, DefaultStorageDir)

	viper.SetDefault(DatabaseTypeKey, DefaultDatabaseType)
	viper.SetDefault(DatabaseMongoDBURIKey, DefaultDatabaseMongoDBURI)
	viper.SetDefault(DatabaseMongoDBDatabaseKey, DefaultDatabaseMongoDBDatabase)

	viper.SetDefault(IngestPollIntervalKey, DefaultIngestPollInterval)
	viper.SetDefault(IngestWaitTimeoutKey, DefaultIngestWaitTimeout)
	viper.SetDefault(IngestChannelKey, DefaultIngestChannel)

	viper.SetDefault(StatsEnabledKey, DefaultStatsEnabled)
	viper.SetDefault(StatsListenAddressKey, DefaultStatsListenAddress)

	viper.SetDefault(LoggingFormatKey, DefaultLoggingFormat)
	viper.SetDefault(LoggingLevelKey, DefaultLoggingLevel)
	viper.SetDefault(LoggingOutputKey, DefaultLoggingOutput)
	viper.SetDefault(LoggingFileMaxSizeMBKey, DefaultLoggingFileMaxSizeMB)
	viper.SetDefault(LoggingFilesKeepKey, DefaultLoggingFilesKeep)
}
