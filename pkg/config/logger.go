package config

import (
	"github.com/lukeeey/bibliothek-build-monitor/pkg/logging"
	"github.com/spf13/viper"
)

func setupLogger() {
	// set output format
	logging.SetOutputFormat(viper.GetString(LoggingFormatKey))

	// set outputs
	logging.SetOutputs(viper.GetStringSlice(LoggingOutputKey),
		viper.GetInt(LoggingFileMaxSizeMBKey),
		viper.GetInt(LoggingFilesKeepKey))

	// set level
	logging.SetLevel(viper.GetString(LoggingLevelKey))
}
