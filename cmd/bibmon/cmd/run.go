package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/config"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/fileutil"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/ingest"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/logging"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store"
	_ "github.com/lukeeey/bibliothek-build-monitor/pkg/store/mem"
	_ "github.com/lukeeey/bibliothek-build-monitor/pkg/store/mongodb"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const statsShutdownTimeout = 5 * time.Second

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the upload directory and ingest builds",
	Run: func(cmd *cobra.Command, _ []string) {
		logger := logging.Default()
		cfg := loadConfig()
		viper.WatchConfig()
		viper.OnConfigChange(func(_ fsnotify.Event) {
			lvl := viper.GetString(config.LoggingLevelKey)
			logger.WithField("toLevel", lvl).Info("Changing log level")
			logging.SetLevel(lvl)
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger.WithField("version", version.Version).Info("bibmon run")

		watchDir, err := cfg.GetWatchDir()
		if err != nil {
			logger.WithError(err).Fatal("Invalid watch directory")
		}
		storageDir, err := cfg.GetStorageDir()
		if err != nil {
			logger.WithError(err).Fatal("Invalid storage directory")
		}
		for _, dir := range []string{watchDir, storageDir} {
			if err := os.MkdirAll(dir, fileutil.DefaultDirectoryMask); err != nil {
				logger.WithError(err).WithField("path", dir).Fatal("Failed to create directory")
			}
		}

		s, err := store.Open(ctx, cfg.GetStoreParams())
		if err != nil {
			logger.WithError(err).Fatal("Failed to open document store")
		}
		defer s.Close()

		if cfg.GetStatsEnabled() {
			go serveStats(ctx, cfg.GetStatsListenAddress())
		}

		pipeline := ingest.NewPipeline(ingest.Params{
			Store:        s,
			WatchDir:     watchDir,
			StorageDir:   storageDir,
			Channel:      cfg.GetIngestChannel(),
			PollInterval: cfg.GetIngestPollInterval(),
			WaitTimeout:  cfg.GetIngestWaitTimeout(),
		})
		watcher := ingest.NewWatcher(ingest.WatcherParams{
			Pipeline:           pipeline,
			Dir:                watchDir,
			DescriptorFilename: cfg.GetDescriptorFilename(),
			ArtifactExtensions: cfg.GetArtifactExtensions(),
			InternalDirName:    cfg.GetInternalDirName(),
		})

		logger.Info("Up and running (^C to shutdown)...")
		if err := watcher.Run(ctx); err != nil {
			logger.WithError(err).Fatal("Watcher failed")
		}
		logger.Info("Shutting down")
	},
}

// serveStats exposes prometheus metrics until ctx is cancelled.
func serveStats(ctx context.Context, addr string) {
	logger := logging.FromContext(ctx).WithField("listen_address", addr)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: time.Minute,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), statsShutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("metrics server failed")
	}
}

//nolint:gochecknoinits
func init() {
	rootCmd.AddCommand(runCmd)
}
