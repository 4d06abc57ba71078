package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/fileutil"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/logging"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store"
	"github.com/rs/xid"
)

// Pipeline runs one ingestion end to end, stage by stage: wait for the descriptor,
// resolve the hierarchy, relocate the artifacts, record the build, clean the staging
// directory. Failure at any stage aborts the run; already-created hierarchy documents
// and already-copied files are left in place.
type Pipeline struct {
	store        store.Store
	watchDir     string
	storageDir   string
	channel      string
	pollInterval time.Duration
	waitTimeout  time.Duration
}

type Params struct {
	Store      store.Store
	WatchDir   string
	StorageDir string
	// Channel is the tag stamped on every recorded build. Defaults to store.DefaultChannel.
	Channel      string
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

const (
	DefaultPollInterval = time.Second
	DefaultWaitTimeout  = time.Minute
)

func NewPipeline(params Params) *Pipeline {
	channel := params.Channel
	if channel == "" {
		channel = store.DefaultChannel
	}
	pollInterval := params.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	waitTimeout := params.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Pipeline{
		store:        params.Store,
		watchDir:     filepath.Clean(params.WatchDir),
		storageDir:   filepath.Clean(params.StorageDir),
		channel:      channel,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}
}

// Hierarchy is the resolved project / version-group / version chain a build belongs to.
type Hierarchy struct {
	Project *store.Project
	Group   *store.VersionGroup
	Version *store.Version
}

// Ingest processes the descriptor at descriptorPath and the artifacts staged next to it.
func (p *Pipeline) Ingest(ctx context.Context, descriptorPath string) error {
	ctx = logging.AddFields(ctx, logging.Fields{
		logging.IngestionIDFieldKey: xid.New().String(),
	})
	log := logging.FromContext(ctx).WithField(logging.PathFieldKey, descriptorPath)
	start := time.Now()

	descriptor, err := WaitForDescriptor(ctx, descriptorPath, p.pollInterval, p.waitTimeout)
	if err != nil {
		ingestionsCounter.WithLabelValues("failure").Inc()
		return fmt.Errorf("read: %w", err)
	}
	ctx = logging.AddFields(ctx, logging.Fields{
		logging.ProjectFieldKey:     descriptor.Project,
		logging.VersionFieldKey:     descriptor.Version,
		logging.BuildNumberFieldKey: descriptor.Number,
	})
	log = logging.FromContext(ctx).WithField(logging.PathFieldKey, descriptorPath)
	log.Info("descriptor read, starting ingestion")

	stagingDir := filepath.Dir(descriptorPath)
	err = p.run(ctx, descriptor, stagingDir)
	if err != nil {
		ingestionsCounter.WithLabelValues("failure").Inc()
		return err
	}
	ingestionsCounter.WithLabelValues("success").Inc()
	ingestionDuration.Observe(time.Since(start).Seconds())
	log.WithField("took", time.Since(start)).Info("build ingested")
	return nil
}

func (p *Pipeline) run(ctx context.Context, descriptor *Descriptor, stagingDir string) error {
	hierarchy, err := p.Resolve(ctx, descriptor)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if err := p.Relocate(ctx, descriptor, stagingDir); err != nil {
		return fmt.Errorf("relocate: %w", err)
	}
	buildID, err := p.Record(ctx, descriptor, hierarchy)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	logging.FromContext(ctx).WithField("build_id", buildID).Debug("build recorded")
	if err := p.Clean(ctx, stagingDir); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	return nil
}

// Resolve finds or creates the Project, VersionGroup and Version for the descriptor, in
// that order. Each step is atomic against the store, so concurrent ingestions racing on
// the same keys converge on a single document per key.
func (p *Pipeline) Resolve(ctx context.Context, descriptor *Descriptor) (*Hierarchy, error) {
	project, err := p.store.GetOrCreateProject(ctx, descriptor.Project, FriendlyProjectName(descriptor.Project))
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", descriptor.Project, err)
	}
	groupName := VersionGroupName(descriptor.Version)
	group, err := p.store.GetOrCreateVersionGroup(ctx, project.ID, groupName)
	if err != nil {
		return nil, fmt.Errorf("version group %s: %w", groupName, err)
	}
	version, err := p.store.GetOrCreateVersion(ctx, project.ID, group.ID, descriptor.Version)
	if err != nil {
		return nil, fmt.Errorf("version %s: %w", descriptor.Version, err)
	}
	return &Hierarchy{
		Project: project,
		Group:   group,
		Version: version,
	}, nil
}

// StoragePath returns the permanent location of a build's artifacts:
// <storage-root>/<project>/<version>/<build-number>.
func (p *Pipeline) StoragePath(descriptor *Descriptor) string {
	return filepath.Join(p.storageDir, descriptor.Project, descriptor.Version, strconv.Itoa(descriptor.Number))
}

// Relocate copies every declared download from the staging directory into permanent
// storage. The first copy failure aborts; earlier copies stay in place.
func (p *Pipeline) Relocate(ctx context.Context, descriptor *Descriptor, stagingDir string) error {
	destDir := p.StoragePath(descriptor)
	if err := os.MkdirAll(destDir, fileutil.DefaultDirectoryMask); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	log := logging.FromContext(ctx)
	for key, download := range descriptor.Downloads {
		src := filepath.Join(stagingDir, download.Name)
		dst := filepath.Join(destDir, download.Name)
		if err := fileutil.CopyFile(src, dst); err != nil {
			return fmt.Errorf("download %s: %w", key, err)
		}
		log.WithFields(logging.Fields{
			"download": key,
			"target":   dst,
		}).Debug("artifact relocated")
	}
	return nil
}

// Record inserts one new Build document referencing the resolved hierarchy. Always an
// insert: recording the same build number twice produces two documents.
func (p *Pipeline) Record(ctx context.Context, descriptor *Descriptor, hierarchy *Hierarchy) (string, error) {
	build := &store.Build{
		ProjectID:                hierarchy.Project.ID,
		VersionID:                hierarchy.Version.ID,
		Number:                   descriptor.Number,
		Time:                     time.Now().UTC(),
		Changes:                  descriptor.Changes,
		Downloads:                descriptor.Downloads,
		Promoted:                 false,
		Channel:                  p.channel,
		SupportedJavaVersions:    descriptor.SupportedJavaVersions,
		SupportedBedrockVersions: descriptor.SupportedBedrockVersions,
	}
	buildID, err := p.store.InsertBuild(ctx, build)
	if err != nil {
		return "", err
	}
	buildsRecordedCounter.Inc()
	return buildID, nil
}

// Clean removes the staged upload after a successful ingestion. When the staging
// directory is the watch root itself only the files directly inside it are removed - the
// root must survive as the watch target.
func (p *Pipeline) Clean(ctx context.Context, stagingDir string) error {
	log := logging.FromContext(ctx).WithField(logging.PathFieldKey, stagingDir)
	if filepath.Clean(stagingDir) == p.watchDir {
		log.Debug("clearing files from watch root")
		return fileutil.RemoveDirFiles(stagingDir)
	}
	log.Debug("removing staging directory")
	return os.RemoveAll(stagingDir)
}
