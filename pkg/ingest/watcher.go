package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/logging"
)

const (
	DefaultDescriptorFilename = "metadata.json"
	DefaultInternalDirName    = ".bibmon"
)

var DefaultArtifactExtensions = []string{".jar"}

// Watcher observes the upload root recursively and routes newly added files: the
// descriptor file starts an ingestion for its containing directory, artifact files are
// logged, everything else is ignored. fsnotify does not watch recursively, so the
// watcher adds a watch for every directory it discovers.
type Watcher struct {
	pipeline           *Pipeline
	dir                string
	descriptorFilename string
	artifactExtensions []string
	internalDirName    string
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	inflight           map[string]struct{}
}

type WatcherParams struct {
	Pipeline *Pipeline
	Dir      string
	// DescriptorFilename is the exact base name that triggers an ingestion.
	DescriptorFilename string
	// ArtifactExtensions are logged on upload but otherwise left to the descriptor.
	ArtifactExtensions []string
	// InternalDirName is a reserved bookkeeping subdirectory, never watched.
	InternalDirName string
}

func NewWatcher(params WatcherParams) *Watcher {
	descriptorFilename := params.DescriptorFilename
	if descriptorFilename == "" {
		descriptorFilename = DefaultDescriptorFilename
	}
	artifactExtensions := params.ArtifactExtensions
	if len(artifactExtensions) == 0 {
		artifactExtensions = DefaultArtifactExtensions
	}
	internalDirName := params.InternalDirName
	if internalDirName == "" {
		internalDirName = DefaultInternalDirName
	}
	return &Watcher{
		pipeline:           params.Pipeline,
		dir:                filepath.Clean(params.Dir),
		descriptorFilename: descriptorFilename,
		artifactExtensions: artifactExtensions,
		internalDirName:    internalDirName,
		inflight:           make(map[string]struct{}),
	}
}

// Run blocks watching the upload root until ctx is cancelled or the underlying watch
// mechanism reports a fatal error. Ingestion failures are logged and never stop the
// watch. In-flight ingestions are waited for before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	defer w.wg.Wait()

	// watch the root and everything already under it; descriptors uploaded while the
	// process was down are dispatched as if they were just added
	if err := w.addTree(ctx, fsw, w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logging.FromContext(ctx).WithField(logging.PathFieldKey, w.dir).Info("watching upload directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) {
				continue
			}
			w.handleCreate(ctx, fsw, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

// skip reports whether base is hidden or reserved for internal bookkeeping.
func (w *Watcher) skip(base string) bool {
	return strings.HasPrefix(base, ".") || base == w.internalDirName
}

func (w *Watcher) isArtifact(base string) bool {
	for _, ext := range w.artifactExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

func (w *Watcher) handleCreate(ctx context.Context, fsw *fsnotify.Watcher, name string) {
	log := logging.FromContext(ctx).WithField(logging.PathFieldKey, name)
	base := filepath.Base(name)
	if w.skip(base) {
		log.Trace("ignoring hidden path")
		return
	}
	info, err := os.Stat(name)
	if err != nil {
		// already gone
		log.WithError(err).Debug("stat created path")
		return
	}
	if info.IsDir() {
		// a descriptor may land inside the new directory before its watch is in
		// place, so scan it as well
		if err := w.addTree(ctx, fsw, name); err != nil {
			log.WithError(err).Warn("failed to watch new directory")
		}
		return
	}
	switch {
	case base == w.descriptorFilename:
		w.dispatch(ctx, name)
	case w.isArtifact(base):
		log.Info("artifact uploaded")
	default:
		log.Trace("ignoring file")
	}
}

func (w *Watcher) addTree(ctx context.Context, fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if d.IsDir() {
			if path != root && w.skip(base) {
				return filepath.SkipDir
			}
			return fsw.Add(path)
		}
		if w.skip(base) {
			return nil
		}
		if base == w.descriptorFilename {
			w.dispatch(ctx, path)
		}
		return nil
	})
}

func (w *Watcher) dispatch(ctx context.Context, descriptorPath string) {
	// a directory scan and the create event of the descriptor itself can both observe
	// the same file - run a single ingestion per path at a time
	w.mu.Lock()
	if _, found := w.inflight[descriptorPath]; found {
		w.mu.Unlock()
		return
	}
	w.inflight[descriptorPath] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.inflight, descriptorPath)
			w.mu.Unlock()
		}()
		if err := w.pipeline.Ingest(ctx, descriptorPath); err != nil {
			logging.FromContext(ctx).
				WithError(err).
				WithField(logging.PathFieldKey, descriptorPath).
				Error("ingestion failed")
		}
	}()
}
