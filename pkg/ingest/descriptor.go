package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/store"
)

var (
	ErrEmptyDescriptor = errors.New("empty descriptor")
	ErrBadDescriptor   = errors.New("malformed descriptor")
	ErrWaitTimeout     = errors.New("gave up waiting for descriptor")
)

// Descriptor is the parsed metadata file uploaded alongside a build's artifacts. It is
// consumed within a single ingestion and never persisted as-is.
type Descriptor struct {
	Project                  string                    `json:"project"`
	Repo                     string                    `json:"repo"`
	Version                  string                    `json:"version"`
	Number                   int                       `json:"number"`
	Changes                  []store.Change            `json:"changes"`
	Downloads                map[string]store.Download `json:"downloads"`
	SupportedJavaVersions    []string                  `json:"supportedJavaVersions"`
	SupportedBedrockVersions []string                  `json:"supportedBedrockVersions"`
}

// ParseDescriptor unmarshals and validates a descriptor. A JSON syntax error is returned
// as-is so callers can treat it as a possibly mid-write file; anything that parses but
// fails validation is wrapped with ErrBadDescriptor.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Descriptor) Validate() error {
	switch {
	case d.Project == "":
		return fmt.Errorf("%w: missing project", ErrBadDescriptor)
	case d.Repo == "":
		return fmt.Errorf("%w: missing repo", ErrBadDescriptor)
	case d.Version == "":
		return fmt.Errorf("%w: missing version", ErrBadDescriptor)
	case d.Number <= 0:
		return fmt.Errorf("%w: build number %d", ErrBadDescriptor, d.Number)
	}
	// project, version and download names become storage path elements
	if !isPathElement(d.Project) {
		return fmt.Errorf("%w: project %q", ErrBadDescriptor, d.Project)
	}
	if !isPathElement(d.Version) {
		return fmt.Errorf("%w: version %q", ErrBadDescriptor, d.Version)
	}
	for key, download := range d.Downloads {
		if download.Name == "" || !isPathElement(download.Name) {
			return fmt.Errorf("%w: download %s name %q", ErrBadDescriptor, key, download.Name)
		}
	}
	return nil
}

// isPathElement reports whether s is usable as a single storage path element.
func isPathElement(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.ContainsRune(s, os.PathSeparator) || strings.ContainsRune(s, '/') {
		return false
	}
	return filepath.Base(s) == s
}

// VersionGroupName derives the major.minor grouping key from a full version string: the
// first two dot-separated components, or the whole string when there are fewer.
func VersionGroupName(version string) string {
	const groupComponents = 2
	parts := strings.SplitN(version, ".", groupComponents+1)
	if len(parts) <= groupComponents {
		return version
	}
	return strings.Join(parts[:groupComponents], ".")
}

// FriendlyProjectName derives the human readable project name recorded on first sight of
// a project: the project name with its first letter upper-cased.
func FriendlyProjectName(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// WaitForDescriptor polls path on pollInterval until it holds a complete descriptor.
//
// The file's creation event may fire while it is still being written, so a missing file
// and a JSON syntax error are treated as a write still in progress and retried until
// waitTimeout elapses, at which point ErrWaitTimeout wrapping the last failure is
// returned. Empty content, a descriptor that parses but fails validation, and any other
// read error are definitive and fail immediately.
func WaitForDescriptor(ctx context.Context, path string, pollInterval, waitTimeout time.Duration) (*Descriptor, error) {
	deadline := time.Now().Add(waitTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	var lastErr error
	for {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			lastErr = err
		case err != nil:
			return nil, fmt.Errorf("read descriptor %s: %w", path, err)
		case len(data) == 0:
			return nil, fmt.Errorf("%w: %s", ErrEmptyDescriptor, path)
		default:
			d, parseErr := ParseDescriptor(data)
			if parseErr == nil {
				return d, nil
			}
			if errors.Is(parseErr, ErrBadDescriptor) {
				return nil, fmt.Errorf("parse descriptor %s: %w", path, parseErr)
			}
			// syntax error - the writer may not be done yet
			lastErr = parseErr
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s: %v", ErrWaitTimeout, path, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
