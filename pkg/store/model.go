package store

import (
	"time"
)

// DefaultChannel is the channel tag stamped on recorded builds when no other channel is
// configured.
const DefaultChannel = "default"

// Project is the root of the hierarchy. Created on the first build recorded for it and
// never mutated afterwards.
type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FriendlyName string `json:"friendlyName"`
}

// VersionGroup is a major.minor line of a project, e.g. "1.19". Scoped uniquely by
// (project, name).
type VersionGroup struct {
	ID        string `json:"id"`
	ProjectID string `json:"project"`
	Name      string `json:"name"`
}

// Version is a full version string of a project, e.g. "1.19.4". Scoped uniquely by
// (project, name).
type Version struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project"`
	GroupID   string    `json:"group"`
	Name      string    `json:"name"`
	Time      time.Time `json:"time"`
}

// Change is a single commit that went into a build.
type Change struct {
	Commit  string `json:"commit" bson:"commit"`
	Summary string `json:"summary" bson:"summary"`
	Message string `json:"message" bson:"message"`
}

// Download is a single artifact offered by a build, keyed in Build.Downloads by a logical
// name such as "application". The checksum is recorded as supplied, never verified.
type Download struct {
	Name     string `json:"name" bson:"name"`
	Checksum string `json:"checksum" bson:"checksum"`
}

// Build is one recorded build. Append-only: a build document is inserted once and never
// updated by this system.
type Build struct {
	ID                       string              `json:"id"`
	ProjectID                string              `json:"project"`
	VersionID                string              `json:"version"`
	Number                   int                 `json:"number"`
	Time                     time.Time           `json:"time"`
	Changes                  []Change            `json:"changes"`
	Downloads                map[string]Download `json:"downloads"`
	Promoted                 bool                `json:"promoted"`
	Channel                  string              `json:"channel"`
	SupportedJavaVersions    []string            `json:"supportedJavaVersions"`
	SupportedBedrockVersions []string            `json:"supportedBedrockVersions"`
}
