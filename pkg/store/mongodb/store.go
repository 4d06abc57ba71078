package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lukeeey/bibliothek-build-monitor/pkg/logging"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store"
	"github.com/lukeeey/bibliothek-build-monitor/pkg/store/params"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DriverName = "mongodb"

	ProjectsCollectionName      = "projects"
	VersionGroupsCollectionName = "version_groups"
	VersionsCollectionName      = "versions"
	BuildsCollectionName        = "builds"

	connectTimeout = 15 * time.Second
)

type Driver struct{}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func (d *Driver) Open(ctx context.Context, p params.Store) (store.Store, error) {
	if p.MongoDB == nil {
		return nil, fmt.Errorf("missing %s settings: %w", DriverName, store.ErrDriverConfiguration)
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(p.MongoDB.URI))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", store.ErrConnectFailed, err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: ping: %s", store.ErrConnectFailed, err)
	}
	logging.FromContext(ctx).WithField("database", p.MongoDB.Database).Info("connected to document store")
	return &Store{
		client: client,
		db:     client.Database(p.MongoDB.Database),
	}, nil
}

//nolint:gochecknoinits
func init() {
	store.Register(DriverName, &Driver{})
}

// document types - the store-level models use string IDs, documents use ObjectIDs

type projectDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"name"`
	FriendlyName string             `bson:"friendlyName"`
}

type versionGroupDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Project primitive.ObjectID `bson:"project"`
	Name    string             `bson:"name"`
}

type versionDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Project primitive.ObjectID `bson:"project"`
	Group   primitive.ObjectID `bson:"group"`
	Name    string             `bson:"name"`
	Time    time.Time          `bson:"time"`
}

type buildDoc struct {
	ID                       primitive.ObjectID        `bson:"_id,omitempty"`
	Project                  primitive.ObjectID        `bson:"project"`
	Version                  primitive.ObjectID        `bson:"version"`
	Number                   int                       `bson:"number"`
	Time                     time.Time                 `bson:"time"`
	Changes                  []store.Change            `bson:"changes"`
	Downloads                map[string]store.Download `bson:"downloads"`
	Promoted                 bool                      `bson:"promoted"`
	Channel                  string                    `bson:"channel"`
	SupportedJavaVersions    []string                  `bson:"supportedJavaVersions"`
	SupportedBedrockVersions []string                  `bson:"supportedBedrockVersions"`
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: id %s: %s", store.ErrOperationFailed, id, err)
	}
	return oid, nil
}

// findOrCreate runs an atomic find-or-create on coll: filter selects the document,
// insert holds the fields set only when no document matched. The post-operation
// document is decoded into result.
func (s *Store) findOrCreate(ctx context.Context, coll string, filter, insert bson.M, result interface{}) error {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.db.Collection(coll).
		FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": insert}, opts).
		Decode(result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("find or create %s: %w", coll, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find or create %s: %w: %s", coll, store.ErrOperationFailed, err)
	}
	return nil
}

func (s *Store) GetOrCreateProject(ctx context.Context, name, friendlyName string) (*store.Project, error) {
	var doc projectDoc
	err := s.findOrCreate(ctx, ProjectsCollectionName,
		bson.M{"name": name},
		bson.M{"name": name, "friendlyName": friendlyName},
		&doc)
	if err != nil {
		return nil, err
	}
	return &store.Project{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		FriendlyName: doc.FriendlyName,
	}, nil
}

func (s *Store) GetOrCreateVersionGroup(ctx context.Context, projectID, name string) (*store.VersionGroup, error) {
	project, err := objectID(projectID)
	if err != nil {
		return nil, err
	}
	var doc versionGroupDoc
	err = s.findOrCreate(ctx, VersionGroupsCollectionName,
		bson.M{"project": project, "name": name},
		bson.M{"project": project, "name": name},
		&doc)
	if err != nil {
		return nil, err
	}
	return &store.VersionGroup{
		ID:        doc.ID.Hex(),
		ProjectID: doc.Project.Hex(),
		Name:      doc.Name,
	}, nil
}

func (s *Store) GetOrCreateVersion(ctx context.Context, projectID, groupID, name string) (*store.Version, error) {
	project, err := objectID(projectID)
	if err != nil {
		return nil, err
	}
	group, err := objectID(groupID)
	if err != nil {
		return nil, err
	}
	var doc versionDoc
	err = s.findOrCreate(ctx, VersionsCollectionName,
		bson.M{"project": project, "name": name},
		bson.M{"project": project, "group": group, "name": name, "time": time.Now().UTC()},
		&doc)
	if err != nil {
		return nil, err
	}
	return &store.Version{
		ID:        doc.ID.Hex(),
		ProjectID: doc.Project.Hex(),
		GroupID:   doc.Group.Hex(),
		Name:      doc.Name,
		Time:      doc.Time,
	}, nil
}

func (s *Store) InsertBuild(ctx context.Context, build *store.Build) (string, error) {
	project, err := objectID(build.ProjectID)
	if err != nil {
		return "", err
	}
	version, err := objectID(build.VersionID)
	if err != nil {
		return "", err
	}
	doc := buildDoc{
		Project:                  project,
		Version:                  version,
		Number:                   build.Number,
		Time:                     build.Time,
		Changes:                  build.Changes,
		Downloads:                build.Downloads,
		Promoted:                 build.Promoted,
		Channel:                  build.Channel,
		SupportedJavaVersions:    build.SupportedJavaVersions,
		SupportedBedrockVersions: build.SupportedBedrockVersions,
	}
	res, err := s.db.Collection(BuildsCollectionName).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert build: %w: %s", store.ErrOperationFailed, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert build: unexpected inserted id type: %w", store.ErrOperationFailed)
	}
	return oid.Hex(), nil
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		logging.Default().WithError(err).Warn("failed to disconnect from document store")
	}
}
