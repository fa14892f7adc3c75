package engine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"migration-harness/internal/config"
)

const (
	// codeNamespaceNotFound is the server error code for a missing collection.
	codeNamespaceNotFound = 26

	replicaSetName = "docker-rs"
)

// Mongo is a document engine running in a container. Bulk loads, scripts
// and CSV exports go through the tools shipped in the image; counts,
// index listings and sampling use a driver connection.
type Mongo struct {
	container testcontainers.Container
	inst      instance
	client    *mongo.Client
	database  *mongo.Database
	dbName    string
	uri       string
}

var _ DocumentEngine = (*Mongo)(nil)

// StartMongo starts a MongoDB container and connects to it.
func StartMongo(ctx context.Context, cfg config.DocumentConfig) (*Mongo, error) {
	c, err := mongodb.Run(ctx, cfg.Image, mongodb.WithReplicaSet(replicaSetName))
	if err != nil {
		if c != nil && c.Container != nil {
			_ = c.Terminate(context.WithoutCancel(ctx))
		}
		return nil, errors.Annotatef(err, "starting %s", cfg.Image)
	}

	m, err := connectMongo(ctx, c, cfg.Database)
	if err != nil {
		_ = c.Terminate(context.WithoutCancel(ctx))
		return nil, errors.Trace(err)
	}
	return m, nil
}

func connectMongo(ctx context.Context, c testcontainers.Container, dbName string) (*Mongo, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "resolving document engine host")
	}
	port, err := c.MappedPort(ctx, "27017/tcp")
	if err != nil {
		return nil, errors.Annotate(err, "resolving document engine port")
	}
	uri := fmt.Sprintf("mongodb://%s:%s/%s?directConnection=true", host, port.Port(), dbName)

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(30 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, errors.Annotate(err, "failed to connect to MongoDB")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, errors.Annotate(err, "failed to ping MongoDB")
	}

	m := &Mongo{
		container: c,
		inst:      c,
		client:    client,
		database:  client.Database(dbName),
		dbName:    dbName,
		uri:       uri,
	}
	dirs := strings.Join([]string{containerImports, containerScripts, containerCSV}, " ")
	if err := mustRun(ctx, c, "preparing instance directories", []string{"sh", "-c", "mkdir -p " + dirs}); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, errors.Trace(err)
	}
	return m, nil
}

// LoadCollection implements DocumentStore.
func (m *Mongo) LoadCollection(ctx context.Context, collection, hostPath string) (ExecResult, error) {
	target, err := copyIn(ctx, m.inst, hostPath, containerImports)
	if err != nil {
		return ExecResult{}, errors.Trace(err)
	}
	return run(ctx, m.inst, importCommand(m.dbName, collection, target))
}

// RunScript implements DocumentStore.
func (m *Mongo) RunScript(ctx context.Context, hostPath string) (ExecResult, error) {
	target, err := copyIn(ctx, m.inst, hostPath, containerScripts)
	if err != nil {
		return ExecResult{}, errors.Trace(err)
	}
	return runCaptured(ctx, m.inst, scriptCommand(target))
}

// CountDocuments implements DocumentStore.
func (m *Mongo) CountDocuments(ctx context.Context, collection string) (int64, error) {
	n, err := m.database.Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Annotatef(err, "counting %s", collection)
	}
	return n, nil
}

// IndexNames implements DocumentStore.
func (m *Mongo) IndexNames(ctx context.Context, collection string) ([]string, error) {
	specs, err := m.database.Collection(collection).Indexes().ListSpecifications(ctx)
	if isNamespaceNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "listing indexes of %s", collection)
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names, nil
}

// CollectionsWithPrefix implements DocumentStore.
func (m *Mongo) CollectionsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"name": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}
	names, err := m.database.ListCollectionNames(ctx, filter)
	if err != nil {
		return nil, errors.Annotate(err, "failed to list collections")
	}
	sort.Strings(names)
	return names, nil
}

// SampleFields implements DocumentStore.
func (m *Mongo) SampleFields(ctx context.Context, collection string) ([]string, error) {
	var doc bson.D
	err := m.database.Collection(collection).FindOne(ctx, bson.D{}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "sampling %s", collection)
	}
	fields := make([]string, 0, len(doc))
	for _, e := range doc {
		if e.Key != "_id" {
			fields = append(fields, e.Key)
		}
	}
	return fields, nil
}

// ExportCSV implements DocumentStore.
func (m *Mongo) ExportCSV(ctx context.Context, collection string, fields []string, hostPath string) (ExecResult, error) {
	if len(fields) == 0 {
		return ExecResult{}, errors.Errorf("exporting %s: no fields", collection)
	}
	out := containerPath(containerCSV, hostPath)
	res, err := run(ctx, m.inst, exportCSVCommand(m.dbName, collection, fields, out))
	if err != nil || res.Failed() {
		return res, err
	}
	return res, copyOut(ctx, m.inst, out, hostPath)
}

// ConnectionURI implements DocumentStore.
func (m *Mongo) ConnectionURI() string {
	return m.uri
}

// Terminate closes the driver connection and removes the container.
func (m *Mongo) Terminate(ctx context.Context) error {
	disconnectErr := m.client.Disconnect(ctx)
	if err := m.container.Terminate(ctx); err != nil {
		return errors.Annotate(err, "terminating document engine")
	}
	return errors.Annotate(disconnectErr, "disconnecting from document engine")
}

func isNamespaceNotFound(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceNotFound
}
