// Package database - Handles all interaction with ArangoDB. The service keeps one
// collection of gathered CVE facts so repeated lookups skip the public feeds.
package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

const (
	databaseName   = "cvetriage"
	collectionName = "cve_enrichment"
)

// Options are the connection settings
type Options struct {
	URL        string
	User       string
	Password   string
	MaxElapsed time.Duration
}

// DBConnection is the structure that defined the database engine and collections
type DBConnection struct {
	Collections map[string]arangodb.Collection
	Database    arangodb.Database
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Connect opens the database, creating the database, collection and indexes when
// missing. Connection attempts back off exponentially until MaxElapsed.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*DBConnection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = time.Minute
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 15 * time.Second
	bo.MaxElapsedTime = opts.MaxElapsed

	var client arangodb.Client
	err := backoff.RetryNotify(func() error {
		endpoint := connection.NewRoundRobinEndpoints([]string{opts.URL})
		conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, opts.User, opts.Password))
		client = arangodb.NewClient(conn)

		versionInfo, err := client.Version(ctx)
		if err != nil {
			return err
		}
		logger.Sugar().Infof("Database has version '%s' and license '%s'", versionInfo.Version, versionInfo.License)
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		logger.Warn("Retrying connection to ArangoDB", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to ArangoDB at %s: %w", opts.URL, err)
	}

	db, err := ensureDatabase(ctx, client)
	if err != nil {
		return nil, err
	}

	col, err := ensureCollection(ctx, db, collectionName)
	if err != nil {
		return nil, err
	}

	if err := ensureIndex(ctx, col, "enrichment_fetched_at", "fetched_at", logger); err != nil {
		return nil, err
	}

	return &DBConnection{
		Database:    db,
		Collections: map[string]arangodb.Collection{collectionName: col},
	}, nil
}

func ensureDatabase(ctx context.Context, client arangodb.Client) (arangodb.Database, error) {
	exists, err := client.DatabaseExists(ctx, databaseName)
	if err != nil {
		return nil, fmt.Errorf("checking database: %w", err)
	}
	if exists {
		var options arangodb.GetDatabaseOptions
		db, err := client.GetDatabase(ctx, databaseName, &options)
		if err != nil {
			return nil, fmt.Errorf("failed to get database: %w", err)
		}
		return db, nil
	}
	db, err := client.CreateDatabase(ctx, databaseName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	return db, nil
}

func ensureCollection(ctx context.Context, db arangodb.Database, name string) (arangodb.Collection, error) {
	exists, err := db.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if exists {
		var options arangodb.GetCollectionOptions
		col, err := db.GetCollection(ctx, name, &options)
		if err != nil {
			return nil, fmt.Errorf("failed to use collection %s: %w", name, err)
		}
		return col, nil
	}
	col, err := db.CreateCollection(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	return col, nil
}

func ensureIndex(ctx context.Context, col arangodb.Collection, name, field string, logger *zap.Logger) error {
	if indexes, err := col.Indexes(ctx); err == nil {
		for _, index := range indexes {
			if index.Name == name {
				return nil
			}
		}
	}

	False := false
	indexOptions := arangodb.CreatePersistentIndexOptions{
		Unique: &False,
		Sparse: &False,
		Name:   name,
	}
	if _, _, err := col.EnsurePersistentIndex(ctx, []string{field}, &indexOptions); err != nil {
		return fmt.Errorf("error creating index %s: %w", name, err)
	}
	logger.Sugar().Infof("Created index: %s on %s.%s", name, col.Name(), field)
	return nil
}
