package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createRunTableSQL        = "CREATE TABLE IF NOT EXISTS run (id TEXT PRIMARY KEY, windowstart TEXT, windowend TEXT, alpha REAL, clusters INTEGER, createdon INTEGER)"
	createMembershipTableSQL = "CREATE TABLE IF NOT EXISTS membership (runid TEXT, symbol TEXT, name TEXT, label INTEGER)"
	createEdgeTableSQL       = "CREATE TABLE IF NOT EXISTS edge (runid TEXT, source TEXT, target TEXT, weight REAL)"
	persistRunSQL            = "INSERT INTO run(id, windowstart, windowend, alpha, clusters, createdon) VALUES(?,?,?,?,?,?)"
	persistMembershipSQL     = "INSERT INTO membership(runid, symbol, name, label) VALUES(?,?,?,?)"
	persistEdgeSQL           = "INSERT INTO edge(runid, source, target, weight) VALUES(?,?,?,?)"
)

// RunStorer defines the requirements for storing analysis runs.
type RunStorer interface {
	// PersistRun stores the provided completed analysis run to the database.
	PersistRun(ctx context.Context, run *Run) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Validate asserts the config has sane inputs.
func (cfg *DatabaseConfig) Validate() error {
	var errs error

	if cfg.Endpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the RunStorer interface.
var _ RunStorer = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating database config: %w", err)
	}

	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createRunTableSQL},
		{SQL: createMembershipTableSQL},
		{SQL: createEdgeTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// PersistRun stores the provided completed analysis run to the database.
func (db *Database) PersistRun(ctx context.Context, run *Run) error {
	statements := rqlitehttp.SQLStatements{
		{
			SQL: persistRunSQL,
			PositionalParams: []any{run.ID, run.Start.Format(time.DateOnly),
				run.End.Format(time.DateOnly), run.Alpha, run.Clusters, run.CreatedOn.Unix()},
		},
	}

	for idx := range run.Members {
		member := &run.Members[idx]

		if member.Label < 0 || member.Label >= run.Clusters {
			db.cfg.Logger.Error().Msgf("unexpected cluster label for membership: %s",
				spew.Sdump(member))
			continue
		}

		statements = append(statements, &rqlitehttp.SQLStatement{
			SQL:              persistMembershipSQL,
			PositionalParams: []any{run.ID, member.Symbol, member.Name, member.Label},
		})
	}

	for idx := range run.Edges {
		edge := &run.Edges[idx]
		statements = append(statements, &rqlitehttp.SQLStatement{
			SQL:              persistEdgeSQL,
			PositionalParams: []any{run.ID, edge.Source, edge.Target, edge.Weight},
		})
	}

	_, err := db.client.Execute(ctx, statements,
		&rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return fmt.Errorf("persisting run %s: %w", run.ID, err)
	}

	return nil
}
