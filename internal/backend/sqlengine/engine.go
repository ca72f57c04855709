// Package sqlengine is an embedded backend running queries on SQLite through
// the pure-Go modernc.org/sqlite driver. Each database name maps to its own
// SQLite database, in memory by default or as a file under a data directory.
package sqlengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/ctxlog"
)

const (
	driverName      = "sqlite"
	defaultDatabase = "main"
)

// Config holds the engine's construction parameters.
type Config struct {
	// DataDir stores one <database>.db file per database. Empty keeps all
	// databases in memory for the lifetime of the engine.
	DataDir  string
	Settings backend.Settings
}

// Engine implements backend.Backend.
type Engine struct {
	cfg      Config
	instance string

	mu       sync.Mutex
	dbs      map[string]*sql.DB
	sessions map[string]*sql.Conn

	// Script executions awaiting fetch, keyed by execution id.
	executions map[string]*execution
	current    *execution
	results    []backend.ResultSet

	async *asyncPool
}

var _ backend.Backend = (*Engine)(nil)

// New creates an engine. Databases are opened lazily on first use.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := resetStatistics(cfg.Settings.InProgressStatisticsFile); err != nil {
		return nil, err
	}

	group := new(errgroup.Group)
	if limit := cfg.Settings.Async.InFlightLimit; limit > 0 {
		group.SetLimit(int(limit))
	}

	e := &Engine{
		cfg:        cfg,
		instance:   uuid.NewString(),
		dbs:        make(map[string]*sql.DB),
		sessions:   make(map[string]*sql.Conn),
		executions: make(map[string]*execution),
		async:      newAsyncPool(group, cfg.Settings.Async.Verbose),
	}
	ctxlog.FromContext(ctx).Debug("SQLite engine created.", "instance", e.instance, "data_dir", cfg.DataDir)
	return e, nil
}

func (e *Engine) dsn(name string) string {
	if e.cfg.DataDir == "" {
		return fmt.Sprintf("file:%s-%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", e.instance, name)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", filepath.Join(e.cfg.DataDir, name+".db"))
}

func databaseName(name string) (string, error) {
	if name == "" {
		return defaultDatabase, nil
	}
	if strings.ContainsAny(name, `/\?&`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid database name %q", name)
	}
	return name, nil
}

// database returns the pool for name, opening it on first use.
func (e *Engine) database(name string) (*sql.DB, error) {
	name, err := databaseName(name)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if db, ok := e.dbs[name]; ok {
		return db, nil
	}

	db, err := sql.Open(driverName, e.dsn(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", name, err)
	}
	// A shared in-memory database lives as long as one connection does.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	e.dbs[name] = db
	return db, nil
}

// querier is what statements run against: a pool or a pinned session.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// session returns the querier for a synchronous request. With SameSession
// every request against a database reuses one connection.
func (e *Engine) session(ctx context.Context, name string) (querier, error) {
	db, err := e.database(name)
	if err != nil {
		return nil, err
	}
	if !e.cfg.Settings.SameSession {
		return db, nil
	}

	key, _ := databaseName(name)
	e.mu.Lock()
	defer e.mu.Unlock()
	if conn, ok := e.sessions[key]; ok {
		return conn, nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	e.sessions[key] = conn
	return conn, nil
}

// Close releases all sessions and databases. In-memory data is lost.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for name, conn := range e.sessions {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %q: %w", name, err))
		}
		delete(e.sessions, name)
	}
	for name, db := range e.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database %q: %w", name, err))
		}
		delete(e.dbs, name)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close engine: %w", err)
	}
	return nil
}
