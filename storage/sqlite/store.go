// Package sqlite provides SQLite-backed persistence for snapshot baselines.
//
// A consumer saves the baseline it last applied and restores it on the next
// launch, so the first live snapshot diffs incrementally against real state
// instead of cold reloading. Revisions are monotonically increasing per key;
// old revisions stay queryable until pruned.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	stdSync "sync"
	"time"

	diffable "github.com/c0deZ3R0/go-diffable-kit"
	kiterrors "github.com/c0deZ3R0/go-diffable-kit/errors"
	"github.com/c0deZ3R0/go-diffable-kit/logging"
	"github.com/c0deZ3R0/go-diffable-kit/wire"

	// Go SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// Custom errors for better error handling
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrStoreClosed      = errors.New("store is closed")
)

// Config holds configuration options for the SnapshotStore.
//
// Production-ready defaults are applied by DefaultConfig() including:
//   - WAL mode enabled for better concurrency
//   - Connection pool with 25 max open, 5 max idle connections
//   - Connection lifetimes of 1 hour max, 5 minutes max idle
type Config struct {
	// DataSourceName is the connection string for the SQLite database.
	// Example: "file:snapshots.db?_journal_mode=WAL"
	DataSourceName string

	// EnableWAL enables Write-Ahead Logging mode for better concurrency.
	// When true, automatically appends "?_journal_mode=WAL" to
	// DataSourceName.
	EnableWAL bool

	// TableName is the name of the table to store snapshots.
	// Defaults to "snapshots" if empty.
	TableName string

	// Connection pool settings for production workloads.
	// Defaults: MaxOpen=25, MaxIdle=5, Lifetime=1h, IdleTime=5m
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// setDefaults applies default values to the config
func (c *Config) setDefaults() {
	if c.TableName == "" {
		c.TableName = "snapshots"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.EnableWAL {
		if !strings.Contains(c.DataSourceName, "?_journal_mode=") {
			c.DataSourceName += "?_journal_mode=WAL"
		}
	}
}

// DefaultConfig returns a Config with production-ready defaults for SQLite.
func DefaultConfig(dataSourceName string) *Config {
	config := &Config{
		DataSourceName: dataSourceName,
		EnableWAL:      true,
	}
	config.setDefaults()
	return config
}

// SnapshotStore persists snapshot baselines in SQLite, keyed by name with
// monotonically increasing revisions.
type SnapshotStore[S comparable, I comparable] struct {
	db        *sql.DB
	mu        stdSync.RWMutex
	closed    bool
	logger    *logging.Logger
	tableName string
}

// New creates a new SnapshotStore from a Config.
func New[S comparable, I comparable](config *Config) (*SnapshotStore[S, I], error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	config.setDefaults()

	if config.DataSourceName == "" {
		return nil, fmt.Errorf("DataSourceName is required")
	}

	logger := logging.WithComponent("sqlite-store")
	logger.InfoContext(context.Background(), "Opening SQLite database",
		slog.String("data_source", config.DataSourceName),
		slog.Bool("wal_enabled", config.EnableWAL),
	)

	db, err := sql.Open("sqlite3", config.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	store := &SnapshotStore[S, I]{
		db:        db,
		logger:    logger,
		tableName: config.TableName,
	}

	if err := store.setupSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database schema: %w", err)
	}

	logger.InfoContext(context.Background(), "SQLite SnapshotStore successfully initialized",
		slog.String("table_name", config.TableName),
	)
	return store, nil
}

// NewWithDataSource is a convenience constructor
func NewWithDataSource[S comparable, I comparable](dataSourceName string) (*SnapshotStore[S, I], error) {
	return New[S, I](DefaultConfig(dataSourceName))
}

func (s *SnapshotStore[S, I]) setupSchema() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT    NOT NULL,
			revision   INTEGER NOT NULL,
			payload    BLOB    NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (key, revision)
		);
		CREATE INDEX IF NOT EXISTS idx_%s_key ON %s(key);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.Exec(schema)
	return err
}

func (s *SnapshotStore[S, I]) checkOpen(op kiterrors.Operation) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return kiterrors.NewStorageError(op, ErrStoreClosed)
	}
	return nil
}

// Save persists the snapshot under key at the next revision and returns
// that revision.
func (s *SnapshotStore[S, I]) Save(ctx context.Context, key string, snap *diffable.Snapshot[S, I]) (int64, error) {
	if err := s.checkOpen(kiterrors.OpSave); err != nil {
		return 0, err
	}
	if key == "" {
		return 0, kiterrors.NewValidationError(kiterrors.OpSave, fmt.Errorf("key is required"))
	}

	payload, err := wire.Marshal(snap)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, kiterrors.NewStorageError(kiterrors.OpSave, err)
	}
	defer tx.Rollback()

	var latest int64
	query := fmt.Sprintf("SELECT COALESCE(MAX(revision), 0) FROM %s WHERE key = ?", s.tableName)
	if err := tx.QueryRowContext(ctx, query, key).Scan(&latest); err != nil {
		return 0, kiterrors.NewStorageError(kiterrors.OpSave, err)
	}

	revision := latest + 1
	insert := fmt.Sprintf("INSERT INTO %s (key, revision, payload) VALUES (?, ?, ?)", s.tableName)
	if _, err := tx.ExecContext(ctx, insert, key, revision, payload); err != nil {
		return 0, kiterrors.NewStorageError(kiterrors.OpSave, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, kiterrors.NewStorageError(kiterrors.OpSave, err)
	}

	s.logger.DebugContext(ctx, "snapshot saved",
		slog.String("key", key),
		slog.Int64("revision", revision),
		slog.Int("payload_bytes", len(payload)),
	)
	return revision, nil
}

// Load returns the latest revision of the snapshot stored under key.
func (s *SnapshotStore[S, I]) Load(ctx context.Context, key string) (*diffable.Snapshot[S, I], int64, error) {
	if err := s.checkOpen(kiterrors.OpLoad); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT revision, payload FROM %s WHERE key = ? ORDER BY revision DESC LIMIT 1", s.tableName)
	return s.loadRow(ctx, query, key)
}

// LoadRevision returns a specific stored revision.
func (s *SnapshotStore[S, I]) LoadRevision(ctx context.Context, key string, revision int64) (*diffable.Snapshot[S, I], int64, error) {
	if err := s.checkOpen(kiterrors.OpLoad); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT revision, payload FROM %s WHERE key = ? AND revision = ?", s.tableName)
	return s.loadRow(ctx, query, key, revision)
}

func (s *SnapshotStore[S, I]) loadRow(ctx context.Context, query string, args ...any) (*diffable.Snapshot[S, I], int64, error) {
	var revision int64
	var payload []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&revision, &payload)
	if err == sql.ErrNoRows {
		return nil, 0, kiterrors.NewStorageError(kiterrors.OpLoad, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, 0, kiterrors.NewStorageError(kiterrors.OpLoad, err)
	}

	snap, err := wire.Unmarshal[S, I](payload)
	if err != nil {
		return nil, 0, err
	}
	return snap, revision, nil
}

// Revisions returns all stored revisions for key in ascending order.
func (s *SnapshotStore[S, I]) Revisions(ctx context.Context, key string) ([]int64, error) {
	if err := s.checkOpen(kiterrors.OpLoad); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT revision FROM %s WHERE key = ? ORDER BY revision ASC", s.tableName)
	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, kiterrors.NewStorageError(kiterrors.OpLoad, err)
	}
	defer rows.Close()

	var revisions []int64
	for rows.Next() {
		var rev int64
		if err := rows.Scan(&rev); err != nil {
			return nil, kiterrors.NewStorageError(kiterrors.OpLoad, err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, kiterrors.NewStorageError(kiterrors.OpLoad, err)
	}
	return revisions, nil
}

// Prune deletes all but the newest keep revisions of key.
func (s *SnapshotStore[S, I]) Prune(ctx context.Context, key string, keep int) error {
	if err := s.checkOpen(kiterrors.OpPrune); err != nil {
		return err
	}
	if keep < 1 {
		return kiterrors.NewValidationError(kiterrors.OpPrune, fmt.Errorf("keep must be at least 1, got %d", keep))
	}

	query := fmt.Sprintf(`
		DELETE FROM %s WHERE key = ? AND revision NOT IN (
			SELECT revision FROM %s WHERE key = ? ORDER BY revision DESC LIMIT ?
		)`, s.tableName, s.tableName)
	result, err := s.db.ExecContext(ctx, query, key, key, keep)
	if err != nil {
		return kiterrors.NewStorageError(kiterrors.OpPrune, err)
	}

	if pruned, err := result.RowsAffected(); err == nil && pruned > 0 {
		s.logger.DebugContext(ctx, "snapshot revisions pruned",
			slog.String("key", key),
			slog.Int64("pruned", pruned),
		)
	}
	return nil
}

// Close closes the underlying database. Further operations fail with
// ErrStoreClosed.
func (s *SnapshotStore[S, I]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return kiterrors.NewStorageError(kiterrors.OpClose, err)
	}
	return nil
}
