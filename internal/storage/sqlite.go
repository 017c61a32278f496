// Package storage persists pipeline run history in SQLite so hunts can be
// compared and re-reported without recomputation.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/Veraticus/the-critical-point/internal/model"
)

// Store is the persistence contract consumed by the CLI layer. The
// pipeline core never touches it.
type Store interface {
	SaveRun(ctx context.Context, run *Run) (int64, error)
	GetRun(ctx context.Context, id int64) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Run is one persisted pipeline execution.
type Run struct {
	ID         int64
	CreatedAt  time.Time
	Objective  string
	Dim        int
	Subdomains int
	Candidates int
	ElapsedMS  int64
	Points     []Point
}

// Point is one classified critical point within a run.
type Point struct {
	ID              int64
	RunID           int64
	Subdomain       string
	X               []float64
	Value           float64
	Type            model.CriticalPointType
	Converged       bool
	Iterations      int
	GradientNorm    float64
	EigMin          float64
	EigMax          float64
	ConditionNumber float64
}

// RunSummary is the listing view of a run.
type RunSummary struct {
	ID        int64
	CreatedAt time.Time
	Objective string
	Dim       int
	Points    int
	Minima    int
	ElapsedMS int64
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite store instance. ":memory:" opens an
// ephemeral database for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath must not be empty")
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dbPath += "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
