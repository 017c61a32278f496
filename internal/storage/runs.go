package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Veraticus/the-critical-point/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// SaveRun persists a run and its points in one transaction, returning the
// new run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) (int64, error) {
	if run == nil {
		return 0, fmt.Errorf("run must not be nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (objective, dim, subdomains, candidates, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		run.Objective, run.Dim, run.Subdomains, run.Candidates, run.ElapsedMS)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO critical_points
		 (run_id, subdomain, coords, value, type, converged, iterations,
		  gradient_norm, eig_min, eig_max, condition_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range run.Points {
		p := &run.Points[i]
		coords, err := json.Marshal(p.X)
		if err != nil {
			return 0, fmt.Errorf("failed to encode coordinates: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			runID, p.Subdomain, string(coords), p.Value, string(p.Type),
			p.Converged, p.Iterations, nanToNull(p.GradientNorm),
			nanToNull(p.EigMin), nanToNull(p.EigMax), nanToNull(p.ConditionNumber)); err != nil {
			return 0, fmt.Errorf("failed to insert point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetRun loads a run with all of its points.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	run := &Run{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, objective, dim, subdomains, candidates, elapsed_ms
		 FROM runs WHERE id = ?`, id).
		Scan(&run.CreatedAt, &run.Objective, &run.Dim, &run.Subdomains, &run.Candidates, &run.ElapsedMS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subdomain, coords, value, type, converged, iterations,
		        gradient_norm, eig_min, eig_max, condition_number
		 FROM critical_points WHERE run_id = ? ORDER BY value ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var p Point
		var coords string
		var typ string
		var gradNorm, eigMin, eigMax, cond sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Subdomain, &coords, &p.Value, &typ,
			&p.Converged, &p.Iterations, &gradNorm, &eigMin, &eigMax, &cond); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		if err := json.Unmarshal([]byte(coords), &p.X); err != nil {
			return nil, fmt.Errorf("failed to decode coordinates: %w", err)
		}
		p.RunID = id
		p.Type = model.CriticalPointType(typ)
		p.GradientNorm = nullToNaN(gradNorm)
		p.EigMin = nullToNaN(eigMin)
		p.EigMax = nullToNaN(eigMax)
		p.ConditionNumber = nullToNaN(cond)
		run.Points = append(run.Points, p)
	}
	return run, rows.Err()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.created_at, r.objective, r.dim, r.elapsed_ms,
		        COUNT(p.id),
		        COALESCE(SUM(CASE WHEN p.type = ? THEN 1 ELSE 0 END), 0)
		 FROM runs r
		 LEFT JOIN critical_points p ON p.run_id = r.id
		 GROUP BY r.id
		 ORDER BY r.id DESC
		 LIMIT ?`, string(model.TypeMinimum), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		if err := rows.Scan(&rs.ID, &rs.CreatedAt, &rs.Objective, &rs.Dim,
			&rs.ElapsedMS, &rs.Points, &rs.Minima); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		out = append(out, rs)
	}
	return out, rows.Err()
}

func nanToNull(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
