package store

import (
	"database/sql"
	"time"
)

// Run records one training attempt.
type Run struct {
	ID         string        `json:"id"`
	ModelID    string        `json:"model_id,omitempty"`
	Frames     int           `json:"frames"`
	FacesFound int           `json:"faces_found"`
	Positives  int           `json:"positives"`
	Negatives  int           `json:"negatives"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// RunRepository provides access to training runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the training run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a training run. An empty ModelID is stored as NULL.
func (r *RunRepository) Create(run *Run) error {
	run.CreatedAt = time.Now()

	var modelID sql.NullString
	if run.ModelID != "" {
		modelID = sql.NullString{String: run.ModelID, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO training_runs (id, model_id, frames, faces_found, positives, negatives, duration_ms, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, modelID, run.Frames, run.FacesFound, run.Positives, run.Negatives,
		run.Duration.Milliseconds(), run.Error, run.CreatedAt,
	)
	return err
}

// List returns up to limit runs, newest first.
func (r *RunRepository) List(limit int) ([]Run, error) {
	rows, err := r.db.Query(
		`SELECT id, model_id, frames, faces_found, positives, negatives, duration_ms, error, created_at
		 FROM training_runs
		 ORDER BY created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var modelID sql.NullString
		var durationMS int64
		if err := rows.Scan(&run.ID, &modelID, &run.Frames, &run.FacesFound, &run.Positives,
			&run.Negatives, &durationMS, &run.Error, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.ModelID = modelID.String
		run.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
