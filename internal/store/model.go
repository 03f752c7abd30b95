package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Model is a trained skin classifier stored in the database.
type Model struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"-"`
	Positives int             `json:"positives"`
	Negatives int             `json:"negatives"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// ModelRepository provides CRUD operations for skin models.
type ModelRepository struct {
	db *sql.DB
}

// Models returns the model repository for this store.
func (s *Store) Models() *ModelRepository {
	return &ModelRepository{db: s.db}
}

const modelColumns = `id, name, data, positives, negatives, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (*Model, error) {
	m := &Model{}
	var data string
	if err := row.Scan(&m.ID, &m.Name, &data, &m.Positives, &m.Negatives, &m.Active, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Data = json.RawMessage(data)
	return m, nil
}

// Create inserts a new, inactive model.
func (r *ModelRepository) Create(m *Model) error {
	m.CreatedAt = time.Now()
	m.Active = false

	_, err := r.db.Exec(
		`INSERT INTO skin_models (id, name, data, positives, negatives, active, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		m.ID, m.Name, string(m.Data), m.Positives, m.Negatives, m.CreatedAt,
	)
	return err
}

// GetByID retrieves a model by its ID.
func (r *ModelRepository) GetByID(id string) (*Model, error) {
	m, err := scanModel(r.db.QueryRow(
		`SELECT `+modelColumns+` FROM skin_models WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// Active retrieves the active model.
func (r *ModelRepository) Active() (*Model, error) {
	m, err := scanModel(r.db.QueryRow(
		`SELECT ` + modelColumns + ` FROM skin_models WHERE active = 1`,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// List retrieves all models, newest first.
func (r *ModelRepository) List() ([]*Model, error) {
	rows, err := r.db.Query(`SELECT ` + modelColumns + ` FROM skin_models ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return models, nil
}

// Activate makes the model with id the only active one.
func (r *ModelRepository) Activate(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE skin_models SET active = 0 WHERE active = 1`); err != nil {
		return err
	}

	result, err := tx.Exec(`UPDATE skin_models SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Delete removes a model by its ID.
func (r *ModelRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM skin_models WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
