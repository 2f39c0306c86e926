package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Sign is a handshape template definition.
type Sign struct {
	ID        string
	Name      string
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Landmark is one point of a sign template.
type Landmark struct {
	Index int
	X     float64
	Y     float64
	Z     float64
}

// SignRepository provides CRUD operations for sign templates.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

const signColumns = `id, name, tolerance, samples, created_at, updated_at`

// Create inserts a new sign.
func (r *SignRepository) Create(sg *Sign) error {
	now := time.Now().UTC()
	sg.CreatedAt = now
	sg.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO signs (`+signColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.Name, sg.Tolerance, sg.Samples, sg.CreatedAt, sg.UpdatedAt,
	)
	return err
}

// GetByID retrieves a sign by its ID.
func (r *SignRepository) GetByID(id string) (*Sign, error) {
	return r.scanOne(`SELECT `+signColumns+` FROM signs WHERE id = ?`, id)
}

// GetByName retrieves a sign by its name.
func (r *SignRepository) GetByName(name string) (*Sign, error) {
	return r.scanOne(`SELECT `+signColumns+` FROM signs WHERE name = ?`, name)
}

func (r *SignRepository) scanOne(query, arg string) (*Sign, error) {
	sg := &Sign{}
	err := r.db.QueryRow(query, arg).Scan(&sg.ID, &sg.Name, &sg.Tolerance, &sg.Samples, &sg.CreatedAt, &sg.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sg, nil
}

// List retrieves all signs ordered by name.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(`SELECT ` + signColumns + ` FROM signs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sg := &Sign{}
		if err := rows.Scan(&sg.ID, &sg.Name, &sg.Tolerance, &sg.Samples, &sg.CreatedAt, &sg.UpdatedAt); err != nil {
			return nil, err
		}
		signs = append(signs, sg)
	}
	return signs, rows.Err()
}

// Delete removes a sign and everything recorded for it.
func (r *SignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectOne(result)
}

// SetLandmarks replaces the template landmarks of a sign.
func (r *SignRepository) SetLandmarks(signID string, landmarks []Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE signs SET updated_at = ? WHERE id = ?`, time.Now().UTC(), signID)
	if err != nil {
		return err
	}
	if err := affectOne(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM sign_landmarks WHERE sign_id = ?`, signID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO sign_landmarks (sign_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range landmarks {
		if _, err := stmt.Exec(signID, l.Index, l.X, l.Y, l.Z); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetLandmarks returns the template landmarks of a sign in index order.
func (r *SignRepository) GetLandmarks(signID string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z FROM sign_landmarks WHERE sign_id = ? ORDER BY landmark_index`,
		signID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.Index, &l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}
	return landmarks, rows.Err()
}

// AddSamples appends recorded samples to a sign and updates its sample count.
func (r *SignRepository) AddSamples(signID string, samples []json.RawMessage) (int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRow(`SELECT samples FROM signs WHERE id = ?`, signID).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO sign_samples (sign_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(signID, existing+i, string(data)); err != nil {
			return 0, err
		}
	}

	total := existing + len(samples)
	_, err = tx.Exec(`UPDATE signs SET samples = ?, updated_at = ? WHERE id = ?`, total, time.Now().UTC(), signID)
	if err != nil {
		return 0, err
	}

	return total, tx.Commit()
}

// GetSamples returns every recorded sample of a sign in recording order.
func (r *SignRepository) GetSamples(signID string) ([]json.RawMessage, error) {
	rows, err := r.db.Query(
		`SELECT data FROM sign_samples WHERE sign_id = ? ORDER BY sample_index`,
		signID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []json.RawMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		samples = append(samples, json.RawMessage(data))
	}
	return samples, rows.Err()
}
