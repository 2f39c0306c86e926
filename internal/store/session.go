package store

import (
	"database/sql"
	"errors"
	"time"
)

// SignCount is one ranked entry of a session summary.
type SignCount struct {
	Label string
	Count int
}

// Session is a persisted assessment session summary.
type Session struct {
	ID           string
	UserID       string
	Username     string
	TopSigns     []SignCount
	SecondsSpent float64
	Score        int
	Questions    int
	CreatedAt    time.Time
}

// SessionRepository provides access to session summaries.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a session and its ranked signs in a single transaction.
func (r *SessionRepository) Create(sess *Session) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (id, user_id, username, seconds_spent, score, questions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Username, sess.SecondsSpent, sess.Score, sess.Questions, sess.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO session_signs (session_id, position, label, runs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, sc := range sess.TopSigns {
		if _, err := stmt.Exec(sess.ID, i, sc.Label, sc.Count); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID retrieves a session with its signs.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}
	err := r.db.QueryRow(
		`SELECT id, user_id, username, seconds_spent, score, questions, created_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.UserID, &sess.Username, &sess.SecondsSpent, &sess.Score, &sess.Questions, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if sess.TopSigns, err = r.signs(sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// ListByUser returns a user's sessions, newest first.
func (r *SessionRepository) ListByUser(userID string) ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, user_id, username, seconds_spent, score, questions, created_at
		 FROM sessions WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Username, &sess.SecondsSpent, &sess.Score, &sess.Questions, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, sess := range sessions {
		if sess.TopSigns, err = r.signs(sess.ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// Delete removes a session and its signs.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectOne(result)
}

func (r *SessionRepository) signs(sessionID string) ([]SignCount, error) {
	rows, err := r.db.Query(
		`SELECT label, runs FROM session_signs WHERE session_id = ? ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signs := make([]SignCount, 0)
	for rows.Next() {
		var sc SignCount
		if err := rows.Scan(&sc.Label, &sc.Count); err != nil {
			return nil, err
		}
		signs = append(signs, sc)
	}
	return signs, rows.Err()
}
