package store

import (
	"database/sql"
	"errors"
	"time"
)

// User is a registered learner.
type User struct {
	ID        string
	Name      string
	TokenHash string
	CreatedAt time.Time
}

// UserRepository provides access to users.
type UserRepository struct {
	db *sql.DB
}

// Users returns the user repository for this store.
func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

// Create inserts a new user.
func (r *UserRepository) Create(u *User) error {
	u.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO users (id, name, token_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Name, u.TokenHash, u.CreatedAt,
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(id string) (*User, error) {
	return r.scanOne(`SELECT id, name, token_hash, created_at FROM users WHERE id = ?`, id)
}

// GetByTokenHash retrieves the user owning a token.
func (r *UserRepository) GetByTokenHash(hash string) (*User, error) {
	return r.scanOne(`SELECT id, name, token_hash, created_at FROM users WHERE token_hash = ?`, hash)
}

func (r *UserRepository) scanOne(query string, arg string) (*User, error) {
	u := &User{}
	err := r.db.QueryRow(query, arg).Scan(&u.ID, &u.Name, &u.TokenHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
