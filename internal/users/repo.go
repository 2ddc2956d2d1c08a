package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"absensi/internal/store"
)

// User is one enrolled person.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Images    string    `json:"images"`
	Kelas     string    `json:"kelas"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrDuplicate is returned by a Store when the unique index rejects a username.
var ErrDuplicate = errors.New("users: duplicate username")

// Repository persists users in the data_user table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns every user, newest first.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, images, kelas, created_at
		FROM data_user
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Images, &u.Kelas, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetByUsername returns the user with an exact username, or nil.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, images, kelas, created_at
		FROM data_user WHERE username = $1
	`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Images, &u.Kelas, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// UsernameTaken reports whether a row with username already exists.
func (r *Repository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM data_user WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Insert writes u and fills in its generated id and creation time.
func (r *Repository) Insert(ctx context.Context, u *User) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO data_user (username, images, kelas, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, created_at
	`, u.Username, u.Images, u.Kelas)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update rewrites username and kelas, and images only when non-nil.
// It returns the number of affected rows.
func (r *Repository) Update(ctx context.Context, id int64, username, kelas string, images *string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE data_user
		SET username = $2, kelas = $3, images = COALESCE($4, images)
		WHERE id = $1
	`, id, username, kelas, images)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the user row. Attendance rows are left untouched.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM data_user WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
