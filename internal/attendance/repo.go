package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Record is one attendance attempt joined with its user's details.
type Record struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Location  string    `json:"location"`
	Status    string    `json:"status"`
	TimeAbsen time.Time `json:"time_absen"`
	Username  string    `json:"username,omitempty"`
	Kelas     string    `json:"kelas,omitempty"`
}

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UserIDByUsername resolves a username to its id. ok is false when no user matches.
func (r *Repository) UserIDByUsername(ctx context.Context, username string) (id int64, ok bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT id FROM data_user WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Insert writes rec and fills in its id and server timestamp.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO absen_user (user_id, location, status, time_absen)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, time_absen
	`, rec.UserID, rec.Location, rec.Status)
	return row.Scan(&rec.ID, &rec.TimeAbsen)
}

// List returns records joined with data_user, newest first, optionally
// filtered by exact status. Rows whose user no longer exists drop out of the join.
func (r *Repository) List(ctx context.Context, status string) ([]Record, error) {
	query := `
		SELECT a.id, a.user_id, a.location, a.status, a.time_absen, u.username, u.kelas
		FROM absen_user a
		JOIN data_user u ON a.user_id = u.id`
	args := []any{}
	if status != "" {
		query += ` WHERE a.status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY a.time_absen DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Location, &rec.Status, &rec.TimeAbsen, &rec.Username, &rec.Kelas); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Delete removes a record by id and reports affected rows.
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM absen_user WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
