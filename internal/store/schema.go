package store

import (
	"context"
	"fmt"
)

// EnsureSchema creates the registry and attendance tables when missing.
// Safe to call on every start.
func (d *DB) EnsureSchema(ctx context.Context) error {
	if _, err := d.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// absen_user.user_id has no foreign key: deleting a user leaves its
// attendance rows in place.
const schema = `
CREATE TABLE IF NOT EXISTS data_user (
	id         SERIAL PRIMARY KEY,
	username   VARCHAR(100) NOT NULL UNIQUE,
	images     VARCHAR(255) NOT NULL,
	kelas      VARCHAR(50)  NOT NULL,
	created_at TIMESTAMP    NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_data_user_created_at ON data_user(created_at);

CREATE TABLE IF NOT EXISTS absen_user (
	id         SERIAL PRIMARY KEY,
	user_id    INTEGER      NOT NULL,
	location   VARCHAR(255) NOT NULL,
	status     VARCHAR(10)  NOT NULL CHECK (status IN ('success', 'failed')),
	time_absen TIMESTAMP    NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_absen_user_user_id ON absen_user(user_id);
CREATE INDEX IF NOT EXISTS idx_absen_user_status ON absen_user(status);
CREATE INDEX IF NOT EXISTS idx_absen_user_time ON absen_user(time_absen);
`
