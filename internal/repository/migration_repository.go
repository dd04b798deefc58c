package repository

import "database/sql"

// MigrationRepository backs the admin endpoints that retrofit columns
// onto the users table. Every operation is idempotent: re-running it
// reports the same column-exists result with no error.
type MigrationRepository struct {
	db *sql.DB
}

func NewMigrationRepository(db *sql.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

func (r *MigrationRepository) AddBioColumn() (bool, error) {
	_, err := r.db.Exec(`
		ALTER TABLE users ADD COLUMN IF NOT EXISTS bio TEXT NOT NULL DEFAULT ''
	`)
	if err != nil {
		return false, err
	}
	return r.columnExists("users", "bio")
}

func (r *MigrationRepository) AddTermsAcceptedAtColumn() (bool, error) {
	_, err := r.db.Exec(`
		ALTER TABLE users ADD COLUMN IF NOT EXISTS terms_accepted_at TIMESTAMPTZ
	`)
	if err != nil {
		return false, err
	}
	return r.columnExists("users", "terms_accepted_at")
}

func (r *MigrationRepository) columnExists(table, column string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		)
	`, table, column).Scan(&exists)
	return exists, err
}
