package repository

import (
	"database/sql"

	"storywall/internal/model"
)

const startingCredits = 10

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertByExternalID resolves the identity provider's subject to a
// local user, creating one with the starting credit grant on first
// sight.
func (r *UserRepository) UpsertByExternalID(externalID, email string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(`
		INSERT INTO users(external_id, email, credits)
		VALUES($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, external_id, email, bio, credits, terms_accepted_at, created_at
	`, externalID, email, startingCredits).Scan(&u.ID, &u.ExternalID, &u.Email, &u.Bio, &u.Credits, &u.TermsAcceptedAt, &u.CreatedAt)

	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(`
		SELECT id, external_id, email, bio, credits, terms_accepted_at, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.ExternalID, &u.Email, &u.Bio, &u.Credits, &u.TermsAcceptedAt, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &u, nil
}

// DebitCredits atomically decrements the balance, refusing to go
// negative. Returns false when the balance was insufficient.
func (r *UserRepository) DebitCredits(userID int64, amount int) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE users SET credits = credits - $1 WHERE id = $2 AND credits >= $1
	`, amount, userID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *UserRepository) AddCredits(userID int64, amount int) error {
	_, err := r.db.Exec(`
		UPDATE users SET credits = credits + $1 WHERE id = $2
	`, amount, userID)
	return err
}

func (r *UserRepository) UpdateBio(userID int64, bio string) error {
	_, err := r.db.Exec(`
		UPDATE users SET bio = $1 WHERE id = $2
	`, bio, userID)
	return err
}

func (r *UserRepository) AcceptTerms(userID int64) error {
	_, err := r.db.Exec(`
		UPDATE users SET terms_accepted_at = NOW() WHERE id = $1
	`, userID)
	return err
}
