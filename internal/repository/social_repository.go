package repository

import (
	"database/sql"

	"storywall/internal/model"
)

type SocialRepository struct {
	db *sql.DB
}

func NewSocialRepository(db *sql.DB) *SocialRepository {
	return &SocialRepository{db: db}
}

func (r *SocialRepository) SaveAccount(a *model.SocialAccount) error {
	return r.db.QueryRow(`
		INSERT INTO social_account(user_id, platform, access_token, refresh_token, expires_at)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, platform) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    expires_at = EXCLUDED.expires_at
		RETURNING id, created_at
	`, a.UserID, a.Platform, a.AccessToken, a.RefreshToken, a.ExpiresAt).Scan(&a.ID, &a.CreatedAt)
}

func (r *SocialRepository) GetAccount(userID int64, platform string) (*model.SocialAccount, error) {
	var a model.SocialAccount
	err := r.db.QueryRow(`
		SELECT id, user_id, platform, access_token, refresh_token, expires_at, created_at
		FROM social_account
		WHERE user_id = $1 AND platform = $2
	`, userID, platform).Scan(&a.ID, &a.UserID, &a.Platform, &a.AccessToken, &a.RefreshToken, &a.ExpiresAt, &a.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (r *SocialRepository) DeleteAccount(userID int64, platform string) error {
	_, err := r.db.Exec(`
		DELETE FROM social_account WHERE user_id = $1 AND platform = $2
	`, userID, platform)
	return err
}
