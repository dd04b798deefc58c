package repository

import (
	"database/sql"

	"storywall/internal/model"
)

type TimelineRepository struct {
	db *sql.DB
}

func NewTimelineRepository(db *sql.DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

func (r *TimelineRepository) Save(t *model.Timeline) error {
	return r.db.QueryRow(`
		INSERT INTO timeline(owner_id, title, description, view_mode, public, share_token)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, t.OwnerID, t.Title, t.Description, t.ViewMode, t.Public, t.ShareToken).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TimelineRepository) GetByID(id int64) (*model.Timeline, error) {
	var t model.Timeline
	err := r.db.QueryRow(`
		SELECT id, owner_id, title, description, view_mode, public, share_token, created_at, updated_at
		FROM timeline
		WHERE id = $1
	`, id).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.ViewMode, &t.Public, &t.ShareToken, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *TimelineRepository) GetByShareToken(token string) (*model.Timeline, error) {
	var t model.Timeline
	err := r.db.QueryRow(`
		SELECT id, owner_id, title, description, view_mode, public, share_token, created_at, updated_at
		FROM timeline
		WHERE share_token = $1
	`, token).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.ViewMode, &t.Public, &t.ShareToken, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *TimelineRepository) ListByOwner(ownerID int64, limit, offset int) ([]model.Timeline, error) {
	rows, err := r.db.Query(`
		SELECT id, owner_id, title, description, view_mode, public, share_token, created_at, updated_at
		FROM timeline
		WHERE owner_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTimelines(rows)
}

func (r *TimelineRepository) GetExplore(limit, offset int) ([]model.Timeline, error) {
	rows, err := r.db.Query(`
		SELECT id, owner_id, title, description, view_mode, public, share_token, created_at, updated_at
		FROM timeline
		WHERE public = true
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTimelines(rows)
}

func (r *TimelineRepository) GetExploreTotal() (int, error) {
	var total int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM timeline WHERE public = true
	`).Scan(&total)
	return total, err
}

func (r *TimelineRepository) Update(t *model.Timeline) error {
	_, err := r.db.Exec(`
		UPDATE timeline
		SET title = $1, description = $2, view_mode = $3, public = $4, updated_at = NOW()
		WHERE id = $5
	`, t.Title, t.Description, t.ViewMode, t.Public, t.ID)
	return err
}

// Delete removes the timeline; events go with it through the schema's
// cascade rule.
func (r *TimelineRepository) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM timeline WHERE id = $1`, id)
	return err
}

func scanTimelines(rows *sql.Rows) ([]model.Timeline, error) {
	var timelines []model.Timeline
	for rows.Next() {
		var t model.Timeline
		err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.ViewMode, &t.Public, &t.ShareToken, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return timelines, nil
}
