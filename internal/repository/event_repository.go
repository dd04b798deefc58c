package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"storywall/internal/model"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Save(e *model.Event) error {
	return r.db.QueryRow(`
		INSERT INTO event(timeline_id, title, description, year, month, day, image_url, image_prompt, category, links, position)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, e.TimelineID, e.Title, e.Description, e.Date.Year, e.Date.Month, e.Date.Day,
		e.ImageURL, e.ImagePrompt, e.Category, pq.Array(e.Links), e.Position).Scan(&e.ID, &e.CreatedAt)
}

// SaveBatch inserts generated events in one transaction so a partial
// pipeline result never half-lands on a timeline.
func (r *EventRepository) SaveBatch(events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range events {
		e := &events[i]
		err := tx.QueryRow(`
			INSERT INTO event(timeline_id, title, description, year, month, day, image_url, image_prompt, category, links, position)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at
		`, e.TimelineID, e.Title, e.Description, e.Date.Year, e.Date.Month, e.Date.Day,
			e.ImageURL, e.ImagePrompt, e.Category, pq.Array(e.Links), e.Position).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *EventRepository) GetByID(id int64) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(`
		SELECT id, timeline_id, title, description, year, month, day, image_url, image_prompt, category, links, position, created_at
		FROM event
		WHERE id = $1
	`, id).Scan(&e.ID, &e.TimelineID, &e.Title, &e.Description, &e.Date.Year, &e.Date.Month, &e.Date.Day,
		&e.ImageURL, &e.ImagePrompt, &e.Category, pq.Array(&e.Links), &e.Position, &e.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &e, nil
}

func (r *EventRepository) ListByTimeline(timelineID int64) ([]model.Event, error) {
	rows, err := r.db.Query(`
		SELECT id, timeline_id, title, description, year, month, day, image_url, image_prompt, category, links, position, created_at
		FROM event
		WHERE timeline_id = $1
		ORDER BY year, month, day, position
	`, timelineID)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		err := rows.Scan(&e.ID, &e.TimelineID, &e.Title, &e.Description, &e.Date.Year, &e.Date.Month, &e.Date.Day,
			&e.ImageURL, &e.ImagePrompt, &e.Category, pq.Array(&e.Links), &e.Position, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (r *EventRepository) Update(e *model.Event) error {
	_, err := r.db.Exec(`
		UPDATE event
		SET title = $1, description = $2, year = $3, month = $4, day = $5,
		    image_url = $6, image_prompt = $7, category = $8, links = $9, position = $10
		WHERE id = $11
	`, e.Title, e.Description, e.Date.Year, e.Date.Month, e.Date.Day,
		e.ImageURL, e.ImagePrompt, e.Category, pq.Array(e.Links), e.Position, e.ID)
	return err
}

func (r *EventRepository) Delete(id int64) error {
	_, err := r.db.Exec(`DELETE FROM event WHERE id = $1`, id)
	return err
}
