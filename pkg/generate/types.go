package generate

import "storywall/internal/model"

// CandidateEvent is a discovered event before persistence.
type CandidateEvent struct {
	Title       string
	Description string
	Date        model.EventDate
}

func eventVars(events []model.Event) []map[string]any {
	vars := make([]map[string]any, 0, len(events))
	for _, e := range events {
		vars = append(vars, map[string]any{
			"eventTitle":       e.Title,
			"eventDescription": e.Description,
			"year":             e.Date.Year,
		})
	}
	return vars
}
