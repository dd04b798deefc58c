package generate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"storywall/pkg/llm"
	"storywall/pkg/storage"
)

type ImageRenderer struct {
	images   llm.ImageClient
	uploader storage.Uploader
}

func NewImageRenderer(images llm.ImageClient, uploader storage.Uploader) *ImageRenderer {
	return &ImageRenderer{images: images, uploader: uploader}
}

// Run renders each prompt and uploads the result, returning one public
// URL per prompt in order. A failed render or upload leaves that slot
// empty and moves on; one bad image never sinks the batch.
func (r *ImageRenderer) Run(ctx context.Context, timelineID int64, prompts []string) []string {
	urls := make([]string, len(prompts))

	for i, p := range prompts {
		if p == "" {
			continue
		}

		data, err := r.images.GenerateImage(ctx, p)
		if err != nil {
			slog.Error("error rendering event image", "error", err, "timeline_id", timelineID, "event_index", i)
			continue
		}

		name := fmt.Sprintf("timelines/%d/%s.png", timelineID, uuid.NewString())
		url, err := r.uploader.Upload(ctx, name, data)
		if err != nil {
			slog.Error("error uploading event image", "error", err, "timeline_id", timelineID, "event_index", i)
			continue
		}

		urls[i] = url
	}

	return urls
}
