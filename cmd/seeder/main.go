package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"storywall/db"
	"storywall/internal/model"
	"storywall/internal/repository"
	"storywall/pkg/generate"
	"storywall/pkg/llm"
	"storywall/pkg/prompt"
)

const seedTimeout = 10 * time.Minute

var defaultTopics = []string{
	"Moon Landings",
	"The History of the Internet",
	"Ancient Rome",
	"The Space Race",
	"Women in Science",
}

func main() {
	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	err := db.Connect()
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	timelineRepo := repository.NewTimelineRepository(db.DB)
	eventRepo := repository.NewEventRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	seedUser, err := userRepo.UpsertByExternalID("seeder", "seeder@storywall.local")
	if err != nil {
		log.Fatalf("error creating seed user: %v", err)
	}

	chatClient := llm.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"))
	prompts := prompt.NewStore(nil)
	pipeline := generate.NewPipeline(
		generate.NewDiscovery(chatClient, prompts),
		generate.NewVerifier(chatClient, prompts),
		generate.NewCorrector(chatClient, prompts),
		generate.NewDescriber(chatClient, prompts),
		nil,
	)

	topics := os.Args[1:]
	if len(topics) == 0 {
		topics = defaultTopics
	}

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	for _, topic := range topics {
		timeline := model.Timeline{
			OwnerID:    seedUser.ID,
			Title:      topic,
			ViewMode:   model.ViewHorizontal,
			Public:     true,
			ShareToken: uuid.NewString(),
		}
		if err := timelineRepo.Save(&timeline); err != nil {
			log.Fatalf("error saving timeline %q: %v", topic, err)
		}

		result, err := pipeline.Run(ctx, generate.PipelineRequest{
			TimelineID: timeline.ID,
			Title:      topic,
			MaxEvents:  10,
			Factual:    true,
		})
		if err != nil {
			log.Fatalf("error generating timeline %q: %v", topic, err)
		}
		if result.ParseFailed {
			slog.Warn("discovery response unusable, skipping topic", "topic", topic)
			continue
		}

		if err := eventRepo.SaveBatch(result.Events); err != nil {
			log.Fatalf("error saving events for %q: %v", topic, err)
		}

		slog.Info("seeded timeline",
			"topic", topic,
			"events", len(result.Events),
			"verified", result.Summary.VerifiedCount,
		)
	}

	slog.Info("seeding complete", "topics", len(topics))
}
