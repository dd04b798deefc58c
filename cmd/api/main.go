package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"storywall/db"
	"storywall/internal/auth"
	"storywall/internal/handler"
	"storywall/internal/model"
	"storywall/internal/repository"
	"storywall/pkg/generate"
	"storywall/pkg/llm"
	"storywall/pkg/prompt"
	"storywall/pkg/social"
	"storywall/pkg/storage"
)

func main() {

	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	err := db.Connect()
	if err != nil {
		log.Fatalf("error connecting to DB: %v", err)
	}
	defer db.Close()

	var cache handler.Cache
	var jobs handler.JobStore
	if err := db.ConnectRedis(); err != nil {
		slog.Warn("redis unavailable, explore cache and job tracking disabled", "error", err)
	} else {
		cache = db.RedisCache{}
		jobs = db.RedisJobStore{}
		defer db.CloseRedis()
	}

	timelineRepo := repository.NewTimelineRepository(db.DB)
	eventRepo := repository.NewEventRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)
	socialRepo := repository.NewSocialRepository(db.DB)
	migrationRepo := repository.NewMigrationRepository(db.DB)

	chatClient := newChatClient()
	prompts := prompt.NewStore(nil)

	discovery := generate.NewDiscovery(chatClient, prompts)
	verifier := generate.NewVerifier(chatClient, prompts)
	corrector := generate.NewCorrector(chatClient, prompts)
	describer := generate.NewDescriber(chatClient, prompts)
	renderer := newImageRenderer()
	pipeline := generate.NewPipeline(discovery, verifier, corrector, describer, renderer)
	people := generate.NewPeopleExtractor(chatClient, prompts)
	optimizer := generate.NewOptimizer(chatClient, prompts)

	exchanger := social.NewOAuthExchanger(oauthEndpoints())

	timelineHandler := handler.NewTimelineHandler(timelineRepo, eventRepo, cache)
	eventHandler := handler.NewEventHandler(timelineRepo, eventRepo)
	generateHandler := handler.NewGenerateHandler(timelineRepo, eventRepo, userRepo, pipeline, discovery, verifier, describer, people, jobs)
	socialHandler := handler.NewSocialHandler(socialRepo, timelineRepo, eventRepo, exchanger, social.NewTwitterClient(), social.NewTikTokClient())
	adminHandler := handler.NewAdminHandler(migrationRepo, optimizer)
	userHandler := handler.NewUserHandler(userRepo)

	provider := auth.NewHTTPProvider(os.Getenv("AUTH_ISSUER_URL"))

	r := gin.Default()

	allowedOrigins := []string{"http://localhost:3000"}

	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	r.Use(auth.Middleware(provider, userRepo))

	r.GET("/health", timelineHandler.GetHealth)
	r.GET("/explore", timelineHandler.Explore)
	r.GET("/shared/:token", timelineHandler.GetShared)

	r.POST("/timelines", auth.RequireUser, timelineHandler.Create)
	r.GET("/timelines/me", auth.RequireUser, timelineHandler.ListMine)
	r.GET("/timelines/:id", timelineHandler.Get)
	r.PUT("/timelines/:id", auth.RequireUser, timelineHandler.Update)
	r.DELETE("/timelines/:id", auth.RequireUser, timelineHandler.Delete)

	r.POST("/timelines/:id/events", auth.RequireUser, eventHandler.Create)
	r.GET("/timelines/:id/events", eventHandler.List)
	r.PUT("/events/:id", auth.RequireUser, eventHandler.Update)
	r.DELETE("/events/:id", auth.RequireUser, eventHandler.Delete)

	r.POST("/timelines/:id/generate", auth.RequireUser, generateHandler.GenerateTimeline)
	r.POST("/generate/events", auth.RequireUser, generateHandler.GenerateEvents)
	r.POST("/generate/verify", auth.RequireUser, generateHandler.VerifyEvents)
	r.POST("/generate/describe", auth.RequireUser, generateHandler.DescribeEvents)
	r.GET("/generate/jobs/:id", auth.RequireUser, generateHandler.JobStatus)

	r.GET("/social/:platform/connect", auth.RequireUser, socialHandler.Connect)
	r.GET("/social/:platform/callback", auth.RequireUser, socialHandler.Callback)
	r.DELETE("/social/:platform", auth.RequireUser, socialHandler.Disconnect)
	r.POST("/timelines/:id/publish/:platform", auth.RequireUser, socialHandler.Publish)

	r.GET("/users/me", auth.RequireUser, userHandler.GetMe)
	r.PUT("/users/me/bio", auth.RequireUser, userHandler.UpdateBio)
	r.POST("/users/me/accept-terms", auth.RequireUser, userHandler.AcceptTerms)

	admin := r.Group("/", handler.RequireAdminToken(os.Getenv("ADMIN_TOKEN")))
	admin.POST("/admin/migrate/bio", adminHandler.MigrateBio)
	admin.POST("/admin/migrate/terms-accepted-at", adminHandler.MigrateTermsAcceptedAt)
	admin.POST("/debug/optimize-prompt", adminHandler.OptimizePrompt)
	admin.POST("/debug/extract-people", generateHandler.ExtractPeople)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	err = r.Run(":" + port)
	if err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

// newChatClient picks the chat backend from LLM_PROVIDER; model names
// are remapped per backend inside the adapters.
func newChatClient() llm.Client {
	if os.Getenv("LLM_PROVIDER") == "anthropic" {
		return llm.NewAnthropicClient(os.Getenv("ANTHROPIC_API_KEY"))
	}
	return llm.NewOpenAIClient(os.Getenv("OPENAI_API_KEY"))
}

// newImageRenderer returns nil when no CDN is configured; image
// rendering requests then fail explicitly instead of dropping files.
func newImageRenderer() *generate.ImageRenderer {
	uploadURL := os.Getenv("CDN_UPLOAD_URL")
	if uploadURL == "" {
		slog.Warn("CDN_UPLOAD_URL not set, image rendering disabled")
		return nil
	}
	images := llm.NewOpenAIImageClient(os.Getenv("OPENAI_API_KEY"))
	uploader := storage.NewCDNUploader(uploadURL, os.Getenv("CDN_API_KEY"))
	return generate.NewImageRenderer(images, uploader)
}

func oauthEndpoints() map[string]social.OAuthEndpoint {
	return map[string]social.OAuthEndpoint{
		model.PlatformTwitter: {
			AuthURL:      "https://x.com/i/oauth2/authorize",
			TokenURL:     "https://api.x.com/2/oauth2/token",
			ClientID:     os.Getenv("TWITTER_CLIENT_ID"),
			ClientSecret: os.Getenv("TWITTER_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("TWITTER_REDIRECT_URL"),
			Scopes:       "tweet.read tweet.write users.read offline.access",
		},
		model.PlatformTikTok: {
			AuthURL:      "https://www.tiktok.com/v2/auth/authorize/",
			TokenURL:     "https://open.tiktokapis.com/v2/oauth/token/",
			ClientID:     os.Getenv("TIKTOK_CLIENT_KEY"),
			ClientSecret: os.Getenv("TIKTOK_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("TIKTOK_REDIRECT_URL"),
			Scopes:       "user.info.basic video.publish",
		},
	}
}
