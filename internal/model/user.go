package model

import (
	"database/sql"
	"time"
)

type User struct {
	ID              int64
	ExternalID      string
	Email           string
	Bio             string
	Credits         int
	TermsAcceptedAt sql.NullTime
	CreatedAt       time.Time
}

const (
	PlatformTwitter = "twitter"
	PlatformTikTok  = "tiktok"
)

func ValidPlatform(p string) bool {
	return p == PlatformTwitter || p == PlatformTikTok
}

type SocialAccount struct {
	ID           int64
	UserID       int64
	Platform     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
