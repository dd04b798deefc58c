package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// Provider resolves a bearer token to the identity provider's view of
// the user.
type Provider interface {
	UserInfo(ctx context.Context, token string) (*UserInfo, error)
}

type HTTPProvider struct {
	issuerURL  string
	httpClient *http.Client
}

func NewHTTPProvider(issuerURL string) *HTTPProvider {
	return &HTTPProvider{
		issuerURL:  issuerURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) UserInfo(ctx context.Context, token string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.issuerURL+"/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidToken
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("identity provider error, status %d: %s", resp.StatusCode, string(body))
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("identity provider decode: %w", err)
	}

	if info.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &info, nil
}
