package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Token is the result of an authorization-code exchange.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// OAuthEndpoint holds the per-platform OAuth 2.0 wiring.
type OAuthEndpoint struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       string
}

// AuthorizeURL builds the user-facing authorization URL.
func (e OAuthEndpoint) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", e.ClientID)
	q.Set("redirect_uri", e.RedirectURL)
	q.Set("scope", e.Scopes)
	q.Set("state", state)
	return e.AuthURL + "?" + q.Encode()
}

// OAuthExchanger swaps authorization codes for tokens against a set of
// named platform endpoints.
type OAuthExchanger struct {
	endpoints  map[string]OAuthEndpoint
	httpClient *http.Client
}

func NewOAuthExchanger(endpoints map[string]OAuthEndpoint) *OAuthExchanger {
	return &OAuthExchanger{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (x *OAuthExchanger) Endpoint(platform string) (OAuthEndpoint, bool) {
	e, ok := x.endpoints[platform]
	return e, ok
}

func (x *OAuthExchanger) Exchange(ctx context.Context, platform, code string) (*Token, error) {
	endpoint, ok := x.endpoints[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", endpoint.ClientID)
	form.Set("client_secret", endpoint.ClientSecret)
	form.Set("redirect_uri", endpoint.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token exchange failed, status %d: %s", resp.StatusCode, string(raw))
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("token exchange decode: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token exchange returned no access token")
	}
	return &token, nil
}
