package bangumi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
)

// Profile is the subset of the bgm.tv profile the service keeps:
// identity, wiki group, and display names.
type Profile struct {
	UserID   int64  `json:"id"`
	GroupID  int64  `json:"user_group"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

type OAuthClient interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	GetMe(ctx context.Context, accessToken string) (*Profile, error)
}

type oauthClient struct {
	log         *logger.Logger
	http        *http.Client
	authBaseURL string
	apiBaseURL  string
	appID       string
	appSecret   string
	callbackURL string
}

func NewOAuthClient(log *logger.Logger, authBaseURL, apiBaseURL, appID, appSecret, callbackURL string) OAuthClient {
	return &oauthClient{
		log:         log.With("client", "OAuthClient"),
		http:        &http.Client{Timeout: 15 * time.Second},
		authBaseURL: authBaseURL,
		apiBaseURL:  apiBaseURL,
		appID:       appID,
		appSecret:   appSecret,
		callbackURL: callbackURL,
	}
}

func (c *oauthClient) AuthorizeURL(state string) string {
	q := url.Values{
		"client_id":     {c.appID},
		"response_type": {"code"},
		"redirect_uri":  {c.callbackURL},
		"state":         {state},
	}
	return c.authBaseURL + "/oauth/authorize?" + q.Encode()
}

func (c *oauthClient) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.appID},
		"client_secret": {c.appSecret},
		"redirect_uri":  {c.callbackURL},
		"code":          {code},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBaseURL+"/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: oauth token exchange: %v", errs.ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: oauth token exchange returned %d", errs.ErrUpstream, res.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode oauth response: %v", errs.ErrUpstream, err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("%w: oauth response missing access_token", errs.ErrUpstream)
	}
	return payload.AccessToken, nil
}

func (c *oauthClient) GetMe(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/v0/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch profile: %v", errs.ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: fetch profile returned %d", errs.ErrUpstream, res.StatusCode)
	}

	var profile Profile
	if err := json.NewDecoder(res.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", errs.ErrUpstream, err)
	}
	return &profile, nil
}
