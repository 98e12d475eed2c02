package turnstile

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

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks a Cloudflare Turnstile response token. The boolean
// is the verification outcome; an error means the verification service
// itself failed.
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

type verifier struct {
	log       *logger.Logger
	http      *http.Client
	endpoint  string
	secretKey string
}

func NewVerifier(log *logger.Logger, secretKey string) Verifier {
	return &verifier{
		log:       log.With("client", "TurnstileVerifier"),
		http:      &http.Client{Timeout: 10 * time.Second},
		endpoint:  siteverifyURL,
		secretKey: secretKey,
	}
}

func (v *verifier) Verify(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	form := url.Values{
		"secret":   {v.secretKey},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := v.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: captcha verify: %v", errs.ErrUpstream, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return false, fmt.Errorf("%w: captcha verify returned %d", errs.ErrUpstream, res.StatusCode)
	}

	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("%w: decode captcha response: %v", errs.ErrUpstream, err)
	}
	return payload.Success, nil
}
