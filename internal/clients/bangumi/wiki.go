package bangumi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Contextualist/submit-patch/internal/domain"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/pkg/httpx"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
)

// WikiClient is the snapshot source: read the current authoritative
// field values for a subject or episode, and write accepted values
// back. Snapshot reads retry on transient upstream statuses; writes
// run exactly once since they commit inside a review transaction.
type WikiClient interface {
	GetSubject(ctx context.Context, subjectID int64) (*domain.SubjectWiki, error)
	UpdateSubject(ctx context.Context, subjectID int64, updates map[string]any, message string) error
	GetEpisode(ctx context.Context, episodeID int64) (*domain.EpisodeWiki, error)
	UpdateEpisode(ctx context.Context, episodeID int64, updates map[string]any, message string) error
}

type wikiClient struct {
	log     *logger.Logger
	http    *http.Client
	baseURL string
	token   string
}

func NewWikiClient(log *logger.Logger, baseURL, token string) WikiClient {
	return &wikiClient{
		log:     log.With("client", "WikiClient"),
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

func (c *wikiClient) GetSubject(ctx context.Context, subjectID int64) (*domain.SubjectWiki, error) {
	var wiki domain.SubjectWiki
	if err := c.get(ctx, fmt.Sprintf("%s/p1/wiki/subjects/%d", c.baseURL, subjectID), &wiki); err != nil {
		return nil, err
	}
	return &wiki, nil
}

func (c *wikiClient) GetEpisode(ctx context.Context, episodeID int64) (*domain.EpisodeWiki, error) {
	var wiki domain.EpisodeWiki
	if err := c.get(ctx, fmt.Sprintf("%s/p1/wiki/ep/%d", c.baseURL, episodeID), &wiki); err != nil {
		return nil, err
	}
	return &wiki, nil
}

func (c *wikiClient) UpdateSubject(ctx context.Context, subjectID int64, updates map[string]any, message string) error {
	return c.patch(ctx, fmt.Sprintf("%s/p1/wiki/subjects/%d", c.baseURL, subjectID), updates, message)
}

func (c *wikiClient) UpdateEpisode(ctx context.Context, episodeID int64, updates map[string]any, message string) error {
	return c.patch(ctx, fmt.Sprintf("%s/p1/wiki/ep/%d", c.baseURL, episodeID), updates, message)
}

const getAttempts = 3

func (c *wikiClient) get(ctx context.Context, url string, out any) error {
	var lastErr error
	for attempt := 0; attempt < getAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(httpx.JitterSleep(time.Duration(attempt) * 500 * time.Millisecond)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		res, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: wiki fetch: %v", errs.ErrUpstream, err)
			if httpx.IsRetryableError(err) {
				continue
			}
			return lastErr
		}

		if res.StatusCode == http.StatusNotFound {
			res.Body.Close()
			return errs.ErrNotFound
		}
		if res.StatusCode >= 300 {
			res.Body.Close()
			lastErr = fmt.Errorf("%w: wiki fetch returned %d", errs.ErrUpstream, res.StatusCode)
			if httpx.IsRetryableHTTPStatus(res.StatusCode) {
				c.log.Warn("retrying wiki fetch", "status", res.StatusCode, "attempt", attempt+1)
				continue
			}
			return lastErr
		}

		err = json.NewDecoder(res.Body).Decode(out)
		res.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: decode wiki response: %v", errs.ErrUpstream, err)
		}
		return nil
	}
	return lastErr
}

func (c *wikiClient) patch(ctx context.Context, url string, updates map[string]any, message string) error {
	body, err := json.Marshal(map[string]any{
		"commitMessage": message,
		"fields":        updates,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: wiki update: %v", errs.ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		c.log.Error("wiki update failed", "status", res.StatusCode, "body", string(raw))
		return fmt.Errorf("%w: wiki update returned %d", errs.ErrUpstream, res.StatusCode)
	}
	return nil
}
