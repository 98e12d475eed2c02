package services

import (
	"context"
	"sync"

	"github.com/Contextualist/submit-patch/internal/domain"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
)

// fakeWiki serves canned snapshots and records write-backs.
type fakeWiki struct {
	mu       sync.Mutex
	subjects map[int64]domain.SubjectWiki
	episodes map[int64]domain.EpisodeWiki

	subjectUpdates []map[string]any
	episodeUpdates []map[string]any
	messages       []string
	failUpdates    bool
}

func newFakeWiki() *fakeWiki {
	return &fakeWiki{
		subjects: map[int64]domain.SubjectWiki{},
		episodes: map[int64]domain.EpisodeWiki{},
	}
}

func (f *fakeWiki) GetSubject(_ context.Context, subjectID int64) (*domain.SubjectWiki, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.subjects[subjectID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &w, nil
}

func (f *fakeWiki) UpdateSubject(_ context.Context, _ int64, updates map[string]any, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates {
		return errs.ErrUpstream
	}
	f.subjectUpdates = append(f.subjectUpdates, updates)
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeWiki) GetEpisode(_ context.Context, episodeID int64) (*domain.EpisodeWiki, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.episodes[episodeID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &w, nil
}

func (f *fakeWiki) UpdateEpisode(_ context.Context, _ int64, updates map[string]any, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates {
		return errs.ErrUpstream
	}
	f.episodeUpdates = append(f.episodeUpdates, updates)
	f.messages = append(f.messages, message)
	return nil
}

// fakeVerifier approves every token except the empty one, mirroring
// the real verifier's short-circuit.
type fakeVerifier struct {
	reject bool
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (bool, error) {
	if f.reject || token == "" {
		return false, nil
	}
	return true, nil
}
