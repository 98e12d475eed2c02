package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	"github.com/Contextualist/submit-patch/internal/repos/testutil"
)

func newEpisodePatch(tb testing.TB, episodeID int64) *domain.EpisodePatch {
	tb.Helper()
	id, err := uuid.NewV7()
	if err != nil {
		tb.Fatalf("uuid: %v", err)
	}
	before, after := "old detail", "new detail"
	return &domain.EpisodePatch{
		ReviewBase: domain.ReviewBase{
			ID:          id,
			State:       domain.StatePending,
			FromUserID:  100,
			Description: "fix detail",
		},
		EpisodeID:           episodeID,
		Description:         &after,
		OriginalDescription: &before,
	}
}

func TestEpisodePatchRepo_DescriptionColumnsDistinctFromJustification(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewEpisodePatchRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	p := newEpisodePatch(t, 50)
	if _, err := repo.Create(dbc, []*domain.EpisodePatch{p}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByID(dbc, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ReviewBase.Description != "fix detail" {
		t.Fatalf("justification clobbered: %q", got.ReviewBase.Description)
	}
	if got.Description == nil || *got.Description != "new detail" {
		t.Fatalf("episode description clobbered: %v", got.Description)
	}
}

func TestEpisodePatchRepo_ListByEpisode(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewEpisodePatchRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	a := newEpisodePatch(t, 60)
	b := newEpisodePatch(t, 60)
	other := newEpisodePatch(t, 61)
	if _, err := repo.Create(dbc, []*domain.EpisodePatch{a, b, other}); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := repo.ListByEpisode(dbc, 60)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows for episode 60, got %d", len(out))
	}
}
