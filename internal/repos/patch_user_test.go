package repos

import (
	"context"
	"testing"

	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	"github.com/Contextualist/submit-patch/internal/repos/testutil"
)

func TestPatchUserRepo_UpsertRefreshesIdentity(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewPatchUserRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	if err := repo.Upsert(dbc, &domain.PatchUser{UserID: 7, Username: "alice", Nickname: "A"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &domain.PatchUser{UserID: 7, Username: "alice", Nickname: "Alice!"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.GetByID(dbc, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Nickname != "Alice!" {
		t.Fatalf("expected refreshed nickname, got %+v", got)
	}
}

func TestPatchUserRepo_GetByIDMissingReturnsNil(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewPatchUserRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	got, err := repo.GetByID(dbc, 999999999)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown user, got %+v", got)
	}
}

func TestPatchUserRepo_GetByIDsReturnsMap(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewPatchUserRepo(db, testutil.Logger(t))
	dbc := dbctx.WithTx(context.Background(), tx)

	if err := repo.Upsert(dbc, &domain.PatchUser{UserID: 8, Username: "bob", Nickname: "B"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &domain.PatchUser{UserID: 9, Username: "carol", Nickname: "C"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.GetByIDs(dbc, []int64{8, 9, 123456789})
	if err != nil {
		t.Fatalf("get by ids: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}
	if got[8] == nil || got[8].Username != "bob" || got[9] == nil || got[9].Username != "carol" {
		t.Fatalf("unexpected map contents: %+v", got)
	}
}
