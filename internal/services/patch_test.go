package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Contextualist/submit-patch/internal/domain"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/repos"
	"github.com/Contextualist/submit-patch/internal/repos/testutil"
)

var targetSeq atomic.Int64

// nextTargetID hands out subject/episode ids that do not collide
// across test runs against a shared database.
func nextTargetID() int64 {
	return time.Now().UnixNano()%1_000_000_000 + targetSeq.Add(1)
}

func newPatchService(t *testing.T, wiki *fakeWiki, captcha *fakeVerifier) PatchService {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewPatchService(
		db,
		log,
		repos.NewSubjectPatchRepo(db, log),
		repos.NewEpisodePatchRepo(db, log),
		repos.NewPatchUserRepo(db, log),
		wiki,
		captcha,
	)
}

func submitter() *domain.User {
	return &domain.User{UserID: 100, GroupID: 10}
}

func editor() *domain.User {
	return &domain.User{UserID: 200, GroupID: domain.GroupWikiEditor}
}

func TestCreateSubjectPatch_CapturesOriginalAndPersists(t *testing.T) {
	wiki := newFakeWiki()
	subjectID := nextTargetID()
	wiki.subjects[subjectID] = domain.SubjectWiki{Name: "n", Infobox: "i", Summary: "A", TypeID: 2}
	svc := newPatchService(t, wiki, &fakeVerifier{})

	id, err := svc.CreateSubjectPatch(context.Background(), submitter(), CreateSubjectPatchInput{
		SubjectID:    subjectID,
		Edit:         domain.SubjectEdit{Name: "n", Infobox: "i", Summary: "B"},
		Description:  "typo fix",
		CaptchaToken: "tok",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.GetSubjectPatch(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	p := view.Patch
	if p.State != domain.StatePending || p.FromUserID != 100 || p.Description != "typo fix" {
		t.Fatalf("unexpected patch: %+v", p)
	}
	if p.Summary == nil || *p.Summary != "B" || p.OriginalSummary == nil || *p.OriginalSummary != "A" {
		t.Fatalf("summary triple wrong: %+v", p)
	}
	if p.Name != nil {
		t.Fatalf("unchanged name must stay nil")
	}

	var summaryDiff string
	for _, d := range view.Diffs {
		if d.Field == "summary" {
			summaryDiff = d.Unified
		}
	}
	if !strings.Contains(summaryDiff, "-A") || !strings.Contains(summaryDiff, "+B") {
		t.Fatalf("expected -A/+B in summary diff, got:\n%s", summaryDiff)
	}
	if len(view.ReviewDiffs) != 0 {
		t.Fatalf("pending patch must not carry review diffs")
	}
}

func TestCreateSubjectPatch_RejectsEditorsAndAnonymous(t *testing.T) {
	wiki := newFakeWiki()
	subjectID := nextTargetID()
	wiki.subjects[subjectID] = domain.SubjectWiki{Summary: "A"}
	svc := newPatchService(t, wiki, &fakeVerifier{})

	in := CreateSubjectPatchInput{
		SubjectID:    subjectID,
		Edit:         domain.SubjectEdit{Summary: "B"},
		Description:  "d",
		CaptchaToken: "tok",
	}
	if _, err := svc.CreateSubjectPatch(context.Background(), nil, in); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("anonymous: expected permission denied, got %v", err)
	}
	if _, err := svc.CreateSubjectPatch(context.Background(), editor(), in); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("editor: expected permission denied, got %v", err)
	}
}

func TestCreateSubjectPatch_ValidationFailures(t *testing.T) {
	wiki := newFakeWiki()
	subjectID := nextTargetID()
	wiki.subjects[subjectID] = domain.SubjectWiki{Summary: "A"}
	svc := newPatchService(t, wiki, &fakeVerifier{})

	cases := []struct {
		name string
		in   CreateSubjectPatchInput
		msg  string
	}{
		{
			name: "blank description",
			in: CreateSubjectPatchInput{
				SubjectID:    subjectID,
				Edit:         domain.SubjectEdit{Summary: "B"},
				Description:  "   ",
				CaptchaToken: "tok",
			},
			msg: "missing suggestion description",
		},
		{
			name: "missing captcha",
			in: CreateSubjectPatchInput{
				SubjectID:   subjectID,
				Edit:        domain.SubjectEdit{Summary: "B"},
				Description: "d",
			},
			msg: "verification invalid",
		},
		{
			name: "no changes",
			in: CreateSubjectPatchInput{
				SubjectID:    subjectID,
				Edit:         domain.SubjectEdit{Summary: "A"},
				Description:  "d",
				CaptchaToken: "tok",
			},
			msg: "no changes found",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSubjectPatch(context.Background(), submitter(), tc.in)
			if !errs.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, err.Error())
			}
		})
	}
}

func TestCreateSubjectPatch_UnknownSubjectIsNotFound(t *testing.T) {
	svc := newPatchService(t, newFakeWiki(), &fakeVerifier{})
	_, err := svc.CreateSubjectPatch(context.Background(), submitter(), CreateSubjectPatchInput{
		SubjectID:    nextTargetID(),
		Edit:         domain.SubjectEdit{Summary: "B"},
		Description:  "d",
		CaptchaToken: "tok",
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateEpisodePatch_RoundTrip(t *testing.T) {
	wiki := newFakeWiki()
	episodeID := nextTargetID()
	wiki.episodes[episodeID] = domain.EpisodeWiki{Name: "ep", NameCN: "旧", Description: "old"}
	svc := newPatchService(t, wiki, &fakeVerifier{})

	id, err := svc.CreateEpisodePatch(context.Background(), submitter(), CreateEpisodePatchInput{
		EpisodeID:    episodeID,
		Edit:         domain.EpisodeEdit{Name: "ep", NameCN: "新", Description: "old"},
		Description:  "rename",
		CaptchaToken: "tok",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.GetEpisodePatch(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	p := view.Patch
	if p.NameCN == nil || *p.NameCN != "新" || p.OriginalNameCN == nil || *p.OriginalNameCN != "旧" {
		t.Fatalf("name_cn triple wrong: %+v", p)
	}
	if p.Description != nil {
		t.Fatalf("unchanged episode description must stay nil")
	}
}

func TestGetSubjectPatch_MissingIsNotFound(t *testing.T) {
	svc := newPatchService(t, newFakeWiki(), &fakeVerifier{})
	_, err := svc.GetSubjectPatch(context.Background(), uuid.New())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteSubjectPatch_OnlySubmitterMayWithdraw(t *testing.T) {
	wiki := newFakeWiki()
	subjectID := nextTargetID()
	wiki.subjects[subjectID] = domain.SubjectWiki{Summary: "A"}
	svc := newPatchService(t, wiki, &fakeVerifier{})

	id, err := svc.CreateSubjectPatch(context.Background(), submitter(), CreateSubjectPatchInput{
		SubjectID:    subjectID,
		Edit:         domain.SubjectEdit{Summary: "B"},
		Description:  "d",
		CaptchaToken: "tok",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := &domain.User{UserID: 101, GroupID: 10}
	if err := svc.DeleteSubjectPatch(context.Background(), id, other); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("other user: expected permission denied, got %v", err)
	}
	if err := svc.DeleteSubjectPatch(context.Background(), id, nil); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("anonymous: expected permission denied, got %v", err)
	}

	if err := svc.DeleteSubjectPatch(context.Background(), id, submitter()); err != nil {
		t.Fatalf("submitter delete: %v", err)
	}
	if _, err := svc.GetSubjectPatch(context.Background(), id); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("deleted patch must read as not found, got %v", err)
	}
	// Withdrawing twice finds nothing to withdraw.
	if err := svc.DeleteSubjectPatch(context.Background(), id, submitter()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestListSubjectPatches_FiltersByState(t *testing.T) {
	wiki := newFakeWiki()
	subjectID := nextTargetID()
	wiki.subjects[subjectID] = domain.SubjectWiki{Summary: "A"}
	svc := newPatchService(t, wiki, &fakeVerifier{})

	id, err := svc.CreateSubjectPatch(context.Background(), submitter(), CreateSubjectPatchInput{
		SubjectID:    subjectID,
		Edit:         domain.SubjectEdit{Summary: "B"},
		Description:  "d",
		CaptchaToken: "tok",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := svc.ListSubjectPatches(context.Background(), domain.StatePending, 100, 0)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	found := false
	for _, p := range pending {
		if p.ID == id {
			found = true
		}
		if p.State != domain.StatePending {
			t.Fatalf("pending listing contains state %v", p.State)
		}
	}
	if !found {
		t.Fatalf("new patch missing from pending listing")
	}

	accepted, err := svc.ListSubjectPatches(context.Background(), domain.StateAccepted, 100, 0)
	if err != nil {
		t.Fatalf("list accepted: %v", err)
	}
	for _, p := range accepted {
		if p.ID == id {
			t.Fatalf("pending patch leaked into accepted listing")
		}
	}
}

func TestListSubjectPatchesBySubmitter(t *testing.T) {
	wiki := newFakeWiki()
	subjectID := nextTargetID()
	wiki.subjects[subjectID] = domain.SubjectWiki{Summary: "A"}
	svc := newPatchService(t, wiki, &fakeVerifier{})

	// A distinct submitter so the shared database cannot pollute the listing.
	author := &domain.User{UserID: nextTargetID(), GroupID: 10}
	id, err := svc.CreateSubjectPatch(context.Background(), author, CreateSubjectPatchInput{
		SubjectID:    subjectID,
		Edit:         domain.SubjectEdit{Summary: "B"},
		Description:  "d",
		CaptchaToken: "tok",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := svc.ListSubjectPatchesBySubmitter(context.Background(), author.UserID, 100, 0)
	if err != nil {
		t.Fatalf("list by submitter: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != id {
		t.Fatalf("expected exactly the new patch, got %d rows", len(mine))
	}

	none, err := svc.ListSubjectPatchesBySubmitter(context.Background(), author.UserID+1, 100, 0)
	if err != nil {
		t.Fatalf("list by other submitter: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no rows for another submitter, got %d", len(none))
	}
}
