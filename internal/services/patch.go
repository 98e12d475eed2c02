package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Contextualist/submit-patch/internal/clients/bangumi"
	"github.com/Contextualist/submit-patch/internal/clients/turnstile"
	"github.com/Contextualist/submit-patch/internal/diff"
	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/repos"
)

// CreateSubjectPatchInput is a subject suggestion as submitted.
type CreateSubjectPatchInput struct {
	SubjectID    int64
	Edit         domain.SubjectEdit
	Description  string
	CaptchaToken string
}

// CreateEpisodePatchInput is an episode suggestion as submitted.
type CreateEpisodePatchInput struct {
	EpisodeID    int64
	Edit         domain.EpisodeEdit
	Description  string
	CaptchaToken string
}

// FieldDiff is one field's rendered change for display.
type FieldDiff struct {
	Field   string      `json:"field"`
	Unified string      `json:"unified"`
	Inline  []diff.Span `json:"inline,omitempty"`
}

// SubjectPatchView is the display bundle for a subject patch:
// the record, the proposal diffs, and, once reviewed, the review
// diffs showing what the reviewer changed relative to the proposal.
// Rendering is the caller's concern.
type SubjectPatchView struct {
	Patch       *domain.SubjectPatch `json:"patch"`
	Diffs       []FieldDiff          `json:"diffs"`
	ReviewDiffs []FieldDiff          `json:"review_diffs,omitempty"`
	Submitter   *domain.PatchUser    `json:"submitter,omitempty"`
	Reviewer    *domain.PatchUser    `json:"reviewer,omitempty"`
}

// EpisodePatchView is the episode counterpart of SubjectPatchView.
type EpisodePatchView struct {
	Patch       *domain.EpisodePatch `json:"patch"`
	Diffs       []FieldDiff          `json:"diffs"`
	ReviewDiffs []FieldDiff          `json:"review_diffs,omitempty"`
	Submitter   *domain.PatchUser    `json:"submitter,omitempty"`
	Reviewer    *domain.PatchUser    `json:"reviewer,omitempty"`
}

type PatchService interface {
	CreateSubjectPatch(ctx context.Context, actor *domain.User, in CreateSubjectPatchInput) (uuid.UUID, error)
	CreateEpisodePatch(ctx context.Context, actor *domain.User, in CreateEpisodePatchInput) (uuid.UUID, error)
	GetSubjectPatch(ctx context.Context, id uuid.UUID) (*SubjectPatchView, error)
	GetEpisodePatch(ctx context.Context, id uuid.UUID) (*EpisodePatchView, error)
	DeleteSubjectPatch(ctx context.Context, id uuid.UUID, actor *domain.User) error
	DeleteEpisodePatch(ctx context.Context, id uuid.UUID, actor *domain.User) error
	ListSubjectPatches(ctx context.Context, state domain.PatchState, limit, offset int) ([]*domain.SubjectPatch, error)
	ListEpisodePatches(ctx context.Context, state domain.PatchState, limit, offset int) ([]*domain.EpisodePatch, error)
	ListSubjectPatchesBySubmitter(ctx context.Context, fromUserID int64, limit, offset int) ([]*domain.SubjectPatch, error)
	ListEpisodePatchesBySubmitter(ctx context.Context, fromUserID int64, limit, offset int) ([]*domain.EpisodePatch, error)
}

type patchService struct {
	db          *gorm.DB
	log         *logger.Logger
	subjectRepo repos.SubjectPatchRepo
	episodeRepo repos.EpisodePatchRepo
	userRepo    repos.PatchUserRepo
	wiki        bangumi.WikiClient
	captcha     turnstile.Verifier
}

func NewPatchService(
	db *gorm.DB,
	log *logger.Logger,
	subjectRepo repos.SubjectPatchRepo,
	episodeRepo repos.EpisodePatchRepo,
	userRepo repos.PatchUserRepo,
	wiki bangumi.WikiClient,
	captcha turnstile.Verifier,
) PatchService {
	return &patchService{
		db:          db,
		log:         log.With("service", "PatchService"),
		subjectRepo: subjectRepo,
		episodeRepo: episodeRepo,
		userRepo:    userRepo,
		wiki:        wiki,
		captcha:     captcha,
	}
}

// validateSubmission applies the checks shared by both create paths:
// the submitter must be a regular user (reviewers act through
// accept/reject, not through proposing), the justification must be
// present, and the CAPTCHA must verify.
func (ps *patchService) validateSubmission(ctx context.Context, actor *domain.User, description, captchaToken string) error {
	if actor == nil {
		return errs.ErrPermissionDenied
	}
	if actor.AllowEdit() {
		return errs.ErrPermissionDenied
	}
	if strings.TrimSpace(description) == "" {
		return errs.Validation("missing suggestion description")
	}
	ok, err := ps.captcha.Verify(ctx, captchaToken)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Validation("verification invalid")
	}
	return nil
}

func (ps *patchService) CreateSubjectPatch(ctx context.Context, actor *domain.User, in CreateSubjectPatchInput) (uuid.UUID, error) {
	if err := ps.validateSubmission(ctx, actor, in.Description, in.CaptchaToken); err != nil {
		return uuid.Nil, err
	}

	wiki, err := ps.wiki.GetSubject(ctx, in.SubjectID)
	if err != nil {
		return uuid.Nil, err
	}

	p, changed := domain.NewSubjectPatch(in.SubjectID, in.Edit, *wiki)
	if !changed {
		return uuid.Nil, errs.Validation("no changes found")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}
	p.ID = id
	p.FromUserID = actor.UserID
	p.Description = in.Description

	if _, err := ps.subjectRepo.Create(dbctx.New(ctx), []*domain.SubjectPatch{p}); err != nil {
		return uuid.Nil, err
	}
	ps.log.Info("subject patch created", "patch_id", id, "subject_id", in.SubjectID, "from_user_id", actor.UserID)
	return id, nil
}

func (ps *patchService) CreateEpisodePatch(ctx context.Context, actor *domain.User, in CreateEpisodePatchInput) (uuid.UUID, error) {
	if err := ps.validateSubmission(ctx, actor, in.Description, in.CaptchaToken); err != nil {
		return uuid.Nil, err
	}

	wiki, err := ps.wiki.GetEpisode(ctx, in.EpisodeID)
	if err != nil {
		return uuid.Nil, err
	}

	p, changed := domain.NewEpisodePatch(in.EpisodeID, in.Edit, *wiki)
	if !changed {
		return uuid.Nil, errs.Validation("no changes found")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, err
	}
	p.ID = id
	p.FromUserID = actor.UserID
	p.ReviewBase.Description = in.Description

	if _, err := ps.episodeRepo.Create(dbctx.New(ctx), []*domain.EpisodePatch{p}); err != nil {
		return uuid.Nil, err
	}
	ps.log.Info("episode patch created", "patch_id", id, "episode_id", in.EpisodeID, "from_user_id", actor.UserID)
	return id, nil
}

// renderDiffs turns field changes into display diffs. Review diffs
// compare the reviewer's applied value against the proposal instead of
// the proposal against the original.
func (ps *patchService) renderDiffs(id uuid.UUID, changes []domain.FieldChange, review bool) ([]FieldDiff, error) {
	out := make([]FieldDiff, 0, len(changes))
	for _, ch := range changes {
		before, after := ch.Original, ch.Proposed
		if review {
			before, after = ch.Proposed, ch.Edited
		}
		unified, err := diff.Unified(before, after, ch.Field, ch.DiffContext)
		if err != nil {
			ps.log.Error("broken patch", "patch_id", id, "field", ch.Field, "error", err)
			return nil, err
		}
		fd := FieldDiff{Field: ch.Field, Unified: unified}
		if before != nil && after != nil && !strings.Contains(*before, "\n") && !strings.Contains(*after, "\n") {
			fd.Inline = diff.Inline(*before, *after)
		}
		out = append(out, fd)
	}
	return out, nil
}

func (ps *patchService) GetSubjectPatch(ctx context.Context, id uuid.UUID) (*SubjectPatchView, error) {
	dbc := dbctx.New(ctx)
	p, err := ps.subjectRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.ErrNotFound
	}

	changes := p.Changes()
	view := &SubjectPatchView{Patch: p}
	if view.Diffs, err = ps.renderDiffs(id, changes, false); err != nil {
		return nil, err
	}
	if p.State != domain.StatePending {
		if view.ReviewDiffs, err = ps.renderDiffs(id, changes, true); err != nil {
			return nil, err
		}
		if view.Reviewer, err = ps.userRepo.GetByID(dbc, p.WikiUserID); err != nil {
			return nil, err
		}
	}
	if view.Submitter, err = ps.userRepo.GetByID(dbc, p.FromUserID); err != nil {
		return nil, err
	}
	return view, nil
}

func (ps *patchService) GetEpisodePatch(ctx context.Context, id uuid.UUID) (*EpisodePatchView, error) {
	dbc := dbctx.New(ctx)
	p, err := ps.episodeRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errs.ErrNotFound
	}

	changes := p.Changes()
	view := &EpisodePatchView{Patch: p}
	if view.Diffs, err = ps.renderDiffs(id, changes, false); err != nil {
		return nil, err
	}
	if p.State != domain.StatePending {
		if view.ReviewDiffs, err = ps.renderDiffs(id, changes, true); err != nil {
			return nil, err
		}
		if view.Reviewer, err = ps.userRepo.GetByID(dbc, p.WikiUserID); err != nil {
			return nil, err
		}
	}
	if view.Submitter, err = ps.userRepo.GetByID(dbc, p.FromUserID); err != nil {
		return nil, err
	}
	return view, nil
}

func (ps *patchService) DeleteSubjectPatch(ctx context.Context, id uuid.UUID, actor *domain.User) error {
	if actor == nil {
		return errs.ErrPermissionDenied
	}
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		p, err := ps.subjectRepo.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if p == nil {
			return errs.ErrNotFound
		}
		if p.FromUserID != actor.UserID {
			return errs.ErrPermissionDenied
		}
		return ps.subjectRepo.SoftDelete(dbc, id)
	})
}

func (ps *patchService) DeleteEpisodePatch(ctx context.Context, id uuid.UUID, actor *domain.User) error {
	if actor == nil {
		return errs.ErrPermissionDenied
	}
	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		p, err := ps.episodeRepo.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if p == nil {
			return errs.ErrNotFound
		}
		if p.FromUserID != actor.UserID {
			return errs.ErrPermissionDenied
		}
		return ps.episodeRepo.SoftDelete(dbc, id)
	})
}

const defaultListLimit = 30

func (ps *patchService) ListSubjectPatches(ctx context.Context, state domain.PatchState, limit, offset int) ([]*domain.SubjectPatch, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	return ps.subjectRepo.ListByState(dbctx.New(ctx), state, limit, offset)
}

func (ps *patchService) ListEpisodePatches(ctx context.Context, state domain.PatchState, limit, offset int) ([]*domain.EpisodePatch, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	return ps.episodeRepo.ListByState(dbctx.New(ctx), state, limit, offset)
}

func (ps *patchService) ListSubjectPatchesBySubmitter(ctx context.Context, fromUserID int64, limit, offset int) ([]*domain.SubjectPatch, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	return ps.subjectRepo.ListBySubmitter(dbctx.New(ctx), fromUserID, limit, offset)
}

func (ps *patchService) ListEpisodePatchesBySubmitter(ctx context.Context, fromUserID int64, limit, offset int) ([]*domain.EpisodePatch, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	return ps.episodeRepo.ListBySubmitter(dbctx.New(ctx), fromUserID, limit, offset)
}
