package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Contextualist/submit-patch/internal/clients/bangumi"
	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	errs "github.com/Contextualist/submit-patch/internal/pkg/errors"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
	"github.com/Contextualist/submit-patch/internal/repos"
)

// ReviewService is the patch state machine. Transitions run only from
// Pending and only for users with wiki edit rights; every mutation of
// an accept (state change, edited values, sibling outdating, wiki
// write-back) commits or rolls back as one transaction.
type ReviewService interface {
	AcceptSubjectPatch(ctx context.Context, id uuid.UUID, actor *domain.User, overrides map[string]string) error
	RejectSubjectPatch(ctx context.Context, id uuid.UUID, actor *domain.User, reason string) error
	AcceptEpisodePatch(ctx context.Context, id uuid.UUID, actor *domain.User, overrides map[string]string) error
	RejectEpisodePatch(ctx context.Context, id uuid.UUID, actor *domain.User, reason string) error
}

type reviewService struct {
	db          *gorm.DB
	log         *logger.Logger
	subjectRepo repos.SubjectPatchRepo
	episodeRepo repos.EpisodePatchRepo
	wiki        bangumi.WikiClient
}

func NewReviewService(
	db *gorm.DB,
	log *logger.Logger,
	subjectRepo repos.SubjectPatchRepo,
	episodeRepo repos.EpisodePatchRepo,
	wiki bangumi.WikiClient,
) ReviewService {
	return &reviewService{
		db:          db,
		log:         log.With("service", "ReviewService"),
		subjectRepo: subjectRepo,
		episodeRepo: episodeRepo,
		wiki:        wiki,
	}
}

// Permission is checked before anything else (a non-editor always sees
// a permission error, whatever the patch state); transitionable then
// rejects deleted or already-reviewed patches with a conflict.
func transitionable(deleted bool, state domain.PatchState) error {
	if deleted || state != domain.StatePending {
		return errs.ErrConflict
	}
	return nil
}

func (rs *reviewService) AcceptSubjectPatch(ctx context.Context, id uuid.UUID, actor *domain.User, overrides map[string]string) error {
	if actor == nil || !actor.AllowEdit() {
		return errs.ErrPermissionDenied
	}
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		p, err := rs.subjectRepo.GetByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if p == nil {
			return errs.ErrNotFound
		}
		if err := transitionable(p.DeletedAt.Valid, p.State); err != nil {
			return err
		}

		updates := p.ApplyReview(overrides)
		// The write-back happens inside the transaction so an upstream
		// failure rolls the state change back.
		if err := rs.wiki.UpdateSubject(ctx, p.SubjectID, updates, p.Description); err != nil {
			return err
		}

		fields := p.EditedColumns()
		fields["state"] = domain.StateAccepted
		fields["wiki_user_id"] = actor.UserID
		fields["updated_at"] = time.Now().UTC()
		if err := rs.subjectRepo.UpdateFields(dbc, p.ID, fields); err != nil {
			return err
		}

		outdated, err := rs.subjectRepo.MarkOutdatedSiblings(dbc, p.SubjectID, p.ID)
		if err != nil {
			return err
		}
		if outdated > 0 {
			rs.log.Info("superseded sibling patches", "patch_id", p.ID, "subject_id", p.SubjectID, "count", outdated)
		}
		return nil
	})
	if err != nil {
		return err
	}
	rs.log.Info("subject patch accepted", "patch_id", id, "wiki_user_id", actor.UserID)
	return nil
}

func (rs *reviewService) RejectSubjectPatch(ctx context.Context, id uuid.UUID, actor *domain.User, reason string) error {
	if actor == nil || !actor.AllowEdit() {
		return errs.ErrPermissionDenied
	}
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		p, err := rs.subjectRepo.GetByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if p == nil {
			return errs.ErrNotFound
		}
		if err := transitionable(p.DeletedAt.Valid, p.State); err != nil {
			return err
		}

		fields := map[string]interface{}{
			"state":        domain.StateRejected,
			"wiki_user_id": actor.UserID,
			"updated_at":   time.Now().UTC(),
		}
		if reason != "" {
			fields["reject_reason"] = reason
		}
		return rs.subjectRepo.UpdateFields(dbc, p.ID, fields)
	})
	if err != nil {
		return err
	}
	rs.log.Info("subject patch rejected", "patch_id", id, "wiki_user_id", actor.UserID)
	return nil
}

func (rs *reviewService) AcceptEpisodePatch(ctx context.Context, id uuid.UUID, actor *domain.User, overrides map[string]string) error {
	if actor == nil || !actor.AllowEdit() {
		return errs.ErrPermissionDenied
	}
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		p, err := rs.episodeRepo.GetByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if p == nil {
			return errs.ErrNotFound
		}
		if err := transitionable(p.DeletedAt.Valid, p.State); err != nil {
			return err
		}

		updates := p.ApplyReview(overrides)
		if err := rs.wiki.UpdateEpisode(ctx, p.EpisodeID, updates, p.ReviewBase.Description); err != nil {
			return err
		}

		fields := p.EditedColumns()
		fields["state"] = domain.StateAccepted
		fields["wiki_user_id"] = actor.UserID
		fields["updated_at"] = time.Now().UTC()
		if err := rs.episodeRepo.UpdateFields(dbc, p.ID, fields); err != nil {
			return err
		}

		outdated, err := rs.episodeRepo.MarkOutdatedSiblings(dbc, p.EpisodeID, p.ID)
		if err != nil {
			return err
		}
		if outdated > 0 {
			rs.log.Info("superseded sibling patches", "patch_id", p.ID, "episode_id", p.EpisodeID, "count", outdated)
		}
		return nil
	})
	if err != nil {
		return err
	}
	rs.log.Info("episode patch accepted", "patch_id", id, "wiki_user_id", actor.UserID)
	return nil
}

func (rs *reviewService) RejectEpisodePatch(ctx context.Context, id uuid.UUID, actor *domain.User, reason string) error {
	if actor == nil || !actor.AllowEdit() {
		return errs.ErrPermissionDenied
	}
	err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		p, err := rs.episodeRepo.GetByIDForUpdate(dbc, id)
		if err != nil {
			return err
		}
		if p == nil {
			return errs.ErrNotFound
		}
		if err := transitionable(p.DeletedAt.Valid, p.State); err != nil {
			return err
		}

		fields := map[string]interface{}{
			"state":        domain.StateRejected,
			"wiki_user_id": actor.UserID,
			"updated_at":   time.Now().UTC(),
		}
		if reason != "" {
			fields["reject_reason"] = reason
		}
		return rs.episodeRepo.UpdateFields(dbc, p.ID, fields)
	})
	if err != nil {
		return err
	}
	rs.log.Info("episode patch rejected", "patch_id", id, "wiki_user_id", actor.UserID)
	return nil
}
