package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
)

type EpisodePatchRepo interface {
	Create(dbc dbctx.Context, patches []*domain.EpisodePatch) ([]*domain.EpisodePatch, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.EpisodePatch, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.EpisodePatch, error)
	ListByState(dbc dbctx.Context, state domain.PatchState, limit, offset int) ([]*domain.EpisodePatch, error)
	ListByEpisode(dbc dbctx.Context, episodeID int64) ([]*domain.EpisodePatch, error)
	ListBySubmitter(dbc dbctx.Context, fromUserID int64, limit, offset int) ([]*domain.EpisodePatch, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	MarkOutdatedSiblings(dbc dbctx.Context, episodeID int64, acceptedID uuid.UUID) (int64, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type episodePatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEpisodePatchRepo(db *gorm.DB, baseLog *logger.Logger) EpisodePatchRepo {
	return &episodePatchRepo{
		db:  db,
		log: baseLog.With("repo", "EpisodePatchRepo"),
	}
}

func (r *episodePatchRepo) Create(dbc dbctx.Context, patches []*domain.EpisodePatch) ([]*domain.EpisodePatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(patches) == 0 {
		return []*domain.EpisodePatch{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&patches).Error; err != nil {
		return nil, err
	}
	return patches, nil
}

func (r *episodePatchRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.EpisodePatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p domain.EpisodePatch
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByIDForUpdate locks the row for the surrounding transaction,
// reading unscoped; see SubjectPatchRepo.GetByIDForUpdate.
func (r *episodePatchRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.EpisodePatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p domain.EpisodePatch
	err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *episodePatchRepo) ListByState(dbc dbctx.Context, state domain.PatchState, limit, offset int) ([]*domain.EpisodePatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.EpisodePatch
	if err := transaction.WithContext(dbc.Ctx).
		Where("state = ?", state).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *episodePatchRepo) ListByEpisode(dbc dbctx.Context, episodeID int64) ([]*domain.EpisodePatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.EpisodePatch
	if err := transaction.WithContext(dbc.Ctx).
		Where("episode_id = ?", episodeID).
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *episodePatchRepo) ListBySubmitter(dbc dbctx.Context, fromUserID int64, limit, offset int) ([]*domain.EpisodePatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.EpisodePatch
	if err := transaction.WithContext(dbc.Ctx).
		Where("from_user_id = ?", fromUserID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *episodePatchRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&domain.EpisodePatch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *episodePatchRepo) MarkOutdatedSiblings(dbc dbctx.Context, episodeID int64, acceptedID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.EpisodePatch{}).
		Where("episode_id = ? AND state = ? AND id <> ?", episodeID, domain.StatePending, acceptedID).
		Updates(map[string]interface{}{
			"state":      domain.StateOutdated,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *episodePatchRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.EpisodePatch{}).Error
}
