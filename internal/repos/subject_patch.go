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

type SubjectPatchRepo interface {
	Create(dbc dbctx.Context, patches []*domain.SubjectPatch) ([]*domain.SubjectPatch, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SubjectPatch, error)
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.SubjectPatch, error)
	ListByState(dbc dbctx.Context, state domain.PatchState, limit, offset int) ([]*domain.SubjectPatch, error)
	ListBySubject(dbc dbctx.Context, subjectID int64) ([]*domain.SubjectPatch, error)
	ListBySubmitter(dbc dbctx.Context, fromUserID int64, limit, offset int) ([]*domain.SubjectPatch, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	MarkOutdatedSiblings(dbc dbctx.Context, subjectID int64, acceptedID uuid.UUID) (int64, error)
	SoftDelete(dbc dbctx.Context, id uuid.UUID) error
}

type subjectPatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectPatchRepo(db *gorm.DB, baseLog *logger.Logger) SubjectPatchRepo {
	return &subjectPatchRepo{
		db:  db,
		log: baseLog.With("repo", "SubjectPatchRepo"),
	}
}

func (r *subjectPatchRepo) Create(dbc dbctx.Context, patches []*domain.SubjectPatch) ([]*domain.SubjectPatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(patches) == 0 {
		return []*domain.SubjectPatch{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&patches).Error; err != nil {
		return nil, err
	}
	return patches, nil
}

func (r *subjectPatchRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.SubjectPatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p domain.SubjectPatch
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

// GetByIDForUpdate locks the row for the surrounding transaction. It
// reads unscoped so review transitions can tell a soft-deleted patch
// (conflict) apart from a missing one (not found).
func (r *subjectPatchRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*domain.SubjectPatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p domain.SubjectPatch
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

func (r *subjectPatchRepo) ListByState(dbc dbctx.Context, state domain.PatchState, limit, offset int) ([]*domain.SubjectPatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.SubjectPatch
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

func (r *subjectPatchRepo) ListBySubject(dbc dbctx.Context, subjectID int64) ([]*domain.SubjectPatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.SubjectPatch
	if err := transaction.WithContext(dbc.Ctx).
		Where("subject_id = ?", subjectID).
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *subjectPatchRepo) ListBySubmitter(dbc dbctx.Context, fromUserID int64, limit, offset int) ([]*domain.SubjectPatch, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*domain.SubjectPatch
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

func (r *subjectPatchRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&domain.SubjectPatch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkOutdatedSiblings moves every other pending patch for the same
// subject to Outdated. Runs inside the accept transaction so a target
// never ends up with two live patches.
func (r *subjectPatchRepo) MarkOutdatedSiblings(dbc dbctx.Context, subjectID int64, acceptedID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&domain.SubjectPatch{}).
		Where("subject_id = ? AND state = ? AND id <> ?", subjectID, domain.StatePending, acceptedID).
		Updates(map[string]interface{}{
			"state":      domain.StateOutdated,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *subjectPatchRepo) SoftDelete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.SubjectPatch{}).Error
}
