package repos

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Contextualist/submit-patch/internal/domain"
	"github.com/Contextualist/submit-patch/internal/pkg/dbctx"
	"github.com/Contextualist/submit-patch/internal/pkg/logger"
)

type PatchUserRepo interface {
	Upsert(dbc dbctx.Context, user *domain.PatchUser) error
	GetByID(dbc dbctx.Context, userID int64) (*domain.PatchUser, error)
	GetByIDs(dbc dbctx.Context, userIDs []int64) (map[int64]*domain.PatchUser, error)
}

type patchUserRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatchUserRepo(db *gorm.DB, baseLog *logger.Logger) PatchUserRepo {
	return &patchUserRepo{
		db:  db,
		log: baseLog.With("repo", "PatchUserRepo"),
	}
}

// Upsert refreshes the display identity on every login.
func (r *patchUserRepo) Upsert(dbc dbctx.Context, user *domain.PatchUser) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if user == nil || user.UserID == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "nickname"}),
		}).
		Create(user).Error
}

func (r *patchUserRepo) GetByID(dbc dbctx.Context, userID int64) (*domain.PatchUser, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == 0 {
		return nil, nil
	}
	var u domain.PatchUser
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *patchUserRepo) GetByIDs(dbc dbctx.Context, userIDs []int64) (map[int64]*domain.PatchUser, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[int64]*domain.PatchUser, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []*domain.PatchUser
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id IN ?", userIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.UserID] = u
	}
	return out, nil
}
