package catalog

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/quiltline/patternvault-backend/internal/domain"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

type PatternRepo interface {
	Create(dbc dbctx.Context, pattern *types.Pattern) (*types.Pattern, error)
	GetByID(dbc dbctx.Context, id int64) (*types.Pattern, error)
	List(dbc dbctx.Context, offset, limit int) ([]*types.Pattern, error)
	ListFileNames(dbc dbctx.Context, offset, limit int) ([]string, error)
	UpdateAssetURLs(dbc dbctx.Context, id int64, patternFileURL, thumbnailURL *string) error
	DeleteByIDs(dbc dbctx.Context, ids []int64) error
	GetByBatchID(dbc dbctx.Context, batchID int64) ([]*types.Pattern, error)
	SetStagedByBatchID(dbc dbctx.Context, batchID int64, staged bool) (int64, error)
	DeleteByBatchID(dbc dbctx.Context, batchID int64) (int64, error)
}

type patternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternRepo(db *gorm.DB, baseLog *logger.Logger) PatternRepo {
	repoLog := baseLog.With("repo", "PatternRepo")
	return &patternRepo{db: db, log: repoLog}
}

func (r *patternRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *patternRepo) Create(dbc dbctx.Context, pattern *types.Pattern) (*types.Pattern, error) {
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(pattern).Error; err != nil {
		return nil, err
	}
	return pattern, nil
}

func (r *patternRepo) GetByID(dbc dbctx.Context, id int64) (*types.Pattern, error) {
	var pattern types.Pattern
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&pattern).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &pattern, nil
}

// List returns committed patterns only; staged rows stay invisible to browsing.
func (r *patternRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.Pattern, error) {
	var results []*types.Pattern
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("is_staged = ?", false).
		Order("id").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListFileNames pages over every catalog row, staged or not, so the duplicate
// check also covers batches still under review.
func (r *patternRepo) ListFileNames(dbc dbctx.Context, offset, limit int) ([]string, error) {
	var names []string
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Pattern{}).
		Order("id").
		Offset(offset).
		Limit(limit).
		Pluck("file_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *patternRepo) UpdateAssetURLs(dbc dbctx.Context, id int64, patternFileURL, thumbnailURL *string) error {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Pattern{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pattern_file_url": patternFileURL,
			"thumbnail_url":    thumbnailURL,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (r *patternRepo) DeleteByIDs(dbc dbctx.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.conn(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Pattern{}).Error
}

func (r *patternRepo) GetByBatchID(dbc dbctx.Context, batchID int64) ([]*types.Pattern, error) {
	var results []*types.Pattern
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("batch_id = ?", batchID).
		Order("id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *patternRepo) SetStagedByBatchID(dbc dbctx.Context, batchID int64, staged bool) (int64, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.Pattern{}).
		Where("batch_id = ? AND is_staged = ?", batchID, !staged).
		Update("is_staged", staged)
	return res.RowsAffected, res.Error
}

func (r *patternRepo) DeleteByBatchID(dbc dbctx.Context, batchID int64) (int64, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Where("batch_id = ?", batchID).
		Delete(&types.Pattern{})
	return res.RowsAffected, res.Error
}
