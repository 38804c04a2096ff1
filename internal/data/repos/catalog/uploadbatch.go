package catalog

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/quiltline/patternvault-backend/internal/domain"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

type UploadBatchRepo interface {
	Create(dbc dbctx.Context, batch *types.UploadBatch) (*types.UploadBatch, error)
	GetByID(dbc dbctx.Context, id int64) (*types.UploadBatch, error)
	List(dbc dbctx.Context, offset, limit int) ([]*types.UploadBatch, error)
	Finalize(dbc dbctx.Context, batch *types.UploadBatch) error
	MarkCommitted(dbc dbctx.Context, id int64) (bool, error)
	DeleteIfStaged(dbc dbctx.Context, id int64) (bool, error)
}

type uploadBatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadBatchRepo(db *gorm.DB, baseLog *logger.Logger) UploadBatchRepo {
	repoLog := baseLog.With("repo", "UploadBatchRepo")
	return &uploadBatchRepo{db: db, log: repoLog}
}

func (r *uploadBatchRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *uploadBatchRepo) Create(dbc dbctx.Context, batch *types.UploadBatch) (*types.UploadBatch, error) {
	if err := r.conn(dbc).WithContext(dbc.Ctx).Create(batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *uploadBatchRepo) GetByID(dbc dbctx.Context, id int64) (*types.UploadBatch, error) {
	var batch types.UploadBatch
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (r *uploadBatchRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.UploadBatch, error) {
	var results []*types.UploadBatch
	if err := r.conn(dbc).WithContext(dbc.Ctx).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Finalize writes the outcome counts and lists computed at the end of a run.
// Status is not touched here; lifecycle transitions go through MarkCommitted
// and DeleteIfStaged.
func (r *uploadBatchRepo) Finalize(dbc dbctx.Context, batch *types.UploadBatch) error {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.UploadBatch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]interface{}{
			"total_candidates": batch.TotalCandidates,
			"uploaded_count":   batch.UploadedCount,
			"skipped_count":    batch.SkippedCount,
			"error_count":      batch.ErrorCount,
			"uploaded_list":    batch.UploadedList,
			"skipped_list":     batch.SkippedList,
			"error_list":       batch.ErrorList,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

// MarkCommitted flips status staged -> committed as one conditional update so
// two concurrent commits cannot both pass the precondition. The second caller
// sees false.
func (r *uploadBatchRepo) MarkCommitted(dbc dbctx.Context, id int64) (bool, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Model(&types.UploadBatch{}).
		Where("id = ? AND status = ?", id, types.BatchStatusStaged).
		Update("status", types.BatchStatusCommitted)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteIfStaged removes the batch row only while it is still staged; a
// committed batch keeps its audit row forever.
func (r *uploadBatchRepo) DeleteIfStaged(dbc dbctx.Context, id int64) (bool, error) {
	res := r.conn(dbc).WithContext(dbc.Ctx).
		Where("id = ? AND status = ?", id, types.BatchStatusStaged).
		Delete(&types.UploadBatch{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
