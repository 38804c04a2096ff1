package services

import (
	"context"
	"fmt"

	"github.com/quiltline/patternvault-backend/internal/data/db"
	"github.com/quiltline/patternvault-backend/internal/data/repos/catalog"
	types "github.com/quiltline/patternvault-backend/internal/domain"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/gcs"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

// BatchDetail pairs a batch log with the pattern rows it staged, decorated
// the same way the public catalog endpoints decorate them.
type BatchDetail struct {
	Batch    *types.UploadBatch `json:"batch"`
	Patterns []*PatternView     `json:"patterns"`
}

type BatchService interface {
	Get(ctx context.Context, id int64) (*BatchDetail, error)
	List(ctx context.Context, offset, limit int) ([]*types.UploadBatch, error)
	Commit(ctx context.Context, id int64) (int64, error)
	Cancel(ctx context.Context, id int64) (int64, error)
}

type batchService struct {
	log         *logger.Logger
	tx          db.TxRunner
	patternRepo catalog.PatternRepo
	batchRepo   catalog.UploadBatchRepo
	keywordRepo catalog.KeywordRepo
	bucket      gcs.BucketService
}

func NewBatchService(
	log *logger.Logger,
	tx db.TxRunner,
	patternRepo catalog.PatternRepo,
	batchRepo catalog.UploadBatchRepo,
	keywordRepo catalog.KeywordRepo,
	bucket gcs.BucketService,
) BatchService {
	serviceLog := log.With("service", "BatchService")
	return &batchService{
		log:         serviceLog,
		tx:          tx,
		patternRepo: patternRepo,
		batchRepo:   batchRepo,
		keywordRepo: keywordRepo,
		bucket:      bucket,
	}
}

func (bs *batchService) Get(ctx context.Context, id int64) (*BatchDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	batch, err := bs.batchRepo.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	patterns, err := bs.patternRepo.GetByBatchID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load patterns for batch %d: %w", id, err)
	}

	ids := make([]int64, 0, len(patterns))
	for _, p := range patterns {
		ids = append(ids, p.ID)
	}
	keywords, err := bs.keywordRepo.ValuesByPatternIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load keywords for batch %d: %w", id, err)
	}

	views := make([]*PatternView, 0, len(patterns))
	for _, p := range patterns {
		views = append(views, newPatternView(p, keywords[p.ID]))
	}
	return &BatchDetail{Batch: batch, Patterns: views}, nil
}

func (bs *batchService) List(ctx context.Context, offset, limit int) ([]*types.UploadBatch, error) {
	return bs.batchRepo.List(dbctx.Context{Ctx: ctx}, offset, limit)
}

// Commit publishes a staged batch. The status flip is a conditional update,
// so of two concurrent commits exactly one wins and the loser gets the state
// error. Flip and un-stage run in one transaction; if the un-stage fails the
// batch stays staged and commit can be retried. The precondition read exists
// only to tell a missing batch apart from an already-committed one.
func (bs *batchService) Commit(ctx context.Context, id int64) (int64, error) {
	batch, err := bs.batchRepo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return 0, err
	}
	if batch.Status != types.BatchStatusStaged {
		return 0, &pkgerrors.BatchStateError{BatchID: id, Status: batch.Status}
	}

	var published int64
	err = bs.tx.InTx(ctx, func(txc dbctx.Context) error {
		ok, err := bs.batchRepo.MarkCommitted(txc, id)
		if err != nil {
			return fmt.Errorf("mark batch %d committed: %w", id, err)
		}
		if !ok {
			return &pkgerrors.BatchStateError{BatchID: id, Status: types.BatchStatusCommitted}
		}
		published, err = bs.patternRepo.SetStagedByBatchID(txc, id, false)
		if err != nil {
			return fmt.Errorf("publish patterns for batch %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	bs.log.Info("Batch committed", "batch_id", id, "published", published)
	return published, nil
}

// Cancel discards a staged batch: objects first, best effort, then rows and
// the batch log in one transaction. The conditional log delete is the
// serialization point; losing it to a concurrent commit rolls the row purge
// back, and a database failure leaves the batch staged so cancel can be
// retried.
func (bs *batchService) Cancel(ctx context.Context, id int64) (int64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	batch, err := bs.batchRepo.GetByID(dbc, id)
	if err != nil {
		return 0, err
	}
	if batch.Status != types.BatchStatusStaged {
		return 0, &pkgerrors.BatchStateError{BatchID: id, Status: batch.Status}
	}

	patterns, err := bs.patternRepo.GetByBatchID(dbc, id)
	if err != nil {
		return 0, fmt.Errorf("load patterns for batch %d: %w", id, err)
	}

	var assetKeys, thumbnailKeys []string
	for _, p := range patterns {
		if p.PatternFileURL != nil {
			assetKeys = append(assetKeys, p.AssetKey())
		}
		if p.ThumbnailURL != nil {
			thumbnailKeys = append(thumbnailKeys, p.ThumbnailKey())
		}
	}
	if err := bs.bucket.DeleteObjects(ctx, gcs.BucketCategoryPattern, assetKeys); err != nil {
		bs.log.Warn("Cancel left pattern objects behind", "batch_id", id, "error", err)
	}
	if err := bs.bucket.DeleteObjects(ctx, gcs.BucketCategoryThumbnail, thumbnailKeys); err != nil {
		bs.log.Warn("Cancel left thumbnail objects behind", "batch_id", id, "error", err)
	}

	var removed int64
	err = bs.tx.InTx(ctx, func(txc dbctx.Context) error {
		removed, err = bs.patternRepo.DeleteByBatchID(txc, id)
		if err != nil {
			return fmt.Errorf("delete patterns for batch %d: %w", id, err)
		}
		ok, err := bs.batchRepo.DeleteIfStaged(txc, id)
		if err != nil {
			return fmt.Errorf("delete batch %d: %w", id, err)
		}
		if !ok {
			// Lost the race to a concurrent commit or cancel.
			return &pkgerrors.BatchStateError{BatchID: id, Status: types.BatchStatusCommitted}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	bs.log.Info("Batch cancelled", "batch_id", id, "removed", removed)
	return removed, nil
}
