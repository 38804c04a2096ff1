package services

import (
	"context"
	"fmt"
	"io"
	"testing"

	types "github.com/quiltline/patternvault-backend/internal/domain"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/gcs"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakePatternRepo struct {
	nextID         int64
	rows           map[int64]*types.Pattern
	order          []int64
	createErr      error
	finalizeErr    error
	setStagedErr   error
	deleteBatchErr error
}

func newFakePatternRepo() *fakePatternRepo {
	return &fakePatternRepo{rows: map[int64]*types.Pattern{}}
}

func (f *fakePatternRepo) Create(dbc dbctx.Context, pattern *types.Pattern) (*types.Pattern, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	pattern.ID = f.nextID
	cp := *pattern
	f.rows[cp.ID] = &cp
	f.order = append(f.order, cp.ID)
	return pattern, nil
}

func (f *fakePatternRepo) GetByID(dbc dbctx.Context, id int64) (*types.Pattern, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakePatternRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.Pattern, error) {
	var out []*types.Pattern
	for _, id := range f.order {
		if row, ok := f.rows[id]; ok && !row.IsStaged {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePatternRepo) ListFileNames(dbc dbctx.Context, offset, limit int) ([]string, error) {
	var all []string
	for _, id := range f.order {
		if row, ok := f.rows[id]; ok {
			all = append(all, row.FileName)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakePatternRepo) UpdateAssetURLs(dbc dbctx.Context, id int64, patternFileURL, thumbnailURL *string) error {
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	row, ok := f.rows[id]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	row.PatternFileURL = patternFileURL
	row.ThumbnailURL = thumbnailURL
	return nil
}

func (f *fakePatternRepo) DeleteByIDs(dbc dbctx.Context, ids []int64) error {
	for _, id := range ids {
		delete(f.rows, id)
	}
	return nil
}

func (f *fakePatternRepo) GetByBatchID(dbc dbctx.Context, batchID int64) ([]*types.Pattern, error) {
	var out []*types.Pattern
	for _, id := range f.order {
		if row, ok := f.rows[id]; ok && row.BatchID != nil && *row.BatchID == batchID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePatternRepo) SetStagedByBatchID(dbc dbctx.Context, batchID int64, staged bool) (int64, error) {
	if f.setStagedErr != nil {
		return 0, f.setStagedErr
	}
	var affected int64
	for _, row := range f.rows {
		if row.BatchID != nil && *row.BatchID == batchID && row.IsStaged != staged {
			row.IsStaged = staged
			affected++
		}
	}
	return affected, nil
}

func (f *fakePatternRepo) DeleteByBatchID(dbc dbctx.Context, batchID int64) (int64, error) {
	if f.deleteBatchErr != nil {
		return 0, f.deleteBatchErr
	}
	var affected int64
	for id, row := range f.rows {
		if row.BatchID != nil && *row.BatchID == batchID {
			delete(f.rows, id)
			affected++
		}
	}
	return affected, nil
}

type fakeBatchRepo struct {
	nextID  int64
	batches map[int64]*types.UploadBatch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: map[int64]*types.UploadBatch{}}
}

func (f *fakeBatchRepo) Create(dbc dbctx.Context, batch *types.UploadBatch) (*types.UploadBatch, error) {
	f.nextID++
	batch.ID = f.nextID
	cp := *batch
	f.batches[cp.ID] = &cp
	return batch, nil
}

func (f *fakeBatchRepo) GetByID(dbc dbctx.Context, id int64) (*types.UploadBatch, error) {
	batch, ok := f.batches[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *batch
	return &cp, nil
}

func (f *fakeBatchRepo) List(dbc dbctx.Context, offset, limit int) ([]*types.UploadBatch, error) {
	var out []*types.UploadBatch
	for id := f.nextID; id >= 1; id-- {
		if batch, ok := f.batches[id]; ok {
			cp := *batch
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeBatchRepo) Finalize(dbc dbctx.Context, batch *types.UploadBatch) error {
	stored, ok := f.batches[batch.ID]
	if !ok {
		return pkgerrors.ErrNotFound
	}
	stored.TotalCandidates = batch.TotalCandidates
	stored.UploadedCount = batch.UploadedCount
	stored.SkippedCount = batch.SkippedCount
	stored.ErrorCount = batch.ErrorCount
	stored.UploadedList = batch.UploadedList
	stored.SkippedList = batch.SkippedList
	stored.ErrorList = batch.ErrorList
	return nil
}

func (f *fakeBatchRepo) MarkCommitted(dbc dbctx.Context, id int64) (bool, error) {
	batch, ok := f.batches[id]
	if !ok || batch.Status != types.BatchStatusStaged {
		return false, nil
	}
	batch.Status = types.BatchStatusCommitted
	return true, nil
}

func (f *fakeBatchRepo) DeleteIfStaged(dbc dbctx.Context, id int64) (bool, error) {
	batch, ok := f.batches[id]
	if !ok || batch.Status != types.BatchStatusStaged {
		return false, nil
	}
	delete(f.batches, id)
	return true, nil
}

func (f *fakePatternRepo) snapshot() (map[int64]*types.Pattern, []int64) {
	rows := make(map[int64]*types.Pattern, len(f.rows))
	for id, row := range f.rows {
		cp := *row
		rows[id] = &cp
	}
	return rows, append([]int64(nil), f.order...)
}

func (f *fakePatternRepo) restore(rows map[int64]*types.Pattern, order []int64) {
	f.rows = rows
	f.order = order
}

func (f *fakeBatchRepo) snapshot() map[int64]*types.UploadBatch {
	batches := make(map[int64]*types.UploadBatch, len(f.batches))
	for id, batch := range f.batches {
		cp := *batch
		batches[id] = &cp
	}
	return batches
}

func (f *fakeBatchRepo) restore(batches map[int64]*types.UploadBatch) {
	f.batches = batches
}

// fakeTxRunner mimics transaction semantics over the in-memory fakes: a
// failed fn leaves both stores exactly as they were.
type fakeTxRunner struct {
	patterns *fakePatternRepo
	batches  *fakeBatchRepo
}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	rows, order := f.patterns.snapshot()
	batches := f.batches.snapshot()
	if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
		f.patterns.restore(rows, order)
		f.batches.restore(batches)
		return err
	}
	return nil
}

type fakeBucket struct {
	objects   map[string][]byte
	uploadErr map[string]error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, uploadErr: map[string]error{}}
}

func objectKey(category gcs.BucketCategory, key string) string {
	return fmt.Sprintf("%s/%s", category, key)
}

func (f *fakeBucket) Upload(ctx context.Context, category gcs.BucketCategory, key string, r io.Reader, failOnExists bool) error {
	full := objectKey(category, key)
	if err, ok := f.uploadErr[full]; ok {
		return err
	}
	if _, exists := f.objects[full]; exists && failOnExists {
		return fmt.Errorf("object %q: %w", key, gcs.ErrObjectExists)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[full] = data
	return nil
}

func (f *fakeBucket) DeleteObjects(ctx context.Context, category gcs.BucketCategory, keys []string) error {
	for _, key := range keys {
		delete(f.objects, objectKey(category, key))
	}
	return nil
}

func (f *fakeBucket) PublicURL(category gcs.BucketCategory, key string) string {
	return fmt.Sprintf("https://cdn.test/%s/%s", category, key)
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, pdf []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}
