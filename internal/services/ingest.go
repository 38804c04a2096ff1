package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gorm.io/datatypes"

	"github.com/quiltline/patternvault-backend/internal/data/repos/catalog"
	types "github.com/quiltline/patternvault-backend/internal/domain"
	"github.com/quiltline/patternvault-backend/internal/ingest"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
	"github.com/quiltline/patternvault-backend/internal/platform/gcs"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
	"github.com/quiltline/patternvault-backend/internal/realtime"
	"github.com/quiltline/patternvault-backend/internal/thumbnail"
)

// IngestError is one failed candidate with the reason it was rejected.
type IngestError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// IngestResult is the outcome report for one archive run. The lists carry
// normalized candidate names; the same data is persisted on the batch row.
type IngestResult struct {
	BatchID         int64         `json:"batch_id"`
	IsStaged        bool          `json:"is_staged"`
	TotalCandidates int           `json:"total_candidates"`
	Uploaded        []string      `json:"uploaded"`
	Skipped         []string      `json:"skipped"`
	Errors          []IngestError `json:"errors"`
}

type IngestService interface {
	IngestArchive(ctx context.Context, archiveName string, data []byte, staged bool, uploadedBy string) (*IngestResult, error)
}

type ingestService struct {
	log         *logger.Logger
	patternRepo catalog.PatternRepo
	batchRepo   catalog.UploadBatchRepo
	bucket      gcs.BucketService
	renderer    thumbnail.Renderer
	notifier    *realtime.Notifier
}

func NewIngestService(
	log *logger.Logger,
	patternRepo catalog.PatternRepo,
	batchRepo catalog.UploadBatchRepo,
	bucket gcs.BucketService,
	renderer thumbnail.Renderer,
	notifier *realtime.Notifier,
) IngestService {
	serviceLog := log.With("service", "IngestService")
	return &ingestService{
		log:         serviceLog,
		patternRepo: patternRepo,
		batchRepo:   batchRepo,
		bucket:      bucket,
		renderer:    renderer,
		notifier:    notifier,
	}
}

// IngestArchive runs the full pipeline for one uploaded ZIP: parse, group,
// dedupe, then process each fresh candidate through row insert, asset upload,
// optional thumbnail and finalize. A candidate failure is compensated and
// recorded; it never aborts the run. A staged run creates its batch row
// before any pattern is touched and finalizes it with the outcome counts at
// the end. A direct-commit run writes a single already-final log once the
// work is done, and its rows carry no batch linkage, which keeps them out of
// reach of the lifecycle operations.
func (is *ingestService) IngestArchive(ctx context.Context, archiveName string, data []byte, staged bool, uploadedBy string) (*IngestResult, error) {
	archive, err := ingest.OpenArchive(data)
	if err != nil {
		return nil, err
	}
	candidates, err := archive.Candidates()
	if err != nil {
		return nil, err
	}

	dbc := dbctx.Context{Ctx: ctx}
	existing, err := ingest.ExistingNames(dbc, is.patternRepo)
	if err != nil {
		return nil, fmt.Errorf("load existing pattern names: %w", err)
	}
	fresh, duplicates := ingest.Partition(candidates, existing)

	var batch *types.UploadBatch
	var batchID *int64
	if staged {
		batch, err = is.batchRepo.Create(dbc, &types.UploadBatch{
			SourceArchiveName: archiveName,
			UploadedBy:        uploadedBy,
			TotalCandidates:   len(candidates),
			Status:            types.BatchStatusStaged,
		})
		if err != nil {
			return nil, fmt.Errorf("create upload batch: %w", err)
		}
		batchID = &batch.ID
	}

	is.log.Info(
		"Starting archive ingestion",
		"archive", archiveName,
		"candidates", len(candidates),
		"fresh", len(fresh),
		"duplicates", len(duplicates),
		"staged", staged,
	)

	result := &IngestResult{
		IsStaged:        staged,
		TotalCandidates: len(candidates),
		Uploaded:        []string{},
		Skipped:         []string{},
		Errors:          []IngestError{},
	}

	processed := 0
	for _, c := range duplicates {
		processed++
		result.Skipped = append(result.Skipped, c.Name)
		if batch != nil {
			is.notifyProgress(ctx, batch.ID, c.Name, "skipped", processed, len(candidates))
		}
	}

	for _, c := range fresh {
		processed++
		if err := is.processCandidate(ctx, dbc, archive, c, batchID, staged); err != nil {
			is.log.Warn("Candidate failed", "archive", archiveName, "name", c.Name, "error", err)
			result.Errors = append(result.Errors, IngestError{Name: c.Name, Reason: err.Error()})
			if batch != nil {
				is.notifyProgress(ctx, batch.ID, c.Name, "error", processed, len(candidates))
			}
			continue
		}
		result.Uploaded = append(result.Uploaded, c.Name)
		if batch != nil {
			is.notifyProgress(ctx, batch.ID, c.Name, "uploaded", processed, len(candidates))
		}
	}

	if batch == nil {
		batch = &types.UploadBatch{
			SourceArchiveName: archiveName,
			UploadedBy:        uploadedBy,
			TotalCandidates:   len(candidates),
			Status:            types.BatchStatusCommitted,
		}
	}
	batch.UploadedCount = len(result.Uploaded)
	batch.SkippedCount = len(result.Skipped)
	batch.ErrorCount = len(result.Errors)
	batch.UploadedList = marshalList(is.log, result.Uploaded)
	batch.SkippedList = marshalList(is.log, result.Skipped)
	batch.ErrorList = marshalList(is.log, result.Errors)
	if batch.ID == 0 {
		if _, err := is.batchRepo.Create(dbc, batch); err != nil {
			return nil, fmt.Errorf("record upload batch: %w", err)
		}
	} else if err := is.batchRepo.Finalize(dbc, batch); err != nil {
		return nil, fmt.Errorf("finalize upload batch %d: %w", batch.ID, err)
	}
	result.BatchID = batch.ID

	is.notifier.Notify(ctx, realtime.EventBatchFinished, realtime.BatchProgress{
		BatchID:   batch.ID,
		Processed: processed,
		Total:     len(candidates),
	})
	is.log.Info(
		"Archive ingestion finished",
		"batch_id", batch.ID,
		"uploaded", batch.UploadedCount,
		"skipped", batch.SkippedCount,
		"errors", batch.ErrorCount,
	)
	return result, nil
}

// processCandidate moves one candidate through the four pipeline steps. Each
// step that fails undoes every earlier step before returning, so a failed
// candidate leaves no row and no objects behind. Thumbnail trouble alone is
// not a failure; the pattern ships without a preview.
func (is *ingestService) processCandidate(ctx context.Context, dbc dbctx.Context, archive *ingest.Archive, c ingest.Candidate, batchID *int64, staged bool) error {
	design, err := archive.ReadEntry(c.DesignPath)
	if err != nil {
		return fmt.Errorf("read design file: %w", err)
	}
	info := ingest.ExtractAuthorInfo(design)

	pattern := &types.Pattern{
		FileName:      path.Base(c.DesignPath),
		FileExtension: strings.TrimPrefix(ingest.DesignExtension, "."),
		FileSize:      int64(len(design)),
		IsStaged:      staged,
		BatchID:       batchID,
	}
	if info.Author != "" {
		pattern.Author = &info.Author
	}
	if info.AuthorURL != "" {
		pattern.AuthorURL = &info.AuthorURL
	}
	if info.AuthorNotes != "" {
		pattern.AuthorNotes = &info.AuthorNotes
	}

	pattern, err = is.patternRepo.Create(dbc, pattern)
	if err != nil {
		return fmt.Errorf("create pattern row: %w", err)
	}

	assetKey := pattern.AssetKey()
	if err := is.bucket.Upload(ctx, gcs.BucketCategoryPattern, assetKey, bytes.NewReader(design), true); err != nil {
		is.deleteRow(dbc, pattern.ID)
		return fmt.Errorf("upload design file: %w", err)
	}

	var thumbnailURL *string
	thumbnailWritten := false
	if c.PreviewPath != "" {
		if key, tErr := is.writeThumbnail(ctx, archive, c, pattern); tErr != nil {
			is.log.Warn("Thumbnail skipped", "name", c.Name, "error", tErr)
		} else {
			thumbnailWritten = true
			url := is.bucket.PublicURL(gcs.BucketCategoryThumbnail, key)
			thumbnailURL = &url
		}
	}

	patternURL := is.bucket.PublicURL(gcs.BucketCategoryPattern, assetKey)
	if err := is.patternRepo.UpdateAssetURLs(dbc, pattern.ID, &patternURL, thumbnailURL); err != nil {
		if dErr := is.bucket.DeleteObjects(ctx, gcs.BucketCategoryPattern, []string{assetKey}); dErr != nil {
			is.log.Warn("Rollback left pattern object behind", "key", assetKey, "error", dErr)
		}
		if thumbnailWritten {
			if dErr := is.bucket.DeleteObjects(ctx, gcs.BucketCategoryThumbnail, []string{pattern.ThumbnailKey()}); dErr != nil {
				is.log.Warn("Rollback left thumbnail object behind", "key", pattern.ThumbnailKey(), "error", dErr)
			}
		}
		is.deleteRow(dbc, pattern.ID)
		return fmt.Errorf("finalize pattern row: %w", err)
	}
	return nil
}

func (is *ingestService) writeThumbnail(ctx context.Context, archive *ingest.Archive, c ingest.Candidate, pattern *types.Pattern) (string, error) {
	preview, err := archive.ReadEntry(c.PreviewPath)
	if err != nil {
		return "", fmt.Errorf("read preview file: %w", err)
	}
	img, err := is.renderer.Render(ctx, preview)
	if err != nil {
		return "", fmt.Errorf("render preview: %w", err)
	}
	key := pattern.ThumbnailKey()
	if err := is.bucket.Upload(ctx, gcs.BucketCategoryThumbnail, key, bytes.NewReader(img), true); err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	return key, nil
}

func (is *ingestService) deleteRow(dbc dbctx.Context, id int64) {
	if err := is.patternRepo.DeleteByIDs(dbc, []int64{id}); err != nil {
		is.log.Error("Rollback left pattern row behind", "pattern_id", id, "error", err)
	}
}

func (is *ingestService) notifyProgress(ctx context.Context, batchID int64, name, outcome string, processed, total int) {
	is.notifier.Notify(ctx, realtime.EventBatchProgress, realtime.BatchProgress{
		BatchID:   batchID,
		Name:      ingest.DisplayName(name),
		Outcome:   outcome,
		Processed: processed,
		Total:     total,
	})
}

func marshalList(log *logger.Logger, v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn("Failed to marshal batch list", "error", err)
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}
