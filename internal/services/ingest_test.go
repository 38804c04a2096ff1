package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	types "github.com/quiltline/patternvault-backend/internal/domain"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/dbctx"
)

func buildArchive(t *testing.T, entries map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %q: %v", name, err)
		}
		if _, err := w.Write([]byte(entries[name])); err != nil {
			t.Fatalf("write zip entry %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func foxArchive(t *testing.T) []byte {
	t.Helper()
	return buildArchive(t, map[string]string{
		"Fox.QLI":  "NO INFO Designed by Jane Doe, see www.example.com\nD 1.0 2.0\n",
		"Fox.pdf":  "%PDF-1.4 preview",
		"bear.qli": "D 3.0 4.0\n",
	}, []string{"Fox.QLI", "Fox.pdf", "bear.qli"})
}

func newIngestFixture(t *testing.T) (*fakePatternRepo, *fakeBatchRepo, *fakeBucket, *fakeRenderer, IngestService) {
	t.Helper()
	patternRepo := newFakePatternRepo()
	batchRepo := newFakeBatchRepo()
	bucket := newFakeBucket()
	renderer := &fakeRenderer{}
	svc := NewIngestService(testLogger(t), patternRepo, batchRepo, bucket, renderer, nil)
	return patternRepo, batchRepo, bucket, renderer, svc
}

func TestIngestArchiveStagesFreshCandidates(t *testing.T) {
	t.Parallel()
	patternRepo, batchRepo, bucket, _, svc := newIngestFixture(t)

	result, err := svc.IngestArchive(context.Background(), "batch.zip", foxArchive(t), true, "admin@quiltline.com")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.TotalCandidates != 2 {
		t.Fatalf("unexpected total: got=%d want=2", result.TotalCandidates)
	}
	if len(result.Uploaded) != 2 || result.Uploaded[0] != "fox" || result.Uploaded[1] != "bear" {
		t.Fatalf("unexpected uploaded list: %v", result.Uploaded)
	}
	if len(result.Skipped) != 0 || len(result.Errors) != 0 {
		t.Fatalf("unexpected skips or errors: %+v", result)
	}
	if !result.IsStaged {
		t.Fatal("result should be staged")
	}

	batch, err := batchRepo.GetByID(dbctx.Context{}, result.BatchID)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if batch.Status != types.BatchStatusStaged {
		t.Fatalf("unexpected batch status: got=%q", batch.Status)
	}
	if batch.UploadedCount != 2 || batch.TotalCandidates != 2 {
		t.Fatalf("unexpected batch counts: %+v", batch)
	}
	if !strings.Contains(string(batch.UploadedList), "fox") {
		t.Fatalf("uploaded list not persisted: %s", batch.UploadedList)
	}
	if batch.SourceArchiveName != "batch.zip" || batch.UploadedBy != "admin@quiltline.com" {
		t.Fatalf("unexpected batch provenance: %+v", batch)
	}

	fox, err := patternRepo.GetByID(dbctx.Context{}, 1)
	if err != nil {
		t.Fatalf("load fox row: %v", err)
	}
	if fox.FileName != "Fox.QLI" || fox.FileExtension != "qli" {
		t.Fatalf("unexpected file identity: %+v", fox)
	}
	if !fox.IsStaged || fox.BatchID == nil || *fox.BatchID != result.BatchID {
		t.Fatalf("row should be staged under the batch: %+v", fox)
	}
	if fox.Author == nil || *fox.Author != "Jane Doe" {
		t.Fatalf("author not extracted: %+v", fox.Author)
	}
	if fox.PatternFileURL == nil || *fox.PatternFileURL != "https://cdn.test/pattern/1.qli" {
		t.Fatalf("unexpected pattern url: %+v", fox.PatternFileURL)
	}
	if fox.ThumbnailURL == nil || *fox.ThumbnailURL != "https://cdn.test/thumbnail/1.png" {
		t.Fatalf("unexpected thumbnail url: %+v", fox.ThumbnailURL)
	}

	for _, key := range []string{"pattern/1.qli", "thumbnail/1.png", "pattern/2.qli"} {
		if _, ok := bucket.objects[key]; !ok {
			t.Fatalf("missing object %q", key)
		}
	}
	bear, err := patternRepo.GetByID(dbctx.Context{}, 2)
	if err != nil {
		t.Fatalf("load bear row: %v", err)
	}
	if bear.ThumbnailURL != nil {
		t.Fatalf("bear has no preview, thumbnail url should be nil: %+v", bear.ThumbnailURL)
	}
}

func TestIngestArchiveDirectCommit(t *testing.T) {
	t.Parallel()
	patternRepo, batchRepo, _, _, svc := newIngestFixture(t)

	result, err := svc.IngestArchive(context.Background(), "batch.zip", foxArchive(t), false, "admin@quiltline.com")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.IsStaged {
		t.Fatal("direct commit result should not be staged")
	}
	batch, err := batchRepo.GetByID(dbctx.Context{}, result.BatchID)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if batch.Status != types.BatchStatusCommitted {
		t.Fatalf("unexpected batch status: got=%q", batch.Status)
	}
	if batch.UploadedCount != 2 || batch.TotalCandidates != 2 {
		t.Fatalf("after-the-fact log should carry final counts: %+v", batch)
	}
	patterns, err := patternRepo.List(dbctx.Context{}, 0, 100)
	if err != nil {
		t.Fatalf("list patterns: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("direct-commit rows should be browsable: got=%d", len(patterns))
	}
	for _, p := range patterns {
		if p.BatchID != nil {
			t.Fatalf("direct-commit rows must not be linked to a batch: %+v", p)
		}
	}
}

func TestIngestArchiveSkipsDuplicates(t *testing.T) {
	t.Parallel()
	patternRepo, _, _, _, svc := newIngestFixture(t)
	if _, err := patternRepo.Create(dbctx.Context{}, &types.Pattern{FileName: "fox.qli", FileExtension: "qli"}); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	data := buildArchive(t, map[string]string{"Fox.QLI": "D 1.0 2.0\n"}, []string{"Fox.QLI"})
	result, err := svc.IngestArchive(context.Background(), "batch.zip", data, true, "admin@quiltline.com")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "fox" {
		t.Fatalf("unexpected skipped list: %v", result.Skipped)
	}
	if len(result.Uploaded) != 0 {
		t.Fatalf("duplicate must not be uploaded: %v", result.Uploaded)
	}
	if len(patternRepo.rows) != 1 {
		t.Fatalf("duplicate must not create rows: got=%d", len(patternRepo.rows))
	}
}

func TestIngestArchiveRollsBackOnUploadFailure(t *testing.T) {
	t.Parallel()
	patternRepo, _, bucket, _, svc := newIngestFixture(t)
	bucket.uploadErr["pattern/1.qli"] = errors.New("bucket down")

	data := buildArchive(t, map[string]string{"fox.qli": "D 1.0 2.0\n"}, []string{"fox.qli"})
	result, err := svc.IngestArchive(context.Background(), "batch.zip", data, true, "admin@quiltline.com")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(result.Errors) != 1 || result.Errors[0].Name != "fox" {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(patternRepo.rows) != 0 {
		t.Fatalf("placeholder row must be rolled back: %d rows left", len(patternRepo.rows))
	}
	if len(bucket.objects) != 0 {
		t.Fatalf("no objects should remain: %v", bucket.objects)
	}
}

func TestIngestArchiveRollsBackOnFinalizeFailure(t *testing.T) {
	t.Parallel()
	patternRepo, batchRepo, bucket, _, svc := newIngestFixture(t)
	patternRepo.finalizeErr = errors.New("connection reset")

	data := buildArchive(t, map[string]string{
		"fox.qli": "D 1.0 2.0\n",
		"fox.pdf": "%PDF-1.4 preview",
	}, []string{"fox.qli", "fox.pdf"})
	result, err := svc.IngestArchive(context.Background(), "batch.zip", data, true, "admin@quiltline.com")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(patternRepo.rows) != 0 {
		t.Fatalf("row must be rolled back: %d rows left", len(patternRepo.rows))
	}
	if len(bucket.objects) != 0 {
		t.Fatalf("design and thumbnail objects must be rolled back: %v", bucket.objects)
	}
	batch, err := batchRepo.GetByID(dbctx.Context{}, result.BatchID)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if batch.ErrorCount != 1 || batch.UploadedCount != 0 {
		t.Fatalf("unexpected batch counts: %+v", batch)
	}
}

func TestIngestArchiveThumbnailFailureIsNonFatal(t *testing.T) {
	t.Parallel()
	patternRepo, _, bucket, renderer, svc := newIngestFixture(t)
	renderer.err = errors.New("malformed pdf")

	data := buildArchive(t, map[string]string{
		"fox.qli": "D 1.0 2.0\n",
		"fox.pdf": "garbage",
	}, []string{"fox.qli", "fox.pdf"})
	result, err := svc.IngestArchive(context.Background(), "batch.zip", data, true, "admin@quiltline.com")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(result.Uploaded) != 1 || len(result.Errors) != 0 {
		t.Fatalf("thumbnail failure must not fail the candidate: %+v", result)
	}
	fox, err := patternRepo.GetByID(dbctx.Context{}, 1)
	if err != nil {
		t.Fatalf("load row: %v", err)
	}
	if fox.ThumbnailURL != nil {
		t.Fatalf("thumbnail url should be nil: %+v", fox.ThumbnailURL)
	}
	if fox.PatternFileURL == nil {
		t.Fatal("pattern url must still be set")
	}
	if _, ok := bucket.objects["thumbnail/1.png"]; ok {
		t.Fatal("no thumbnail object should exist")
	}
}

func TestIngestArchiveNoCandidates(t *testing.T) {
	t.Parallel()
	_, batchRepo, _, _, svc := newIngestFixture(t)

	data := buildArchive(t, map[string]string{"readme.txt": "hello"}, []string{"readme.txt"})
	if _, err := svc.IngestArchive(context.Background(), "batch.zip", data, true, "admin@quiltline.com"); !errors.Is(err, pkgerrors.ErrNoCandidates) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batchRepo.batches) != 0 {
		t.Fatal("no batch row should be created for an empty archive")
	}
}

func TestIngestArchiveRejectsCorruptBytes(t *testing.T) {
	t.Parallel()
	_, batchRepo, _, _, svc := newIngestFixture(t)

	if _, err := svc.IngestArchive(context.Background(), "batch.zip", []byte("not a zip"), true, "admin@quiltline.com"); !errors.Is(err, pkgerrors.ErrInvalidArchive) {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batchRepo.batches) != 0 {
		t.Fatal("no batch row should be created for a corrupt archive")
	}
}
