package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
	"github.com/quiltline/patternvault-backend/internal/services"
)

type stubIngestService struct {
	result *services.IngestResult
	err    error
}

func (s *stubIngestService) IngestArchive(ctx context.Context, archiveName string, data []byte, staged bool, uploadedBy string) (*services.IngestResult, error) {
	return s.result, s.err
}

func uploadRouter(t *testing.T, svc services.IngestService) *gin.Engine {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/upload", NewUploadHandler(log, svc).Upload)
	return r
}

func multipartArchive(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

func TestUploadRejectsCorruptArchive(t *testing.T) {
	t.Parallel()
	svc := &stubIngestService{err: pkgerrors.ErrInvalidArchive}
	router := uploadRouter(t, svc)

	body, contentType := multipartArchive(t, "broken.zip", []byte("not a zip"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "invalid_archive") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestUploadRejectsNonZipFilename(t *testing.T) {
	t.Parallel()
	router := uploadRouter(t, &stubIngestService{})

	body, contentType := multipartArchive(t, "patterns.rar", []byte("whatever"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "not_a_zip_archive") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
