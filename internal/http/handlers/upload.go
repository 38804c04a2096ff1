package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quiltline/patternvault-backend/internal/http/response"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
	"github.com/quiltline/patternvault-backend/internal/requestdata"
	"github.com/quiltline/patternvault-backend/internal/services"
)

// maxArchiveSize bounds the multipart read; bulk archives run to a few
// hundred patterns, far below this.
const maxArchiveSize = 256 << 20

type UploadHandler struct {
	log           *logger.Logger
	ingestService services.IngestService
}

func NewUploadHandler(log *logger.Logger, ingestService services.IngestService) *UploadHandler {
	return &UploadHandler{
		log:           log.With("handler", "UploadHandler"),
		ingestService: ingestService,
	}
}

// Upload accepts a ZIP of pattern files and runs the ingestion pipeline.
// Batches stage by default; staged=false publishes immediately.
func (uh *UploadHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxArchiveSize); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".zip") {
		response.RespondError(c, http.StatusBadRequest, "not_a_zip_archive", nil)
		return
	}

	staged := true
	if v := c.PostForm("staged"); v != "" {
		parsed, pErr := strconv.ParseBool(v)
		if pErr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_staged_flag", pErr)
			return
		}
		staged = parsed
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	uploadedBy := ""
	if admin := requestdata.GetAdmin(c.Request.Context()); admin != nil {
		uploadedBy = admin.Email
	}

	result, err := uh.ingestService.IngestArchive(c.Request.Context(), fileHeader.Filename, data, staged, uploadedBy)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrInvalidArchive) {
			response.RespondError(c, http.StatusBadRequest, "invalid_archive", err)
			return
		}
		if errors.Is(err, pkgerrors.ErrNoCandidates) {
			response.RespondError(c, http.StatusBadRequest, "no_pattern_files", err)
			return
		}
		uh.log.Error("Archive ingestion failed", "archive", fileHeader.Filename, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "ingestion_failed", err)
		return
	}
	response.RespondOK(c, result)
}
