package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quiltline/patternvault-backend/internal/http/response"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
	"github.com/quiltline/patternvault-backend/internal/services"
)

type PatternHandler struct {
	log            *logger.Logger
	patternService services.PatternService
}

func NewPatternHandler(log *logger.Logger, patternService services.PatternService) *PatternHandler {
	return &PatternHandler{
		log:            log.With("handler", "PatternHandler"),
		patternService: patternService,
	}
}

func patternID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_pattern_id", err)
		return 0, false
	}
	return id, true
}

func (ph *PatternHandler) ListPatterns(c *gin.Context) {
	offset, limit := pageParams(c, 100)
	patterns, err := ph.patternService.List(c.Request.Context(), offset, limit)
	if err != nil {
		ph.log.Error("List patterns failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_patterns_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"patterns": patterns})
}

func (ph *PatternHandler) GetPattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	pattern, err := ph.patternService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "pattern_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "load_pattern_failed", err)
		return
	}
	response.RespondOK(c, pattern)
}

// DownloadPattern redirects to the pattern binary; the bytes are served from
// the bucket or CDN, never proxied through the API.
func (ph *PatternHandler) DownloadPattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	url, err := ph.patternService.DownloadURL(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "pattern_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "download_failed", err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (ph *PatternHandler) DeletePattern(c *gin.Context) {
	id, ok := patternID(c)
	if !ok {
		return
	}
	if err := ph.patternService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "pattern_not_found", err)
			return
		}
		ph.log.Error("Delete pattern failed", "pattern_id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "delete_pattern_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
