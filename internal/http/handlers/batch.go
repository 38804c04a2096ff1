package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quiltline/patternvault-backend/internal/http/response"
	pkgerrors "github.com/quiltline/patternvault-backend/internal/pkg/errors"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
	"github.com/quiltline/patternvault-backend/internal/realtime"
	"github.com/quiltline/patternvault-backend/internal/services"
)

type BatchHandler struct {
	log          *logger.Logger
	batchService services.BatchService
	hub          *realtime.Hub
}

func NewBatchHandler(log *logger.Logger, batchService services.BatchService, hub *realtime.Hub) *BatchHandler {
	return &BatchHandler{
		log:          log.With("handler", "BatchHandler"),
		batchService: batchService,
		hub:          hub,
	}
}

func batchID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_batch_id", err)
		return 0, false
	}
	return id, true
}

func pageParams(c *gin.Context, defaultLimit int) (int, int) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > 500 {
		limit = defaultLimit
	}
	return offset, limit
}

func (bh *BatchHandler) GetBatch(c *gin.Context) {
	id, ok := batchID(c)
	if !ok {
		return
	}
	detail, err := bh.batchService.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "batch_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "load_batch_failed", err)
		return
	}
	response.RespondOK(c, detail)
}

func (bh *BatchHandler) ListBatches(c *gin.Context) {
	offset, limit := pageParams(c, 50)
	batches, err := bh.batchService.List(c.Request.Context(), offset, limit)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "list_batches_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"batches": batches})
}

func (bh *BatchHandler) CommitBatch(c *gin.Context) {
	id, ok := batchID(c)
	if !ok {
		return
	}
	published, err := bh.batchService.Commit(c.Request.Context(), id)
	if err != nil {
		bh.respondLifecycleError(c, "commit", err)
		return
	}
	response.RespondOK(c, gin.H{"batch_id": id, "published": published})
}

func (bh *BatchHandler) CancelBatch(c *gin.Context) {
	id, ok := batchID(c)
	if !ok {
		return
	}
	removed, err := bh.batchService.Cancel(c.Request.Context(), id)
	if err != nil {
		bh.respondLifecycleError(c, "cancel", err)
		return
	}
	response.RespondOK(c, gin.H{"batch_id": id, "removed": removed})
}

func (bh *BatchHandler) respondLifecycleError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "batch_not_found", err)
	case pkgerrors.IsBatchState(err):
		response.RespondError(c, http.StatusBadRequest, "batch_not_staged", err)
	default:
		bh.log.Error("Batch lifecycle operation failed", "op", op, "error", err)
		response.RespondError(c, http.StatusInternalServerError, op+"_failed", err)
	}
}

// BatchEvents streams ingestion progress for one batch over SSE until the
// client disconnects.
func (bh *BatchHandler) BatchEvents(c *gin.Context) {
	id, ok := batchID(c)
	if !ok {
		return
	}
	client := bh.hub.NewClient()
	bh.hub.Subscribe(client, realtime.BatchChannel(id))
	bh.hub.ServeHTTP(c.Writer, c.Request, client)
	bh.hub.CloseClient(client)
}
