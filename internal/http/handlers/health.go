package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/quiltline/patternvault-backend/internal/http/response"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (hh *HealthHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := hh.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "db_unavailable", err)
		return
	}
	response.RespondOK(c, gin.H{"status": "ok"})
}
