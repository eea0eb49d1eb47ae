package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beepstream/internal/hub"
	"beepstream/internal/models"
	"beepstream/internal/repository"
	"beepstream/internal/service"
)

type LogHandler struct {
	Repo     repository.LogRepository
	Hub      *hub.Hub
	Archiver *service.ArchiveService
	Logger   *zap.Logger
}

func (h *LogHandler) Register(r *gin.Engine) {
	group := r.Group("/api/logs")
	group.POST("", h.createLog)
	group.GET("", h.listLogs)
	group.DELETE("", h.clearLogs)
	group.POST("/archive", h.archiveLogs)
	group.GET("/archived", h.listArchived)
}

type ingestLogRequest struct {
	Message  string  `json:"message"`
	BeepType string  `json:"beepType"`
	Source   *string `json:"source"`
}

func (req *ingestLogRequest) validate() string {
	if strings.TrimSpace(req.Message) == "" {
		return "message is required"
	}
	if !models.ValidBeepType(req.BeepType) {
		return "beepType must be either 'beep' or 'silent'"
	}
	return ""
}

// @Summary Ingest a log record
// @Tags logs
// @Accept json
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/logs [post]
func (h *LogHandler) createLog(c *gin.Context) {
	var req ingestLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid log payload: "+err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	item := &models.Log{
		Message:  req.Message,
		BeepType: req.BeepType,
		Source:   req.Source,
	}
	// Persist before broadcast: a client must never see a log over /ws
	// that a poll of GET /api/logs would not return.
	if err := h.Repo.CreateLog(c.Request.Context(), item); err != nil {
		if h.Logger != nil {
			h.Logger.Error("create log failed", zap.Error(err))
		}
		fail(c, http.StatusInternalServerError, "failed to store log")
		return
	}
	if h.Hub != nil {
		h.Hub.Broadcast(c.Request.Context(), hub.NewLogEvent(*item))
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "log": item})
}

// @Summary List active logs
// @Tags logs
// @Success 200 {object} map[string]any
// @Router /api/logs [get]
func (h *LogHandler) listLogs(c *gin.Context) {
	items, err := h.Repo.ListActiveLogs(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("list logs failed", zap.Error(err))
		}
		fail(c, http.StatusInternalServerError, "failed to fetch logs")
		return
	}
	if items == nil {
		items = []models.Log{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": items})
}

// @Summary Clear active logs
// @Tags logs
// @Success 200 {object} map[string]any
// @Router /api/logs [delete]
func (h *LogHandler) clearLogs(c *gin.Context) {
	count, err := h.Repo.ClearActiveLogs(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("clear logs failed", zap.Error(err))
		}
		fail(c, http.StatusInternalServerError, "failed to clear logs")
		return
	}
	if h.Logger != nil {
		h.Logger.Info("cleared active logs", zap.Int64("count", count))
	}
	if h.Hub != nil {
		h.Hub.Broadcast(c.Request.Context(), hub.ClearLogsEvent())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logs cleared successfully"})
}

// @Summary Archive active logs now
// @Tags logs
// @Success 200 {object} map[string]any
// @Router /api/logs/archive [post]
func (h *LogHandler) archiveLogs(c *gin.Context) {
	if h.Archiver == nil {
		fail(c, http.StatusInternalServerError, "archiver unavailable")
		return
	}
	count, err := h.Archiver.ArchiveNow(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("manual archive failed", zap.Error(err))
		}
		fail(c, http.StatusInternalServerError, "failed to archive logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": count})
}

// @Summary List archived logs
// @Tags logs
// @Success 200 {object} map[string]any
// @Router /api/logs/archived [get]
func (h *LogHandler) listArchived(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListArchivedLogs(c.Request.Context(), repository.ListArchivedParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Error("list archived logs failed", zap.Error(err))
		}
		fail(c, http.StatusInternalServerError, "failed to fetch archived logs")
		return
	}
	if items == nil {
		items = []models.Log{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": items})
}
