package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/joshuasalcedo-dev/fx/internal/clipboard"
	"github.com/joshuasalcedo-dev/fx/internal/export"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler exposes the clipboard service over REST. The monitor is optional;
// without one the start/stop/copy endpoints report the capability as absent.
type Handler struct {
	service *clipboard.Service
	monitor *clipboard.Monitor
	log     zerolog.Logger
}

func NewHandler(service *clipboard.Service, monitor *clipboard.Monitor, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		monitor: monitor,
		log:     log.With().Str("component", "http").Logger(),
	}
}

type saveRequest struct {
	Content string `json:"content" binding:"required"`
}

type togglePinRequest struct {
	ID int64 `json:"id" binding:"required"`
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case clipboard.IsCode(err, clipboard.ErrCodeInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case clipboard.IsCode(err, clipboard.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func paging(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ = strconv.Atoi(c.DefaultQuery("max", strconv.Itoa(defaultPageSize)))
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// ListClipboards returns one page of the history, newest first.
func (h *Handler) ListClipboards(c *gin.Context) {
	page, size := paging(c)

	result, err := h.service.FindAll(c.Request.Context(), page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SaveClipboard records a snapshot delivered by an external caller.
func (h *Handler) SaveClipboard(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	entry, err := h.service.Save(c.Request.Context(), req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) ListPinned(c *gin.Context) {
	pinned, err := h.service.FindAllPinned(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pinned)
}

// TogglePin flips the pin flag of the addressed entry.
func (h *Handler) TogglePin(c *gin.Context) {
	var req togglePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	entry, err := h.service.FindByID(c.Request.Context(), req.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "clipboard entry not found"})
		return
	}

	updated, err := h.service.SetPinned(c.Request.Context(), req.ID, !entry.Pinned)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) Search(c *gin.Context) {
	page, size := paging(c)

	result, err := h.service.SearchByContent(c.Request.Context(), c.Query("query"), page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Recent(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", "24"))
	if err != nil || hours < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
		return
	}

	entries, err := h.service.FindRecent(c.Request.Context(), hours)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DeleteAll clears the history; pinned entries survive unless
// includePinned=true.
func (h *Handler) DeleteAll(c *gin.Context) {
	includePinned := c.DefaultQuery("includePinned", "false") == "true"

	deleted, err := h.service.DeleteAll(c.Request.Context(), includePinned)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Handler) DeleteByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	deleted, err := h.service.DeleteByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "clipboard entry not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Export streams the history as a downloadable file in the requested format.
func (h *Handler) Export(c *gin.Context) {
	format := export.Format(c.Param("format"))
	includePinned := c.DefaultQuery("includePinned", "true") == "true"

	rendered, err := h.service.Export(c.Request.Context(), format, includePinned)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=clipboard-export."+string(format))
	c.Data(http.StatusOK, format.ContentType(), []byte(rendered))
}

// StopMonitor pauses clipboard capture; history and API stay available.
func (h *Handler) StopMonitor(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitoring not available"})
		return
	}
	h.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"running": h.monitor.Running()})
}

func (h *Handler) StartMonitor(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitoring not available"})
		return
	}
	if !h.monitor.Running() {
		if err := h.monitor.Start(context.Background()); err != nil {
			h.log.Error().Err(err).Msg("failed to start monitor")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start monitoring"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"running": h.monitor.Running()})
}

func (h *Handler) MonitorStatus(c *gin.Context) {
	running := h.monitor != nil && h.monitor.Running()
	c.JSON(http.StatusOK, gin.H{"running": running})
}

// CopyToClipboard puts a stored entry back onto the OS clipboard.
func (h *Handler) CopyToClipboard(c *gin.Context) {
	if h.monitor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "monitoring not available"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.monitor.WriteToClipboard(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
