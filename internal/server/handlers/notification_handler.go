package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/service/monitor"
)

// NotificationHandler serves notifications and the on-demand stock sweep.
type NotificationHandler struct {
	svc    *monitor.Service
	logger *zap.Logger
}

// NewNotificationHandler constructs the notification HTTP adapter.
func NewNotificationHandler(svc *monitor.Service, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{svc: svc, logger: logger}
}

// List returns notifications, only unread ones with ?unread=true.
func (h *NotificationHandler) List(c *gin.Context) {
	h.list(c, gormstore.NotificationFilter{UnreadOnly: c.Query("unread") == "true"})
}

// ListFeedStock returns the unread stock warnings.
func (h *NotificationHandler) ListFeedStock(c *gin.Context) {
	h.list(c, gormstore.NotificationFilter{UnreadOnly: true, FeedStockOnly: true})
}

func (h *NotificationHandler) list(c *gin.Context, filter gormstore.NotificationFilter) {
	notifications, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, notifications)
}

// CheckFeedStock runs a threshold sweep now.
func (h *NotificationHandler) CheckFeedStock(c *gin.Context) {
	result, err := h.svc.Sweep(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	message := fmt.Sprintf("%d notifikasi stok baru dibuat", result.Created)
	if result.Skipped {
		message = "Pemeriksaan stok sedang berjalan"
	}
	respond(c, http.StatusOK, message, result)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	notification, err := h.svc.MarkRead(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Notifikasi ditandai sudah dibaca", notification)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.svc.MarkAllRead(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, fmt.Sprintf("%d notifikasi ditandai sudah dibaca", updated), gin.H{"updated": updated})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Notifikasi berhasil dihapus", nil)
}
