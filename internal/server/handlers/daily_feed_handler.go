package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/service/dailyfeed"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

// DailyFeedHandler serves feeding sessions and the usage report.
type DailyFeedHandler struct {
	svc    *dailyfeed.Service
	logger *zap.Logger
}

// NewDailyFeedHandler constructs the session HTTP adapter.
func NewDailyFeedHandler(svc *dailyfeed.Service, logger *zap.Logger) *DailyFeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyFeedHandler{svc: svc, logger: logger}
}

func (h *DailyFeedHandler) Create(c *gin.Context) {
	var input dailyfeed.CreateInput
	if err := bindJSON(c, &input); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	session, err := h.svc.Create(c.Request.Context(), input)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Sesi pakan harian berhasil dibuat", session)
}

// List serves both the plain listing and the search endpoint; every query
// parameter is optional.
func (h *DailyFeedHandler) List(c *gin.Context) {
	filter, err := sessionFilter(c)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	sessions, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, sessions)
}

func (h *DailyFeedHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	session, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", session)
}

func (h *DailyFeedHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	var input dailyfeed.UpdateInput
	if err := bindJSON(c, &input); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	session, err := h.svc.Update(c.Request.Context(), id, input)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Sesi pakan harian berhasil diperbarui", session)
}

// Delete removes a session and returns its items to stock.
func (h *DailyFeedHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Sesi pakan harian berhasil dihapus", nil)
}

// Usage reports the quantity used per feed per day.
func (h *DailyFeedHandler) Usage(c *gin.Context) {
	start, end := c.Query("start_date"), c.Query("end_date")
	if start == "" || end == "" {
		RespondError(c, h.logger, apperr.New(apperr.CodeValidation, "start_date dan end_date wajib diisi"))
		return
	}
	usage, err := h.svc.FeedUsage(c.Request.Context(), start, end)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, usage)
}

func sessionFilter(c *gin.Context) (gormstore.DailyFeedFilter, error) {
	farmerID, err := queryID(c, "farmer_id")
	if err != nil {
		return gormstore.DailyFeedFilter{}, err
	}
	cowID, err := queryID(c, "cow_id")
	if err != nil {
		return gormstore.DailyFeedFilter{}, err
	}
	return gormstore.DailyFeedFilter{
		FarmerID:  farmerID,
		CowID:     cowID,
		Date:      c.Query("date"),
		Session:   c.Query("session"),
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
	}, nil
}
