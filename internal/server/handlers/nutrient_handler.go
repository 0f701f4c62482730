package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/service/nutrition"
)

// NutrientHandler exposes the cached nutrient totals of sessions.
type NutrientHandler struct {
	svc    *nutrition.Service
	logger *zap.Logger
}

func NewNutrientHandler(svc *nutrition.Service, logger *zap.Logger) *NutrientHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NutrientHandler{svc: svc, logger: logger}
}

func (h *NutrientHandler) List(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, rows)
}

func (h *NutrientHandler) Get(c *gin.Context) {
	id, err := pathID(c, "daily_feed_id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	row, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", row)
}

// Recompute rebuilds the totals of one session from its items.
func (h *NutrientHandler) Recompute(c *gin.Context) {
	id, err := pathID(c, "daily_feed_id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	row, err := h.svc.Repair(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Nutrisi berhasil dihitung ulang", row)
}
