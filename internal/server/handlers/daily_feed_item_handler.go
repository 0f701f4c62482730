package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/repository/gormstore"
	"github.com/mamadbah2/dairyfeed/internal/service/ledger"
)

// DailyFeedItemHandler serves the feed item ledger.
type DailyFeedItemHandler struct {
	svc    *ledger.Service
	logger *zap.Logger
}

// NewDailyFeedItemHandler constructs the ledger HTTP adapter.
func NewDailyFeedItemHandler(svc *ledger.Service, logger *zap.Logger) *DailyFeedItemHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyFeedItemHandler{svc: svc, logger: logger}
}

type quantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type bulkUpdateRequest struct {
	Items []ledger.QuantityUpdate `json:"items"`
}

// Add records feed given in a session and deducts it from stock.
func (h *DailyFeedItemHandler) Add(c *gin.Context) {
	var input ledger.AddItemsInput
	if err := bindJSON(c, &input); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	session, err := h.svc.AddItems(c.Request.Context(), input)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Item pakan berhasil ditambahkan", session)
}

func (h *DailyFeedItemHandler) List(c *gin.Context) {
	dailyFeedID, err := queryID(c, "daily_feed_id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	feedID, err := queryID(c, "feed_id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	items, err := h.svc.ListItems(c.Request.Context(), gormstore.ItemFilter{DailyFeedID: dailyFeedID, FeedID: feedID})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, items)
}

func (h *DailyFeedItemHandler) BySession(c *gin.Context) {
	id, err := pathID(c, "daily_feed_id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	items, err := h.svc.ItemsBySession(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, items)
}

func (h *DailyFeedItemHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	item, err := h.svc.GetItem(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", item)
}

func (h *DailyFeedItemHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	var req quantityRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), id, req.Quantity)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Item pakan berhasil diperbarui", item)
}

func (h *DailyFeedItemHandler) BulkUpdate(c *gin.Context) {
	var req bulkUpdateRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	items, err := h.svc.BulkUpdate(c.Request.Context(), req.Items)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Item pakan berhasil diperbarui", items)
}

// Delete removes an item and returns its quantity to stock.
func (h *DailyFeedItemHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if err := h.svc.DeleteItem(c.Request.Context(), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Item pakan berhasil dihapus", nil)
}
