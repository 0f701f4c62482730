package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairyfeed/internal/service/catalog"
	"github.com/mamadbah2/dairyfeed/pkg/apperr"
)

// CatalogHandler serves feed types, feeds and feed stock.
type CatalogHandler struct {
	svc    *catalog.Service
	logger *zap.Logger
}

// NewCatalogHandler constructs the catalog HTTP adapter.
func NewCatalogHandler(svc *catalog.Service, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{svc: svc, logger: logger}
}

type feedTypeRequest struct {
	Name string `json:"name"`
}

// addStockRequest keeps the field names the dashboard already sends.
type addStockRequest struct {
	FeedID          uint            `json:"feedId"`
	AdditionalStock decimal.Decimal `json:"additionalStock"`
}

type setStockRequest struct {
	Stock *decimal.Decimal `json:"stock"`
}

func (h *CatalogHandler) ListFeedTypes(c *gin.Context) {
	types, err := h.svc.ListFeedTypes(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, types)
}

func (h *CatalogHandler) GetFeedType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	feedType, err := h.svc.GetFeedType(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", feedType)
}

func (h *CatalogHandler) CreateFeedType(c *gin.Context) {
	var req feedTypeRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	feedType, err := h.svc.CreateFeedType(c.Request.Context(), req.Name)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Jenis pakan berhasil ditambahkan", feedType)
}

func (h *CatalogHandler) UpdateFeedType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	var req feedTypeRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	feedType, err := h.svc.UpdateFeedType(c.Request.Context(), id, req.Name)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Jenis pakan berhasil diperbarui", feedType)
}

func (h *CatalogHandler) DeleteFeedType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if err := h.svc.DeleteFeedType(c.Request.Context(), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Jenis pakan berhasil dihapus", nil)
}

func (h *CatalogHandler) ListFeeds(c *gin.Context) {
	feeds, err := h.svc.ListFeeds(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, feeds)
}

func (h *CatalogHandler) GetFeed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	feed, err := h.svc.GetFeed(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", feed)
}

func (h *CatalogHandler) CreateFeed(c *gin.Context) {
	var input catalog.FeedInput
	if err := bindJSON(c, &input); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	feed, err := h.svc.CreateFeed(c.Request.Context(), input)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Pakan berhasil ditambahkan", feed)
}

func (h *CatalogHandler) UpdateFeed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	var input catalog.FeedInput
	if err := bindJSON(c, &input); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	feed, err := h.svc.UpdateFeed(c.Request.Context(), id, input)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Pakan berhasil diperbarui", feed)
}

func (h *CatalogHandler) DeleteFeed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if err := h.svc.DeleteFeed(c.Request.Context(), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Pakan berhasil dihapus", nil)
}

func (h *CatalogHandler) ListStocks(c *gin.Context) {
	stocks, err := h.svc.ListStocks(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, stocks)
}

func (h *CatalogHandler) GetStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	stock, err := h.svc.GetStock(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "", stock)
}

// AddStock restocks a feed.
func (h *CatalogHandler) AddStock(c *gin.Context) {
	var req addStockRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	stock, err := h.svc.AddStock(c.Request.Context(), req.FeedID, req.AdditionalStock)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Stok pakan berhasil ditambahkan", stock)
}

// SetStock overwrites a stock level after a physical count.
func (h *CatalogHandler) SetStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	var req setStockRequest
	if err := bindJSON(c, &req); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if req.Stock == nil {
		RespondError(c, h.logger, apperr.New(apperr.CodeValidation, "stock wajib diisi"))
		return
	}
	stock, err := h.svc.SetStock(c.Request.Context(), id, *req.Stock)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Stok pakan berhasil diperbarui", stock)
}

func (h *CatalogHandler) ListMovements(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	movements, err := h.svc.ListMovements(c.Request.Context(), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	respondList(c, movements)
}
