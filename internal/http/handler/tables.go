package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/edirooss/tablemux/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TablesHandler struct {
	log *zap.Logger
	svc *service.ReservationService
}

func NewTablesHandler(log *zap.Logger, svc *service.ReservationService) *TablesHandler {
	return &TablesHandler{log: log.Named("tables"), svc: svc}
}

func (h *TablesHandler) GetTableList(c *gin.Context) {
	tables := h.svc.Tables()
	c.Header("X-Total-Count", strconv.Itoa(len(tables)))
	c.JSON(http.StatusOK, tables)
}

// ReleaseTable frees a table. Releasing a free table is 200 with
// status "already_free", not an error.
func (h *TablesHandler) ReleaseTable(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	res, err := h.svc.Release(c.Request.Context(), int(id))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *TablesHandler) Summary(c *gin.Context) {
	// ?force=1 bypasses the cache
	force := c.Query("force") == "1"

	res, err := h.svc.Summary(c.Request.Context(), force)
	if err != nil {
		fail(c, err)
		return
	}

	if res.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Header("X-Summary-Generated-At", res.GeneratedAt.UTC().Format(time.RFC3339Nano))
	c.JSON(http.StatusOK, res.Data)
}

// GetActivity returns recent floor activity, newest first.
// ?lines=N limits the result (0 or absent = all kept, max 500).
func (h *TablesHandler) GetActivity(c *gin.Context) {
	lines := 0
	if raw := c.Query("lines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "lines must be a non-negative integer"})
			return
		}
		lines = min(n, 500)
	}

	entries := h.svc.Activity(lines)
	c.Header("X-Total-Count", strconv.Itoa(len(entries)))
	c.JSON(http.StatusOK, entries)
}
