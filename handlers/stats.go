package handlers

import (
	"net/http"
	"strconv"

	"cngflow/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultBusiest = 5
	maxBusiest     = 50
)

type StatsHandler struct {
	stations *services.StationService
}

func NewStatsHandler(stations *services.StationService) *StatsHandler {
	return &StatsHandler{stations: stations}
}

func (h *StatsHandler) Overview(c *gin.Context) {
	o, err := h.stations.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *StatsHandler) Busiest(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultBusiest))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter, must be a positive integer"})
		return
	}
	if limit > maxBusiest {
		limit = maxBusiest
	}

	views, err := h.stations.Busiest(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "count": len(views)})
}
