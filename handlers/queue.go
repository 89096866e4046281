package handlers

import (
	"net/http"

	"cngflow/models"
	"cngflow/services"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	queues   *services.QueueService
	stations *services.StationService
}

func NewQueueHandler(queues *services.QueueService, stations *services.StationService) *QueueHandler {
	return &QueueHandler{queues: queues, stations: stations}
}

func (h *QueueHandler) Update(c *gin.Context) {
	var req services.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	u, _, err := h.queues.Submit(c.Request.Context(), req, models.SourceApp)
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.stations.Get(c.Request.Context(), u.StationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"update":         u,
		"station":        view,
		"points_awarded": services.PointsPerUpdate,
	})
}

func (h *QueueHandler) History(c *gin.Context) {
	p, err := ParsePagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.queues.History(c.Request.Context(), c.Param("id"), p.Limit+1, p.Before)
	if err != nil {
		respondError(c, err)
		return
	}

	hasMore := len(rows) > p.Limit
	if hasMore {
		rows = rows[:p.Limit]
	}

	var nextCursor string
	if hasMore && len(rows) > 0 {
		nextCursor = cursorFor(rows[len(rows)-1])
	}

	c.JSON(http.StatusOK, CursorResponse{Data: rows, NextCursor: nextCursor, HasMore: hasMore})
}

func (h *QueueHandler) Analytics(c *gin.Context) {
	a, err := h.stations.Analytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
