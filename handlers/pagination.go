package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"cngflow/models"
	"cngflow/services"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var (
	errBadLimit  = errors.New("invalid limit parameter, must be a positive integer")
	errBadCursor = errors.New("invalid before parameter, must be a next_cursor value or an RFC3339 timestamp")
)

type PaginationParams struct {
	Limit  int
	Before *services.HistoryCursor
}

type CursorResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// ParsePagination reads limit and before. Limits above MaxLimit are capped.
func ParsePagination(c *gin.Context) (PaginationParams, error) {
	p := PaginationParams{Limit: DefaultLimit}

	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return p, errBadLimit
		}
		p.Limit = l
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if beforeStr := c.Query("before"); beforeStr != "" {
		cur, err := parseCursor(beforeStr)
		if err != nil {
			return p, err
		}
		p.Before = &cur
	}

	return p, nil
}

// Cursors are "<RFC3339Nano>_<update id>". A bare timestamp is accepted too.
func parseCursor(s string) (services.HistoryCursor, error) {
	ts, id, _ := strings.Cut(s, "_")
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return services.HistoryCursor{}, errBadCursor
	}
	return services.HistoryCursor{ReportedAt: t, ID: id}, nil
}

func cursorFor(u models.QueueUpdate) string {
	return u.ReportedAt.UTC().Format(time.RFC3339Nano) + "_" + u.ID
}
