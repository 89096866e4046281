package handlers

import (
	"net/http"
	"strconv"

	"cngflow/services"

	"github.com/gin-gonic/gin"
)

type StationHandler struct {
	stations *services.StationService
}

func NewStationHandler(stations *services.StationService) *StationHandler {
	return &StationHandler{stations: stations}
}

func parseRadius(c *gin.Context) (float64, bool) {
	radiusStr := c.Query("radius")
	if radiusStr == "" {
		return 0, true
	}
	radius, err := strconv.ParseFloat(radiusStr, 64)
	if err != nil || radius <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius parameter, must be a positive number of km"})
		return 0, false
	}
	return radius, true
}

func (h *StationHandler) List(c *gin.Context) {
	var q services.ListQuery

	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if (latStr == "") != (lngStr == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be given together"})
		return
	}
	if latStr != "" {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lng, errLng := strconv.ParseFloat(lngStr, 64)
		if errLat != nil || errLng != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat/lng parameter"})
			return
		}
		q.Origin = &services.Point{Lat: lat, Lng: lng}
		q.Sort = services.SortDistance
	}

	radius, ok := parseRadius(c)
	if !ok {
		return
	}
	q.RadiusKm = radius

	if sortStr := c.Query("sort"); sortStr != "" {
		order, ok := services.ParseSortOrder(sortStr)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort parameter, must be distance, queue or updated"})
			return
		}
		q.Sort = order
	}

	if status := c.DefaultQuery("status", "all"); status != "all" {
		color, ok := services.ParseColor(status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status parameter"})
			return
		}
		q.Color = color
	}
	q.Search = c.Query("q")

	views, err := h.stations.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "count": len(views)})
}

func (h *StationHandler) Get(c *gin.Context) {
	view, err := h.stations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *StationHandler) Alternatives(c *gin.Context) {
	radius, ok := parseRadius(c)
	if !ok {
		return
	}
	res, err := h.stations.Alternatives(c.Request.Context(), c.Param("id"), radius)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
