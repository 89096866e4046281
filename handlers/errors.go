package handlers

import (
	"errors"
	"log"
	"net/http"

	"cngflow/estimator"
	"cngflow/services"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidQuery), errors.Is(err, services.ErrInvalidUpdate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrStationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
	case errors.Is(err, estimator.ErrInvalidInput):
		log.Printf("estimate refused on %s: %v", c.FullPath(), err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Printf("request %s failed: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
	}
}
