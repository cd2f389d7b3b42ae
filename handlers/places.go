package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sea-travel-search/models"
	"sea-travel-search/services"
)

// GetPlaces serves geocoding-backed place autocomplete
func GetPlaces(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	places, err := services.GeocoderService().Autocomplete(c.Request.Context(), query)
	if err != nil {
		var confErr *models.ConfigError
		if errors.As(err, &confErr) {
			log.Printf("Places unavailable: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "place autocomplete not configured"})
			return
		}
		log.Printf("Geocoding failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "place lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"places": places})
}
