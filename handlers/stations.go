package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sea-travel-search/services"
)

// GetStations serves exact lookups, city aggregates, fuzzy search and the
// full city list depending on which query params are present
func GetStations(c *gin.Context) {
	directory := services.DirectoryService()

	if id := c.Query("id"); id != "" {
		station, ok := directory.StationByID(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
			return
		}
		c.JSON(http.StatusOK, station)
		return
	}

	if cityName := c.Query("city"); cityName != "" {
		city, ok := directory.CityByName(cityName)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "city not found"})
			return
		}
		c.JSON(http.StatusOK, city)
		return
	}

	if query := c.Query("q"); query != "" {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit < 1 {
			limit = 10
		}
		mode := c.DefaultQuery("mode", services.SearchModeCity)
		switch mode {
		case services.SearchModeStation:
			c.JSON(http.StatusOK, gin.H{"matches": directory.SearchStations(query, limit)})
		case services.SearchModeCity:
			c.JSON(http.StatusOK, gin.H{"matches": directory.SearchCities(query, limit)})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be city or station"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"cities": directory.Cities()})
}
