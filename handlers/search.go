package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"sea-travel-search/metrics"
	"sea-travel-search/models"
	"sea-travel-search/services"
)

// searchRequest covers both the city fan-out path (originCity/
// destinationCity) and the legacy explicit-station path (origin/destination)
type searchRequest struct {
	OriginCity      string `form:"originCity" json:"originCity"`
	DestinationCity string `form:"destinationCity" json:"destinationCity"`
	Origin          string `form:"origin" json:"origin"`
	Destination     string `form:"destination" json:"destination"`
	Date            string `form:"date" json:"date"`
	Company         string `form:"company" json:"company"`
	Stream          bool   `form:"stream" json:"stream"`
}

// SearchTrips handles GET/POST /api/search in batch and streaming mode
func SearchTrips(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if c.Query("stream") == "true" {
		req.Stream = true
	}

	origin := req.OriginCity
	if origin == "" {
		origin = req.Origin
	}
	destination := req.DestinationCity
	if destination == "" {
		destination = req.Destination
	}

	if origin == "" || destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination are required"})
		return
	}
	if !services.ValidDate(req.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be in YYYY-MM-DD format"})
		return
	}
	if req.Company != "" && req.Company != services.CompanyTwelveGo && req.Company != services.CompanyP10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company must be 12go or p10"})
		return
	}

	orchestrator, err := services.OrchestratorFor(req.Company)
	if err != nil {
		log.Printf("Provider unavailable: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provider not configured"})
		return
	}

	log.Printf("Search request: %s -> %s on %s (company=%s, stream=%v)",
		origin, destination, req.Date, req.Company, req.Stream)

	// Explicit station ids take the legacy single-pair path
	if req.OriginCity == "" && req.Origin != "" && !req.Stream {
		searchPair(c, orchestrator, req.Origin, req.Destination, req.Date)
		return
	}

	if req.Stream {
		streamSearch(c, orchestrator, origin, destination, req.Date)
		return
	}

	resp, err := orchestrator.SearchCities(c.Request.Context(), origin, destination, req.Date)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.CountSearch("batch", metrics.ResultError)
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Printf("Search failed: %v", err)
		metrics.CountSearch("batch", metrics.ResultError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	metrics.CountSearch("batch", metrics.ResultSuccess)
	c.JSON(http.StatusOK, resp)
}

// searchPair serves the legacy explicit-station search. Upstream failures
// propagate as a 500 with a generic message.
func searchPair(c *gin.Context, orchestrator *services.Orchestrator, originID, destID, date string) {
	resp, err := orchestrator.SearchPair(c.Request.Context(), originID, destID, date)
	if err != nil {
		log.Printf("Pair search failed: %v", err)
		metrics.CountSearch("batch", metrics.ResultError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	metrics.CountSearch("batch", metrics.ResultSuccess)
	c.JSON(http.StatusOK, resp)
}

// streamSearch runs the fan-out and forwards its typed events as SSE
func streamSearch(c *gin.Context, orchestrator *services.Orchestrator, origin, destination, date string) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	metrics.StreamOpened()
	defer metrics.StreamClosed()

	ctx := c.Request.Context()
	events := make(chan sse.Event, 8)
	go func() {
		defer close(events)
		// The consumer stops when the client hangs up; sends must not block
		// past that or the producer leaks with the aggregator state.
		send := func(e sse.Event) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		}
		_, err := orchestrator.Run(ctx, origin, destination, date, func(e models.SearchEvent) {
			send(sse.Event{Event: e.Name(), Data: e})
		})
		if err != nil {
			send(sse.Event{Event: "error", Data: gin.H{"error": publicError(err)}})
			metrics.CountSearch("stream", metrics.ResultError)
			return
		}
		metrics.CountSearch("stream", metrics.ResultSuccess)
	}()

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}
		if err := sse.Encode(w, event); err != nil {
			return false
		}
		return true
	})
}

// publicError maps internal errors to messages safe to expose
func publicError(err error) string {
	if errors.Is(err, models.ErrNotFound) {
		return err.Error()
	}
	var confErr *models.ConfigError
	if errors.As(err, &confErr) {
		return "provider not configured"
	}
	return "search failed"
}
