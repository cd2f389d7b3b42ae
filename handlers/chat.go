package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"sea-travel-search/metrics"
	"sea-travel-search/models"
	"sea-travel-search/services"
)

// Chat drives one assistant turn and streams the answer as SSE events
// (text, trips, articles, error) terminated by a [DONE] sentinel
func Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Chat request: %q (%d history messages)", req.Message, len(req.ConversationHistory))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	metrics.StreamOpened()
	defer metrics.StreamClosed()

	emit := func(event string, data interface{}) {
		if err := sse.Encode(c.Writer, sse.Event{Event: event, Data: data}); err != nil {
			return
		}
		c.Writer.Flush()
	}

	if err := services.StreamChat(c.Request.Context(), req, emit); err != nil {
		log.Printf("Chat turn failed: %v", err)
		emit("error", gin.H{"error": "I'm sorry, I encountered an error processing your request. Please try again."})
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	c.Writer.Flush()
}
