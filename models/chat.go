package models

// ChatRequest is an incoming chat message with prior turns
type ChatRequest struct {
	Message             string           `json:"message" binding:"required"`
	ConversationHistory []HistoryMessage `json:"conversationHistory"`
}

// HistoryMessage is one prior conversation turn
type HistoryMessage struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// Article is a scraped travel-content search hit
type Article struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}
