package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"sea-travel-search/metrics"
	"sea-travel-search/models"
)

// maxToolRounds bounds the tool-calling loop per chat turn
const maxToolRounds = 6

// anthropicBaseURL is a package var so tests can point at a stub server
var anthropicBaseURL = "https://api.anthropic.com"

// ChatEmitter writes one typed SSE event to the client
type ChatEmitter func(event string, data interface{})

// Anthropic Messages API wire types
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []anthropicBlock
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicBlock `json:"content"`
	StopReason string           `json:"stop_reason"`
}

// Tool result kinds with their declared merge strategy: trips replace the
// accumulated set, articles append across calls. Repeated searches refine
// trips; multiple destinations add articles.
type toolResultKind int

const (
	toolResultText toolResultKind = iota
	toolResultTrips
	toolResultArticles
)

type toolResult struct {
	kind     toolResultKind
	payload  string // JSON fed back to the model
	trips    []models.TripOption
	articles []models.Article
}

// chatAccumulator is the per-turn state the reducer folds tool results into
type chatAccumulator struct {
	trips    []models.TripOption
	articles []models.Article
}

func (acc *chatAccumulator) apply(res toolResult) {
	switch res.kind {
	case toolResultTrips:
		acc.trips = res.trips
	case toolResultArticles:
		acc.articles = append(acc.articles, res.articles...)
	}
}

// StreamChat drives the LLM through the tool-calling loop and emits the
// final answer, trips and articles as typed events. The request context is
// threaded through every model and tool call, so a client disconnect
// abandons in-flight upstream work.
func StreamChat(ctx context.Context, req models.ChatRequest, emit ChatEmitter) error {
	if cfg == nil || cfg.AnthropicAPIKey == "" {
		return &models.ConfigError{Missing: "ANTHROPIC_API_KEY"}
	}

	messages := make([]anthropicMessage, 0, len(req.ConversationHistory)+1)
	for _, h := range req.ConversationHistory {
		if h.Role == "user" || h.Role == "assistant" {
			messages = append(messages, anthropicMessage{Role: h.Role, Content: h.Content})
		}
	}
	messages = append(messages, anthropicMessage{Role: "user", Content: req.Message})

	var acc chatAccumulator
	finalText := ""
	lastRoundText := ""

	for round := 0; round < maxToolRounds; round++ {
		resp, err := callAnthropic(ctx, messages)
		if err != nil {
			return err
		}

		text := collectText(resp.Content)
		if text != "" {
			lastRoundText = text
		}

		if resp.StopReason != "tool_use" {
			finalText = text
			break
		}

		toolUses := collectToolUses(resp.Content)
		if len(toolUses) == 0 {
			// Defensive exit: tool_use stop reason without a tool_use block
			finalText = text
			break
		}

		messages = append(messages, anthropicMessage{Role: "assistant", Content: resp.Content})

		var resultBlocks []anthropicBlock
		for _, block := range toolUses {
			if err := ctx.Err(); err != nil {
				return err
			}
			metrics.CountToolCall(block.Name)

			res, err := executeTool(ctx, block.Name, block.Input)
			if err != nil {
				// Tool errors go back to the model, never abort the turn
				log.Printf("Tool %s failed: %v", block.Name, err)
				resultBlocks = append(resultBlocks, anthropicBlock{
					Type:      "tool_result",
					ToolUseID: block.ID,
					Content:   fmt.Sprintf("The tool failed: %v. Tell the user and suggest an alternative.", err),
					IsError:   true,
				})
				continue
			}
			acc.apply(res)
			resultBlocks = append(resultBlocks, anthropicBlock{
				Type:      "tool_result",
				ToolUseID: block.ID,
				Content:   res.payload,
			})
		}
		messages = append(messages, anthropicMessage{Role: "user", Content: resultBlocks})
	}

	// The model can spend the whole round budget on tool calls; keep its
	// last commentary rather than answering with nothing
	if finalText == "" {
		finalText = lastRoundText
	}
	if finalText == "" {
		finalText = "I couldn't finish answering that. Please try asking again."
	}

	emit("text", map[string]string{"text": finalText})
	if len(acc.trips) > 0 {
		trips := acc.trips
		if len(trips) > ToolPageSize {
			trips = trips[:ToolPageSize]
		}
		emit("trips", trips)
	}
	if len(acc.articles) > 0 {
		articles := acc.articles
		if len(articles) > 3 {
			articles = articles[:3]
		}
		emit("articles", articles)
	}
	return nil
}

// callAnthropic calls the Anthropic Messages API with the chat tools
func callAnthropic(ctx context.Context, messages []anthropicMessage) (*anthropicResponse, error) {
	reqBody := anthropicRequest{
		Model:     cfg.AnthropicModel,
		MaxTokens: 2048,
		System:    buildSystemPrompt(),
		Messages:  messages,
		Tools:     chatToolDefinitions(),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicBaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", cfg.AnthropicAPIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	client := &http.Client{Timeout: 60 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	metrics.ObserveUpstream("anthropic", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic API error: %s", string(bodyBytes))
	}

	var result anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func collectText(blocks []anthropicBlock) string {
	text := ""
	for _, b := range blocks {
		if b.Type == "text" {
			if text != "" {
				text += "\n"
			}
			text += b.Text
		}
	}
	return text
}

func collectToolUses(blocks []anthropicBlock) []anthropicBlock {
	var uses []anthropicBlock
	for _, b := range blocks {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

// buildSystemPrompt creates the assistant system prompt
func buildSystemPrompt() string {
	currentDate := time.Now().Format("2006-01-02")

	return fmt.Sprintf(`You are a helpful travel assistant for ground and sea transportation in Southeast Asia (buses, ferries and trains).

Current date: %s

Your role:
1. Help users find bus, ferry and train trips between cities
2. Recommend routes and explain options (duration, price, operator)
3. Share relevant travel articles about destinations
4. Be friendly, conversational and concise

Important guidelines:
- Ask for clarification when the origin, destination or date is missing
- Dates must be in YYYY-MM-DD format; resolve relative dates yourself
- Users often write island names loosely ("Koh Phangan", "ko phangan") - pass them through as written
- When a search returns nothing, say so plainly and suggest nearby alternatives
- Use the tools whenever you need real data; never invent trips or prices

Available tools:
- search_trips: search bus/ferry/train trips between two cities
- find_stations: look up stations or cities in the directory
- search_travel_content: find travel articles about a destination`, currentDate)
}

// chatToolDefinitions declares the tools exposed to the model
func chatToolDefinitions() []anthropicTool {
	return []anthropicTool{
		{
			Name:        "search_trips",
			Description: "Search bus, ferry and train trips between two cities on a date. Returns up to 3 trips per call; pass skip_count to page through more.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"origin": map[string]interface{}{
						"type":        "string",
						"description": "Origin city name (e.g. 'Bangkok')",
					},
					"destination": map[string]interface{}{
						"type":        "string",
						"description": "Destination city name (e.g. 'Phuket')",
					},
					"date": map[string]interface{}{
						"type":        "string",
						"description": "Travel date in YYYY-MM-DD format",
					},
					"vehicle_types": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string", "enum": []string{"bus", "ferry", "train"}},
						"description": "Restrict to these vehicle types; omit for all",
					},
					"max_price": map[string]interface{}{
						"type":        "number",
						"description": "Maximum price in the local currency",
					},
					"skip_count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of already-shown trips to skip (pagination)",
					},
				},
				"required": []string{"origin", "destination", "date"},
			},
		},
		{
			Name:        "find_stations",
			Description: "Fuzzy-search the station directory by station or city name",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Station or city name to look up",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"station", "city"},
						"description": "Search stations or whole cities (default city)",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "search_travel_content",
			Description: "Search travel blog articles about a destination",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Destination or topic to search articles for",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// executeTool dispatches one tool call
func executeTool(ctx context.Context, name string, input json.RawMessage) (toolResult, error) {
	log.Printf("Executing tool: %s with input: %s", name, string(input))

	switch name {
	case "search_trips":
		return executeSearchTrips(ctx, input)
	case "find_stations":
		return executeFindStations(ctx, input)
	case "search_travel_content":
		return executeSearchContent(ctx, input)
	default:
		return toolResult{}, fmt.Errorf("unknown tool: %s", name)
	}
}

type searchTripsInput struct {
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	Date         string   `json:"date"`
	VehicleTypes []string `json:"vehicle_types"`
	MaxPrice     *float64 `json:"max_price"`
	SkipCount    int      `json:"skip_count"`
}

func executeSearchTrips(ctx context.Context, input json.RawMessage) (toolResult, error) {
	var in searchTripsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return toolResult{}, fmt.Errorf("invalid search_trips input: %w", err)
	}
	if !dateRe.MatchString(in.Date) {
		return toolResult{}, fmt.Errorf("date must be YYYY-MM-DD, got %q", in.Date)
	}

	orchestrator, err := OrchestratorFor("")
	if err != nil {
		return toolResult{}, err
	}

	resp, err := orchestrator.SearchCities(ctx, in.Origin, in.Destination, in.Date)
	if err != nil && errors.Is(err, models.ErrNotFound) {
		// Place outside the bundled station set: fall back to POI resolution
		resp, err = searchByPOI(ctx, orchestrator, in)
	}
	if err != nil {
		return toolResult{}, err
	}

	trips := ApplyFilters(resp.Trips, Filters{
		PriceMax:     in.MaxPrice,
		VehicleTypes: in.VehicleTypes,
	})
	page := PageTrips(trips, in.SkipCount)

	payload, err := json.Marshal(map[string]interface{}{
		"trips":       page,
		"total_trips": len(trips),
		"skip_count":  in.SkipCount,
		"page_size":   ToolPageSize,
	})
	if err != nil {
		return toolResult{}, err
	}

	return toolResult{kind: toolResultTrips, payload: string(payload), trips: page}, nil
}

// searchByPOI resolves free-text place names to provider POI ids and runs a
// single-pair search when the directory has no stations for them
func searchByPOI(ctx context.Context, orchestrator *Orchestrator, in searchTripsInput) (*models.SearchResponse, error) {
	origin, err := defaultDirectory.TranslateToPOI(ctx, in.Origin)
	if err != nil {
		return nil, err
	}
	dest, err := defaultDirectory.TranslateToPOI(ctx, in.Destination)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, fmt.Errorf("unknown place: %s", in.Origin)
	}
	if dest == nil {
		return nil, fmt.Errorf("unknown place: %s", in.Destination)
	}
	return orchestrator.SearchPair(ctx, origin.ID, dest.ID, in.Date)
}

type findStationsInput struct {
	Query string `json:"query"`
	Mode  string `json:"mode"`
}

func executeFindStations(_ context.Context, input json.RawMessage) (toolResult, error) {
	var in findStationsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return toolResult{}, fmt.Errorf("invalid find_stations input: %w", err)
	}

	var payload []byte
	var err error
	if in.Mode == SearchModeStation {
		payload, err = json.Marshal(defaultDirectory.SearchStations(in.Query, 5))
	} else {
		payload, err = json.Marshal(defaultDirectory.SearchCities(in.Query, 5))
	}
	if err != nil {
		return toolResult{}, err
	}

	return toolResult{kind: toolResultText, payload: string(payload)}, nil
}

type searchContentInput struct {
	Query string `json:"query"`
}

func executeSearchContent(ctx context.Context, input json.RawMessage) (toolResult, error) {
	var in searchContentInput
	if err := json.Unmarshal(input, &in); err != nil {
		return toolResult{}, fmt.Errorf("invalid search_travel_content input: %w", err)
	}

	articles, err := defaultContent.SearchArticles(ctx, in.Query, 3)
	if err != nil {
		return toolResult{}, err
	}

	payload, err := json.Marshal(articles)
	if err != nil {
		return toolResult{}, err
	}
	return toolResult{kind: toolResultArticles, payload: string(payload), articles: articles}, nil
}
