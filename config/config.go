package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// LLM
	AnthropicAPIKey string
	AnthropicModel  string

	// Itinerary provider A (POI-keyed)
	TwelveGoAPIKey  string
	TwelveGoBaseURL string

	// Itinerary provider B (legacy, mTLS)
	P10BaseURL    string
	P10CertFile   string
	P10KeyFile    string
	P10BookingURL string

	// Geocoding
	MapboxAPIKey string
	MapboxURL    string

	// Travel content
	ContentBaseURL string

	// Data files
	StationsFile string
	POICacheFile string

	// Server
	ServerPort string
}

// Load loads configuration from environment variables
func Load() *Config {
	// Try to load .env file (optional for local development)
	_ = godotenv.Load()

	config := &Config{
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),

		TwelveGoAPIKey:  os.Getenv("TWELVEGO_API_KEY"),
		TwelveGoBaseURL: getEnv("TWELVEGO_BASE_URL", "https://api.12go.asia/v3"),

		P10BaseURL:    os.Getenv("P10_BASE_URL"),
		P10CertFile:   os.Getenv("P10_CERT_FILE"),
		P10KeyFile:    os.Getenv("P10_KEY_FILE"),
		P10BookingURL: getEnv("P10_BOOKING_URL", "https://booking.passera.example"),

		MapboxAPIKey: os.Getenv("MAPBOX_API_KEY"),
		MapboxURL:    getEnv("MAPBOX_URL", "https://api.mapbox.com"),

		ContentBaseURL: getEnv("CONTENT_BASE_URL", "https://www.thailandia-blog.example"),

		StationsFile: getEnv("STATIONS_FILE", "data/stations.json"),
		POICacheFile: getEnv("POI_CACHE_FILE", "data/poi_cache.json"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
	}

	// Missing credentials only warn here; the owning service fails at first use
	if config.AnthropicAPIKey == "" {
		log.Println("WARNING: ANTHROPIC_API_KEY not set, chat will be unavailable")
	}
	if config.TwelveGoAPIKey == "" {
		log.Println("WARNING: TWELVEGO_API_KEY not set")
	}
	if config.MapboxAPIKey == "" {
		log.Println("WARNING: MAPBOX_API_KEY not set, place autocomplete will be unavailable")
	}
	if config.P10CertFile == "" || config.P10KeyFile == "" {
		log.Println("WARNING: P10 client certificate not configured, legacy provider disabled")
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
