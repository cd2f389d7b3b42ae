package models

// Station represents a physical bus/ferry/train station
type Station struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	City     string  `json:"city"`
	Province string  `json:"province"`
	Country  string  `json:"country"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Company  string  `json:"company"`
}

// City is a derived aggregate of stations sharing a city name
type City struct {
	Name         string    `json:"name"`
	Province     string    `json:"province"`
	Country      string    `json:"country"`
	StationCount int       `json:"station_count"`
	Stations     []Station `json:"stations"`
}

// POI is a city-level identifier from the itinerary provider, grouping stations
type POI struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Country  string    `json:"country"`
	Stations []Station `json:"stations,omitempty"`
}

// Confidence levels for place name resolution
const (
	ConfidenceExact      = "exact"
	ConfidenceNormalized = "normalized"
	ConfidencePartial    = "partial"
)

// POIMatch is the result of resolving a free-text place name to a POI
type POIMatch struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Confidence string `json:"confidence"`
}

// StationMatch is a scored directory search hit
type StationMatch struct {
	Station Station `json:"station"`
	Score   int     `json:"score"`
}

// CityMatch is a scored city-mode directory search hit
type CityMatch struct {
	City  City `json:"city"`
	Score int  `json:"score"`
}

// Place is a geocoding-backed autocomplete candidate
type Place struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Region  string  `json:"region,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
