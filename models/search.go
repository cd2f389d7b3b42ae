package models

// SearchMeta summarizes a fan-out search
type SearchMeta struct {
	StationCombinations int      `json:"station_combinations"`
	TotalTripsFound     int      `json:"total_trips_found"`
	UniqueTrips         int      `json:"unique_trips"`
	Errors              []string `json:"errors,omitempty"`
}

// SearchResponse is the non-streaming search result envelope
type SearchResponse struct {
	Trips           []TripOption `json:"trips"`
	OriginCity      string       `json:"origin_city"`
	DestinationCity string       `json:"destination_city"`
	Date            string       `json:"date"`
	SearchID        string       `json:"search_id"`
	Meta            SearchMeta   `json:"meta"`
}

// SearchEvent is a typed streaming search event. Implementations are the
// wire-level SSE event payloads; Name is the SSE event name.
type SearchEvent interface {
	Name() string
}

// MetaEvent opens a stream with the pair count
type MetaEvent struct {
	SearchID            string `json:"search_id"`
	StationCombinations int    `json:"station_combinations"`
}

// TripsEvent carries trips newly discovered by one fan-out batch, sorted by
// departure time. Additive: consumers append to prior state.
type TripsEvent struct {
	Trips []TripOption `json:"trips"`
}

// ProgressEvent reports fan-out completion counters
type ProgressEvent struct {
	CompletedPairs int `json:"completed_pairs"`
	TotalPairs     int `json:"total_pairs"`
	UniqueTrips    int `json:"unique_trips"`
	TotalTrips     int `json:"total_trips"`
}

// CompleteEvent closes a stream with aggregate metadata
type CompleteEvent struct {
	Meta SearchMeta `json:"meta"`
}

func (MetaEvent) Name() string     { return "meta" }
func (TripsEvent) Name() string    { return "trips" }
func (ProgressEvent) Name() string { return "progress" }
func (CompleteEvent) Name() string { return "complete" }
