package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"sea-travel-search/metrics"
	"sea-travel-search/models"
)

// TwelveGoClient is the POI-keyed itinerary adapter (provider A)
type TwelveGoClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTwelveGoClient constructs the provider A adapter
func NewTwelveGoClient(baseURL, apiKey string) *TwelveGoClient {
	return &TwelveGoClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Provider A wire types: parallel collections keyed by id, with itineraries
// referencing segments and segments referencing vehicles and stations.
type twelveGoSearchResponse struct {
	Vehicles    map[string]twelveGoVehicle `json:"vehicles"`
	Segments    map[string]twelveGoSegment `json:"segments"`
	Stations    map[string]twelveGoStation `json:"stations"`
	Itineraries []twelveGoItinerary        `json:"itineraries"`
}

type twelveGoVehicle struct {
	Name      string   `json:"name"`
	ClassTags []string `json:"class_tags"`
}

type twelveGoSegment struct {
	DepStationID string `json:"dep_station_id"`
	ArrStationID string `json:"arr_station_id"`
	DepTime      string `json:"dep_time"` // "2006-01-02 15:04:05"
	ArrTime      string `json:"arr_time"`
	Duration     string `json:"duration"` // ISO-8601, PTnHnM
	VehicleID    string `json:"vehicle_id"`
	OperatorName string `json:"operator_name"`
	OperatorLogo string `json:"operator_logo"`
}

type twelveGoStation struct {
	Name string `json:"name"`
	City string `json:"city"`
}

type twelveGoItinerary struct {
	ID           string          `json:"id"`
	SegmentIDs   []string        `json:"segment_ids"`
	Price        twelveGoPricing `json:"price"`
	Seats        int             `json:"seats"`
	BookingToken string          `json:"booking_token"`
	RedirectURL  string          `json:"redirect_url"`
	Amenities    []string        `json:"amenities"`
}

type twelveGoPricing struct {
	Gross twelveGoAmount `json:"gross"`
	Net   twelveGoAmount `json:"net"`
}

type twelveGoAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type twelveGoPOI struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// Search runs one POI-to-POI itinerary search and normalizes the response
func (c *TwelveGoClient) Search(ctx context.Context, params models.SearchParams) ([]models.TripOption, error) {
	if c.apiKey == "" {
		return nil, &models.ConfigError{Missing: "TWELVEGO_API_KEY"}
	}

	q := url.Values{}
	q.Set("origin", params.OriginID)
	q.Set("destination", params.DestinationID)
	q.Set("date", params.Date)
	if params.Pax > 0 {
		q.Set("people", fmt.Sprintf("%d", params.Pax))
	}

	var payload twelveGoSearchResponse
	if err := c.getJSON(ctx, "/search?"+q.Encode(), &payload); err != nil {
		return nil, err
	}

	trips := make([]models.TripOption, 0, len(payload.Itineraries))
	for _, it := range payload.Itineraries {
		trip, ok := c.normalizeItinerary(it, &payload)
		if !ok {
			continue
		}
		trips = append(trips, trip)
	}

	sortTripsByDeparture(trips)
	return trips, nil
}

// ListPOIs fetches the full provider POI list (tens of thousands of records)
func (c *TwelveGoClient) ListPOIs(ctx context.Context) ([]models.POI, error) {
	if c.apiKey == "" {
		return nil, &models.ConfigError{Missing: "TWELVEGO_API_KEY"}
	}

	var payload []twelveGoPOI
	if err := c.getJSON(ctx, "/pois", &payload); err != nil {
		return nil, err
	}

	pois := make([]models.POI, 0, len(payload))
	for _, p := range payload {
		pois = append(pois, models.POI{ID: p.ID, Name: p.Name, Country: p.Country})
	}
	return pois, nil
}

func (c *TwelveGoClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveUpstream("12go", time.Since(start), err)
	if err != nil {
		return &models.UpstreamError{Provider: "12go", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &models.UpstreamError{Provider: "12go", Status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &models.UpstreamError{Provider: "12go", Err: fmt.Errorf("malformed response: %w", err)}
	}
	return nil
}

// normalizeItinerary reconstructs the ordered segment chain of one itinerary
// and converts it to the canonical trip shape. Itineraries referencing
// unknown segments are dropped.
func (c *TwelveGoClient) normalizeItinerary(it twelveGoItinerary, payload *twelveGoSearchResponse) (models.TripOption, bool) {
	if len(it.SegmentIDs) == 0 {
		return models.TripOption{}, false
	}

	segments := make([]models.TripSegment, 0, len(it.SegmentIDs))
	totalMinutes := 0
	var firstSeg, lastSeg twelveGoSegment

	for i, id := range it.SegmentIDs {
		seg, ok := payload.Segments[id]
		if !ok {
			return models.TripOption{}, false
		}
		if i == 0 {
			firstSeg = seg
		}
		lastSeg = seg

		minutes, err := parseISODuration(seg.Duration)
		if err != nil {
			minutes = segmentMinutesFromTimes(seg)
		}
		totalMinutes += minutes

		vehicle := payload.Vehicles[seg.VehicleID]
		segments = append(segments, models.TripSegment{
			Origin:        payload.Stations[seg.DepStationID].Name,
			Destination:   payload.Stations[seg.ArrStationID].Name,
			DepartureTime: timeOfDay(seg.DepTime),
			ArrivalTime:   timeOfDay(seg.ArrTime),
			VehicleType:   vehicleTypeFromTags(vehicle.ClassTags),
			Operator:      seg.OperatorName,
		})
	}

	depStation := payload.Stations[firstSeg.DepStationID]
	arrStation := payload.Stations[lastSeg.ArrStationID]

	trip := models.TripOption{
		ID:              it.ID,
		BookingToken:    it.BookingToken,
		DepartureTime:   timeOfDay(firstSeg.DepTime),
		ArrivalTime:     timeOfDay(lastSeg.ArrTime),
		DepartureDate:   dateOf(firstSeg.DepTime),
		ArrivalDate:     dateOf(lastSeg.ArrTime),
		DurationMinutes: totalMinutes,
		// Display price is the gross, fee-inclusive amount
		Price: models.Price{
			Amount:   it.Price.Gross.Amount,
			Currency: it.Price.Gross.Currency,
		},
		Operator:       firstSeg.OperatorName,
		OperatorLogo:   firstSeg.OperatorLogo,
		VehicleType:    segments[0].VehicleType,
		AvailableSeats: it.Seats,
		Amenities:      it.Amenities,
		Segments:       segments,
		RedirectURL:    it.RedirectURL,
		Origin: models.TripStop{
			ID:   firstSeg.DepStationID,
			Name: depStation.Name,
			City: depStation.City,
		},
		Destination: models.TripStop{
			ID:   lastSeg.ArrStationID,
			Name: arrStation.Name,
			City: arrStation.City,
		},
	}
	return trip, true
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?$`)

// parseISODuration converts a PTnHnM duration to whole minutes
func parseISODuration(s string) (int, error) {
	m := isoDurationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, fmt.Errorf("invalid ISO-8601 duration: %q", s)
	}
	minutes := 0
	if m[1] != "" {
		var hours int
		fmt.Sscanf(m[1], "%d", &hours)
		minutes += hours * 60
	}
	if m[2] != "" {
		var mins int
		fmt.Sscanf(m[2], "%d", &mins)
		minutes += mins
	}
	return minutes, nil
}

// segmentMinutesFromTimes recovers a segment duration from its timestamps
// when the duration field is missing or unparseable
func segmentMinutesFromTimes(seg twelveGoSegment) int {
	dep, err1 := time.Parse("2006-01-02 15:04:05", seg.DepTime)
	arr, err2 := time.Parse("2006-01-02 15:04:05", seg.ArrTime)
	if err1 != nil || err2 != nil {
		return 0
	}
	minutes := int(arr.Sub(dep).Minutes())
	if minutes < 0 {
		return 0
	}
	return minutes
}

// vehicleTypeFromTags maps provider transport-type tags to a vehicle type.
// Ferry and train tags win over the bus default.
func vehicleTypeFromTags(tags []string) string {
	for _, tag := range tags {
		t := strings.ToLower(tag)
		switch {
		case strings.Contains(t, "ferry"), strings.Contains(t, "boat"), strings.Contains(t, "catamaran"):
			return models.VehicleFerry
		case strings.Contains(t, "train"), strings.Contains(t, "rail"):
			return models.VehicleTrain
		}
	}
	return models.VehicleBus
}

// timeOfDay extracts "15:04" from a "2006-01-02 15:04:05" timestamp
func timeOfDay(ts string) string {
	if t, err := time.Parse("2006-01-02 15:04:05", ts); err == nil {
		return t.Format("15:04")
	}
	return ts
}

// dateOf extracts "2006-01-02" from a "2006-01-02 15:04:05" timestamp
func dateOf(ts string) string {
	if t, err := time.Parse("2006-01-02 15:04:05", ts); err == nil {
		return t.Format("2006-01-02")
	}
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
