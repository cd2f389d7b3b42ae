package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sea-travel-search/metrics"
	"sea-travel-search/models"
)

// P10Client is the station-keyed legacy itinerary adapter (provider B).
// The upstream authenticates with a client certificate; one keep-alive
// transport is shared across requests to avoid repeated TLS handshakes.
type P10Client struct {
	baseURL    string
	bookingURL string
	client     *http.Client
}

// NewP10Client loads the client certificate and builds the shared transport
func NewP10Client(baseURL, bookingURL, certFile, keyFile string) (*P10Client, error) {
	if certFile == "" || keyFile == "" {
		return nil, &models.ConfigError{Missing: "P10 client certificate"}
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading p10 client certificate: %w", err)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
		IdleConnTimeout:     90 * time.Second,
	}

	return &P10Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bookingURL: strings.TrimRight(bookingURL, "/"),
		client:     &http.Client{Transport: transport, Timeout: 30 * time.Second},
	}, nil
}

// newP10ClientWithHTTP is the test seam bypassing the mTLS transport
func newP10ClientWithHTTP(baseURL, bookingURL string, client *http.Client) *P10Client {
	return &P10Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bookingURL: strings.TrimRight(bookingURL, "/"),
		client:     client,
	}
}

// Provider B wire types
type p10SearchRequest struct {
	SearchRequests []p10PairRequest `json:"search_requests"`
}

type p10PairRequest struct {
	OriginStopID      string `json:"origin_stop_id"`
	DestinationStopID string `json:"destination_stop_id"`
	ServiceDate       string `json:"service_date"`
	Passengers        int    `json:"passengers"`
}

type p10SearchResponse struct {
	ItineraryResponses []p10ItineraryResponse `json:"itinerary_responses"`
}

type p10ItineraryResponse struct {
	OriginStopID      string           `json:"origin_stop_id"`
	DestinationStopID string           `json:"destination_stop_id"`
	TripOptionSet     p10TripOptionSet `json:"trip_option_set"`
}

type p10TripOptionSet struct {
	TripOptions []p10TripOption `json:"trip_options"`
}

type p10TripOption struct {
	ID             string   `json:"id"`
	BookingToken   string   `json:"booking_token"`
	BoardingTime   string   `json:"boarding_time"` // RFC 3339
	ArrivalTime    string   `json:"arrival_time"`
	OperatorName   string   `json:"operator_name"`
	OperatorLogo   string   `json:"operator_logo_url"`
	AvailableSeats int      `json:"available_seats"`
	Price          p10Money `json:"price"`
	Amenities      []string `json:"amenities"`
	Legs           []p10Leg `json:"legs"`
}

// p10Money is the provider's fixed-point money pair
type p10Money struct {
	Units        int64  `json:"units"`
	Nanos        int32  `json:"nanos"`
	CurrencyCode string `json:"currency_code"`
}

func (m p10Money) Amount() float64 {
	return float64(m.Units) + float64(m.Nanos)/1e9
}

type p10Leg struct {
	FromStopName string `json:"from_stop_name"`
	ToStopName   string `json:"to_stop_name"`
	BoardingTime string `json:"boarding_time"`
	ArrivalTime  string `json:"arrival_time"`
	OperatorName string `json:"operator_name"`
}

// Search runs one station-pair bulk search and normalizes the response
func (c *P10Client) Search(ctx context.Context, params models.SearchParams) ([]models.TripOption, error) {
	body, err := json.Marshal(p10SearchRequest{
		SearchRequests: []p10PairRequest{{
			OriginStopID:      params.OriginID,
			DestinationStopID: params.DestinationID,
			ServiceDate:       params.Date,
			Passengers:        maxInt(params.Pax, 1),
		}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/itineraries:bulkSearch", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveUpstream("p10", time.Since(start), err)
	if err != nil {
		return nil, &models.UpstreamError{Provider: "p10", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &models.UpstreamError{Provider: "p10", Status: resp.StatusCode}
	}

	var payload p10SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &models.UpstreamError{Provider: "p10", Err: fmt.Errorf("malformed response: %w", err)}
	}

	var trips []models.TripOption
	for _, ir := range payload.ItineraryResponses {
		for _, opt := range ir.TripOptionSet.TripOptions {
			trip, ok := c.normalizeOption(opt, ir.OriginStopID, ir.DestinationStopID, params.Date)
			if !ok {
				continue
			}
			trips = append(trips, trip)
		}
	}

	sortTripsByDeparture(trips)
	return trips, nil
}

// normalizeOption converts one provider trip option to the canonical shape.
// Options whose computed price is not positive are dropped.
func (c *P10Client) normalizeOption(opt p10TripOption, originID, destID, date string) (models.TripOption, bool) {
	amount := opt.Price.Amount()
	if amount <= 0 {
		return models.TripOption{}, false
	}

	boarding, err := time.Parse(time.RFC3339, opt.BoardingTime)
	if err != nil {
		return models.TripOption{}, false
	}
	arrival, err := time.Parse(time.RFC3339, opt.ArrivalTime)
	if err != nil {
		return models.TripOption{}, false
	}
	minutes := int(arrival.Sub(boarding).Minutes())
	if minutes < 0 {
		return models.TripOption{}, false
	}

	vehicleType := vehicleTypeFromOperator(opt.OperatorName)

	segments := make([]models.TripSegment, 0, len(opt.Legs))
	for _, leg := range opt.Legs {
		segments = append(segments, models.TripSegment{
			Origin:        leg.FromStopName,
			Destination:   leg.ToStopName,
			DepartureTime: rfc3339TimeOfDay(leg.BoardingTime),
			ArrivalTime:   rfc3339TimeOfDay(leg.ArrivalTime),
			VehicleType:   vehicleTypeFromOperator(leg.OperatorName),
			Operator:      leg.OperatorName,
		})
	}
	if len(segments) == 0 {
		segments = append(segments, models.TripSegment{
			Origin:        originID,
			Destination:   destID,
			DepartureTime: boarding.Format("15:04"),
			ArrivalTime:   arrival.Format("15:04"),
			VehicleType:   vehicleType,
			Operator:      opt.OperatorName,
		})
	}

	trip := models.TripOption{
		ID:              opt.ID,
		BookingToken:    opt.BookingToken,
		DepartureTime:   boarding.Format("15:04"),
		ArrivalTime:     arrival.Format("15:04"),
		DepartureDate:   boarding.Format("2006-01-02"),
		ArrivalDate:     arrival.Format("2006-01-02"),
		DurationMinutes: minutes,
		Price:           models.Price{Amount: amount, Currency: opt.Price.CurrencyCode},
		Operator:        opt.OperatorName,
		OperatorLogo:    opt.OperatorLogo,
		VehicleType:     vehicleType,
		AvailableSeats:  opt.AvailableSeats,
		Amenities:       opt.Amenities,
		Segments:        segments,
		RedirectURL:     c.redirectURL(opt, originID, destID),
		Origin:          models.TripStop{ID: originID, Name: originID},
		Destination:     models.TripStop{ID: destID, Name: destID},
	}
	return trip, true
}

// redirectURL builds the provider booking deep link. Provider quirk: every
// query value except the booking token must be wrapped in a single-element
// JSON array.
func (c *P10Client) redirectURL(opt p10TripOption, originID, destID string) string {
	boarding, _ := time.Parse(time.RFC3339, opt.BoardingTime)

	q := url.Values{}
	q.Set("booking_token", opt.BookingToken)
	q.Set("origin_stop_id", jsonArrayValue(originID))
	q.Set("destination_stop_id", jsonArrayValue(destID))
	q.Set("service_date", jsonArrayValue(boarding.Format("20060102")))
	q.Set("boarding_time", jsonArrayValue(opt.BoardingTime))
	q.Set("arrival_time", jsonArrayValue(opt.ArrivalTime))

	return c.bookingURL + "/booking?" + q.Encode()
}

func jsonArrayValue(v string) string {
	b, _ := json.Marshal([]string{v})
	return string(b)
}

// vehicleTypeFromOperator infers the vehicle type from the operator name.
// The legacy payload carries no structured transport-type tag.
func vehicleTypeFromOperator(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "ferry"), strings.Contains(n, "boat"),
		strings.Contains(n, "marine"), strings.Contains(n, "catamaran"),
		strings.Contains(n, "speedboat"):
		return models.VehicleFerry
	case strings.Contains(n, "railway"), strings.Contains(n, "train"),
		strings.Contains(n, "rail"):
		return models.VehicleTrain
	default:
		return models.VehicleBus
	}
}

func rfc3339TimeOfDay(ts string) string {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.Format("15:04")
	}
	return ts
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
