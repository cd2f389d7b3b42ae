package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sea-travel-search/metrics"
	"sea-travel-search/models"
)

// Southeast Asia bounding box used to bias autocomplete results
const seaBoundingBox = "91.0,-11.0,141.0,28.5"

const geocodeLimit = 8

// Geocoder is the Mapbox-backed place autocomplete client
type Geocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeocoder constructs a geocoder; the API key may be empty and is
// checked at first use.
func NewGeocoder(baseURL, apiKey string) *Geocoder {
	return &Geocoder{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// mapboxResponse is the subset of the forward-geocoding payload we read
type mapboxResponse struct {
	Features []struct {
		ID        string     `json:"id"`
		Text      string     `json:"text"`
		PlaceName string     `json:"place_name"`
		Center    []float64  `json:"center"`
		Context   []mbboxCtx `json:"context"`
	} `json:"features"`
}

type mbboxCtx struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Autocomplete returns up to 8 place candidates biased to Southeast Asia
func (g *Geocoder) Autocomplete(ctx context.Context, query string) ([]models.Place, error) {
	if g.apiKey == "" {
		return nil, &models.ConfigError{Missing: "MAPBOX_API_KEY"}
	}

	params := url.Values{}
	params.Set("access_token", g.apiKey)
	params.Set("bbox", seaBoundingBox)
	params.Set("limit", fmt.Sprintf("%d", geocodeLimit))
	params.Set("types", "place,locality")

	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		g.baseURL, url.PathEscape(query), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	metrics.ObserveUpstream("mapbox", time.Since(start), err)
	if err != nil {
		return nil, &models.UpstreamError{Provider: "mapbox", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &models.UpstreamError{Provider: "mapbox", Status: resp.StatusCode}
	}

	var payload mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &models.UpstreamError{Provider: "mapbox", Err: err}
	}

	places := make([]models.Place, 0, len(payload.Features))
	for _, f := range payload.Features {
		place := models.Place{
			ID:   f.ID,
			Name: f.Text,
		}
		if len(f.Center) == 2 {
			place.Lon = f.Center[0]
			place.Lat = f.Center[1]
		}
		// Region and country live in the hierarchical context array
		for _, c := range f.Context {
			switch {
			case strings.HasPrefix(c.ID, "region."):
				place.Region = c.Text
			case strings.HasPrefix(c.ID, "country."):
				place.Country = c.Text
			}
		}
		places = append(places, place)
	}

	return places, nil
}
