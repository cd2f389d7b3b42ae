package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"sea-travel-search/models"
)

// FanOutConcurrency caps concurrently in-flight pair searches
const FanOutConcurrency = 5

// ItinerarySearcher is the common contract of both upstream adapters
type ItinerarySearcher interface {
	Search(ctx context.Context, params models.SearchParams) ([]models.TripOption, error)
}

// Orchestrator fans a city-to-city query out over every station pair of the
// two cities, deduplicates across pairs and delivers results either as one
// aggregated response or as an incremental event stream.
type Orchestrator struct {
	directory *Directory
	searcher  ItinerarySearcher
	company   string
}

// NewOrchestrator builds an orchestrator for one provider. company filters
// which directory stations participate; empty means all.
func NewOrchestrator(directory *Directory, searcher ItinerarySearcher, company string) *Orchestrator {
	return &Orchestrator{directory: directory, searcher: searcher, company: company}
}

type stationPair struct {
	origin models.Station
	dest   models.Station
}

type pairResult struct {
	trips []models.TripOption
	err   error
}

// SearchCities runs the fan-out in batch mode: all pairs searched,
// deduplicated and sorted before one response is returned.
func (o *Orchestrator) SearchCities(ctx context.Context, originCity, destCity, date string) (*models.SearchResponse, error) {
	return o.Run(ctx, originCity, destCity, date, nil)
}

// Run executes the fan-out, calling emit (when non-nil) with typed stream
// events after every settled batch. Pair failures are collected into the
// final metadata and never fail the search; a search where every pair
// failed simply yields zero trips.
func (o *Orchestrator) Run(ctx context.Context, originCity, destCity, date string, emit func(models.SearchEvent)) (*models.SearchResponse, error) {
	origins := o.stationsFor(originCity)
	if len(origins) == 0 {
		return nil, fmt.Errorf("origin city %q: %w", originCity, models.ErrNotFound)
	}
	dests := o.stationsFor(destCity)
	if len(dests) == 0 {
		return nil, fmt.Errorf("destination city %q: %w", destCity, models.ErrNotFound)
	}

	pairs := make([]stationPair, 0, len(origins)*len(dests))
	for _, a := range origins {
		for _, b := range dests {
			pairs = append(pairs, stationPair{origin: a, dest: b})
		}
	}

	searchID := uuid.NewString()
	if emit != nil {
		emit(models.MetaEvent{SearchID: searchID, StationCombinations: len(pairs)})
	}

	agg := newTripAggregator()
	var errs []string
	totalFound := 0
	completed := 0

	// Sequential batches of FanOutConcurrency: every pair of a batch is
	// searched concurrently and the batch fully settles before the next
	// one starts, keeping progress reporting predictable.
	for start := 0; start < len(pairs); start += FanOutConcurrency {
		end := start + FanOutConcurrency
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]
		results := make([]pairResult, len(batch))

		var wg sync.WaitGroup
		for i := range batch {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p := batch[i]
				trips, err := o.searcher.Search(ctx, models.SearchParams{
					OriginID:      p.origin.ID,
					DestinationID: p.dest.ID,
					Date:          date,
					Pax:           1,
				})
				results[i] = pairResult{trips: trips, err: err}
			}(i)
		}
		wg.Wait()

		var fresh []models.TripOption
		for i, res := range results {
			completed++
			if res.err != nil {
				p := batch[i]
				errs = append(errs, fmt.Sprintf("%s -> %s: search failed", p.origin.Name, p.dest.Name))
				log.Printf("Pair search failed (%s -> %s): %v", p.origin.ID, p.dest.ID, res.err)
				continue
			}
			totalFound += len(res.trips)
			for _, t := range res.trips {
				if agg.add(t) {
					fresh = append(fresh, t)
				}
			}
		}

		if emit != nil {
			if len(fresh) > 0 {
				sortTripsByDeparture(fresh)
				emit(models.TripsEvent{Trips: fresh})
			}
			emit(models.ProgressEvent{
				CompletedPairs: completed,
				TotalPairs:     len(pairs),
				UniqueTrips:    len(agg.unique),
				TotalTrips:     totalFound,
			})
		}
	}

	unique := agg.unique
	sortTripsByDeparture(unique)

	meta := models.SearchMeta{
		StationCombinations: len(pairs),
		TotalTripsFound:     totalFound,
		UniqueTrips:         len(unique),
		Errors:              errs,
	}
	if emit != nil {
		emit(models.CompleteEvent{Meta: meta})
	}

	return &models.SearchResponse{
		Trips:           unique,
		OriginCity:      originCity,
		DestinationCity: destCity,
		Date:            date,
		SearchID:        searchID,
		Meta:            meta,
	}, nil
}

// SearchPair is the legacy single-pair path over explicit station ids.
// Upstream failures propagate directly to the caller.
func (o *Orchestrator) SearchPair(ctx context.Context, originID, destID, date string) (*models.SearchResponse, error) {
	trips, err := o.searcher.Search(ctx, models.SearchParams{
		OriginID:      originID,
		DestinationID: destID,
		Date:          date,
		Pax:           1,
	})
	if err != nil {
		return nil, err
	}

	unique := Deduplicate(trips)
	return &models.SearchResponse{
		Trips:           unique,
		OriginCity:      originID,
		DestinationCity: destID,
		Date:            date,
		SearchID:        uuid.NewString(),
		Meta: models.SearchMeta{
			StationCombinations: 1,
			TotalTripsFound:     len(trips),
			UniqueTrips:         len(unique),
		},
	}, nil
}

func (o *Orchestrator) stationsFor(city string) []models.Station {
	stations := o.directory.StationsByCity(city)
	if o.company == "" {
		return stations
	}
	var out []models.Station
	for _, s := range stations {
		if s.Company == "" || s.Company == o.company {
			out = append(out, s)
		}
	}
	return out
}

// dedupKey identifies trips considered the same offering across pairs
type dedupKey struct {
	departure string
	arrival   string
	operator  string
	amount    float64
}

func tripKey(t models.TripOption) dedupKey {
	return dedupKey{
		departure: t.DepartureSortKey(),
		arrival:   t.ArrivalDate + " " + t.ArrivalTime,
		operator:  t.Operator,
		amount:    t.Price.Amount,
	}
}

// tripAggregator collects unique trips across batches
type tripAggregator struct {
	seen   map[dedupKey]int
	unique []models.TripOption
}

func newTripAggregator() *tripAggregator {
	return &tripAggregator{seen: make(map[dedupKey]int)}
}

// add inserts a trip, keeping the higher-seat instance on duplicate keys.
// It reports whether the trip was new; a seat upgrade of an already-known
// trip is not new.
func (a *tripAggregator) add(t models.TripOption) bool {
	key := tripKey(t)
	if i, ok := a.seen[key]; ok {
		if t.AvailableSeats > a.unique[i].AvailableSeats {
			a.unique[i] = t
		}
		return false
	}
	a.seen[key] = len(a.unique)
	a.unique = append(a.unique, t)
	return true
}

// Deduplicate collapses trips sharing (departure, arrival, operator, price
// amount). The instance with strictly more available seats wins; ties keep
// the first seen. Idempotent.
func Deduplicate(trips []models.TripOption) []models.TripOption {
	agg := newTripAggregator()
	for _, t := range trips {
		agg.add(t)
	}
	return agg.unique
}
