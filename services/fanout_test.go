package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sea-travel-search/models"
)

func fanoutDirectory() *Directory {
	return NewDirectory([]models.Station{
		{ID: "BKK-1", Name: "Mo Chit", City: "Bangkok", Company: "12go"},
		{ID: "BKK-2", Name: "Ekkamai", City: "Bangkok", Company: "12go"},
		{ID: "BKK-3", Name: "Hua Lamphong", City: "Bangkok", Company: "12go"},
		{ID: "HKT-1", Name: "Phuket Town", City: "Phuket", Company: "12go"},
		{ID: "HKT-2", Name: "Rassada Pier", City: "Phuket", Company: "p10"},
	})
}

// batchingStub blocks every call until the whole expected batch has arrived,
// proving the orchestrator really runs pairs of a batch concurrently and
// settles one batch before starting the next.
type batchingStub struct {
	mu          sync.Mutex
	batchSizes  []int
	batchIdx    int
	arrived     int
	waiters     []chan struct{}
	calls       int
	inflight    int
	maxInflight int
	trips       []models.TripOption
	err         error
}

func (s *batchingStub) Search(_ context.Context, _ models.SearchParams) ([]models.TripOption, error) {
	s.mu.Lock()
	s.calls++
	s.inflight++
	if s.inflight > s.maxInflight {
		s.maxInflight = s.inflight
	}
	s.arrived++
	var ch chan struct{}
	if s.batchIdx < len(s.batchSizes) && s.arrived == s.batchSizes[s.batchIdx] {
		for _, w := range s.waiters {
			close(w)
		}
		s.waiters = nil
		s.arrived = 0
		s.batchIdx++
	} else {
		ch = make(chan struct{})
		s.waiters = append(s.waiters, ch)
	}
	s.mu.Unlock()

	if ch != nil {
		<-ch
	}

	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	return s.trips, s.err
}

func TestRunBatchesSequentiallyWithCap(t *testing.T) {
	// 3 origin x 2 destination stations = 6 pairs: one full batch of 5, one of 1
	stub := &batchingStub{batchSizes: []int{5, 1}}
	o := NewOrchestrator(fanoutDirectory(), stub, "")

	resp, err := o.SearchCities(context.Background(), "Bangkok", "Phuket", "2025-06-01")
	if err != nil {
		t.Fatalf("SearchCities: %v", err)
	}
	if stub.calls != 6 {
		t.Errorf("expected 6 pair searches, got %d", stub.calls)
	}
	if stub.maxInflight != FanOutConcurrency {
		t.Errorf("expected %d concurrent searches in the full batch, got %d", FanOutConcurrency, stub.maxInflight)
	}
	if stub.batchIdx != 2 {
		t.Errorf("expected 2 settled batches, got %d", stub.batchIdx)
	}
	if resp.Meta.StationCombinations != 6 {
		t.Errorf("expected 6 station combinations, got %d", resp.Meta.StationCombinations)
	}
}

func TestRunCompanyFilterSkipsForeignStations(t *testing.T) {
	stub := &batchingStub{batchSizes: []int{3}}
	o := NewOrchestrator(fanoutDirectory(), stub, "12go")

	// Rassada Pier belongs to the other provider, leaving 3x1 pairs
	resp, err := o.SearchCities(context.Background(), "Bangkok", "Phuket", "2025-06-01")
	if err != nil {
		t.Fatalf("SearchCities: %v", err)
	}
	if resp.Meta.StationCombinations != 3 {
		t.Errorf("expected 3 station combinations for provider subset, got %d", resp.Meta.StationCombinations)
	}
}

func TestRunUnknownCity(t *testing.T) {
	o := NewOrchestrator(fanoutDirectory(), &batchingStub{}, "")
	_, err := o.SearchCities(context.Background(), "Atlantis", "Phuket", "2025-06-01")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown origin, got %v", err)
	}
	_, err = o.SearchCities(context.Background(), "Bangkok", "Atlantis", "2025-06-01")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown destination, got %v", err)
	}
}

type fixedStub struct {
	trips []models.TripOption
	err   error
}

func (s *fixedStub) Search(_ context.Context, _ models.SearchParams) ([]models.TripOption, error) {
	return s.trips, s.err
}

func TestRunDeduplicatesAcrossPairs(t *testing.T) {
	// Every pair reports the same offering with differing seat counts; the
	// highest seat count must survive.
	trip := models.TripOption{
		ID:            "dup-1",
		DepartureDate: "2025-06-01", DepartureTime: "08:00",
		ArrivalDate: "2025-06-01", ArrivalTime: "14:00",
		Operator: "Lomprayah",
		Price:    models.Price{Amount: 550, Currency: "THB"},
	}
	low := trip
	low.AvailableSeats = 3
	high := trip
	high.AvailableSeats = 25

	stub := &fixedStub{trips: []models.TripOption{low, high}}
	o := NewOrchestrator(fanoutDirectory(), stub, "")

	resp, err := o.SearchCities(context.Background(), "Bangkok", "Phuket", "2025-06-01")
	if err != nil {
		t.Fatalf("SearchCities: %v", err)
	}
	if resp.Meta.UniqueTrips != 1 || len(resp.Trips) != 1 {
		t.Fatalf("expected 1 unique trip, got %d (meta %d)", len(resp.Trips), resp.Meta.UniqueTrips)
	}
	if resp.Trips[0].AvailableSeats != 25 {
		t.Errorf("duplicate with more seats should win, got %d seats", resp.Trips[0].AvailableSeats)
	}
	if resp.Meta.TotalTripsFound != 12 {
		t.Errorf("expected 12 raw trips across 6 pairs, got %d", resp.Meta.TotalTripsFound)
	}
}

func TestRunAllPairsFailingStillSucceeds(t *testing.T) {
	stub := &fixedStub{err: &models.UpstreamError{Provider: "12go", Status: 503}}
	o := NewOrchestrator(fanoutDirectory(), stub, "")

	resp, err := o.SearchCities(context.Background(), "Bangkok", "Phuket", "2025-06-01")
	if err != nil {
		t.Fatalf("pair failures must not fail the search, got %v", err)
	}
	if len(resp.Trips) != 0 {
		t.Errorf("expected no trips, got %d", len(resp.Trips))
	}
	if len(resp.Meta.Errors) != 6 {
		t.Errorf("expected 6 pair errors in metadata, got %d", len(resp.Meta.Errors))
	}
}

func TestRunStreamEventOrdering(t *testing.T) {
	trip := models.TripOption{
		ID:            "s-1",
		DepartureDate: "2025-06-01", DepartureTime: "09:00",
		Operator: "Transport Co",
		Price:    models.Price{Amount: 400, Currency: "THB"},
	}
	stub := &fixedStub{trips: []models.TripOption{trip}}
	o := NewOrchestrator(fanoutDirectory(), stub, "")

	var events []models.SearchEvent
	_, err := o.Run(context.Background(), "Bangkok", "Phuket", "2025-06-01", func(e models.SearchEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) < 3 {
		t.Fatalf("expected at least meta, progress and complete events, got %d", len(events))
	}

	if _, ok := events[0].(models.MetaEvent); !ok {
		t.Errorf("first event should be meta, got %T", events[0])
	}
	if _, ok := events[len(events)-1].(models.CompleteEvent); !ok {
		t.Errorf("last event should be complete, got %T", events[len(events)-1])
	}

	// Trips events carry only trips not seen in earlier events
	streamed := 0
	lastProgress := models.ProgressEvent{}
	for _, e := range events {
		switch ev := e.(type) {
		case models.TripsEvent:
			streamed += len(ev.Trips)
		case models.ProgressEvent:
			if ev.CompletedPairs < lastProgress.CompletedPairs {
				t.Errorf("progress went backwards: %d after %d", ev.CompletedPairs, lastProgress.CompletedPairs)
			}
			lastProgress = ev
		}
	}
	if streamed != 1 {
		t.Errorf("expected exactly 1 unique trip streamed across all trips events, got %d", streamed)
	}
	if lastProgress.CompletedPairs != 6 || lastProgress.TotalPairs != 6 {
		t.Errorf("final progress should report 6/6 pairs, got %d/%d", lastProgress.CompletedPairs, lastProgress.TotalPairs)
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	a := models.TripOption{ID: "a", DepartureDate: "2025-06-01", DepartureTime: "08:00", Operator: "X", Price: models.Price{Amount: 100}, AvailableSeats: 4}
	b := a
	b.ID = "b"
	b.AvailableSeats = 9
	c := models.TripOption{ID: "c", DepartureDate: "2025-06-01", DepartureTime: "10:00", Operator: "Y", Price: models.Price{Amount: 200}}

	once := Deduplicate([]models.TripOption{a, b, c})
	if len(once) != 2 {
		t.Fatalf("expected 2 unique trips, got %d", len(once))
	}
	if once[0].AvailableSeats != 9 {
		t.Errorf("higher-seat duplicate should win, got %d seats", once[0].AvailableSeats)
	}

	twice := Deduplicate(once)
	if len(twice) != len(once) {
		t.Errorf("Deduplicate is not idempotent: %d then %d", len(once), len(twice))
	}
}
