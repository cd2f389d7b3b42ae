package services

import (
	"reflect"
	"testing"

	"sea-travel-search/models"
)

func filterTrips() []models.TripOption {
	return []models.TripOption{
		{ID: "t1", DepartureDate: "2025-06-01", DepartureTime: "06:30", Price: models.Price{Amount: 300}, DurationMinutes: 360, VehicleType: models.VehicleBus, Operator: "Transport Co"},
		{ID: "t2", DepartureDate: "2025-06-01", DepartureTime: "13:00", Price: models.Price{Amount: 900}, DurationMinutes: 120, VehicleType: models.VehicleFerry, Operator: "Lomprayah"},
		{ID: "t3", DepartureDate: "2025-06-01", DepartureTime: "22:15", Price: models.Price{Amount: 650}, DurationMinutes: 540, VehicleType: models.VehicleTrain, Operator: "State Railway"},
		{ID: "t4", DepartureDate: "2025-06-01", DepartureTime: "02:00", Price: models.Price{Amount: 450}, DurationMinutes: 480, VehicleType: models.VehicleBus, Operator: "Sombat Tour"},
	}
}

func TestApplyFiltersIdempotent(t *testing.T) {
	trips := filterTrips()
	min, max := 400.0, 700.0
	f := Filters{PriceMin: &min, PriceMax: &max}

	once := ApplyFilters(trips, f)
	twice := ApplyFilters(once, f)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("filtering is not idempotent: %+v vs %+v", once, twice)
	}
	if len(once) != 2 {
		t.Errorf("expected 2 trips in [400,700], got %d", len(once))
	}
}

func TestApplyFiltersPriceRangeInclusive(t *testing.T) {
	trips := filterTrips()
	min, max := 300.0, 900.0
	got := ApplyFilters(trips, Filters{PriceMin: &min, PriceMax: &max})
	if len(got) != 4 {
		t.Errorf("price bounds are inclusive, expected all 4 trips, got %d", len(got))
	}
}

func TestApplyFiltersOperatorAsymmetry(t *testing.T) {
	trips := filterTrips()

	// Empty operators list means allow all, not exclude all
	got := ApplyFilters(trips, Filters{Operators: []string{}})
	if len(got) != len(trips) {
		t.Errorf("empty operators filter should be a no-op, got %d of %d", len(got), len(trips))
	}

	// An explicitly assigned empty vehicle-type list removes everything
	got = ApplyFilters(trips, Filters{VehicleTypes: []string{}})
	if len(got) != 0 {
		t.Errorf("empty non-nil vehicle types should remove all results, got %d", len(got))
	}

	// Nil vehicle types means no filtering
	got = ApplyFilters(trips, Filters{VehicleTypes: nil})
	if len(got) != len(trips) {
		t.Errorf("nil vehicle types should be a no-op, got %d of %d", len(got), len(trips))
	}
}

func TestApplyFiltersVehicleAndOperator(t *testing.T) {
	trips := filterTrips()

	got := ApplyFilters(trips, Filters{VehicleTypes: []string{models.VehicleFerry, models.VehicleTrain}})
	if len(got) != 2 {
		t.Errorf("expected 2 ferry/train trips, got %d", len(got))
	}

	got = ApplyFilters(trips, Filters{Operators: []string{"lomprayah"}})
	if len(got) != 1 || got[0].ID != "t2" {
		t.Errorf("operator filter should be case-insensitive, got %+v", got)
	}
}

func TestApplyFiltersDepartureHourRange(t *testing.T) {
	trips := filterTrips()
	start, end := 6, 14
	got := ApplyFilters(trips, Filters{DepartureHourStart: &start, DepartureHourEnd: &end})
	if len(got) != 2 {
		t.Fatalf("expected 2 trips in [6,14), got %d", len(got))
	}
	for _, tr := range got {
		if tr.ID != "t1" && tr.ID != "t2" {
			t.Errorf("unexpected trip %s in hour range", tr.ID)
		}
	}
}

func TestApplyFiltersNightWrapsMidnight(t *testing.T) {
	trips := filterTrips()
	got := ApplyFilters(trips, Filters{Night: true})
	if len(got) != 2 {
		t.Fatalf("expected 2 night trips, got %d", len(got))
	}
	for _, tr := range got {
		if tr.ID != "t3" && tr.ID != "t4" {
			t.Errorf("trip %s should not pass the night filter", tr.ID)
		}
	}
}

func TestApplyFiltersUnparseableDepartureTime(t *testing.T) {
	trips := []models.TripOption{
		{ID: "ok", DepartureTime: "22:00", Price: models.Price{Amount: 100}},
		{ID: "bad", DepartureTime: "soon", Price: models.Price{Amount: 100}},
	}

	got := ApplyFilters(trips, Filters{Night: true})
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("unparseable time must not pass the night filter, got %+v", got)
	}

	start, end := 0, 24
	got = ApplyFilters(trips, Filters{DepartureHourStart: &start, DepartureHourEnd: &end})
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("unparseable time must not pass an hour range, got %+v", got)
	}

	// Without hour predicates the malformed time is irrelevant
	if got := ApplyFilters(trips, Filters{}); len(got) != 2 {
		t.Errorf("hour parsing must only matter to hour predicates, got %d trips", len(got))
	}
}

func TestSortTrips(t *testing.T) {
	trips := filterTrips()

	SortTrips(trips, SortByPrice, true)
	if trips[0].ID != "t1" || trips[3].ID != "t2" {
		t.Errorf("price ascending sort wrong: %s..%s", trips[0].ID, trips[3].ID)
	}

	SortTrips(trips, SortByDuration, true)
	if trips[0].ID != "t2" || trips[3].ID != "t3" {
		t.Errorf("duration ascending sort wrong: %s..%s", trips[0].ID, trips[3].ID)
	}

	SortTrips(trips, SortByDeparture, false)
	if trips[0].ID != "t3" {
		t.Errorf("departure descending sort wrong: first is %s", trips[0].ID)
	}
}

func TestPageTrips(t *testing.T) {
	trips := filterTrips()

	page := PageTrips(trips, 0)
	if len(page) != ToolPageSize {
		t.Errorf("first page should have %d trips, got %d", ToolPageSize, len(page))
	}

	page = PageTrips(trips, 3)
	if len(page) != 1 {
		t.Errorf("second page should have 1 trip, got %d", len(page))
	}

	page = PageTrips(trips, 10)
	if len(page) != 0 {
		t.Errorf("past-the-end page should be empty, got %d", len(page))
	}
}
