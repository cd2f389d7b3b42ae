package services

import (
	"sort"
	"strconv"
	"strings"

	"sea-travel-search/models"
)

// Sort keys accepted by the filter engine
const (
	SortByPrice     = "price"
	SortByDuration  = "duration"
	SortByDeparture = "departure"
)

// ToolPageSize is the fixed page size of the LLM search tool
const ToolPageSize = 3

// Filters are the AND-combined trip predicates. Nil pointer fields are
// inactive. VehicleTypes nil means no filtering while an empty non-nil
// list excludes everything; Operators empty always means allow all.
type Filters struct {
	PriceMin           *float64
	PriceMax           *float64
	DepartureHourStart *int // inclusive
	DepartureHourEnd   *int // exclusive
	Night              bool // hour >= 21 or hour < 5, wraps midnight
	VehicleTypes       []string
	Operators          []string
}

// ApplyFilters returns the trips passing every active predicate.
// Applying the same filters twice yields the same result.
func ApplyFilters(trips []models.TripOption, f Filters) []models.TripOption {
	out := make([]models.TripOption, 0, len(trips))
	for _, t := range trips {
		if matchesFilters(t, f) {
			out = append(out, t)
		}
	}
	return out
}

func matchesFilters(t models.TripOption, f Filters) bool {
	if f.PriceMin != nil && t.Price.Amount < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && t.Price.Amount > *f.PriceMax {
		return false
	}

	// A trip without a parseable departure time fails every hour-based
	// predicate; its hour is unknown, not midnight
	if f.DepartureHourStart != nil || f.DepartureHourEnd != nil || f.Night {
		hour, ok := departureHour(t)
		if !ok {
			return false
		}
		if f.DepartureHourStart != nil && hour < *f.DepartureHourStart {
			return false
		}
		if f.DepartureHourEnd != nil && hour >= *f.DepartureHourEnd {
			return false
		}
		// Night wraps past midnight, so it cannot be expressed as a plain range
		if f.Night && !(hour >= 21 || hour < 5) {
			return false
		}
	}

	if f.VehicleTypes != nil && !containsFold(f.VehicleTypes, t.VehicleType) {
		return false
	}
	if len(f.Operators) > 0 && !containsFold(f.Operators, t.Operator) {
		return false
	}

	return true
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// departureHour extracts the "15:04" hour; ok is false for malformed times
func departureHour(t models.TripOption) (int, bool) {
	parts := strings.SplitN(t.DepartureTime, ":", 2)
	if len(parts) < 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// SortTrips stable-sorts trips by one key and direction
func SortTrips(trips []models.TripOption, key string, ascending bool) {
	less := func(a, b models.TripOption) bool { return false }
	switch key {
	case SortByPrice:
		less = func(a, b models.TripOption) bool { return a.Price.Amount < b.Price.Amount }
	case SortByDuration:
		less = func(a, b models.TripOption) bool { return a.DurationMinutes < b.DurationMinutes }
	case SortByDeparture:
		less = func(a, b models.TripOption) bool { return a.DepartureSortKey() < b.DepartureSortKey() }
	default:
		return
	}
	sort.SliceStable(trips, func(i, j int) bool {
		if ascending {
			return less(trips[i], trips[j])
		}
		return less(trips[j], trips[i])
	})
}

// sortTripsByDeparture is the adapter output order: departure time
// ascending, price ascending as tie-break
func sortTripsByDeparture(trips []models.TripOption) {
	sort.SliceStable(trips, func(i, j int) bool {
		ki, kj := trips[i].DepartureSortKey(), trips[j].DepartureSortKey()
		if ki != kj {
			return ki < kj
		}
		return trips[i].Price.Amount < trips[j].Price.Amount
	})
}

// PageTrips applies skip-count pagination after filtering and sorting,
// returning one fixed-size page
func PageTrips(trips []models.TripOption, skipCount int) []models.TripOption {
	if skipCount < 0 {
		skipCount = 0
	}
	if skipCount >= len(trips) {
		return []models.TripOption{}
	}
	end := skipCount + ToolPageSize
	if end > len(trips) {
		end = len(trips)
	}
	return trips[skipCount:end]
}
