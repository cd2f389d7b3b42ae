package models

// Vehicle types a trip segment can run on
const (
	VehicleBus   = "bus"
	VehicleFerry = "ferry"
	VehicleTrain = "train"
)

// Price is an amount in a provider currency
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// TripStop identifies one end of a trip
type TripStop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city,omitempty"`
}

// TripSegment is one vehicle leg of a trip option
type TripSegment struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	VehicleType   string `json:"vehicle_type"`
	Operator      string `json:"operator"`
}

// TripOption is the canonical normalized search result shared by both
// upstream adapters. Times are "15:04" local, dates are "2006-01-02".
// Never mutated after construction.
type TripOption struct {
	ID              string        `json:"id"`
	BookingToken    string        `json:"booking_token,omitempty"`
	DepartureTime   string        `json:"departure_time"`
	ArrivalTime     string        `json:"arrival_time"`
	DepartureDate   string        `json:"departure_date"`
	ArrivalDate     string        `json:"arrival_date"`
	DurationMinutes int           `json:"duration_minutes"`
	Price           Price         `json:"price"`
	Operator        string        `json:"operator"`
	OperatorLogo    string        `json:"operator_logo,omitempty"`
	VehicleType     string        `json:"vehicle_type"`
	AvailableSeats  int           `json:"available_seats"`
	Amenities       []string      `json:"amenities,omitempty"`
	Segments        []TripSegment `json:"segments"`
	RedirectURL     string        `json:"redirect_url,omitempty"`
	Origin          TripStop      `json:"origin"`
	Destination     TripStop      `json:"destination"`
}

// DepartureSortKey orders trips chronologically across dates
func (t TripOption) DepartureSortKey() string {
	return t.DepartureDate + " " + t.DepartureTime
}

// SearchParams are the inputs of a single origin/destination itinerary search
type SearchParams struct {
	OriginID      string
	DestinationID string
	Date          string // YYYY-MM-DD
	Pax           int
}
