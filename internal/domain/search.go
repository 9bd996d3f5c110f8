package domain

// NotAvailable is the sentinel written into every optional output field that
// the provider did not supply. Consumers never have to branch on presence.
const NotAvailable = "not available"

// SearchParams carries one search request. Exactly one location selector
// (Location, AccommodationIDs, ResortID, CityID or Geo) is expected; the
// orchestrator enforces that.
type SearchParams struct {
	Location         string
	AccommodationIDs []int64
	ResortID         int64
	CityID           int64
	Geo              *GeoSelector

	Arrival   string // YYYY-MM-DD
	Departure string // YYYY-MM-DD; derived from Nights when empty
	Nights    int

	Ages    []int
	Persons int

	Currency string
	Lang     string
	Limit    int
	Page     int
}

type GeoSelector struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FormattedAccommodation is the normalized output entity, derived from one
// raw provider record and its first listed offer.
type FormattedAccommodation struct {
	Name      string                `json:"name"`
	Location  AccommodationLocation `json:"location"`
	Property  PropertyDetails       `json:"property"`
	Pricing   Pricing               `json:"pricing"`
	Amenities Amenities             `json:"amenities"`
	Distances Distances             `json:"distances"`
	Booking   BookingInfo           `json:"booking"`
	Images    []string              `json:"images"`
}

type AccommodationLocation struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Resort      string  `json:"resort"`
	FullAddress string  `json:"full_address"`
	Coords      *Coords `json:"coordinates,omitempty"`
}

type PropertyDetails struct {
	ID           int64  `json:"id"`
	Category     string `json:"category"`
	Type         string `json:"type"`
	Bedrooms     int    `json:"bedrooms"`
	Rooms        int    `json:"rooms"`
	SizeSqm      int    `json:"size_sqm"`
	MaxOccupancy int    `json:"max_occupancy"`
}

type Pricing struct {
	TotalPrice    float64 `json:"total_price"`
	Currency      string  `json:"currency"`
	Nights        int     `json:"nights"`
	PricePerNight float64 `json:"price_per_night"`
}

type Amenities struct {
	WiFi        bool `json:"wifi"`
	Parking     bool `json:"parking"`
	Pool        bool `json:"pool"`
	Sauna       bool `json:"sauna"`
	PetsAllowed bool `json:"pets_allowed"`
	Dishwasher  bool `json:"dishwasher"`
	Balcony     bool `json:"balcony"`
	Fireplace   bool `json:"fireplace"`
}

type Distances struct {
	ToResortCenter string `json:"to_resort_center"`
	ToSkiRuns      string `json:"to_ski_runs"`
	ToCityCenter   string `json:"to_city_center"`
}

type BookingInfo struct {
	ReservationURL       string `json:"reservation_url"`
	CancellationDeadline string `json:"cancellation_deadline"`
	Conditions           string `json:"conditions"`
}

type SearchSummary struct {
	Location   string `json:"location"`
	Arrival    string `json:"arrival"`
	Departure  string `json:"departure"`
	Nights     int    `json:"nights"`
	Currency   string `json:"currency"`
	Strategy   string `json:"strategy"`
	TotalFound int    `json:"total_found"`
}

type SearchResult struct {
	Summary        SearchSummary            `json:"search_summary"`
	Accommodations []FormattedAccommodation `json:"accommodations"`
}
