package restaurant

import (
	"strings"

	"bitvote/internal/apperror"
	"bitvote/internal/geo"
)

// Candidate is one ranked restaurant returned to the client.
type Candidate struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Rating         *float64 `json:"rating"`
	PriceLevel     *int     `json:"priceLevel"`
	PriceRange     string   `json:"priceRange"`
	DistanceMeters float64  `json:"distanceMeters"`
	Vicinity       string   `json:"vicinity"`
}

// SearchQuery is a parsed restaurant search. Exactly one of Address or
// Coordinates must be set.
type SearchQuery struct {
	Address     string
	Coordinates *geo.Point
	Cuisine     string
	Radius      int
}

var (
	ErrMissingLocation = apperror.New(apperror.KindInvalidInput, "MISSING_LOCATION",
		"either location or lat and lng must be provided")
	ErrInvalidCoordinates = apperror.New(apperror.KindInvalidInput, "INVALID_COORDINATES",
		"lat and lng must be valid numbers")
	ErrLocationNotFound = apperror.New(apperror.KindNotFound, "LOCATION_NOT_FOUND",
		"location not found")
	ErrNoResultsFound = apperror.New(apperror.KindNotFound, "NO_RESULTS_FOUND",
		"no restaurants found nearby")
	ErrNoDetailsAvailable = apperror.New(apperror.KindNotFound, "NO_DETAILS_AVAILABLE",
		"could not load details for any nearby restaurant")
)

const currencySymbol = "$"

// PriceRange renders a price level as repeated currency symbols, at least one.
func PriceRange(level *int) string {
	n := 1
	if level != nil && *level > n {
		n = *level
	}
	return strings.Repeat(currencySymbol, n)
}

func ratingOrZero(r *float64) float64 {
	if r == nil {
		return 0
	}
	return *r
}
