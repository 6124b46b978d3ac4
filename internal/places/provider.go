package places

import "context"

// SearchRequest describes one search session against the provider.
type SearchRequest struct {
	Query        string
	Location     string // free text address or "lat,lng"
	RadiusMeters int
	MaxResults   int
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SearchPage is one page of search results. NextPageToken is empty on the
// last page.
type SearchPage struct {
	PlaceIDs      []string
	NextPageToken string
}

// RawPlace is the provider's detail payload for a single place. Optional
// fields are left at their zero value when the provider omits them.
type RawPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	FormattedPhone   string   `json:"formatted_phone_number"`
	Website          string   `json:"website"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	Types            []string `json:"types,omitempty"`
}

// SearchProvider issues one paginated text search call. Passing an empty
// pageToken requests the first page.
type SearchProvider interface {
	Search(ctx context.Context, req SearchRequest, center LatLng, pageToken string) (SearchPage, error)
}

// DetailProvider retrieves the full detail payload for one place identifier.
type DetailProvider interface {
	Details(ctx context.Context, placeID string) (RawPlace, error)
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (LatLng, error)
}
