package geocode

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/internal/resilience"
)

// GoogleURL is the Google Geocoding API endpoint.
const GoogleURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress  string `json:"formatted_address"`
	AddressComponents []struct {
		LongName  string   `json:"long_name"`
		ShortName string   `json:"short_name"`
		Types     []string `json:"types"`
	} `json:"address_components"`
}

func (r *googleResponse) statusErr() error {
	switch r.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return resilience.NewTransientError(eris.Errorf("geocode: google status %s", r.Status), 0)
	default:
		return eris.Errorf("geocode: google status %s: %s", r.Status, r.ErrorMessage)
	}
}

// Google geocodes through the Google Geocoding API.
type Google struct {
	httpProvider
}

// NewGoogle creates a Google provider. An empty key leaves it unavailable.
func NewGoogle(key string, opts ...ProviderOption) *Google {
	return &Google{httpProvider: newHTTPProvider("google", key, GoogleURL, opts)}
}

// Geocode implements Provider.
func (g *Google) Geocode(ctx context.Context, query string) (*Match, error) {
	if !g.Available() {
		return nil, eris.New("geocode: google api key not configured")
	}

	var resp googleResponse
	params := url.Values{"address": {query}, "key": {g.key}}
	if err := g.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	m := &Match{
		Lat:     r.Geometry.Location.Lat,
		Lng:     r.Geometry.Location.Lng,
		Address: r.FormattedAddress,
		Quality: googleLocationTypeToQuality(r.Geometry.LocationType),
	}
	for _, c := range r.AddressComponents {
		switch {
		case hasType(c.Types, "locality") && m.City == "":
			m.City = c.LongName
		case hasType(c.Types, "administrative_area_level_1") && m.Region == "":
			m.Region = c.LongName
		case hasType(c.Types, "country") && m.CountryCode == "":
			m.CountryCode = strings.ToUpper(c.ShortName)
		}
	}
	return m, nil
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
