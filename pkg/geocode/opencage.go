package geocode

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// OpenCageURL is the OpenCage forward geocoding endpoint.
const OpenCageURL = "https://api.opencagedata.com/geocode/v1/json"

type openCageResponse struct {
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
		Formatted  string         `json:"formatted"`
		Confidence int            `json:"confidence"`
		Components map[string]any `json:"components"`
	} `json:"results"`
}

// OpenCage geocodes through the OpenCage Data API.
type OpenCage struct {
	httpProvider
}

// NewOpenCage creates an OpenCage provider. An empty key leaves it unavailable.
func NewOpenCage(key string, opts ...ProviderOption) *OpenCage {
	return &OpenCage{httpProvider: newHTTPProvider("opencage", key, OpenCageURL, opts)}
}

// Geocode implements Provider.
func (o *OpenCage) Geocode(ctx context.Context, query string) (*Match, error) {
	if !o.Available() {
		return nil, eris.New("geocode: opencage api key not configured")
	}

	var resp openCageResponse
	params := url.Values{
		"q":     {query},
		"key":   {o.key},
		"limit": {"1"},
		"abbrv": {"1"},
	}
	if err := o.getJSON(ctx, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	return &Match{
		Lat:         r.Geometry.Lat,
		Lng:         r.Geometry.Lng,
		Address:     r.Formatted,
		City:        firstComponent(r.Components, "city", "town", "village"),
		Region:      firstComponent(r.Components, "state"),
		CountryCode: strings.ToUpper(firstComponent(r.Components, "country_code")),
		Quality:     openCageQuality(r.Confidence),
	}, nil
}

func firstComponent(c map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := c[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// openCageQuality maps OpenCage's 0-10 bounding-box confidence onto the
// quality taxonomy.
func openCageQuality(confidence int) string {
	switch {
	case confidence >= 9:
		return "rooftop"
	case confidence >= 7:
		return "range"
	case confidence >= 4:
		return "centroid"
	default:
		return "approximate"
	}
}
