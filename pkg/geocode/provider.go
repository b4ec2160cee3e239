// Package geocode resolves free-text place descriptions into coordinates
// through an ordered list of providers and an idempotent cache.
package geocode

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
)

// Provider is a single geocoding backend. Geocode returns (nil, nil) when
// the provider answered but found nothing.
type Provider interface {
	Name() string
	Available() bool
	Geocode(ctx context.Context, query string) (*Match, error)
}

// Match is one provider's best answer for a query.
type Match struct {
	Lat         float64
	Lng         float64
	Address     string
	City        string
	Region      string
	CountryCode string
	Quality     string // "rooftop", "range", "centroid", "approximate"
}

// Normalize canonicalizes query into a cache key: Unicode case fold plus
// whitespace collapse.
func Normalize(query string) string {
	return cases.Fold().String(collapse(query))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
