package lexicon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	t.Parallel()

	lex, err := Load(strings.NewReader(string(defaultTable)))
	require.NoError(t, err)
	assert.Greater(t, lex.Len(), 100)
	assert.Same(t, Default(), Default())
}

func TestResolve_CaseInsensitive(t *testing.T) {
	t.Parallel()

	lex := Default()
	want := Place{Name: "Norway", CountryCode: "NO", Kind: KindCountry}
	for _, name := range []string{"Norway", "norway", "NORWAY", "  NorWay "} {
		got, ok := lex.Resolve(name)
		require.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
}

func TestResolve_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want Place
	}{
		{"LAS VEGAS", Place{Name: "Las Vegas", CountryCode: "US", Kind: KindCity}},
		{"kentucky", Place{Name: "Kentucky", CountryCode: "US", Kind: KindUSState}},
		{"South  Carolina", Place{Name: "South Carolina", CountryCode: "US", Kind: KindUSState}},
		{"Wales", Place{Name: "Wales", CountryCode: "UK", Kind: KindUKRegion}},
		{"finland", Place{Name: "Finland", CountryCode: "FI", Kind: KindCountry}},
		{"USA", Place{Name: "United States", CountryCode: "US", Kind: KindCountry}},
		{"Dallas", Place{Name: "Dallas", CountryCode: "US", Kind: KindCity}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Default().Resolve(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_UnknownAndAmbiguous(t *testing.T) {
	t.Parallel()

	lex := Default()
	for _, name := range []string{"", "A WHILE", "PIZZA", "Vegass", "Georgia"} {
		_, ok := lex.Resolve(name)
		assert.False(t, ok, name)
	}
}

func TestNew_SamePlaceTwiceIsNotAmbiguous(t *testing.T) {
	t.Parallel()

	lex := New([]Entry{
		{Name: "Oslo", Country: "no", Kind: KindCity},
		{Name: "oslo", Country: "NO", Kind: KindCity},
	})
	p, ok := lex.Resolve("OSLO")
	require.True(t, ok)
	assert.Equal(t, "NO", p.CountryCode)
}

func TestScan(t *testing.T) {
	t.Parallel()

	p, match, ok := Default().Scan("THE 'AMERICAN TOON' CHALLENGE IN NORTH CAROLINA AND TEXAS")
	require.True(t, ok)
	assert.Equal(t, "North Carolina", p.Name)
	assert.Equal(t, "NORTH CAROLINA", match)

	_, _, ok = Default().Scan("THE WALL OF FAME HERE HAS BEEN EMPTY FOR MONTHS")
	assert.False(t, ok)

	_, _, ok = New(nil).Scan("Norway")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad yaml":     "places: [",
		"no name":      "places:\n  - {name: '', country: US, kind: city}",
		"bad country":  "places:\n  - {name: Oslo, country: NOR, kind: city}",
		"unknown kind": "places:\n  - {name: Oslo, country: 'NO', kind: town}",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}

func TestCountryName(t *testing.T) {
	lex := Default()

	name, ok := lex.CountryName("no")
	assert.True(t, ok)
	assert.Equal(t, "Norway", name)

	name, ok = lex.CountryName("UK")
	assert.True(t, ok)
	assert.Equal(t, "United Kingdom", name)

	_, ok = lex.CountryName("ZZ")
	assert.False(t, ok)
}
