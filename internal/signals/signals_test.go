package signals

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/challenge-resolver/internal/config"
	"github.com/sells-group/challenge-resolver/internal/model"
)

func ptr(f float64) *float64 { return &f }

func TestBuild_NormalizesText(t *testing.T) {
	t.Parallel()

	a := New(DefaultBounds())
	sig := a.Build(&model.VideoRecord{
		VideoID:      " abc123 ",
		Title:        "  IN NORWAY   YOU HAVE\tTO STAY SEATED ",
		Description:  "First line  \r\nsecond\r\n\r\n📍 Location: Nye's Diner, Oslo, Norway\r\n",
		CaptionIntro: "so   today we are\n here",
	})

	assert.Equal(t, "abc123", sig.VideoID)
	assert.Equal(t, "IN NORWAY YOU HAVE TO STAY SEATED", sig.Title)
	assert.Equal(t, "First line\nsecond\n\n📍 Location: Nye's Diner, Oslo, Norway", sig.Description)
	assert.Equal(t, "so today we are here", sig.CaptionIntro)
	assert.True(t, sig.HasCaptions())
}

func TestBuild_TruncatesOnRuneBoundaries(t *testing.T) {
	t.Parallel()

	a := New(Bounds{TitleMaxChars: 5, DescriptionMaxChars: 4, MaxTags: 2, TagMaxChars: 3, CaptionMaxWords: 2})
	sig := a.Build(&model.VideoRecord{
		Title:        "🍔🍔🍔🍔🍔🍔🍔",
		Description:  "Smörgåsbord",
		Tags:         []string{"burger", "Burger", "", "pizza", "tacos"},
		CaptionIntro: "one two three four",
	})

	assert.Equal(t, "🍔🍔🍔🍔🍔", sig.Title)
	assert.Equal(t, "Smör", sig.Description)
	assert.True(t, utf8.ValidString(sig.Description))
	assert.Equal(t, []string{"bur", "piz"}, sig.Tags)
	assert.Equal(t, "one two", sig.CaptionIntro)
}

func TestBuild_TagsDedupeCaseInsensitive(t *testing.T) {
	t.Parallel()

	sig := New(DefaultBounds()).Build(&model.VideoRecord{
		Tags: []string{"Food Challenge", "food  challenge", "FOOD CHALLENGE", "Las Vegas"},
	})
	assert.Equal(t, []string{"Food Challenge", "Las Vegas"}, sig.Tags)

	sig = New(DefaultBounds()).Build(&model.VideoRecord{Tags: []string{" ", ""}})
	assert.Nil(t, sig.Tags)
}

func TestBuild_RecordingLocation(t *testing.T) {
	t.Parallel()

	a := New(DefaultBounds())
	tests := []struct {
		name  string
		in    *model.RecordingLocation
		valid bool
	}{
		{"valid", &model.RecordingLocation{Lat: 36.17, Lng: -115.14, Description: " Las  Vegas "}, true},
		{"null island", &model.RecordingLocation{Lat: 0, Lng: 0}, false},
		{"out of range", &model.RecordingLocation{Lat: 95, Lng: 10}, false},
		{"absent", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := a.Build(&model.VideoRecord{RecordingLocation: tt.in})
			if !tt.valid {
				assert.Nil(t, sig.RecordingLocation)
				return
			}
			require.NotNil(t, sig.RecordingLocation)
			assert.Equal(t, "Las Vegas", sig.RecordingLocation.Description)
			assert.NotSame(t, tt.in, sig.RecordingLocation)
		})
	}
}

func TestBuild_FeaturedPlace(t *testing.T) {
	t.Parallel()

	a := New(DefaultBounds())

	sig := a.Build(&model.VideoRecord{FeaturedPlace: &model.FeaturedPlace{Name: "Big Texan", Lat: ptr(35.19), Lng: ptr(-101.75)}})
	require.NotNil(t, sig.FeaturedPlace)
	c, ok := sig.FeaturedPlace.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 35.19, c.Lat, 1e-9)

	// A lone latitude is dropped but the name survives.
	sig = a.Build(&model.VideoRecord{FeaturedPlace: &model.FeaturedPlace{Name: "Big Texan", Lat: ptr(35.19)}})
	require.NotNil(t, sig.FeaturedPlace)
	assert.Nil(t, sig.FeaturedPlace.Lat)
	assert.Nil(t, sig.FeaturedPlace.Lng)

	sig = a.Build(&model.VideoRecord{FeaturedPlace: &model.FeaturedPlace{Name: "   "}})
	assert.Nil(t, sig.FeaturedPlace)
}

func TestBuild_DoesNotAlias(t *testing.T) {
	t.Parallel()

	lat, lng := 59.91, 10.75
	rec := &model.VideoRecord{
		Tags:          []string{"oslo"},
		FeaturedPlace: &model.FeaturedPlace{Name: "Nye's", Lat: &lat, Lng: &lng},
	}
	sig := New(DefaultBounds()).Build(rec)

	rec.Tags[0] = "changed"
	*rec.FeaturedPlace.Lat = 1
	assert.Equal(t, "oslo", sig.Tags[0])
	assert.InDelta(t, 59.91, *sig.FeaturedPlace.Lat, 1e-9)
}

func TestBuild_Nil(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.RawSignals{}, New(DefaultBounds()).Build(nil))
}

func TestBoundsFromConfig(t *testing.T) {
	t.Parallel()

	b := BoundsFromConfig(config.SignalsConfig{TitleMaxChars: 120, CaptionMaxWords: 50})
	assert.Equal(t, 120, b.TitleMaxChars)
	assert.Equal(t, 50, b.CaptionMaxWords)
	assert.Equal(t, DefaultBounds().DescriptionMaxChars, b.DescriptionMaxChars)
}

func TestTruncateRunes_TrimsTrailingSpace(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "IN", truncateRunes("IN NORWAY", 3))
	assert.Equal(t, strings.Repeat("a", 3), truncateRunes("aaa", 3))
}
