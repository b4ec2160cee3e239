// Package signals assembles the bounded per-video context bundle consumed by
// the extraction strategies.
package signals

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/sells-group/challenge-resolver/internal/config"
	"github.com/sells-group/challenge-resolver/internal/model"
)

// Bounds caps the size of every text field in a RawSignals bundle.
type Bounds struct {
	TitleMaxChars       int
	DescriptionMaxChars int
	MaxTags             int
	TagMaxChars         int
	CaptionMaxWords     int
}

// DefaultBounds matches the config defaults.
func DefaultBounds() Bounds {
	return Bounds{
		TitleMaxChars:       300,
		DescriptionMaxChars: 1000,
		MaxTags:             20,
		TagMaxChars:         50,
		CaptionMaxWords:     500,
	}
}

// BoundsFromConfig converts config values, keeping defaults for unset ones.
func BoundsFromConfig(cfg config.SignalsConfig) Bounds {
	b := DefaultBounds()
	if cfg.TitleMaxChars > 0 {
		b.TitleMaxChars = cfg.TitleMaxChars
	}
	if cfg.DescriptionMaxChars > 0 {
		b.DescriptionMaxChars = cfg.DescriptionMaxChars
	}
	if cfg.MaxTags > 0 {
		b.MaxTags = cfg.MaxTags
	}
	if cfg.TagMaxChars > 0 {
		b.TagMaxChars = cfg.TagMaxChars
	}
	if cfg.CaptionMaxWords > 0 {
		b.CaptionMaxWords = cfg.CaptionMaxWords
	}
	return b
}

// Aggregator builds RawSignals from raw video records. It holds no mutable
// state and is safe for concurrent use.
type Aggregator struct {
	bounds Bounds
}

// New creates an Aggregator.
func New(b Bounds) *Aggregator {
	return &Aggregator{bounds: b}
}

// Bounds returns the aggregator's limits.
func (a *Aggregator) Bounds() Bounds { return a.bounds }

// Build normalizes and truncates rec. The returned bundle shares no memory
// with rec.
func (a *Aggregator) Build(rec *model.VideoRecord) model.RawSignals {
	if rec == nil {
		return model.RawSignals{}
	}
	return model.RawSignals{
		VideoID:           strings.TrimSpace(rec.VideoID),
		Title:             truncateRunes(collapseSpaces(rec.Title), a.bounds.TitleMaxChars),
		Description:       truncateRunes(normalizeDescription(rec.Description), a.bounds.DescriptionMaxChars),
		Tags:              a.tags(rec.Tags),
		CaptionIntro:      firstWords(rec.CaptionIntro, a.bounds.CaptionMaxWords),
		RecordingLocation: a.recordingLocation(rec.RecordingLocation),
		FeaturedPlace:     a.featuredPlace(rec.FeaturedPlace),
	}
}

func (a *Aggregator) tags(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	fold := cases.Fold()
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, min(len(in), a.bounds.MaxTags))
	for _, t := range in {
		if len(out) == a.bounds.MaxTags {
			break
		}
		t = truncateRunes(collapseSpaces(t), a.bounds.TagMaxChars)
		if t == "" {
			continue
		}
		key := fold.String(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// recordingLocation drops locations whose coordinates are out of range or
// the 0,0 placeholder: the platform never had a real fix for those.
func (a *Aggregator) recordingLocation(rl *model.RecordingLocation) *model.RecordingLocation {
	if rl == nil {
		return nil
	}
	if !(model.Coordinates{Lat: rl.Lat, Lng: rl.Lng}).Valid() {
		return nil
	}
	return &model.RecordingLocation{
		Lat:         rl.Lat,
		Lng:         rl.Lng,
		Description: truncateRunes(collapseSpaces(rl.Description), a.bounds.TitleMaxChars),
	}
}

func (a *Aggregator) featuredPlace(fp *model.FeaturedPlace) *model.FeaturedPlace {
	if fp == nil {
		return nil
	}
	out := &model.FeaturedPlace{Name: truncateRunes(collapseSpaces(fp.Name), a.bounds.TitleMaxChars)}
	if c, ok := fp.Coordinates(); ok {
		lat, lng := c.Lat, c.Lng
		out.Lat, out.Lng = &lat, &lng
	}
	if out.Name == "" && out.Lat == nil {
		return nil
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeDescription unifies line endings and trims each line, keeping
// blank lines so paragraph boundaries survive.
func normalizeDescription(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncateRunes(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return strings.TrimSpace(s[:pos])
		}
		i++
	}
	return s
}

func firstWords(s string, n int) string {
	words := strings.Fields(strings.ToValidUTF8(s, ""))
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
