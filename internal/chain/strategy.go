// Package chain runs the extraction strategies in priority order and merges
// their partial results field by field.
package chain

import (
	"context"
	"strings"

	"github.com/sells-group/challenge-resolver/internal/model"
	"github.com/sells-group/challenge-resolver/internal/pattern"
	"github.com/sells-group/challenge-resolver/internal/structured"
)

// Fixed confidences for the platform-supplied strategies.
const (
	ConfidenceRecordingLocation = 0.95
	ConfidenceFeaturedPlace     = 0.9
)

// Method names recorded in provenance.
const (
	MethodRecordingLocation = "recording_location"
	MethodPlaceDescription  = "recording_location_description"
	MethodFeaturedPlace     = "featured_place"
)

// Strategy is one self-contained extraction method. Extract returns
// (nil, nil) when it has nothing to contribute.
type Strategy interface {
	Source() model.Source
	Extract(ctx context.Context, rec *model.VideoRecord, sig model.RawSignals) (*model.PartialExtraction, error)
}

// RecordingLocationStrategy reads the creator-supplied recording location.
type RecordingLocationStrategy struct{}

// Source implements Strategy.
func (RecordingLocationStrategy) Source() model.Source { return model.SourceRecordingLocation }

// Extract implements Strategy.
func (RecordingLocationStrategy) Extract(_ context.Context, _ *model.VideoRecord, sig model.RawSignals) (*model.PartialExtraction, error) {
	rl := sig.RecordingLocation
	if rl == nil {
		return nil, nil
	}
	c := model.Coordinates{Lat: rl.Lat, Lng: rl.Lng}
	if !c.Valid() {
		return nil, nil
	}
	p := &model.PartialExtraction{
		Source:           model.SourceRecordingLocation,
		Confidence:       ConfidenceRecordingLocation,
		Coordinates:      &c,
		PlaceDescription: strings.TrimSpace(rl.Description),
	}
	p.SetMethod(model.FieldCoordinates, MethodRecordingLocation)
	if p.PlaceDescription != "" {
		p.SetMethod(model.FieldRestaurant, MethodPlaceDescription)
	}
	return p, nil
}

// FeaturedPlaceStrategy reads the venue scraped from the video page.
type FeaturedPlaceStrategy struct{}

// Source implements Strategy.
func (FeaturedPlaceStrategy) Source() model.Source { return model.SourceFeaturedPlace }

// Extract implements Strategy.
func (FeaturedPlaceStrategy) Extract(_ context.Context, _ *model.VideoRecord, sig model.RawSignals) (*model.PartialExtraction, error) {
	fp := sig.FeaturedPlace
	if fp == nil {
		return nil, nil
	}
	p := &model.PartialExtraction{
		Source:     model.SourceFeaturedPlace,
		Confidence: ConfidenceFeaturedPlace,
		Restaurant: strings.TrimSpace(fp.Name),
	}
	if p.Restaurant != "" {
		p.SetMethod(model.FieldRestaurant, MethodFeaturedPlace)
	}
	if c, ok := fp.Coordinates(); ok {
		p.Coordinates = &c
		p.SetMethod(model.FieldCoordinates, MethodFeaturedPlace)
	}
	if p.Empty() {
		return nil, nil
	}
	return p, nil
}

// StructuredStrategy delegates to the structured extractor.
type StructuredStrategy struct {
	Extractor *structured.Extractor
}

// Source implements Strategy.
func (StructuredStrategy) Source() model.Source { return model.SourceStructured }

// Extract implements Strategy.
func (s StructuredStrategy) Extract(ctx context.Context, _ *model.VideoRecord, sig model.RawSignals) (*model.PartialExtraction, error) {
	if s.Extractor == nil {
		return nil, structured.ErrDisabled
	}
	return s.Extractor.Extract(ctx, sig)
}

// PatternStrategy runs the deterministic title/description patterns.
type PatternStrategy struct {
	Extractor *pattern.Extractor
}

// Source implements Strategy.
func (PatternStrategy) Source() model.Source { return model.SourcePattern }

// Extract implements Strategy.
func (s PatternStrategy) Extract(_ context.Context, _ *model.VideoRecord, sig model.RawSignals) (*model.PartialExtraction, error) {
	ext := s.Extractor
	if ext == nil {
		ext = pattern.New(nil)
	}
	p := ext.Extract(sig.Title, sig.Description)
	if p.Empty() {
		return nil, nil
	}
	return p, nil
}
