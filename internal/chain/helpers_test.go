package chain

import (
	"context"
	"sync"

	"github.com/sells-group/challenge-resolver/internal/model"
	"github.com/sells-group/challenge-resolver/pkg/anthropic"
	"github.com/sells-group/challenge-resolver/pkg/geocode"
)

type fakeStrategy struct {
	src model.Source
	p   *model.PartialExtraction
	err error
}

func (f fakeStrategy) Source() model.Source { return f.src }

func (f fakeStrategy) Extract(context.Context, *model.VideoRecord, model.RawSignals) (*model.PartialExtraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.p == nil {
		return nil, nil
	}
	cp := *f.p
	return &cp, nil
}

// fakeGeocoder answers only the queries it knows and records every query.
type fakeGeocoder struct {
	mu      sync.Mutex
	answers map[string]model.Coordinates
	queries []string
}

func (g *fakeGeocoder) Resolve(_ context.Context, q string) (*geocode.Resolution, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, q)
	c, ok := g.answers[q]
	if !ok {
		return nil, false
	}
	return &geocode.Resolution{Query: q, QueryKey: geocode.Normalize(q), Lat: c.Lat, Lng: c.Lng, Provider: "opencage"}, true
}

// cannedClient replies with the same text to every request.
type cannedClient struct{ text string }

func (c cannedClient) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: c.text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func coords(lat, lng float64) *model.Coordinates {
	return &model.Coordinates{Lat: lat, Lng: lng}
}

func scores() *model.Scores {
	return &model.Scores{FoodVolume: 8, TimeLimit: 6, SuccessRate: 9, FoodDiversity: 3, RiskLevel: 7}
}
