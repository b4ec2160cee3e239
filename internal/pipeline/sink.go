package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/internal/model"
)

// Sink is the persistence collaborator: it receives one result per video.
type Sink interface {
	Write(ctx context.Context, res model.ExtractionResult) error
}

// JSONLSink writes one JSON object per line.
type JSONLSink struct {
	mu      sync.Mutex
	enc     *json.Encoder
	withLog bool
}

// NewJSONLSink writes to w. When withMergeLog is false the per-field
// provenance is left out of the output.
func NewJSONLSink(w io.Writer, withMergeLog bool) *JSONLSink {
	return &JSONLSink{enc: json.NewEncoder(w), withLog: withMergeLog}
}

// Write implements Sink.
func (s *JSONLSink) Write(_ context.Context, res model.ExtractionResult) error {
	if !s.withLog {
		res.MergeLog = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return eris.Wrap(s.enc.Encode(res), "pipeline: encode result")
}

// CollectSink keeps results in memory.
type CollectSink struct {
	mu      sync.Mutex
	results []model.ExtractionResult
}

// Write implements Sink.
func (s *CollectSink) Write(_ context.Context, res model.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

// Results returns a copy of everything written so far.
func (s *CollectSink) Results() []model.ExtractionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ExtractionResult(nil), s.results...)
}
