package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/challenge-resolver/internal/model"
)

func TestJSONLSink(t *testing.T) {
	res := model.ExtractionResult{
		VideoID:  "v1",
		City:     "Oslo",
		Result:   model.ResultUnknown,
		MergeLog: []model.FieldProvenance{{Field: model.FieldCity, WinnerSource: model.SourcePattern, WinnerValue: "Oslo"}},
	}

	var buf bytes.Buffer
	s := NewJSONLSink(&buf, false)
	require.NoError(t, s.Write(context.Background(), res))
	require.NoError(t, s.Write(context.Background(), res))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "v1", got["video_id"])
	assert.Equal(t, "unknown", got["result"])
	assert.NotContains(t, got, "merge_log")
	assert.NotContains(t, got, "lat")

	buf.Reset()
	require.NoError(t, NewJSONLSink(&buf, true).Write(context.Background(), res))
	assert.Contains(t, buf.String(), `"merge_log"`)
}
