package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/challenge-resolver/internal/lexicon"
)

func TestLookupPlace(t *testing.T) {
	lex := lexicon.Default()

	var out bytes.Buffer
	require.NoError(t, lookupPlace(&out, lex, "norway", false))
	var got map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Norway", got["name"])
	assert.Equal(t, "NO", got["country_code"])
	assert.Equal(t, "country", got["kind"])

	out.Reset()
	require.NoError(t, lookupPlace(&out, lex, "best burger in Oslo tonight", true))
	got = nil
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "Oslo", got["name"])
	assert.Equal(t, "Oslo", got["match"])

	assert.Error(t, lookupPlace(&out, lex, "Atlantis", false))
	assert.Error(t, lookupPlace(&out, lex, "nothing here", true))
}
