package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"resolve", "batch", "geocode", "lexicon"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "challenge-resolver", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestResolveCommand_Flags(t *testing.T) {
	flag := resolveCmd.Flags().Lookup("input")
	require.NotNil(t, flag)
	assert.Equal(t, "-", flag.DefValue)

	flag = resolveCmd.Flags().Lookup("merge-log")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "output", "metrics-addr", "concurrency", "merge-log"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "batch should have --%s flag", name)
	}
	assert.Equal(t, "0", batchCmd.Flags().Lookup("concurrency").DefValue)
}

func TestGeocodeAndLexicon_RequireArgs(t *testing.T) {
	assert.Error(t, geocodeCmd.Args(geocodeCmd, nil))
	assert.NoError(t, geocodeCmd.Args(geocodeCmd, []string{"Oslo"}))
	assert.Error(t, lexiconCmd.Args(lexiconCmd, nil))
}
