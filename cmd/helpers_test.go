package main

import (
	"github.com/sells-group/challenge-resolver/internal/config"
)

// offlineConfig enables every local strategy and a memory geocode cache whose
// providers have no keys, so nothing touches the network.
func offlineConfig() *config.Config {
	return &config.Config{
		Signals: config.SignalsConfig{
			TitleMaxChars:       300,
			DescriptionMaxChars: 1000,
			MaxTags:             20,
			TagMaxChars:         50,
			CaptionMaxWords:     500,
		},
		Chain: config.ChainConfig{
			RecordingLocation: true,
			FeaturedPlace:     true,
			Pattern:           true,
			GeocodeFallback:   true,
		},
		Geocode: config.GeocodeConfig{
			Providers: []string{"opencage", "google"},
			Cache:     config.CacheConfig{Driver: "memory"},
		},
		Batch: config.BatchConfig{Concurrency: 2},
		Log:   config.LogConfig{Level: "error", Format: "json"},
	}
}

const sampleRecords = `{"video_id":"a","title":"IN NORWAY YOU HAVE TO STAY SEATED"}
{"video_id":"b","title":"BREAKFAST CHALLENGE","recording_location":{"lat":51.48,"lng":-3.18,"description":"Cardiff"}}
{"video_id":"c","title":"THE WACKIEST CHALLENGE I'VE DONE IN A WHILE"}
`
