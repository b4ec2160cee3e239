package model

// VideoRecord is the raw per-video input produced by the platform-API and
// scraping collaborators. The resolver never fetches it itself.
type VideoRecord struct {
	VideoID           string             `json:"video_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Tags              []string           `json:"tags,omitempty"`
	RecordingLocation *RecordingLocation `json:"recording_location,omitempty"`
	FeaturedPlace     *FeaturedPlace     `json:"featured_place,omitempty"`
	CaptionIntro      string             `json:"caption_intro,omitempty"`
}

// RecordingLocation is the creator-supplied recording location reported by
// the video platform.
type RecordingLocation struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
}

// FeaturedPlace is a venue scraped from the video page. Coordinates are
// optional and, when present, come as a pair.
type FeaturedPlace struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

// Coordinates returns the featured place's coordinates when both are set
// and valid.
func (f *FeaturedPlace) Coordinates() (Coordinates, bool) {
	if f == nil || f.Lat == nil || f.Lng == nil {
		return Coordinates{}, false
	}
	c := Coordinates{Lat: *f.Lat, Lng: *f.Lng}
	return c, c.Valid()
}

// RawSignals is the bounded, normalized context bundle assembled once per
// video by the signal aggregator. Treat it as read-only: the aggregator
// hands out copies and downstream strategies assume its size bounds hold.
type RawSignals struct {
	VideoID           string
	Title             string
	Description       string
	Tags              []string
	CaptionIntro      string
	RecordingLocation *RecordingLocation
	FeaturedPlace     *FeaturedPlace
}

// HasCaptions reports whether a caption intro is available.
func (s RawSignals) HasCaptions() bool {
	return s.CaptionIntro != ""
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is within range and not the 0,0 sentinel
// some platforms emit for "unset".
func (c Coordinates) Valid() bool {
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return false
	}
	return c.Lat != 0 || c.Lng != 0
}
