package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Source identifies the extraction strategy that produced a value.
type Source string

const (
	SourceRecordingLocation Source = "recording_location"
	SourceFeaturedPlace     Source = "featured_place"
	SourceStructured        Source = "structured_extractor"
	SourcePattern           Source = "pattern_extractor"
)

// SourcePriority lists the strategies from highest to lowest priority.
var SourcePriority = []Source{
	SourceRecordingLocation,
	SourceFeaturedPlace,
	SourceStructured,
	SourcePattern,
}

// Rank returns the position of s in SourcePriority, or len(SourcePriority)
// for an unknown source so that it sorts last.
func (s Source) Rank() int {
	for i, p := range SourcePriority {
		if p == s {
			return i
		}
	}
	return len(SourcePriority)
}

// ChallengeResult is the outcome of the food challenge.
type ChallengeResult string

const (
	ResultSuccess ChallengeResult = "success"
	ResultFailure ChallengeResult = "failure"
	ResultUnknown ChallengeResult = "unknown"
)

// ParseChallengeResult normalizes s into a ChallengeResult.
func ParseChallengeResult(s string) (ChallengeResult, bool) {
	switch ChallengeResult(strings.ToLower(strings.TrimSpace(s))) {
	case ResultSuccess:
		return ResultSuccess, true
	case ResultFailure:
		return ResultFailure, true
	case ResultUnknown:
		return ResultUnknown, true
	default:
		return "", false
	}
}

// ScoreDimension names one of the six fixed difficulty dimensions.
type ScoreDimension string

const (
	ScoreFoodVolume    ScoreDimension = "food_volume"
	ScoreTimeLimit     ScoreDimension = "time_limit"
	ScoreSuccessRate   ScoreDimension = "success_rate"
	ScoreSpiciness     ScoreDimension = "spiciness"
	ScoreFoodDiversity ScoreDimension = "food_diversity"
	ScoreRiskLevel     ScoreDimension = "risk_level"
)

// ScoreDimensions lists every dimension in output order.
var ScoreDimensions = []ScoreDimension{
	ScoreFoodVolume,
	ScoreTimeLimit,
	ScoreSuccessRate,
	ScoreSpiciness,
	ScoreFoodDiversity,
	ScoreRiskLevel,
}

// MinScore and MaxScore bound every difficulty score.
const (
	MinScore = 0
	MaxScore = 10
)

// Scores holds the six difficulty scores. The zero value is the default for
// dimensions nobody supplied.
type Scores struct {
	FoodVolume    int `json:"food_volume"`
	TimeLimit     int `json:"time_limit"`
	SuccessRate   int `json:"success_rate"`
	Spiciness     int `json:"spiciness"`
	FoodDiversity int `json:"food_diversity"`
	RiskLevel     int `json:"risk_level"`
}

// Set assigns the score for dim, rejecting unknown dimensions and values
// outside MinScore..MaxScore.
func (s *Scores) Set(dim ScoreDimension, v int) error {
	if v < MinScore || v > MaxScore {
		return eris.Errorf("model: score %s=%d out of range", dim, v)
	}
	p := s.field(dim)
	if p == nil {
		return eris.Errorf("model: unknown score dimension %q", dim)
	}
	*p = v
	return nil
}

// Get returns the score for dim (0 for unknown dimensions).
func (s Scores) Get(dim ScoreDimension) int {
	if p := s.field(dim); p != nil {
		return *p
	}
	return 0
}

func (s *Scores) field(dim ScoreDimension) *int {
	switch dim {
	case ScoreFoodVolume:
		return &s.FoodVolume
	case ScoreTimeLimit:
		return &s.TimeLimit
	case ScoreSuccessRate:
		return &s.SuccessRate
	case ScoreSpiciness:
		return &s.Spiciness
	case ScoreFoodDiversity:
		return &s.FoodDiversity
	case ScoreRiskLevel:
		return &s.RiskLevel
	default:
		return nil
	}
}

// PartialExtraction is one strategy's contribution. Any field may be empty;
// empty strings and nil pointers mean "not supplied".
type PartialExtraction struct {
	Source     Source
	Confidence float64

	Restaurant string
	// PlaceDescription is a free-text place label that is not a clean venue
	// name (the recording location's description). Used as a last-resort name.
	PlaceDescription string
	City             string
	Region           string
	CountryCode      string
	Coordinates      *Coordinates

	Result    ChallengeResult
	FoodType  string
	Scores    *Scores
	Reasoning string

	// Methods records, per field name, how the value was found.
	Methods map[string]string
}

// Empty reports whether the partial supplies no field at all.
func (p *PartialExtraction) Empty() bool {
	if p == nil {
		return true
	}
	return p.Restaurant == "" && p.PlaceDescription == "" && p.City == "" &&
		p.Region == "" && p.CountryCode == "" && p.Coordinates == nil &&
		p.Result == "" && p.FoodType == "" && p.Scores == nil
}

// Method returns the recorded method for field, if any.
func (p *PartialExtraction) Method(field string) string {
	if p == nil || p.Methods == nil {
		return ""
	}
	return p.Methods[field]
}

// SetMethod records how field was found.
func (p *PartialExtraction) SetMethod(field, method string) {
	if p.Methods == nil {
		p.Methods = make(map[string]string)
	}
	p.Methods[field] = method
}

// ExtractionResult is the resolved record for one video. Lat and Lng are
// either both set or both nil.
type ExtractionResult struct {
	VideoID     string            `json:"video_id,omitempty"`
	Restaurant  string            `json:"restaurant,omitempty"`
	City        string            `json:"city,omitempty"`
	CountryCode string            `json:"country_code,omitempty"`
	Region      string            `json:"region,omitempty"`
	Lat         *float64          `json:"lat,omitempty"`
	Lng         *float64          `json:"lng,omitempty"`
	Result      ChallengeResult   `json:"result"`
	FoodType    string            `json:"food_type,omitempty"`
	Scores      Scores            `json:"scores"`
	Confidence  float64           `json:"confidence"`
	Source      Source            `json:"source,omitempty"`
	Reasoning   string            `json:"reasoning,omitempty"`
	MergeLog    []FieldProvenance `json:"merge_log,omitempty"`
}

// Coordinates returns the result's coordinates when present.
func (r ExtractionResult) Coordinates() (Coordinates, bool) {
	if r.Lat == nil || r.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *r.Lat, Lng: *r.Lng}, true
}

// SetCoordinates sets both coordinates together.
func (r *ExtractionResult) SetCoordinates(c Coordinates) {
	lat, lng := c.Lat, c.Lng
	r.Lat = &lat
	r.Lng = &lng
}

// Resolved reports whether any location field was resolved.
func (r ExtractionResult) Resolved() bool {
	return r.Lat != nil || r.Restaurant != "" || r.City != "" || r.Region != "" || r.CountryCode != ""
}

// Provenance returns the merge-log entry for field, or nil.
func (r ExtractionResult) Provenance(field string) *FieldProvenance {
	for i := range r.MergeLog {
		if r.MergeLog[i].Field == field {
			return &r.MergeLog[i]
		}
	}
	return nil
}
