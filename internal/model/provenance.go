package model

// Field names used in merge logs and PartialExtraction.Methods.
const (
	FieldRestaurant  = "restaurant"
	FieldCity        = "city"
	FieldRegion      = "region"
	FieldCountryCode = "country_code"
	FieldCoordinates = "coordinates"
	FieldResult      = "result"
	FieldFoodType    = "food_type"
	FieldScores      = "scores"
)

// ProvenanceAttempt records one strategy's value for a field. Confidence is
// the banded value used by the merge; Reported holds the strategy's own
// figure when banding changed it.
type ProvenanceAttempt struct {
	Source     Source   `json:"source"`
	Value      any      `json:"value"`
	Confidence float64  `json:"confidence"`
	Reported   *float64 `json:"reported_confidence,omitempty"`
	Method     string   `json:"method,omitempty"`
}

// FieldProvenance is the per-field audit trail of a merge: which strategy
// won and everything that was on offer.
type FieldProvenance struct {
	Field        string              `json:"field"`
	WinnerSource Source              `json:"winner_source"`
	WinnerValue  any                 `json:"winner_value"`
	Confidence   float64             `json:"confidence"`
	Method       string              `json:"method,omitempty"`
	Attempts     []ProvenanceAttempt `json:"attempts"`
}
