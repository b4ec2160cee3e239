package chain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/challenge-resolver/internal/model"
)

func recordingLocation() *model.PartialExtraction {
	return &model.PartialExtraction{
		Source:      model.SourceRecordingLocation,
		Confidence:  ConfidenceRecordingLocation,
		Coordinates: coords(59.91, 10.75),
		Methods:     map[string]string{model.FieldCoordinates: MethodRecordingLocation},
	}
}

func structuredPartialWithName() *model.PartialExtraction {
	return &model.PartialExtraction{
		Source:      model.SourceStructured,
		Confidence:  0.8,
		Restaurant:  "Nye's Diner",
		City:        "Oslo",
		CountryCode: "NO",
		Result:      model.ResultSuccess,
		FoodType:    "burger",
		Scores:      scores(),
		Reasoning:   "finished on camera",
	}
}

func patternPartial() *model.PartialExtraction {
	p := &model.PartialExtraction{Source: model.SourcePattern, Confidence: 0.5, CountryCode: "NO", City: "Bergen"}
	p.SetMethod(model.FieldCountryCode, "title_leading_in")
	return p
}

func TestMerge_FieldIndependence(t *testing.T) {
	res := Merge([]*model.PartialExtraction{recordingLocation(), structuredPartialWithName()})

	c, ok := res.Coordinates()
	require.True(t, ok)
	assert.Equal(t, model.Coordinates{Lat: 59.91, Lng: 10.75}, c)
	assert.Equal(t, "Nye's Diner", res.Restaurant)
	assert.Equal(t, model.SourceRecordingLocation, res.Source)
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)

	assert.Equal(t, model.SourceRecordingLocation, res.Provenance(model.FieldCoordinates).WinnerSource)
	assert.Equal(t, model.SourceStructured, res.Provenance(model.FieldRestaurant).WinnerSource)
	assert.Equal(t, model.ResultSuccess, res.Result)
	assert.Equal(t, "burger", res.FoodType)
	assert.Equal(t, *scores(), res.Scores)
	assert.Equal(t, "finished on camera", res.Reasoning)
}

func TestMerge_Idempotent(t *testing.T) {
	a := []*model.PartialExtraction{patternPartial(), structuredPartialWithName(), recordingLocation()}
	b := []*model.PartialExtraction{recordingLocation(), patternPartial(), structuredPartialWithName()}

	first, err := json.Marshal(Merge(a))
	require.NoError(t, err)
	again, err := json.Marshal(Merge(a))
	require.NoError(t, err)
	reordered, err := json.Marshal(Merge(b))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(again))
	assert.Equal(t, string(first), string(reordered))
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	in := []*model.PartialExtraction{patternPartial(), recordingLocation()}
	before, err := json.Marshal(in)
	require.NoError(t, err)

	res := Merge(in)
	res.SetCoordinates(model.Coordinates{Lat: 1, Lng: 1})
	res.Scores.FoodVolume = 10

	after, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, model.SourcePattern, in[0].Source)
}

func TestMerge_NothingResolved(t *testing.T) {
	for _, in := range [][]*model.PartialExtraction{nil, {}, {nil, {Source: model.SourcePattern}}} {
		res := Merge(in)
		assert.Zero(t, res.Confidence)
		assert.Equal(t, model.ResultUnknown, res.Result)
		assert.Equal(t, model.Scores{}, res.Scores)
		assert.Empty(t, res.Source)
		assert.False(t, res.Resolved())
		assert.Nil(t, res.Lat)
		assert.Nil(t, res.Lng)
		assert.Empty(t, res.MergeLog)
	}
}

func TestMerge_OutcomeOnlyFromStructured(t *testing.T) {
	p := patternPartial()
	p.Result = model.ResultFailure
	p.FoodType = "pizza"
	p.Scores = scores()

	res := Merge([]*model.PartialExtraction{p})
	assert.Equal(t, model.ResultUnknown, res.Result)
	assert.Empty(t, res.FoodType)
	assert.Equal(t, model.Scores{}, res.Scores)
	assert.Nil(t, res.Provenance(model.FieldResult))
}

func TestMerge_PlaceDescriptionIsLastResortName(t *testing.T) {
	rl := recordingLocation()
	rl.PlaceDescription = "Downtown Oslo"
	rl.SetMethod(model.FieldRestaurant, MethodPlaceDescription)

	res := Merge([]*model.PartialExtraction{rl, patternPartial()})
	assert.Equal(t, "Downtown Oslo", res.Restaurant)
	assert.Equal(t, MethodPlaceDescription, res.Provenance(model.FieldRestaurant).Method)

	featured := &model.PartialExtraction{Source: model.SourceFeaturedPlace, Confidence: 0.9, Restaurant: "Nye's Diner"}
	res = Merge([]*model.PartialExtraction{rl, featured})
	assert.Equal(t, "Nye's Diner", res.Restaurant)
	assert.Equal(t, model.SourceFeaturedPlace, res.Provenance(model.FieldRestaurant).WinnerSource)
}

func TestMerge_PerFieldPriority(t *testing.T) {
	res := Merge([]*model.PartialExtraction{patternPartial(), structuredPartialWithName()})

	assert.Equal(t, "Oslo", res.City)
	city := res.Provenance(model.FieldCity)
	require.NotNil(t, city)
	assert.Equal(t, model.SourceStructured, city.WinnerSource)
	require.Len(t, city.Attempts, 2)
	assert.Equal(t, model.SourcePattern, city.Attempts[1].Source)
	assert.Equal(t, "Bergen", city.Attempts[1].Value)

	// No coordinates: confidence and source follow the restaurant.
	assert.Equal(t, model.SourceStructured, res.Source)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
}

func TestMerge_LocationOnlyConfidence(t *testing.T) {
	res := Merge([]*model.PartialExtraction{patternPartial()})
	assert.Equal(t, model.SourcePattern, res.Source)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.Equal(t, "NO", res.CountryCode)
	assert.Equal(t, "title_leading_in", res.Provenance(model.FieldCountryCode).Method)
}

func TestMerge_ConfidenceBands(t *testing.T) {
	tests := []struct {
		src  model.Source
		in   float64
		want float64
	}{
		{model.SourceRecordingLocation, 0.5, 0.95},
		{model.SourceRecordingLocation, 0.99, 0.99},
		{model.SourceFeaturedPlace, 0.2, 0.9},
		{model.SourceStructured, 0.95, 0.9},
		{model.SourceStructured, 0.1, 0.6},
		{model.SourceStructured, 0.75, 0.75},
		{model.SourcePattern, 0.9, 0.6},
		{model.SourcePattern, 0.5, 0.5},
		{"unknown", 0.9, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.src), func(t *testing.T) {
			assert.InDelta(t, tt.want, BandedConfidence(tt.src, tt.in), 1e-9)
		})
	}

	// An earlier source never scores below a later one.
	for i := 1; i < len(model.SourcePriority); i++ {
		hi := BandedConfidence(model.SourcePriority[i-1], 0)
		lo := BandedConfidence(model.SourcePriority[i], 1)
		assert.GreaterOrEqual(t, hi, lo, "%s vs %s", model.SourcePriority[i-1], model.SourcePriority[i])
	}
}

func TestMerge_InvalidCoordinatesIgnored(t *testing.T) {
	fp := &model.PartialExtraction{Source: model.SourceFeaturedPlace, Confidence: 0.9, Restaurant: "X", Coordinates: coords(0, 0)}
	res := Merge([]*model.PartialExtraction{fp})
	assert.Nil(t, res.Lat)
	assert.Equal(t, model.SourceFeaturedPlace, res.Source)
}

func TestMerge_AttemptKeepsReportedConfidence(t *testing.T) {
	low := structuredPartialWithName()
	low.Confidence = 0.1
	res := Merge([]*model.PartialExtraction{low, patternPartial()})

	assert.InDelta(t, 0.6, res.Confidence, 1e-9)
	city := res.Provenance(model.FieldCity)
	require.NotNil(t, city)
	require.Len(t, city.Attempts, 2)

	assert.InDelta(t, 0.6, city.Attempts[0].Confidence, 1e-9)
	require.NotNil(t, city.Attempts[0].Reported)
	assert.InDelta(t, 0.1, *city.Attempts[0].Reported, 1e-9)

	// In-band values are reported as-is.
	assert.InDelta(t, 0.5, city.Attempts[1].Confidence, 1e-9)
	assert.Nil(t, city.Attempts[1].Reported)

	data, err := json.Marshal(city.Attempts[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"reported_confidence":0.1`)
}
