package chain

import (
	"math"
	"sort"

	"github.com/sells-group/challenge-resolver/internal/model"
)

type band struct{ lo, hi float64 }

// confidenceBands keeps every strategy's confidence inside its priority
// band, so an earlier strategy never scores below a later one. The floors
// lift low self-reported values (a structured 0.1 merges as 0.6); the
// provenance attempt keeps the reported figure.
var confidenceBands = map[model.Source]band{
	model.SourceRecordingLocation: {lo: 0.95, hi: 1},
	model.SourceFeaturedPlace:     {lo: 0.9, hi: 0.9},
	model.SourceStructured:        {lo: 0.6, hi: 0.9},
	model.SourcePattern:           {lo: 0, hi: 0.6},
}

// BandedConfidence clamps c into the band for src. Unknown sources score 0.
func BandedConfidence(src model.Source, c float64) float64 {
	b, ok := confidenceBands[src]
	if !ok || math.IsNaN(c) {
		return 0
	}
	return math.Max(b.lo, math.Min(b.hi, c))
}

type fieldPick struct {
	prov   model.FieldProvenance
	winner *model.PartialExtraction
}

// pick returns the first partial in priority order supplying field, with
// every supplier recorded as an attempt. nil means nobody supplied it.
func pick(ordered []*model.PartialExtraction, field string, get func(*model.PartialExtraction) (any, bool)) *fieldPick {
	var fp *fieldPick
	for _, p := range ordered {
		v, ok := get(p)
		if !ok {
			continue
		}
		attempt := model.ProvenanceAttempt{
			Source:     p.Source,
			Value:      v,
			Confidence: BandedConfidence(p.Source, p.Confidence),
			Method:     p.Method(field),
		}
		if attempt.Confidence != p.Confidence {
			reported := p.Confidence
			attempt.Reported = &reported
		}
		if fp == nil {
			fp = &fieldPick{
				winner: p,
				prov: model.FieldProvenance{
					Field:        field,
					WinnerSource: p.Source,
					WinnerValue:  v,
					Confidence:   attempt.Confidence,
					Method:       attempt.Method,
				},
			}
		}
		fp.prov.Attempts = append(fp.prov.Attempts, attempt)
	}
	return fp
}

func stringField(get func(*model.PartialExtraction) string) func(*model.PartialExtraction) (any, bool) {
	return func(p *model.PartialExtraction) (any, bool) {
		s := get(p)
		return s, s != ""
	}
}

// Merge combines partial extractions into one result. Each field is taken
// independently from the highest-priority partial that supplies it; the
// outcome fields come from the structured extractor only. Merge is pure:
// the input order does not matter and the partials are not modified.
func Merge(partials []*model.PartialExtraction) model.ExtractionResult {
	ordered := make([]*model.PartialExtraction, 0, len(partials))
	for _, p := range partials {
		if !p.Empty() {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Source.Rank() < ordered[j].Source.Rank()
	})

	res := model.ExtractionResult{Result: model.ResultUnknown}
	var mergeLog []model.FieldProvenance
	record := func(fp *fieldPick) {
		if fp != nil {
			mergeLog = append(mergeLog, fp.prov)
		}
	}

	restaurant := pick(ordered, model.FieldRestaurant, stringField(func(p *model.PartialExtraction) string { return p.Restaurant }))
	if restaurant == nil {
		// A recording-location label is a name of last resort.
		restaurant = pick(ordered, model.FieldRestaurant, stringField(func(p *model.PartialExtraction) string { return p.PlaceDescription }))
	}
	city := pick(ordered, model.FieldCity, stringField(func(p *model.PartialExtraction) string { return p.City }))
	region := pick(ordered, model.FieldRegion, stringField(func(p *model.PartialExtraction) string { return p.Region }))
	country := pick(ordered, model.FieldCountryCode, stringField(func(p *model.PartialExtraction) string { return p.CountryCode }))
	coords := pick(ordered, model.FieldCoordinates, func(p *model.PartialExtraction) (any, bool) {
		if p.Coordinates == nil || !p.Coordinates.Valid() {
			return nil, false
		}
		return *p.Coordinates, true
	})

	if restaurant != nil {
		res.Restaurant = restaurant.prov.WinnerValue.(string)
	}
	if city != nil {
		res.City = city.prov.WinnerValue.(string)
	}
	if region != nil {
		res.Region = region.prov.WinnerValue.(string)
	}
	if country != nil {
		res.CountryCode = country.prov.WinnerValue.(string)
	}
	if coords != nil {
		res.SetCoordinates(coords.prov.WinnerValue.(model.Coordinates))
	}
	record(restaurant)
	record(city)
	record(region)
	record(country)
	record(coords)

	if s := structuredPartial(ordered); s != nil {
		only := []*model.PartialExtraction{s}
		result := pick(only, model.FieldResult, func(p *model.PartialExtraction) (any, bool) {
			return p.Result, p.Result != ""
		})
		foodType := pick(only, model.FieldFoodType, stringField(func(p *model.PartialExtraction) string { return p.FoodType }))
		scores := pick(only, model.FieldScores, func(p *model.PartialExtraction) (any, bool) {
			if p.Scores == nil {
				return nil, false
			}
			return *p.Scores, true
		})
		if result != nil {
			res.Result = s.Result
		}
		if foodType != nil {
			res.FoodType = s.FoodType
		}
		if scores != nil {
			res.Scores = *s.Scores
		}
		res.Reasoning = s.Reasoning
		record(result)
		record(foodType)
		record(scores)
	}

	for _, fp := range []*fieldPick{coords, restaurant, city, region, country} {
		if fp != nil {
			res.Source = fp.winner.Source
			res.Confidence = fp.prov.Confidence
			break
		}
	}
	res.MergeLog = mergeLog
	return res
}

func structuredPartial(ordered []*model.PartialExtraction) *model.PartialExtraction {
	for _, p := range ordered {
		if p.Source == model.SourceStructured {
			return p
		}
	}
	return nil
}
