package structured

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/challenge-resolver/internal/lexicon"
	"github.com/sells-group/challenge-resolver/internal/model"
)

// MethodModel is recorded for every field the model supplied.
const MethodModel = "model"

var scoreKeys = map[string]model.ScoreDimension{
	"food_volume_score":    model.ScoreFoodVolume,
	"time_limit_score":     model.ScoreTimeLimit,
	"success_rate_score":   model.ScoreSuccessRate,
	"spiciness_score":      model.ScoreSpiciness,
	"food_diversity_score": model.ScoreFoodDiversity,
	"risk_level_score":     model.ScoreRiskLevel,
}

var requiredKeys = []string{
	"restaurant", "city", "country", "result", "food_type", "confidence",
	"food_volume_score", "time_limit_score", "success_rate_score",
	"spiciness_score", "food_diversity_score", "risk_level_score",
}

const optionalKey = "reasoning"

// cleanJSON strips markdown fences and any prose around the outermost object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// validator checks a reply against the closed schema and converts it.
type validator struct {
	lex *lexicon.Lexicon
}

// parse returns the partial for a valid reply, or the list of violations.
// Case normalization, fence stripping and confidence clamping are repairs,
// not violations.
func (v validator) parse(text string) (*model.PartialExtraction, []string) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(cleanJSON(text)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, []string{"reply is not a JSON object"}
	}

	var violations []string
	for _, k := range requiredKeys {
		if _, ok := raw[k]; !ok {
			violations = append(violations, fmt.Sprintf("missing key %q", k))
		}
	}
	var unknown []string
	for k := range raw {
		if _, isScore := scoreKeys[k]; isScore || k == optionalKey || contains(requiredKeys, k) {
			continue
		}
		unknown = append(unknown, k)
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		violations = append(violations, fmt.Sprintf("unexpected key %q", k))
	}

	p := &model.PartialExtraction{Source: model.SourceStructured}
	strField := func(key, field string, dst *string) {
		s, ok, err := optionalString(raw[key])
		switch {
		case err != nil:
			violations = append(violations, fmt.Sprintf("%s must be a string or null", key))
		case ok:
			*dst = s
			p.SetMethod(field, MethodModel)
		}
	}
	strField("restaurant", model.FieldRestaurant, &p.Restaurant)
	strField("city", model.FieldCity, &p.City)
	strField("food_type", model.FieldFoodType, &p.FoodType)

	if country, ok, err := optionalString(raw["country"]); err != nil {
		violations = append(violations, "country must be a string or null")
	} else if ok {
		code, valid := v.countryCode(country)
		if !valid {
			violations = append(violations, fmt.Sprintf("country %q is not a two-letter code", country))
		} else {
			p.CountryCode = code
			p.SetMethod(model.FieldCountryCode, MethodModel)
		}
	}

	if s, ok, err := optionalString(raw["result"]); err != nil || !ok {
		if _, present := raw["result"]; present {
			violations = append(violations, "result must be success, failure or unknown")
		}
	} else if r, valid := model.ParseChallengeResult(s); !valid {
		violations = append(violations, fmt.Sprintf("result %q must be success, failure or unknown", s))
	} else {
		p.Result = r
		p.SetMethod(model.FieldResult, MethodModel)
	}

	if c, present := raw["confidence"]; present {
		f, err := number(c)
		if err != nil {
			violations = append(violations, "confidence must be a number")
		} else {
			p.Confidence = math.Max(0, math.Min(1, f))
		}
	}

	scores := &model.Scores{}
	for _, key := range requiredKeys {
		dim, isScore := scoreKeys[key]
		if !isScore {
			continue
		}
		data, present := raw[key]
		if !present {
			continue
		}
		f, err := number(data)
		if err != nil || f != math.Trunc(f) || f < model.MinScore || f > model.MaxScore {
			violations = append(violations, fmt.Sprintf("%s must be an integer 0-10", key))
			continue
		}
		if err := scores.Set(dim, int(f)); err != nil {
			violations = append(violations, err.Error())
		}
	}
	p.Scores = scores
	p.SetMethod(model.FieldScores, MethodModel)

	if r, ok, err := optionalString(raw[optionalKey]); err != nil {
		violations = append(violations, "reasoning must be a string or null")
	} else if ok {
		p.Reasoning = r
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return p, nil
}

// countryCode accepts a two-letter code in any case, or a country name the
// lexicon knows.
func (v validator) countryCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 2 && isASCIILetters(s) {
		return strings.ToUpper(s), true
	}
	if v.lex != nil {
		if place, ok := v.lex.Resolve(s); ok && place.IsCountry() {
			return place.CountryCode, true
		}
	}
	return "", false
}

// optionalString decodes a JSON string or null. Blank strings count as null.
func optionalString(data json.RawMessage) (string, bool, error) {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false, err
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

func number(data json.RawMessage) (float64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '"' {
		return 0, eris.New("structured: not a JSON number")
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, err
	}
	return n.Float64()
}

func isASCIILetters(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i] | 0x20
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
