// Package pattern is the deterministic, rule-based extraction baseline. It
// reads only the title and description and never claims more than medium
// confidence.
package pattern

import (
	"regexp"
	"strings"

	"github.com/sells-group/challenge-resolver/internal/lexicon"
	"github.com/sells-group/challenge-resolver/internal/model"
)

// Fixed confidences. Pattern output must stay below every other strategy.
const (
	ConfidenceTitle       = 0.5
	ConfidenceDescription = 0.6
)

// Methods recorded in PartialExtraction.Methods.
const (
	MethodTitlePipe         = "title_pipe"
	MethodTitleLeadingIn    = "title_leading_in"
	MethodTitleIn           = "title_in"
	MethodTitleScan         = "title_lexicon_scan"
	MethodDescriptionMarker = "description_marker"
	MethodDescriptionAt     = "description_at"
)

// titleStop ends a captured "IN <phrase>" location phrase.
const titleStop = `(?:\s+(?:FOR|YOU|HAS|HAVE|TO|IS|I'VE|I’VE|THAT)\b|\s*(?:\||!|\?|\.\.\.|,)|\s*$)`

var (
	leadingIn = regexp.MustCompile(`(?i)^\s*IN\s+(\pL[\pL'’ .-]*?)` + titleStop)
	anyIn     = regexp.MustCompile(`(?i)\bIN\s+(\pL[\pL'’ .-]*?)` + titleStop)

	// markerLine matches anywhere in the description. An explicit marker is
	// unambiguous, and creators usually put it below the intro paragraph.
	markerLine = regexp.MustCompile(`(?im)^[ \t]*(?:📍[ \t]*(?:location[ \t]*:)?|location[ \t]*:)[ \t]*(\S.*?)[ \t]*$`)

	atVenue = regexp.MustCompile(`\b[Aa]t\s+((?:[Tt]he\s+)?[A-Z][\pL\pN'’&-]*(?:\s+(?:[A-Z0-9][\pL\pN'’&-]*|(?:of|the|and|de|la)\b|&))*)`)
)

// stopPhrases are "at X" continuations that never name a venue.
var stopPhrases = []string{
	"least", "all", "home", "once", "first", "last", "times", "night",
	"noon", "midnight", "the end", "the moment", "the time", "the start",
	"the same time", "christmas", "easter", "i",
}

// usStateCodes maps postal codes to lexicon state names for "City, ST"
// title segments. Codes are not lexicon aliases because words like "IN" and
// "OK" would then match ordinary title text.
var usStateCodes = map[string]string{
	"AL": "Alabama", "AZ": "Arizona", "AR": "Arkansas", "CA": "California",
	"CO": "Colorado", "CT": "Connecticut", "FL": "Florida", "GA": "Georgia",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NJ": "New Jersey", "NM": "New Mexico", "NY": "New York", "NC": "North Carolina",
	"OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania",
	"SC": "South Carolina", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VA": "Virginia", "WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin",
}

const maxVenueWords = 8

var trailingConnectors = map[string]bool{"of": true, "the": true, "and": true, "&": true, "de": true, "la": true}

// Extractor is safe for concurrent use.
type Extractor struct {
	lex *lexicon.Lexicon
}

// New creates an Extractor over lex (the embedded lexicon when nil).
func New(lex *lexicon.Lexicon) *Extractor {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Extractor{lex: lex}
}

// Extract runs the title and description heuristics independently. The
// returned partial has Confidence 0 when nothing was found.
func (e *Extractor) Extract(title, description string) *model.PartialExtraction {
	p := &model.PartialExtraction{Source: model.SourcePattern}

	if e.pipeTitle(p, title) {
		p.Confidence = ConfidenceTitle
	} else if place, method, ok := e.titleLocation(title); ok {
		applyPlace(p, place, method)
		p.Confidence = ConfidenceTitle
	}

	if e.describe(p, description) {
		p.Confidence = ConfidenceDescription
	}
	return p
}

// pipeTitle handles "Venue | City, Country | Challenge". It only applies
// when the second segment resolves as a location; the first segment is then
// the venue unless it is a place or an "IN <place>" phrase.
func (e *Extractor) pipeTitle(p *model.PartialExtraction, title string) bool {
	segments := strings.Split(title, "|")
	if len(segments) < 2 {
		return false
	}
	if !e.applyLocality(p, segments[1], MethodTitlePipe) {
		return false
	}
	if venue := e.pipeVenue(segments[0]); venue != "" {
		p.Restaurant = venue
		p.SetMethod(model.FieldRestaurant, MethodTitlePipe)
	}
	return true
}

func (e *Extractor) pipeVenue(segment string) string {
	venue := strings.TrimSpace(strings.Trim(strings.TrimSpace(segment), `"“”`))
	if venue == "" || len(strings.Fields(venue)) > maxVenueWords {
		return ""
	}
	if leadingIn.MatchString(venue) {
		return ""
	}
	if _, isPlace := e.lex.Resolve(venue); isPlace {
		return ""
	}
	return venue
}

// applyLocality fills location fields from a "City, Country" or "City, ST"
// segment and reports whether any part of it resolved. An unknown city is
// kept only next to a US state code.
func (e *Extractor) applyLocality(p *model.PartialExtraction, segment, method string) bool {
	var parts []string
	for _, part := range strings.Split(segment, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return false
	}

	if len(parts) == 2 {
		if name, ok := usStateCodes[parts[1]]; ok {
			if place, ok := e.lex.Resolve(parts[0]); ok && place.IsCity() {
				applyPlace(p, place, method)
			} else if p.City == "" {
				p.City = parts[0]
				p.SetMethod(model.FieldCity, method)
			}
			applyPlace(p, lexicon.Place{Name: name, CountryCode: "US", Kind: lexicon.KindUSState}, method)
			return true
		}
	}

	resolved := false
	for _, part := range parts {
		if place, ok := e.lex.Resolve(part); ok {
			applyPlace(p, place, method)
			resolved = true
		}
	}
	return resolved
}

// titleLocation tries the title patterns in priority order and returns the
// first candidate phrase the lexicon resolves.
func (e *Extractor) titleLocation(title string) (lexicon.Place, string, bool) {
	if m := leadingIn.FindStringSubmatch(title); m != nil {
		if place, ok := e.resolvePhrase(m[1]); ok {
			return place, MethodTitleLeadingIn, true
		}
	}
	for _, m := range anyIn.FindAllStringSubmatch(title, -1) {
		if place, ok := e.resolvePhrase(m[1]); ok {
			return place, MethodTitleIn, true
		}
	}
	if place, _, ok := e.lex.Scan(title); ok {
		return place, MethodTitleScan, true
	}
	return lexicon.Place{}, "", false
}

func (e *Extractor) resolvePhrase(phrase string) (lexicon.Place, bool) {
	phrase = strings.TrimSpace(strings.Trim(phrase, ".'’ "))
	if place, ok := e.lex.Resolve(phrase); ok {
		return place, true
	}
	if rest, ok := cutPrefixFold(phrase, "the "); ok {
		return e.lex.Resolve(rest)
	}
	return lexicon.Place{}, false
}

// describe applies the description heuristics and reports whether any
// field came from the description.
func (e *Extractor) describe(p *model.PartialExtraction, description string) bool {
	if description == "" {
		return false
	}
	contributed := false

	if m := markerLine.FindStringSubmatch(description); m != nil {
		contributed = e.applyMarker(p, m[1])
	}
	if p.Restaurant == "" {
		if name, ok := e.atPhrase(firstParagraph(description)); ok {
			p.Restaurant = name
			p.SetMethod(model.FieldRestaurant, MethodDescriptionAt)
			contributed = true
		}
	}
	return contributed
}

// applyMarker parses "Name, City, Country". The leading part is the venue
// unless it is itself a known place; later parts only fill location fields
// the title left empty.
func (e *Extractor) applyMarker(p *model.PartialExtraction, line string) bool {
	parts := strings.Split(line, ",")
	contributed := false
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if place, ok := e.lex.Resolve(part); ok {
			if applyPlace(p, place, MethodDescriptionMarker) {
				contributed = true
			}
			continue
		}
		if i == 0 {
			p.Restaurant = strings.Trim(part, `"“”`)
			p.SetMethod(model.FieldRestaurant, MethodDescriptionMarker)
			contributed = true
		}
	}
	return contributed
}

func (e *Extractor) atPhrase(text string) (string, bool) {
	for _, m := range atVenue.FindAllStringSubmatch(text, -1) {
		name := trimCandidate(m[1])
		if name == "" || isStopPhrase(name) {
			continue
		}
		if _, isPlace := e.lex.Resolve(name); isPlace {
			continue
		}
		return name, true
	}
	return "", false
}

// applyPlace fills the fields a lexicon place implies without overwriting
// anything already set. It reports whether a field was filled.
func applyPlace(p *model.PartialExtraction, place lexicon.Place, method string) bool {
	filled := false
	set := func(field string, dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			p.SetMethod(field, method)
			filled = true
		}
	}
	switch place.Kind {
	case lexicon.KindCountry:
	case lexicon.KindCity:
		set(model.FieldCity, &p.City, place.Name)
	default:
		set(model.FieldRegion, &p.Region, place.Name)
	}
	set(model.FieldCountryCode, &p.CountryCode, place.CountryCode)
	return filled
}

func trimCandidate(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 {
		last := strings.TrimRight(words[len(words)-1], ".,;:!?-")
		if last == "" || trailingConnectors[strings.ToLower(last)] {
			words = words[:len(words)-1]
			continue
		}
		words[len(words)-1] = last
		break
	}
	return strings.Join(words, " ")
}

func isStopPhrase(name string) bool {
	lower := strings.ToLower(name)
	for _, sp := range stopPhrases {
		if lower == sp || strings.HasPrefix(lower, sp+" ") {
			return true
		}
	}
	return false
}

func firstParagraph(s string) string {
	for _, para := range strings.Split(s, "\n\n") {
		if strings.TrimSpace(para) != "" {
			return para
		}
	}
	return ""
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
