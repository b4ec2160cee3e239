// Package lexicon maps free-text place names to normalized places.
package lexicon

import (
	"bytes"
	_ "embed"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Kind describes what sort of place a lexicon entry names.
type Kind string

const (
	KindCity     Kind = "city"
	KindUSState  Kind = "us_state"
	KindCountry  Kind = "country"
	KindUKRegion Kind = "uk_region"
	KindRegion   Kind = "region"
)

// Place is a resolved lexicon entry.
type Place struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`
	Kind        Kind   `json:"kind"`
}

// IsCountry reports whether the place names a whole country.
func (p Place) IsCountry() bool { return p.Kind == KindCountry }

// IsCity reports whether the place names a city.
func (p Place) IsCity() bool { return p.Kind == KindCity }

// Entry is one row of the lexicon table.
type Entry struct {
	Name    string   `yaml:"name"`
	Country string   `yaml:"country"`
	Kind    Kind     `yaml:"kind"`
	Aliases []string `yaml:"aliases"`
}

type table struct {
	Places []Entry `yaml:"places"`
}

//go:embed lexicon.yaml
var defaultTable []byte

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Lexicon resolves place names by exact, case-insensitive match. It is
// immutable after construction and safe for concurrent use.
type Lexicon struct {
	byKey     map[string]Place
	ambiguous map[string]struct{}
	countries map[string]string
	scanner   *regexp.Regexp
}

// Default returns the lexicon built from the embedded table.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		defaultLex, defaultErr = Load(bytes.NewReader(defaultTable))
	})
	if defaultErr != nil {
		// Embedded table is validated by TestDefault_Loads.
		panic(defaultErr)
	}
	return defaultLex
}

// Load parses a YAML table and builds a Lexicon from it.
func Load(r io.Reader) (*Lexicon, error) {
	var t table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, eris.Wrap(err, "lexicon: decode table")
	}
	for i, e := range t.Places {
		if strings.TrimSpace(e.Name) == "" {
			return nil, eris.Errorf("lexicon: entry %d has no name", i)
		}
		if len(e.Country) != 2 {
			return nil, eris.Errorf("lexicon: entry %q has invalid country %q", e.Name, e.Country)
		}
		switch e.Kind {
		case KindCity, KindUSState, KindCountry, KindUKRegion, KindRegion:
		default:
			return nil, eris.Errorf("lexicon: entry %q has unknown kind %q", e.Name, e.Kind)
		}
	}
	return New(t.Places), nil
}

// New builds a Lexicon from entries. A name (or alias) that maps to two
// different places is ambiguous and resolves to nothing.
func New(entries []Entry) *Lexicon {
	l := &Lexicon{
		byKey:     make(map[string]Place),
		ambiguous: make(map[string]struct{}),
		countries: make(map[string]string),
	}
	for _, e := range entries {
		p := Place{
			Name:        strings.TrimSpace(e.Name),
			CountryCode: strings.ToUpper(e.Country),
			Kind:        e.Kind,
		}
		if _, seen := l.countries[p.CountryCode]; p.IsCountry() && !seen {
			l.countries[p.CountryCode] = p.Name
		}
		for _, n := range append([]string{e.Name}, e.Aliases...) {
			l.add(Normalize(n), p)
		}
	}

	names := make([]string, 0, len(l.byKey))
	for k := range l.byKey {
		names = append(names, k)
	}
	// Longest first so "South Carolina" wins over a shorter overlapping name.
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	if len(names) > 0 {
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(n), " ", `\s+`)
		}
		l.scanner = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	}
	return l
}

func (l *Lexicon) add(key string, p Place) {
	if key == "" {
		return
	}
	if _, amb := l.ambiguous[key]; amb {
		return
	}
	if existing, ok := l.byKey[key]; ok {
		if existing != p {
			delete(l.byKey, key)
			l.ambiguous[key] = struct{}{}
		}
		return
	}
	l.byKey[key] = p
}

// Resolve looks name up. Unknown and ambiguous names return false.
func (l *Lexicon) Resolve(name string) (Place, bool) {
	p, ok := l.byKey[Normalize(name)]
	return p, ok
}

// Scan returns the earliest lexicon name appearing as whole words in text,
// along with the matched text.
func (l *Lexicon) Scan(text string) (Place, string, bool) {
	if l.scanner == nil {
		return Place{}, "", false
	}
	for _, loc := range l.scanner.FindAllStringIndex(text, -1) {
		match := text[loc[0]:loc[1]]
		if p, ok := l.Resolve(match); ok {
			return p, match, true
		}
	}
	return Place{}, "", false
}

// CountryName returns the display name of the country with code.
func (l *Lexicon) CountryName(code string) (string, bool) {
	name, ok := l.countries[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Len returns the number of resolvable keys (names and aliases).
func (l *Lexicon) Len() int { return len(l.byKey) }

// Normalize case-folds name and collapses internal whitespace.
func Normalize(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}
