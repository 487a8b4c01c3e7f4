package matcher

import "strings"

// Vocabulary is a controlled list of values plus aliases that map onto them
type Vocabulary struct {
	terms   []string
	lookup  map[string]string // normalized term or alias -> canonical term
	ordered []string          // normalized keys, longest first
}

// NewVocabulary builds a vocabulary. Alias targets must be terms.
func NewVocabulary(terms []string, aliases map[string]string) *Vocabulary {
	v := &Vocabulary{
		terms:  append([]string(nil), terms...),
		lookup: make(map[string]string, len(terms)+len(aliases)),
	}
	for _, term := range terms {
		v.lookup[normalize(term)] = term
	}
	for alias, term := range aliases {
		v.lookup[normalize(alias)] = term
	}

	v.ordered = make([]string, 0, len(v.lookup))
	for key := range v.lookup {
		v.ordered = append(v.ordered, key)
	}
	sortLongestFirst(v.ordered)
	return v
}

// Terms returns the canonical values
func (v *Vocabulary) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Match returns the canonical term for raw: an exact (normalized) term or
// alias first, then the longest term or alias contained as whole words.
func (v *Vocabulary) Match(raw string) (string, bool) {
	key := normalize(raw)
	if key == "" {
		return "", false
	}
	if term, ok := v.lookup[key]; ok {
		return term, true
	}

	padded := " " + key + " "
	for _, candidate := range v.ordered {
		if strings.Contains(padded, " "+candidate+" ") {
			return v.lookup[candidate], true
		}
	}
	return "", false
}

func sortLongestFirst(keys []string) {
	// insertion sort keeps ties in a stable, deterministic order
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && less(keys[j], keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

func less(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a < b
}
