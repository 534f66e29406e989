// Package analysis converts raw classifier output into normalized
// six-category percentages and longitudinal trends.
package analysis

import (
	"strings"

	"github.com/cadencelab/cadence/internal/domain/model"
)

// rule matches a label against one category: every keyword in the rule must
// appear in the lowercased label.
type rule struct {
	category model.Category
	keywords []string
}

// Matcher classifies free-text segment labels into categories by substring
// matching. The keyword sets are policy, not contract, so they are
// configurable; the precedence order is fixed and compound rules come
// first, which keeps a label containing both "sound" and "rep" out of the
// word-repetition bucket.
type Matcher struct {
	rules []rule
}

// matcherPrecedence is the fixed evaluation order of categories.
var matcherPrecedence = []model.Category{
	model.CategorySoundRepetition,
	model.CategoryWordRepetition,
	model.CategoryBlocking,
	model.CategoryProlongation,
	model.CategoryInterjection,
	model.CategoryNormal,
}

// defaultKeywords maps each category to its keyword alternatives. A "+"
// joins keywords that must all be present.
var defaultKeywords = map[model.Category][]string{
	model.CategorySoundRepetition: {"sound+rep", "soundrep"},
	model.CategoryWordRepetition:  {"word+rep", "wordrep"},
	model.CategoryBlocking:        {"block"},
	model.CategoryProlongation:    {"prolong"},
	model.CategoryInterjection:    {"interject", "filler"},
	model.CategoryNormal:          {"normal", "nostutter", "no-stutter", "no stutter", "fluent"},
}

// NewMatcher builds a matcher from the default keyword sets, with per-
// category overrides applied on top. Override keys are category names;
// values are keyword alternatives using "+" for compounds.
func NewMatcher(overrides map[string][]string) *Matcher {
	m := &Matcher{}
	for _, cat := range matcherPrecedence {
		alts := defaultKeywords[cat]
		if ov, ok := overrides[string(cat)]; ok && len(ov) > 0 {
			alts = ov
		}
		for _, alt := range alts {
			m.rules = append(m.rules, rule{
				category: cat,
				keywords: strings.Split(strings.ToLower(alt), "+"),
			})
		}
	}
	return m
}

// Match returns the category for a segment label, or false when no rule
// matches. Matching is case-insensitive; the first rule in precedence
// order wins.
func (m *Matcher) Match(label string) (model.Category, bool) {
	l := strings.ToLower(label)
	for _, r := range m.rules {
		all := true
		for _, kw := range r.keywords {
			if !strings.Contains(l, kw) {
				all = false
				break
			}
		}
		if all {
			return r.category, true
		}
	}
	return "", false
}
