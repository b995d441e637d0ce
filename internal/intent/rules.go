// Package intent holds the deterministic keyword rules that run around retrieval:
// preflight answers that skip embedding, post-retrieval short-circuits and the reranker.
package intent

import (
	"github.com/formbricks/support-hub/internal/docs"
	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/pkg/textfold"
)

// Rule maps a recognized intent to the documentation anchor that answers it.
type Rule struct {
	Name   string
	Anchor string
	// Match receives the folded query.
	Match func(folded string) bool
}

// Matcher evaluates rules in order; the first match wins.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher over rules. Order is precedence.
func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// DefaultPreflightRules answer before any embedding call.
func DefaultPreflightRules() []Rule {
	return []Rule{
		{Name: "return_delay", Anchor: "retour-delai", Match: isReturnDelay},
		{Name: "contact", Anchor: "support-contact", Match: isContact},
	}
}

// DefaultShortCircuitRules pick a retrieved candidate verbatim instead of generating.
func DefaultShortCircuitRules() []Rule {
	return []Rule{
		{Name: "return_delay", Anchor: "retour-delai", Match: isReturnDelay},
		{Name: "item_change", Anchor: "commande-modif", Match: mentionsItemChange},
		{Name: "contact", Anchor: "support-contact", Match: isContact},
	}
}

// Match returns the first rule matching query.
func (m *Matcher) Match(query string) (Rule, bool) {
	folded := textfold.Fold(query)

	for _, r := range m.rules {
		if r.Match(folded) {
			return r, true
		}
	}

	return Rule{}, false
}

// MatchPreflight returns the anchor of the first matching rule.
func (m *Matcher) MatchPreflight(query string) (anchor string, ok bool) {
	r, ok := m.Match(query)
	if !ok {
		return "", false
	}

	return r.Anchor, true
}

// MatchShortCircuit returns the first ranked candidate whose category carries the anchor of a
// matching rule. Rules are tried in order; a matching rule without a carrying candidate does not
// stop later rules.
func (m *Matcher) MatchShortCircuit(query string, ranked []models.MatchCandidate) (*models.MatchCandidate, bool) {
	folded := textfold.Fold(query)

	for _, r := range m.rules {
		if !r.Match(folded) {
			continue
		}

		for i := range ranked {
			if docs.HasAnchor(ranked[i].Category, r.Anchor) {
				c := ranked[i]

				return &c, true
			}
		}
	}

	return nil, false
}
