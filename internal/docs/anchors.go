// Package docs knows the public documentation anchors that knowledge-base categories
// point to, and turns category labels into citation labels.
package docs

import (
	"regexp"
	"strings"

	"github.com/formbricks/support-hub/pkg/textfold"
)

// BasePath is the documentation page that anchors resolve against.
const BasePath = "/docs"

// OutOfScopeCategory tags knowledge-base rows that must never be used as an answer.
const OutOfScopeCategory = "hors-scope"

// anchors lists every section id rendered on the documentation page.
var anchors = map[string]struct{}{
	"livraison-delais":     {},
	"livraison-suivi":      {},
	"livraison-frais":      {},
	"livraison-retard":     {},
	"retour-delai":         {},
	"retour-procedure":     {},
	"retour-remboursement": {},
	"retour-echange":       {},
	"tailles-guide":        {},
	"tailles-conseils":     {},
	"produit-matieres":     {},
	"paiement-modes":       {},
	"commande-modif":       {},
	"commande-annulation":  {},
	"commande-adresse":     {},
	"promo-codes":          {},
	"giftcard":             {},
	"support-horaires":     {},
	"support-contact":      {},
	"rgpd-minimisation":    {},
	"rgpd-droits":          {},
	"rgpd-paiement":        {},
}

var (
	anchorPattern = regexp.MustCompile(`#([a-z0-9]+(?:-[a-z0-9]+)*)`)
	validAnchor   = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Known reports whether anchor is a documentation section.
func Known(anchor string) bool {
	_, ok := anchors[anchor]

	return ok
}

// ValidAnchor reports whether s is syntactically an anchor token (without the leading #).
func ValidAnchor(s string) bool {
	return validAnchor.MatchString(s)
}

// Link returns the documentation URL path for anchor.
func Link(anchor string) string {
	return BasePath + "#" + anchor
}

// Anchors extracts the anchor tokens of a category label in order of appearance.
func Anchors(category string) []string {
	matches := anchorPattern.FindAllStringSubmatch(category, -1)

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}

	return out
}

// HasAnchor reports whether category carries anchor as one of its tokens.
func HasAnchor(category, anchor string) bool {
	for _, a := range Anchors(category) {
		if a == anchor {
			return true
		}
	}

	return false
}

// Topic returns the human part of a category label, before the anchor list.
func Topic(category string) string {
	if i := strings.Index(category, " ("); i >= 0 {
		return strings.TrimSpace(category[:i])
	}

	if i := strings.Index(category, "#"); i >= 0 {
		return strings.TrimSpace(category[:i])
	}

	return strings.TrimSpace(category)
}

// IsOutOfScope reports whether category is tagged out-of-scope ("hors-scope", any case or accents).
func IsOutOfScope(category string) bool {
	folded := strings.ReplaceAll(textfold.Fold(category), " ", "-")

	return folded == OutOfScopeCategory
}

// Label renders the citation label of a category: "topic (/docs#anchor)" using the first
// known anchor. resolvable is false when no anchor of the category is documented, in which
// case the raw category is returned.
func Label(category string) (label string, resolvable bool) {
	for _, a := range Anchors(category) {
		if Known(a) {
			return Topic(category) + " (" + Link(a) + ")", true
		}
	}

	return strings.TrimSpace(category), false
}

// ContainsKnownAnchor reports whether text references at least one documentation anchor.
func ContainsKnownAnchor(text string) bool {
	for _, m := range anchorPattern.FindAllStringSubmatch(text, -1) {
		if Known(m[1]) {
			return true
		}
	}

	return false
}
