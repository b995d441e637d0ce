package intent

import (
	"sort"

	"github.com/formbricks/support-hub/internal/docs"
	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/pkg/textfold"
)

// RerankRule adjusts the sort score of candidates carrying an anchor when the query matches.
type RerankRule struct {
	Name   string
	Match  func(folded string) bool
	Adjust map[string]float64
}

// Reranker reorders retrieval candidates by similarity plus rule bonuses.
type Reranker struct {
	rules []RerankRule
}

// NewReranker creates a reranker over rules. All matching rules contribute.
func NewReranker(rules []RerankRule) *Reranker {
	return &Reranker{rules: rules}
}

// DefaultRerankRules returns the built-in bonuses.
func DefaultRerankRules() []RerankRule {
	return []RerankRule{
		{
			Name:   "return_delay",
			Match:  isReturnDelay,
			Adjust: map[string]float64{"retour-delai": 0.15, "retour-remboursement": -0.05},
		},
		{Name: "refund", Match: mentionsRefund, Adjust: map[string]float64{"retour-remboursement": 0.10}},
		{
			Name:   "contact",
			Match:  isContact,
			Adjust: map[string]float64{"support-contact": 0.10, "support-horaires": 0.10},
		},
		{
			Name:   "item_change",
			Match:  mentionsItemChange,
			Adjust: map[string]float64{"commande-modif": 0.10, "retour-echange": -0.05},
		},
		{Name: "address", Match: mentionsAddress, Adjust: map[string]float64{"commande-adresse": 0.10}},
		{Name: "cancel", Match: mentionsCancel, Adjust: map[string]float64{"commande-annulation": 0.10}},
		{Name: "tracking", Match: mentionsTracking, Adjust: map[string]float64{"livraison-suivi": 0.10}},
		{Name: "late", Match: mentionsLate, Adjust: map[string]float64{"livraison-retard": 0.05}},
		{Name: "shipping_fees", Match: mentionsShippingFees, Adjust: map[string]float64{"livraison-frais": 0.10}},
	}
}

// Order returns all candidates sorted by adjusted score, descending. Ties keep retrieval order.
// The input slice and the stored similarities are left untouched.
func (r *Reranker) Order(query string, candidates []models.MatchCandidate) []models.MatchCandidate {
	folded := textfold.Fold(query)

	var active []RerankRule

	for _, rule := range r.rules {
		if rule.Match(folded) {
			active = append(active, rule)
		}
	}

	type scored struct {
		candidate models.MatchCandidate
		score     float64
	}

	items := make([]scored, len(candidates))
	for i, c := range candidates {
		items[i] = scored{candidate: c, score: c.Similarity + bonus(active, c.Category)}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	out := make([]models.MatchCandidate, len(items))
	for i := range items {
		out[i] = items[i].candidate
	}

	return out
}

// Rerank orders candidates and keeps the first focus entries.
func (r *Reranker) Rerank(query string, candidates []models.MatchCandidate, focus int) []models.MatchCandidate {
	ordered := r.Order(query, candidates)
	if focus >= 0 && len(ordered) > focus {
		ordered = ordered[:focus]
	}

	return ordered
}

func bonus(active []RerankRule, category string) float64 {
	if len(active) == 0 {
		return 0
	}

	anchors := docs.Anchors(category)

	var total float64

	for _, rule := range active {
		for _, a := range anchors {
			total += rule.Adjust[a]
		}
	}

	return total
}
