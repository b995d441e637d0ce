package service

import (
	"regexp"
	"strings"

	"github.com/formbricks/support-hub/internal/docs"
	"github.com/formbricks/support-hub/internal/models"
)

const (
	// RefusalMessage is the canned human-handoff offer.
	RefusalMessage = "Je préfère transférer à un humain pour être sûr. Voulez-vous que je vous mette en relation ?"
	// EmptyGenerationFallback replaces an empty generator answer before normalization.
	EmptyGenerationFallback = "Je préfère transférer à un humain pour être sûr."

	// DefaultHandoffThreshold is the top similarity below which a human handoff is suggested.
	DefaultHandoffThreshold = 0.80

	maxCitedSources = 2
)

var citationLine = regexp.MustCompile(`(?i)(?:^|\n)\s*sources\s*:`)

// ReplyNormalizer applies the answer safety policy: replies are grounded in at least one
// documented knowledge-base entry and always end with a citation line.
type ReplyNormalizer struct {
	handoffThreshold float64
}

// NewReplyNormalizer creates a normalizer. A threshold outside [0,1] uses the default.
func NewReplyNormalizer(handoffThreshold float64) *ReplyNormalizer {
	if handoffThreshold < 0 || handoffThreshold > 1 {
		handoffThreshold = DefaultHandoffThreshold
	}

	return &ReplyNormalizer{handoffThreshold: handoffThreshold}
}

// NeedHandoff reports whether topSim is below the handoff threshold.
func (n *ReplyNormalizer) NeedHandoff(topSim float64) bool {
	return topSim < n.handoffThreshold
}

// Normalize turns raw generator (or verbatim FAQ) text into a Reply for the focused candidates.
// Branch is BranchGenerated unless the reply was replaced by the refusal, in which case it is
// BranchRefusedOutOfScope or BranchRefusedNoAnchor and no source is cited.
func (n *ReplyNormalizer) Normalize(raw string, focused []models.MatchCandidate, topSim float64) models.Reply {
	if allOutOfScope(focused) {
		return n.Refusal(models.BranchRefusedOutOfScope, topSim)
	}

	cited := make([]models.MatchCandidate, 0, maxCitedSources)
	labels := make([]string, 0, maxCitedSources)

	for _, c := range focused {
		if len(cited) == maxCitedSources {
			break
		}

		if docs.IsOutOfScope(c.Category) {
			continue
		}

		label, _ := docs.Label(c.Category)
		cited = append(cited, c)
		labels = append(labels, label)
	}

	body := strings.TrimSpace(raw)
	if body == "" {
		body = EmptyGenerationFallback
	}

	if !citationLine.MatchString(body) && len(labels) > 0 {
		body += "\n\nSources: " + strings.Join(labels, " ; ")
	}

	if !docs.ContainsKnownAnchor(body) {
		return n.Refusal(models.BranchRefusedNoAnchor, topSim)
	}

	sources := make([]models.Source, len(cited))
	for i, c := range cited {
		sources[i] = models.Source{ID: c.FAQID, Question: c.Question}
	}

	return models.Reply{
		Body:         body,
		Sources:      sources,
		SourceLabels: labels,
		NeedHandoff:  n.NeedHandoff(topSim),
		TopSim:       topSim,
		UsedContext:  true,
		Branch:       models.BranchGenerated,
	}
}

// Refusal returns the canned handoff offer without sources.
func (n *ReplyNormalizer) Refusal(branch string, topSim float64) models.Reply {
	return models.Reply{
		Body:         RefusalMessage,
		Sources:      []models.Source{},
		SourceLabels: []string{},
		NeedHandoff:  n.NeedHandoff(topSim),
		TopSim:       topSim,
		Branch:       branch,
	}
}

// allOutOfScope is true for an empty set too: nothing in scope can be cited.
func allOutOfScope(focused []models.MatchCandidate) bool {
	for _, c := range focused {
		if !docs.IsOutOfScope(c.Category) {
			return false
		}
	}

	return true
}
