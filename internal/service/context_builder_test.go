package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/formbricks/support-hub/internal/models"
)

func TestBuildContext(t *testing.T) {
	got := BuildContext([]models.MatchCandidate{faqRetourDelai, faqRemboursement}, 4000)

	want := "【FAQ#1 | retours — délai (#retour-delai)】Q: Délai de retour\n" +
		"A: 30 jours, produits non portés, étiquettes intactes.\n\n" +
		"【FAQ#2 | retours — remboursement (#retour-remboursement)】Q: Remboursement en combien de temps ?\n" +
		"A: 5–10 jours après réception."

	assert.Equal(t, want, got)
}

func TestBuildContext_bounded_by_whole_blocks(t *testing.T) {
	long := faq("Q", strings.Repeat("x", 300), "c", 0.9)
	candidates := []models.MatchCandidate{long, long, long, long}

	got := BuildContext(candidates, 700)

	assert.LessOrEqual(t, utf8.RuneCountInString(got), 700)
	assert.Equal(t, 2, strings.Count(got, "【FAQ#"))
	assert.NotContains(t, got, "【FAQ#3")
}

func TestBuildContext_always_keeps_first_block(t *testing.T) {
	long := faq("Q", strings.Repeat("y", 500), "c", 0.9)

	got := BuildContext([]models.MatchCandidate{long, long}, 100)

	assert.Equal(t, 1, strings.Count(got, "【FAQ#"))
}

func TestBuildContext_empty(t *testing.T) {
	assert.Empty(t, BuildContext(nil, 100))
}
