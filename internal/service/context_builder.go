package service

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/formbricks/support-hub/internal/models"
)

// DefaultContextMaxChars bounds the knowledge-base context sent to the generator.
const DefaultContextMaxChars = 4000

// BuildContext renders candidates in rank order as
//
//	【FAQ#1 | category】Q: question
//	A: answer
//
// separated by a blank line. maxChars counts runes. Only whole blocks are included and the
// first block is always kept, so a non-empty candidate set never yields an empty context.
func BuildContext(candidates []models.MatchCandidate, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultContextMaxChars
	}

	var (
		b     strings.Builder
		count int
	)

	for i, c := range candidates {
		block := "【FAQ#" + strconv.Itoa(i+1) + " | " + c.Category + "】Q: " + c.Question + "\nA: " + c.Answer

		sep := ""
		if i > 0 {
			sep = "\n\n"
		}

		size := utf8.RuneCountInString(sep) + utf8.RuneCountInString(block)
		if i > 0 && count+size > maxChars {
			break
		}

		count += size

		b.WriteString(sep)
		b.WriteString(block)
	}

	return b.String()
}
