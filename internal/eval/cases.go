// Package eval replays a set of known questions against a running support endpoint and scores
// the replies by expected tokens.
package eval

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/formbricks/support-hub/pkg/textfold"
)

// ErrNoCases is returned when a case file contains no cases.
var ErrNoCases = errors.New("no eval cases")

// Case is one question and the tokens its reply must contain.
type Case struct {
	Question string   `yaml:"q"`
	Expect   []string `yaml:"expect"`
}

// LoadCases reads a YAML list of cases. Every case needs a question and at least one token.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}

	var cases []Case
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parse cases %s: %w", path, err)
	}

	if len(cases) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCases, path)
	}

	for i, c := range cases {
		if strings.TrimSpace(c.Question) == "" {
			return nil, fmt.Errorf("case %d: empty question", i+1)
		}

		if len(c.Expect) == 0 {
			return nil, fmt.Errorf("case %d (%q): no expected tokens", i+1, c.Question)
		}
	}

	return cases, nil
}

// Passes reports whether reply contains every expected token, ignoring case, accents and
// typographic dashes.
func Passes(reply string, expect []string) bool {
	return textfold.ContainsAll(reply, expect)
}
