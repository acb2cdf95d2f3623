package feed

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

type rule struct {
	Category Category
	Phrases  []string
	Patterns []*regexp.Regexp
}

// Match describes why a text was assigned its category.
type Match struct {
	Category Category
	Phrase   string
	Pattern  string
}

// Classifier maps post text to a Category. It holds no mutable state and is
// safe for concurrent use.
type Classifier struct {
	rules []rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules}
}

// Classify returns the first category, in precedence order, whose phrase set
// or regex set matches text. Experimental categories are returned as-is; use
// Gate to apply the experimental toggle.
func (c *Classifier) Classify(text string) Category {
	return c.Explain(text).Category
}

// Explain is Classify plus the rule that decided the result.
func (c *Classifier) Explain(text string) Match {
	normalized := Normalize(text)

	for _, r := range c.rules {
		for _, phrase := range r.Phrases {
			if strings.Contains(normalized, phrase) {
				return Match{Category: r.Category, Phrase: phrase}
			}
		}
		for _, re := range r.Patterns {
			if re.MatchString(text) {
				return Match{Category: r.Category, Pattern: re.String()}
			}
		}
	}

	return Match{Category: CategoryUncategorized}
}

// Gate remaps experimental categories to uncategorized when experimental
// filters are disabled.
func Gate(category Category, experimentalEnabled bool) Category {
	if !experimentalEnabled && category.Experimental() {
		return CategoryUncategorized
	}
	return category
}

var (
	lower        = cases.Lower(language.Und)
	variantChars = strings.NewReplacer(
		"‘", "'", "’", "'", "´", "'", "`", "'",
		"“", `"`, "”", `"`,
		"—", "-", "–", "-",
	)
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}\s#@:/.\-'?"]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, unifies quote and dash variants, replaces
// characters outside the letter/number/punctuation allowlist with spaces and
// collapses whitespace.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = lower.String(text)
	text = variantChars.Replace(text)
	text = disallowedChars.ReplaceAllString(text, " ")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
