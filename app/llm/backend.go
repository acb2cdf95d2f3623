package llm

import (
	"context"
	"errors"
	"strings"
)

// MaxTextRunes bounds the post text sent to a backend.
const MaxTextRunes = 1200

// FallbackLabel is the neutral label used when no backend label is available.
const FallbackLabel = "Other"

const maxLabelWords = 3

var ErrUnavailable = errors.New("classification backend unavailable")

// Backend produces a short descriptive label for post text. Labels are
// cosmetic and never change what is shown or hidden.
type Backend interface {
	// Available reports whether Categorize can be attempted. Implementations
	// check lazily and cache the answer.
	Available(ctx context.Context) bool
	// Categorize returns a sanitized 1-3 word label.
	Categorize(ctx context.Context, text string) (string, error)
}

// Disabled is the backend used when no AI provider is configured.
type Disabled struct{}

func (Disabled) Available(context.Context) bool { return false }

func (Disabled) Categorize(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

var labelNoise = strings.NewReplacer("**", "", "*", "", "#", "", "[", "", "]", "", "`", "", `"`, "")

// SanitizeLabel strips markdown from a raw label and keeps at most three
// words. An empty result becomes FallbackLabel.
func SanitizeLabel(raw string) string {
	words := strings.Fields(labelNoise.Replace(raw))
	if len(words) > maxLabelWords {
		words = words[:maxLabelWords]
	}
	if len(words) == 0 {
		return FallbackLabel
	}
	return strings.Join(words, " ")
}

// Truncate cuts text to at most MaxTextRunes runes.
func Truncate(text string) string {
	if len(text) <= MaxTextRunes {
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxTextRunes {
		return text
	}
	return string(runes[:MaxTextRunes])
}
