package engine

import (
	"github.com/OmarCodes2/Slop-Block/app/feed"
)

// Verdict is the reconciled presentation of one key.
type Verdict struct {
	Category feed.Category
	Occlude  bool
	Escalate bool
}

// Plan computes the occlusion verdict of every categorized key under
// settings. Revealed keys are always shown and never escalated. Plan has no
// side effects and depends on nothing but its arguments.
func Plan(categories map[string]feed.Category, settings feed.Settings, revealed map[string]bool) map[string]Verdict {
	out := make(map[string]Verdict, len(categories))
	for key, category := range categories {
		out[key] = verdict(category, settings, revealed[key])
	}
	return out
}

func verdict(category feed.Category, settings feed.Settings, revealed bool) Verdict {
	gated := feed.Gate(category, settings.ExperimentalFilters)
	if revealed {
		return Verdict{Category: gated}
	}
	decision := feed.Decide(gated, settings)
	return Verdict{Category: gated, Occlude: decision.Occlude, Escalate: decision.Escalate}
}
