package feed

// Decision is the outcome of the decision policy for one post.
type Decision struct {
	Occlude  bool
	Escalate bool
}

// Decide maps a category and settings to occlude/escalate. Unknown categories
// are hidden regardless of toggles. Escalation is only requested for hidden
// uncategorized or unknown posts when AI escalation is enabled.
func Decide(category Category, settings Settings) Decision {
	if !settings.ExtensionEnabled {
		return Decision{}
	}
	if !category.Valid() {
		return Decision{Occlude: true, Escalate: settings.AIEnabled}
	}

	occlude := !settings.Shows(category)

	return Decision{
		Occlude:  occlude,
		Escalate: occlude && category == CategoryUncategorized && settings.AIEnabled,
	}
}
