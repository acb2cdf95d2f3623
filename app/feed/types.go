package feed

import (
	"encoding/json"
	"maps"
)

// Category is one value of the closed post taxonomy.
type Category string

const (
	CategoryHiredAnnouncement Category = "hired_announcement"
	CategoryRecruiterHiring   Category = "recruiter_hiring"
	CategoryHustleCulture     Category = "hustle_culture"
	CategoryAIDoomerTake      Category = "ai_doomer_take"
	CategoryChildProdigyFlex  Category = "child_prodigy_flex"
	CategorySponsoredAd       Category = "sponsored_ad"
	CategorySalesPitch        Category = "sales_pitch"
	CategoryJobSeeking        Category = "job_seeking"
	CategoryEventWebinar      Category = "event_webinar"
	CategoryEngagementBait    Category = "engagement_bait"
	CategoryEducationalTips   Category = "educational_tips"
	CategoryProjectLaunch     Category = "project_launch"
	CategoryCongratsCerts     Category = "congrats_certs"
	CategoryUncategorized     Category = "uncategorized"
)

type categoryInfo struct {
	Category     Category
	Label        string
	Toggle       string
	Experimental bool
}

// taxonomy is ordered by classifier precedence; uncategorized is last.
var taxonomy = []categoryInfo{
	{CategoryHiredAnnouncement, "Hired announcement", "showJobAnnouncements", false},
	{CategoryRecruiterHiring, "Hiring", "showHiringPosts", false},
	{CategoryHustleCulture, "Grindset", "showGrindset", false},
	{CategoryAIDoomerTake, "AI Doomer", "showAiDoomer", false},
	{CategoryChildProdigyFlex, "Child Prodigy Flex", "showChildProdigy", false},
	{CategorySponsoredAd, "Sponsored/Ad", "showSponsored", false},
	{CategorySalesPitch, "Sales Pitch", "showSalesPitch", false},
	{CategoryJobSeeking, "Job Seeking", "showJobSeeking", false},
	{CategoryEventWebinar, "Event/Webinar", "showEvents", false},
	{CategoryEngagementBait, "Engagement Bait", "showEngagementBait", true},
	{CategoryEducationalTips, "Educational/Tips", "showEducational", true},
	{CategoryProjectLaunch, "Project Launch", "showProjectLaunch", true},
	{CategoryCongratsCerts, "Congrats/Cert", "showCongrats", true},
	{CategoryUncategorized, "Other", "showOther", false},
}

var taxonomyIndex = func() map[Category]categoryInfo {
	idx := make(map[Category]categoryInfo, len(taxonomy))
	for _, info := range taxonomy {
		idx[info.Category] = info
	}
	return idx
}()

// FallbackLabel is shown when nothing more specific is known about a post.
const FallbackLabel = "Other"

// Categories returns the taxonomy in precedence order.
func Categories() []Category {
	out := make([]Category, 0, len(taxonomy))
	for _, info := range taxonomy {
		out = append(out, info.Category)
	}
	return out
}

// Valid reports whether c belongs to the taxonomy.
func (c Category) Valid() bool {
	_, ok := taxonomyIndex[c]
	return ok
}

// Label is the overlay title for the category.
func (c Category) Label() string {
	if info, ok := taxonomyIndex[c]; ok {
		return info.Label
	}
	return FallbackLabel
}

// Toggle is the settings key controlling visibility of the category.
func (c Category) Toggle() string {
	if info, ok := taxonomyIndex[c]; ok {
		return info.Toggle
	}
	return taxonomyIndex[CategoryUncategorized].Toggle
}

// Experimental reports whether the category is gated behind experimental filters.
func (c Category) Experimental() bool {
	return taxonomyIndex[c].Experimental
}

// Settings keys outside the per-category toggles.
const (
	KeyAIEnabled           = "aiEnabled"
	KeyOpaqueOverlay       = "opaqueOverlay"
	KeyHideRevealButton    = "hideRevealButton"
	KeyExperimentalFilters = "experimentalFilters"
	KeyExtensionEnabled    = "extensionEnabled"
)

// Settings is the user's visibility configuration.
type Settings struct {
	Show                map[Category]bool
	AIEnabled           bool
	OpaqueOverlay       bool
	HideRevealButton    bool
	ExperimentalFilters bool
	ExtensionEnabled    bool
}

// DefaultSettings shows recruiter hiring posts and hides every other category.
func DefaultSettings() Settings {
	s := HiddenSettings()
	s.Show[CategoryRecruiterHiring] = true
	s.AIEnabled = true
	return s
}

// HiddenSettings hides every category. It is the base for settings-changed
// records so that a toggle missing from the record hides its category.
func HiddenSettings() Settings {
	show := make(map[Category]bool, len(taxonomy))
	for _, info := range taxonomy {
		show[info.Category] = false
	}
	return Settings{Show: show, ExtensionEnabled: true}
}

// Shows reports the visibility toggle for c; unknown or missing toggles hide.
func (s Settings) Shows(c Category) bool {
	if !c.Valid() {
		return false
	}
	return s.Show[c]
}

// Clone returns a copy that does not share the toggle map.
func (s Settings) Clone() Settings {
	out := s
	out.Show = maps.Clone(s.Show)
	if out.Show == nil {
		out.Show = make(map[Category]bool)
	}
	return out
}

// Record flattens the settings into the camelCase storage keys.
func (s Settings) Record() map[string]bool {
	rec := make(map[string]bool, len(taxonomy)+5)
	for _, info := range taxonomy {
		rec[info.Toggle] = s.Shows(info.Category)
	}
	rec[KeyAIEnabled] = s.AIEnabled
	rec[KeyOpaqueOverlay] = s.OpaqueOverlay
	rec[KeyHideRevealButton] = s.HideRevealButton
	rec[KeyExperimentalFilters] = s.ExperimentalFilters
	rec[KeyExtensionEnabled] = s.ExtensionEnabled
	return rec
}

// SettingsFromRecord applies a stored or received record on top of base.
// Unknown keys are ignored.
func SettingsFromRecord(rec map[string]bool, base Settings) Settings {
	s := base.Clone()
	for _, info := range taxonomy {
		if v, ok := rec[info.Toggle]; ok {
			s.Show[info.Category] = v
		}
	}
	if v, ok := rec[KeyAIEnabled]; ok {
		s.AIEnabled = v
	}
	if v, ok := rec[KeyOpaqueOverlay]; ok {
		s.OpaqueOverlay = v
	}
	if v, ok := rec[KeyHideRevealButton]; ok {
		s.HideRevealButton = v
	}
	if v, ok := rec[KeyExperimentalFilters]; ok {
		s.ExperimentalFilters = v
	}
	if v, ok := rec[KeyExtensionEnabled]; ok {
		s.ExtensionEnabled = v
	}
	return s
}

func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// Style is the presentation of an overlay.
type Style struct {
	Opaque           bool
	HideRevealButton bool
}

// Style derives the overlay presentation from the settings.
func (s Settings) Style() Style {
	return Style{Opaque: s.OpaqueOverlay, HideRevealButton: s.HideRevealButton}
}
