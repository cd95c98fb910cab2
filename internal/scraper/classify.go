package scraper

var (
	nonHoloMarkers      = []string{"nonholo", "non holo"}
	reverseMarkers      = []string{"reverse", "rev holo"}
	holoMarkers         = []string{"holo", "holographic", "holofoil"}
	firstEditionMarkers = []string{"first", "1st"}

	// Rarity tokens that imply a foil finish. Matching is by substring, so the
	// single-letter "v" catches V/VSTAR/VMAX titles along with any other 'v'.
	specialRarityMarkers = []string{
		"vmax", "rainbow", "illustration", "secret rare", "secret",
		"double rare", "lvx", "art rare", "shiny rare", "full art",
		"prism rare", "hyper rare", "sar", "sir", "v",
	}
)

// cardboardRule maps a normalized title to a cardboard type when it matches
type cardboardRule struct {
	name     string
	match    func(title string) bool
	classify func(title string) CardboardType
}

func fixed(t CardboardType) func(string) CardboardType {
	return func(string) CardboardType { return t }
}

func editionAware(plain, first CardboardType) func(string) CardboardType {
	return func(title string) CardboardType {
		if containsAny(title, firstEditionMarkers) {
			return first
		}
		return plain
	}
}

// cardboardRules is evaluated top to bottom, first match wins. The special
// rarity rule does not look at edition markers.
var cardboardRules = []cardboardRule{
	{
		name:     "non-holo",
		match:    func(t string) bool { return containsAny(t, nonHoloMarkers) },
		classify: fixed(CardboardNormal),
	},
	{
		name:     "reverse",
		match:    func(t string) bool { return containsAny(t, reverseMarkers) },
		classify: fixed(CardboardReverse),
	},
	{
		name:     "special-rarity",
		match:    func(t string) bool { return containsAny(t, specialRarityMarkers) },
		classify: fixed(CardboardHolofoil),
	},
	{
		name:     "holo",
		match:    func(t string) bool { return containsAny(t, holoMarkers) },
		classify: editionAware(CardboardHolofoil, CardboardFirstEditionHolo),
	},
	{
		name:     "default",
		match:    func(string) bool { return true },
		classify: editionAware(CardboardNormal, CardboardFirstEditionNormal),
	},
}

// ClassifyCardboardType derives the printing variant from a listing title
func ClassifyCardboardType(title string) CardboardType {
	normalized := NormalizeTitle(title)
	for _, rule := range cardboardRules {
		if rule.match(normalized) {
			return rule.classify(normalized)
		}
	}
	return CardboardNormal
}

type conditionRule struct {
	condition Condition
	keywords  []string
}

// conditionRules is checked in order; NM is also the fallback
var conditionRules = []conditionRule{
	{ConditionNM, []string{"nm", "near mint", "nearmint"}},
	{ConditionLP, []string{"lp", "light play", "lightly played"}},
	{ConditionMP, []string{"mp", "moderate play", "moderately played"}},
	{ConditionHP, []string{"hp", "heavy play", "heavily played", "damaged"}},
}

// ClassifyCondition derives the condition grade from a listing title
func ClassifyCondition(title string) Condition {
	normalized := NormalizeTitle(title)
	for _, rule := range conditionRules {
		if containsAny(normalized, rule.keywords) {
			return rule.condition
		}
	}
	return ConditionNM
}
