// Package safety flags messages that may indicate self-harm or a crisis using
// plain phrase matching. This is intentionally not LLM-based: the check must be
// deterministic, fast, and independent of the model that answers the message.
// It favors recall over precision, so false positives are expected.
package safety

import "strings"

// Category groups emergency phrases by the kind of risk they signal.
type Category int

const (
	Suicide Category = iota
	SelfHarm
	Medical
	UrgentHelp
	EmotionalCrisis
	HarmToOthers
)

// phraseGroup pairs a category with its lower-case phrases.
type phraseGroup struct {
	category Category
	phrases  []string
}

// emergencyPhrases is matched as plain substrings of the lower-cased message.
// No tokenization or stemming.
var emergencyPhrases = []phraseGroup{
	{Suicide, []string{
		"suicide", "kill myself", "end my life", "want to die", "die soon",
		"better off dead", "no reason to live", "can't go on", "going to end it",
		"taking my life", "final goodbye", "last message", "won't be here tomorrow",
	}},
	{SelfHarm, []string{
		"self-harm", "hurting myself", "cutting myself", "burning myself",
		"harming myself", "punishing myself", "inflicting pain", "making myself bleed",
	}},
	{Medical, []string{
		"bleeding heavily", "severe pain", "overdosed", "took too many pills",
		"can't breathe", "having a heart attack", "stroke", "passing out",
	}},
	{UrgentHelp, []string{
		"emergency", "urgent", "help me now", "need help immediately",
		"crisis", "desperate", "critical", "life or death",
	}},
	{EmotionalCrisis, []string{
		"can't take it anymore", "at the end of my rope", "giving up",
		"hate myself", "nobody cares", "completely hopeless", "unbearable pain",
		"no way out", "trapped", "never ending suffering", "tortured",
	}},
	{HarmToOthers, []string{
		"want to hurt someone", "going to hurt", "harm them", "make them pay",
		"revenge", "make them suffer", "violent thoughts", "losing control",
	}},
}

// Scan reports whether text contains any emergency phrase, ignoring case.
func Scan(text string) bool {
	lower := normalize(text)
	for _, g := range emergencyPhrases {
		for _, p := range g.phrases {
			if strings.Contains(lower, p) {
				return true
			}
		}
	}
	return false
}

// Detect returns the distinct categories whose phrases occur in text, in
// table order. It returns nil when Scan would return false.
func Detect(text string) []Category {
	lower := normalize(text)
	var found []Category
	for _, g := range emergencyPhrases {
		for _, p := range g.phrases {
			if strings.Contains(lower, p) {
				found = append(found, g.category)
				break
			}
		}
	}
	return found
}

// normalize lower-cases text and folds typographic apostrophes so "can’t"
// matches the same phrases as "can't".
func normalize(text string) string {
	return strings.ReplaceAll(strings.ToLower(text), "’", "'")
}

func (c Category) String() string {
	switch c {
	case Suicide:
		return "suicide"
	case SelfHarm:
		return "self-harm"
	case Medical:
		return "medical"
	case UrgentHelp:
		return "urgent-help"
	case EmotionalCrisis:
		return "emotional-crisis"
	case HarmToOthers:
		return "harm-to-others"
	default:
		return "unknown"
	}
}
