// Package chat implements the scripted copilot assistants of the data
// upload and insight review areas. Replies are picked from canned lists by
// keyword lookup; nothing here performs inference.
package chat

import (
	"strings"

	"cityops/internal/scenario"
)

// Keyword maps a lowercase substring to a value.
type Keyword struct {
	Match string
	Value string
}

// Intents recognised by the assistants.
const (
	IntentClear   = "clear"
	IntentExclude = "exclude"
	IntentRefine  = "refine"
)

// DistrictKeywords is consulted in order. "central" is declared before
// "northern" and "north" so an input naming both resolves to the Central
// District, and the long forms precede their short forms.
var DistrictKeywords = []Keyword{
	{"central", scenario.DistrictCentral},
	{"downtown", scenario.DistrictCentral},
	{"northern", scenario.DistrictNorthern},
	{"north", scenario.DistrictNorthern},
	{"southern", scenario.DistrictSouthern},
	{"south", scenario.DistrictSouthern},
	{"eastern", scenario.DistrictEastern},
	{"east", scenario.DistrictEastern},
	{"western", scenario.DistrictWestern},
	{"west", scenario.DistrictWestern},
	{"waterfront", scenario.DistrictWaterfront},
}

// IntentKeywords is consulted in order.
var IntentKeywords = []Keyword{
	{"clear", IntentClear},
	{"reset", IntentClear},
	{"show all", IntentClear},
	{"exclude", IntentExclude},
	{"remove", IntentExclude},
	{"drop", IntentExclude},
	{"ignore", IntentExclude},
	{"refine", IntentRefine},
	{"improve", IntentRefine},
	{"adjust", IntentRefine},
	{"recalculate", IntentRefine},
}

// Classify returns the value of the first keyword contained in input,
// ignoring case. Later keywords are not consulted once one matches.
func Classify(table []Keyword, input string) (string, bool) {
	lower := strings.ToLower(input)
	for _, kw := range table {
		if strings.Contains(lower, kw.Match) {
			return kw.Value, true
		}
	}
	return "", false
}
