package chat

import "fmt"

// Areas with a scripted assistant.
const (
	AreaUpload   = "upload"
	AreaInsights = "insights"
)

// Section is one tab of an assistant area with its canned replies.
type Section struct {
	Name      string
	Responses []string
}

// Script is the ordered set of sections for one area. The first section is
// active when a session starts.
type Script struct {
	Area     string
	Sections []Section
}

// Section returns the named section.
func (s Script) Section(name string) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

// Response returns the reply for the given zero-based turn. Once the list
// is exhausted the last entry is repeated.
func (sec Section) Response(turn int) string {
	if len(sec.Responses) == 0 {
		return ""
	}
	if turn < 0 {
		turn = 0
	}
	return sec.Responses[min(turn, len(sec.Responses)-1)]
}

// DefaultScripts returns the built-in assistant scripts keyed by area.
func DefaultScripts() map[string]Script {
	return map[string]Script{
		AreaUpload: {
			Area: AreaUpload,
			Sections: []Section{
				{Name: "census", Responses: []string{
					"I found 6 district-level census tables. Population and household counts are complete for every district.",
					"Median income is missing for the Waterfront. I will interpolate it from the neighbouring Western District unless you upload a newer table.",
					"The census data is ready. Name a district to preview it, or say \"clear\" to see the whole city.",
				}},
				{Name: "mobility", Responses: []string{
					"The transit feed covers 142 stops and 9 bus routes. Ridership is aggregated per hour.",
					"Curb sensor uptime averages 96%. Two sensors in the Central District report gaps on weekends.",
					"Mobility data is aligned to SDG 11.2. Name a district to filter the preview.",
				}},
				{Name: "environment", Responses: []string{
					"Air quality readings arrive from 18 stations at 15 minute intervals.",
					"Flood sensor history starts in 2019. Earlier events will be left out of the trend.",
					"Environmental data is mapped to SDG 13.1. You can continue to processing when ready.",
				}},
			},
		},
		AreaInsights: {
			Area: AreaInsights,
			Sections: []Section{
				{Name: "summary", Responses: []string{
					"Three insights stand out: congestion in the Central District, flood exposure on the Waterfront and peak demand in the Eastern District.",
					"Congestion accounts for the largest share of projected emissions. A busway extension would reduce it by an estimated 11%.",
					"These findings cover every uploaded dataset. Ask me to refine the analysis or exclude outliers.",
				}},
				{Name: "sdg-alignment", Responses: []string{
					"The review aligns with SDG 7, SDG 11 and SDG 13. SDG 11 carries the most indicators.",
					"Indicator 11.6.2 (fine particulate matter) is below target in two districts.",
					"The alignment table is ready to publish with the VLR.",
				}},
				{Name: "recommendations", Responses: []string{
					"Start with the 14th Street busway extension. It has the highest impact and a short delivery time.",
					"Second, deploy demand response incentives at the Eastern District substations before summer.",
					"Finally, fund the Waterfront flood barrier study. Its impact is high but the confidence is still moderate.",
				}},
			},
		},
	}
}

func districtReply(area, district string) string {
	if area == AreaUpload {
		return fmt.Sprintf("Filtering the uploaded datasets to the %s. Other districts are hidden from the preview.", district)
	}
	return fmt.Sprintf("Showing insights for the %s only.", district)
}

func clearReply(area string) string {
	if area == AreaUpload {
		return "Filter cleared. The preview shows every district again."
	}
	return "District filter cleared. Insights now cover the whole city."
}

func excludeReply(excluded bool) string {
	if excluded {
		return "Outlier readings are now excluded from the analysis. Say \"exclude\" again to include them."
	}
	return "Outlier readings are included in the analysis again."
}

const (
	refineStartReply   = "Recalculating the insights with the adjusted weighting. This takes a moment."
	refineBusyReply    = "The refinement is still running. I will let you know when it finishes."
	refineDoneReply    = "Refinement complete. Confidence scores were updated for all insights."
	refineAlreadyReply = "The insights already use the refined weighting."
)
