package narrative

import "regexp"

// PatternSet is the ordered list of patterns tried for each variable.
// For every variable the first pattern that matches wins and its first
// capturing group is the value. Quantity patterns may carry the unit in group 2.
//
// A PatternSet is read-only after construction and safe for concurrent use.
type PatternSet struct {
	Location  []*regexp.Regexp
	Quantity  []*regexp.Regexp
	Condition []*regexp.Regexp
	Material  []*regexp.Regexp
	Component []*regexp.Regexp
	Area      []*regexp.Regexp
	// RoomName runs against the original text so the match keeps its casing.
	RoomName  []*regexp.Regexp
	Dimension []*regexp.Regexp
}

// DefaultPatterns is the pattern table used by NewExtractor.
var DefaultPatterns = &PatternSet{
	Location: []*regexp.Regexp{
		regexp.MustCompile(`\b(northeast|northwest|southeast|southwest|north|south|east|west)(?:ern)?\b`),
		regexp.MustCompile(`\b(ne|nw|se|sw)\b`),
		regexp.MustCompile(`\b(front|rear|back|left side|right side|side)\b`),
		regexp.MustCompile(`\b(garage|basement|attic|crawl ?space)\b`),
		regexp.MustCompile(`\b(master|primary|guest|main)\b`),
		regexp.MustCompile(`\b((?:bedroom|bathroom) ?#?\d+)\b`),
		regexp.MustCompile(`\b((?:first|second|third|1st|2nd|3rd|ground|top) floor)\b`),
		regexp.MustCompile(`\b(upper|lower|middle)\b`),
	},

	Quantity: []*regexp.Regexp{
		regexp.MustCompile(`\b(\d+)\s*(square feet|sq\.? ?ft|linear feet|tiles?|shingles?|vents?|outlets?|panels?|fixtures?|feet|ft|inches|in)\b`),
		regexp.MustCompile(`\b(multiple|several|many|few|numerous)\b`),
	},

	Condition: []*regexp.Regexp{
		regexp.MustCompile(`\b(improperly installed|damaged|missing|loose|leaking|improper|corroded|cracked|worn|deteriorated|broken|faulty|defective|malfunctioning|blocked|clogged|disconnected|rusted|rotted|warped|sagging|settling|peeling|faded|stained|discolored)\b`),
	},

	Material: []*regexp.Regexp{
		regexp.MustCompile(`\b(wood|wooden|plywood|osb|lumber|cedar|pine|timber)\b`),
		regexp.MustCompile(`\b(concrete|masonry|brick|stone|cinder block|block|mortar)\b`),
		regexp.MustCompile(`\b(metal|steel|aluminum|copper|cast iron|iron|galvanized)\b`),
		regexp.MustCompile(`\b(vinyl|plastic|pvc|abs|composite|fiberglass)\b`),
		regexp.MustCompile(`\b(asphalt|ceramic|tile|shingle|slate)s?\b`),
		regexp.MustCompile(`\b(drywall|plaster|stucco|gypsum)\b`),
	},

	// Component patterns capture the singular stem in group 1 and an uncountable
	// word in group 2. The plural suffix sits outside both groups.
	Component: []*regexp.Regexp{
		// roofing
		regexp.MustCompile(`\b(?:(shingle|gutter|downspout|soffit|fascia|chimney|skylight|ridge vent|roof vent|drip edge|valley)(?:es|s)?|(flashing))\b`),
		// electrical
		regexp.MustCompile(`\b(?:(outlet|receptacle|breaker|panel|gfci|afci|junction box|light fixture|conductor|switch)(?:es|s)?|(wiring))\b`),
		// plumbing
		regexp.MustCompile(`\b(?:(pipe|faucet|toilet|sink|drain|water heater|valve|supply line|sewer line|shower|bathtub|tub)(?:es|s)?)\b`),
		// hvac
		regexp.MustCompile(`\b(?:(furnace|air conditioner|condenser|heat pump|thermostat|filter|register|boiler|compressor|duct)(?:es|s)?|(ductwork))\b`),
		// windows and doors
		regexp.MustCompile(`\b(?:(window|door|sash|sill|screen|threshold)(?:es|s)?|(weatherstripping))\b`),
		// structural
		regexp.MustCompile(`\b(?:(foundation|beam|joist|rafter|column|post|slab|footing|stud|wall|ceiling|stair|truss)(?:es|s)?)\b`),
	},

	Area: []*regexp.Regexp{
		regexp.MustCompile(`\b(kitchen|bathroom|bedroom|living room|dining room)\b`),
		regexp.MustCompile(`\b(garage|basement|attic|crawl ?space)\b`),
		regexp.MustCompile(`\b(exterior|interior|roof|foundation)\b`),
	},

	RoomName: []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b((?:master|guest|primary) (?:bedroom|bathroom))\b`),
		regexp.MustCompile(`(?i)\b(powder room)\b`),
		regexp.MustCompile(`(?i)\b((?:family|great|bonus) room)\b`),
		regexp.MustCompile(`(?i)\b((?:utility|laundry|mud) ?room)\b`),
	},

	Dimension: []*regexp.Regexp{
		regexp.MustCompile(`(\d+(?:\.\d+)?\s*[x×]\s*\d+(?:\.\d+)?)`),
		regexp.MustCompile(`\b(\d+(?:\.\d+)?\s+by\s+\d+(?:\.\d+)?)\b`),
		regexp.MustCompile(`\b(\d+(?:\.\d+)?\s*(?:feet|foot|ft|inches|inch|in))\b`),
	},
}

// firstMatch returns the submatches of the first pattern in the list that matches text.
func firstMatch(patterns []*regexp.Regexp, text string) ([]string, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil && len(m) > 1 && m[1] != "" {
			return m, true
		}
	}
	return nil, false
}
