package observatory

import "strings"

// Signal types form a closed set; classification falls back to SignalOther.
const (
	SignalCapacityAssets      = "capacity_assets"
	SignalRegulationStandards = "regulation_standards"
	SignalMnAPartnerships     = "mna_partnerships"
	SignalPricingFeedstocks   = "pricing_feedstocks"
	SignalDemandEndUse        = "demand_enduse"
	SignalTechnologyRecycling = "technology_recycling"
	SignalCompetitiveActions  = "competitive_actions"
	SignalSafetyIncidents     = "safety_incidents"
	SignalOther               = "other"
)

// SignalTypes lists the closed taxonomy in classification-priority order.
var SignalTypes = []string{
	SignalCapacityAssets,
	SignalRegulationStandards,
	SignalMnAPartnerships,
	SignalPricingFeedstocks,
	SignalDemandEndUse,
	SignalTechnologyRecycling,
	SignalCompetitiveActions,
	SignalSafetyIncidents,
	SignalOther,
}

// Category describes one deliverable category of the monitored industry.
type Category struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	QueryTokens string `yaml:"query_tokens"` // search keywords for this category
}

// Taxonomy is the industry knowledge driving query planning and signal
// extraction. It is injectable so the monitored industry is configurable;
// DefaultTaxonomy returns the polyurethane industry model the system ships
// with.
type Taxonomy struct {
	// Industry is the short industry term prefixed to generated queries,
	// e.g. "polyurethane".
	Industry string `yaml:"industry"`

	Categories []Category `yaml:"categories"`

	// ValueChainLinks enumerates the valid value-chain positions.
	ValueChainLinks []string `yaml:"value_chain_links"`

	// RegionKeywords maps a region name to the terms whose presence in a
	// title or snippet marks the text as relevant to that region.
	RegionKeywords map[string][]string `yaml:"region_keywords"`

	// TypeKeywords maps each non-other signal type to its trigger terms,
	// matched case-insensitively against title + snippet.
	TypeKeywords map[string][]string `yaml:"type_keywords"`
}

// CategoryQueryTokens returns the search keywords for a category id, falling
// back to the bare industry term for unknown categories.
func (t *Taxonomy) CategoryQueryTokens(id string) string {
	for _, c := range t.Categories {
		if c.ID == id {
			return c.QueryTokens
		}
	}
	return t.Industry
}

// MatchRegion reports whether the text mentions any keyword of the region.
// Unknown regions match nothing.
func (t *Taxonomy) MatchRegion(region, text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range t.RegionKeywords[region] {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// ClassifyType scores the text against each signal type's keywords and
// returns the best-scoring type, or SignalOther when nothing matches. Ties
// resolve to the earlier type in SignalTypes.
func (t *Taxonomy) ClassifyType(text string) string {
	lower := strings.ToLower(text)
	best, bestScore := SignalOther, 0
	for _, st := range SignalTypes {
		score := 0
		for _, kw := range t.TypeKeywords[st] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = st, score
		}
	}
	return best
}

// DefaultTaxonomy returns the polyurethane industry model: the deliverable
// categories with their search tokens, the value-chain positions, the region
// keyword table, and the signal-type trigger terms.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Industry: "polyurethane",
		Categories: []Category{
			{ID: "company_news", Name: "Company News Tracking", QueryTokens: "polyurethane company news"},
			{ID: "regional_monitoring", Name: "Regional Market Monitoring", QueryTokens: "polyurethane market region"},
			{ID: "industry_context", Name: "Industry Context & Insight", QueryTokens: "polyurethane industry supply demand"},
			{ID: "value_chain", Name: "PU Value-Chain Analysis", QueryTokens: "MDI TDI polyols polyurethane"},
			{ID: "value_chain_link", Name: "Link in the PU Value Chain", QueryTokens: "polyurethane value chain"},
			{ID: "competitive", Name: "Competitive Intelligence", QueryTokens: "polyurethane producers competitive"},
			{ID: "sustainability", Name: "Sustainability & Regulation Tracking", QueryTokens: "polyurethane sustainability REACH decarbonization"},
			{ID: "capacity", Name: "Capacity & Asset Moves", QueryTokens: "polyurethane capacity expansion plant"},
			{ID: "m_and_a", Name: "M&A and Partnerships", QueryTokens: "polyurethane acquisition partnership M&A"},
			{ID: "early_warning", Name: "Early-Warning Signals", QueryTokens: "polyurethane price demand utilization"},
			{ID: "executive_briefings", Name: "Executive-Ready Briefings", QueryTokens: "polyurethane market briefing"},
		},
		ValueChainLinks: []string{"raw_materials", "system_houses", "foam_converters", "end_use"},
		RegionKeywords: map[string][]string{
			"EMEA":          {"EMEA", "Europe", "European", "EU", "Germany", "France", "UK", "Italy", "Spain", "Netherlands", "Belgium", "Poland"},
			"Middle East":   {"Middle East", "Gulf", "UAE", "Saudi", "Qatar", "Bahrain", "Kuwait", "Oman", "Iran", "Iraq"},
			"China":         {"China", "Chinese", "PRC", "mainland China"},
			"NE Asia":       {"NE Asia", "Northeast Asia", "Japan", "Japanese", "Korea", "Korean", "Taiwan", "Hong Kong"},
			"SEA":           {"SEA", "Southeast Asia", "ASEAN", "Singapore", "Malaysia", "Thailand", "Indonesia", "Vietnam", "Philippines", "Myanmar", "Cambodia", "Laos"},
			"India":         {"India", "Indian"},
			"North America": {"North America", "USA", "US ", "United States", "Canada", "American", "Mexico"},
			"South America": {"South America", "Brazil", "Brazilian", "Argentina", "Chile", "Colombia", "Latin America"},
		},
		TypeKeywords: map[string][]string{
			SignalCapacityAssets:      {"capacity", "expansion", "new plant", "shutdown", "mothball", "debottleneck", "asset sale", "startup of", "commissioned"},
			SignalRegulationStandards: {"REACH", "regulation", "compliance", "diisocyanate", "standard", "ban", "restriction", "directive", "EPA"},
			SignalMnAPartnerships:     {"acquisition", "acquire", "merger", "joint venture", "partnership", "stake", "divest", "takeover"},
			SignalPricingFeedstocks:   {"price", "pricing", "feedstock", "cost", "margin", "benzene", "propylene", "force majeure", "contract settle"},
			SignalDemandEndUse:        {"demand", "automotive", "mattress", "construction", "appliance", "furniture", "end-use", "consumption"},
			SignalTechnologyRecycling: {"recycling", "recycled", "bio-based", "circular", "chemolysis", "low-PCF", "technology licence", "pilot plant"},
			SignalCompetitiveActions:  {"market share", "positioning", "restructuring", "cost cutting", "strategy", "rebrand", "portfolio"},
			SignalSafetyIncidents:     {"explosion", "fire", "incident", "accident", "injury", "leak", "evacuation", "fatality"},
		},
	}
}
