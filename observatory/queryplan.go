package observatory

import (
	"fmt"
	"regexp"
	"strings"
)

// Query plan axis caps, applied in order before the overall plan cap.
const (
	maxRegionQueries   = 8
	maxCategoryQueries = 10
	maxValueChainQs    = 4
	maxEntityQueries   = 15
	defaultPlanQueries = 30
)

// PlannedQuery is one derived search query. The ID encodes the originating
// axis so attribution can be parsed back without re-deriving the plan.
type PlannedQuery struct {
	ID     string `json:"query_id"`
	Text   string `json:"query_text"`
	Intent string `json:"intent"`
}

// BuildQueryPlan deterministically derives the run's search queries from its
// specification parameters. The same run context and taxonomy always produce
// the same plan, including IDs: axes are walked in fixed order (regions,
// categories, value-chain links, tracked-entity aliases, generic fallback)
// and entity IDs are slugs, not hashes. maxQueries <= 0 uses the default cap.
func BuildQueryPlan(run RunContext, tax *Taxonomy, maxQueries int) []PlannedQuery {
	if maxQueries <= 0 {
		maxQueries = defaultPlanQueries
	}

	var plan []PlannedQuery
	seen := make(map[string]bool)
	add := func(id, text, intent string) {
		text = strings.TrimSpace(text)
		if text == "" || len(plan) >= maxQueries {
			return
		}
		key := id + "\x00" + strings.ToLower(text)
		if seen[key] {
			return
		}
		seen[key] = true
		plan = append(plan, PlannedQuery{ID: id, Text: text, Intent: intent})
	}

	for _, r := range capped(run.Regions, maxRegionQueries) {
		add("region_"+slug(r), fmt.Sprintf("%s %s news", tax.Industry, r), "region:"+r)
	}
	for _, cat := range capped(run.Categories, maxCategoryQueries) {
		add("cat_"+cat, tax.CategoryQueryTokens(cat), "category:"+cat)
	}
	for _, vcl := range capped(run.ValueChainLinks, maxValueChainQs) {
		add("vcl_"+vcl, fmt.Sprintf("%s %s", tax.Industry, strings.ReplaceAll(vcl, "_", " ")), "value_chain:"+vcl)
	}
	for _, alias := range capped(entityAliases(run.TrackedEntities), maxEntityQueries) {
		add("entity_"+slug(alias), fmt.Sprintf("%s %s news", alias, tax.Industry), "entity")
	}
	add("generic", fmt.Sprintf("%s industry news", tax.Industry), "generic")

	return plan
}

// QueryAxis parses a query id back into its axis and value. The generic
// fallback and unknown ids report value "".
func QueryAxis(queryID string) (axis, value string) {
	for _, prefix := range []string{"region_", "cat_", "vcl_", "entity_"} {
		if strings.HasPrefix(queryID, prefix) {
			return strings.TrimSuffix(prefix, "_"), strings.TrimPrefix(queryID, prefix)
		}
	}
	if queryID == "generic" {
		return "generic", ""
	}
	return "", ""
}

// entityAliases flattens tracked entities into their name + alias list,
// dropping blanks and single characters.
func entityAliases(entities []TrackedEntity) []string {
	var out []string
	for _, e := range entities {
		for _, a := range append([]string{e.Name}, e.Aliases...) {
			a = strings.TrimSpace(a)
			if len(a) >= 2 {
				out = append(out, a)
			}
		}
	}
	return out
}

func capped[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// slug reduces a display name to a stable id fragment: lowercase
// alphanumerics joined by underscores.
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugStrip.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
