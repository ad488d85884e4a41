package analysis

// FlowStatistics is a pure reduction over classified flows.
type FlowStatistics struct {
	Total               int                  `json:"total"`
	ByStrength          map[FlowStrength]int `json:"by_strength"`
	ByImpactLevel       map[ImpactLevel]int  `json:"by_impact_level"`
	ByFlowType          map[FlowType]int     `json:"by_flow_type"`
	RequiresValidation  int                  `json:"requires_validation"`
	TotalSuggestedTests int                  `json:"total_suggested_tests"`
}

// GetFlowStatistics aggregates counts across the given flows. An empty
// input yields an all-zero result with initialized (empty) maps.
func GetFlowStatistics(flows []ImpactDataFlow) FlowStatistics {
	stats := FlowStatistics{
		ByStrength:    map[FlowStrength]int{},
		ByImpactLevel: map[ImpactLevel]int{},
		ByFlowType:    map[FlowType]int{},
	}
	for _, f := range flows {
		stats.Total++
		stats.ByStrength[f.Strength]++
		stats.ByImpactLevel[f.ImpactLevel]++
		stats.ByFlowType[f.FlowType]++
		if f.ValidationRequired {
			stats.RequiresValidation++
		}
		stats.TotalSuggestedTests += len(f.SuggestedTests)
	}
	return stats
}
