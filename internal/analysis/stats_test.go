package analysis

import "testing"

func TestGetFlowStatistics_Empty(t *testing.T) {
	stats := GetFlowStatistics(nil)

	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.RequiresValidation != 0 {
		t.Errorf("RequiresValidation = %d, want 0", stats.RequiresValidation)
	}
	if stats.TotalSuggestedTests != 0 {
		t.Errorf("TotalSuggestedTests = %d, want 0", stats.TotalSuggestedTests)
	}
	if stats.ByStrength == nil || stats.ByImpactLevel == nil || stats.ByFlowType == nil {
		t.Error("count maps must be initialized on empty input")
	}
	if len(stats.ByStrength)+len(stats.ByImpactLevel)+len(stats.ByFlowType) != 0 {
		t.Errorf("non-zero counts on empty input: %+v", stats)
	}
}

func TestGetFlowStatistics_Counts(t *testing.T) {
	scope := &ChangeScope{PrimaryModules: []string{"users"}, AffectedEntities: []string{"User"}}
	flows := NewAnalyzer().AnalyzeForImpact([]DataFlow{
		{From: "users", To: "orders", Entities: []string{"User"}, FlowType: FlowWrite, Strength: StrengthCritical, Relationships: []string{"creates"}},
		{From: "analytics", To: "reporting", Entities: []string{"Metric"}, FlowType: FlowRead, Strength: StrengthOptional},
		{From: "audit", To: "reporting", Entities: []string{"User"}, FlowType: FlowRead, Strength: StrengthImportant},
	}, scope, ParsedChange{})

	stats := GetFlowStatistics(flows)

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByStrength[StrengthCritical] != 1 || stats.ByStrength[StrengthOptional] != 1 || stats.ByStrength[StrengthImportant] != 1 {
		t.Errorf("ByStrength = %v", stats.ByStrength)
	}
	if stats.ByFlowType[FlowWrite] != 1 || stats.ByFlowType[FlowRead] != 2 {
		t.Errorf("ByFlowType = %v", stats.ByFlowType)
	}
	if stats.ByImpactLevel[ImpactDirect] != 1 {
		t.Errorf("ByImpactLevel = %v, want one direct", stats.ByImpactLevel)
	}
	if stats.ByImpactLevel[ImpactCascade] != 1 {
		t.Errorf("ByImpactLevel = %v, want one cascade", stats.ByImpactLevel)
	}
	// direct+critical and indirect+important require validation; the
	// optional cascade flow does not.
	if stats.RequiresValidation != 2 {
		t.Errorf("RequiresValidation = %d, want 2", stats.RequiresValidation)
	}
	// creates + critical on the first flow = 2 suggestions, none elsewhere.
	if stats.TotalSuggestedTests != 2 {
		t.Errorf("TotalSuggestedTests = %d, want 2", stats.TotalSuggestedTests)
	}
}
