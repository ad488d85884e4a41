package analysis

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Analyzer classifies data flows against a computed ChangeScope. It is
// stateless: every call is a pure transformation of its inputs.
type Analyzer struct{}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeForImpact classifies every flow, derives suggested tests and
// affected operations, and decides whether manual validation is needed.
// The result is 1:1 with the input flows, original fields preserved.
// parsed is carried for symmetry with scope detection; classification
// itself only consults the scope.
func (a *Analyzer) AnalyzeForImpact(flows []DataFlow, scope *ChangeScope, parsed ParsedChange) []ImpactDataFlow {
	result := make([]ImpactDataFlow, 0, len(flows))
	for _, flow := range flows {
		level := classifyImpact(flow, scope)
		impactFlow := ImpactDataFlow{
			DataFlow:           flow,
			ID:                 uuid.NewString(),
			ImpactLevel:        level,
			AffectedOperations: affectedOperations(flow),
			ValidationRequired: validationRequired(level, flow.Strength),
			SuggestedTests:     suggestedTests(flow),
		}
		result = append(result, impactFlow)
	}
	return result
}

// classifyImpact applies the precedence-ordered classification rules.
// First match wins: a flow that qualifies as direct never falls through
// to indirect or cascade.
func classifyImpact(flow DataFlow, scope *ChangeScope) ImpactLevel {
	sharesEntity := false
	for _, e := range flow.Entities {
		if scope.HasAffectedEntity(e) {
			sharesEntity = true
			break
		}
	}

	touchesPrimary := scope.HasPrimaryModule(flow.From) || scope.HasPrimaryModule(flow.To)
	if touchesPrimary && sharesEntity {
		return ImpactDirect
	}

	touchesDependent := scope.HasDependentModule(flow.From) || scope.HasDependentModule(flow.To)
	if touchesDependent || sharesEntity {
		return ImpactIndirect
	}

	return ImpactCascade
}

// suggestedTests folds the flow's relationship verbs, flow type, and
// strength into an ordered, deduplicated list of test suggestions.
// Overlapping triggers (e.g. "creates" and "generates") collapse into
// one suggestion.
func suggestedTests(flow DataFlow) []string {
	var tests []string
	for _, rel := range flow.Relationships {
		verb := strings.ToLower(rel)
		switch {
		case strings.Contains(verb, "creates"), strings.Contains(verb, "generates"):
			tests = append(tests, fmt.Sprintf("Verify %s creation is reflected in %s", flow.From, flow.To))
		case strings.Contains(verb, "owns"):
			tests = append(tests, fmt.Sprintf("Verify ownership constraints between %s and %s", flow.From, flow.To))
		case strings.Contains(verb, "updates"):
			tests = append(tests, fmt.Sprintf("Verify updates in %s propagate to %s", flow.From, flow.To))
		case strings.Contains(verb, "deletes"), strings.Contains(verb, "removes"):
			tests = append(tests, fmt.Sprintf("Verify cascade delete behavior from %s to %s", flow.From, flow.To))
		}
	}
	if flow.FlowType == FlowBidirectional {
		tests = append(tests, fmt.Sprintf("Verify bidirectional sync between %s and %s", flow.From, flow.To))
	}
	if flow.Strength == StrengthCritical {
		tests = append(tests, fmt.Sprintf("Verify data integrity of critical flow %s → %s", flow.From, flow.To))
	}
	return dedupeStrings(tests)
}

// relationship verb → CRUD operations it implies.
var relationshipOperations = []struct {
	verbs []string
	ops   []string
}{
	{verbs: []string{"creates"}, ops: []string{"INSERT", "CREATE"}},
	{verbs: []string{"updates"}, ops: []string{"UPDATE", "PATCH"}},
	{verbs: []string{"removes", "deletes"}, ops: []string{"DELETE"}},
}

// flow type → operations it implies, independent of relationships.
var flowTypeOperations = map[FlowType][]string{
	FlowRead:          {"SELECT", "READ"},
	FlowWrite:         {"INSERT", "UPDATE"},
	FlowBidirectional: {"SELECT", "READ", "INSERT", "UPDATE"},
}

// affectedOperations unions the operations implied by the flow's
// relationship verbs with those implied by its flow type.
func affectedOperations(flow DataFlow) []string {
	var ops []string
	for _, rel := range flow.Relationships {
		verb := strings.ToLower(rel)
		for _, mapping := range relationshipOperations {
			for _, v := range mapping.verbs {
				if strings.Contains(verb, v) {
					ops = append(ops, mapping.ops...)
					break
				}
			}
		}
	}
	ops = append(ops, flowTypeOperations[flow.FlowType]...)
	return dedupeStrings(ops)
}

// validationRequired decides whether a flow needs manual validation:
// critical flows always, direct flows always, indirect flows only when
// the data is important. Everything else passes unvalidated.
func validationRequired(level ImpactLevel, strength FlowStrength) bool {
	if strength == StrengthCritical {
		return true
	}
	if level == ImpactDirect {
		return true
	}
	return level == ImpactIndirect && strength == StrengthImportant
}

// dedupeStrings removes duplicates while preserving first-seen order.
func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}
