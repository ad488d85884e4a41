// Package analysis implements the change-impact engine: scope detection
// over pluggable dependency-graph providers and impact classification of
// data flows.
//
// The package is split by concern, one file each:
// - types: request/result structures and enums
// - providers: the optional provider interfaces the detector consults
// - scope: blast-radius expansion into a ChangeScope
// - impact: per-flow impact classification
// - graph: flow-graph construction from classified flows
// - diagram: Mermaid rendering of a flow graph
// - stats: aggregate statistics over classified flows
//
// Both the detector and the analyzer are stateless given their inputs;
// construct them explicitly and inject providers at the call site.
package analysis

import "fmt"

// --- Change type enum ---

// ChangeType categorizes what kind of work a change represents.
type ChangeType string

const (
	ChangeFeature     ChangeType = "feature"
	ChangeBugfix      ChangeType = "bugfix"
	ChangeRefactor    ChangeType = "refactor"
	ChangeEnhancement ChangeType = "enhancement"
	ChangeChore       ChangeType = "chore"
)

// validChangeTypes is the set of allowed change types.
var validChangeTypes = map[ChangeType]bool{
	ChangeFeature:     true,
	ChangeBugfix:      true,
	ChangeRefactor:    true,
	ChangeEnhancement: true,
	ChangeChore:       true,
}

// ValidateChangeType returns an error if the type is not recognized.
func ValidateChangeType(t ChangeType) error {
	if !validChangeTypes[t] {
		return fmt.Errorf("invalid change type %q: must be one of: feature, bugfix, refactor, enhancement, chore", t)
	}
	return nil
}

// --- Impact level enum ---

// ImpactLevel describes how directly a graph element relates to the
// change scope.
type ImpactLevel string

const (
	// ImpactDirect marks elements inside the declared scope.
	ImpactDirect ImpactLevel = "direct"
	// ImpactIndirect marks elements that depend on the scope.
	ImpactIndirect ImpactLevel = "indirect"
	// ImpactCascade marks elements unrelated to the scope but surfaced
	// for completeness.
	ImpactCascade ImpactLevel = "cascade"
)

// --- Flow type enum ---

// FlowType describes the direction of data movement in a flow.
type FlowType string

const (
	FlowRead          FlowType = "read"
	FlowWrite         FlowType = "write"
	FlowBidirectional FlowType = "bidirectional"
)

// --- Flow strength enum ---

// FlowStrength grades how load-bearing a data flow is.
type FlowStrength string

const (
	StrengthOptional  FlowStrength = "optional"
	StrengthImportant FlowStrength = "important"
	StrengthCritical  FlowStrength = "critical"
)

// --- Request payloads ---

// Operation is a single operation extracted from a change description.
type Operation struct {
	Type        string `json:"type"`
	Target      string `json:"target"`
	Description string `json:"description"`
}

// ParsedChange is the externally produced summary of a change
// description: the entities, operations, and keywords it mentions.
// Created once per analysis request and never mutated.
type ParsedChange struct {
	Entities   []string    `json:"entities"`
	Operations []Operation `json:"operations"`
	Keywords   []string    `json:"keywords"`
	ChangeType ChangeType  `json:"change_type"`
	Confidence float64     `json:"confidence"`
}

// ChangeInput is the immutable request payload for scope detection.
type ChangeInput struct {
	Description   string   `json:"description"`
	TargetModules []string `json:"target_modules,omitempty"`
	TargetFiles   []string `json:"target_files,omitempty"`
	SpecID        string   `json:"spec_id,omitempty"`
}

// --- Scope result ---

// DependentModule is a module pulled into scope by dependency expansion.
type DependentModule struct {
	ModuleID       string      `json:"module_id"`
	ModuleName     string      `json:"module_name"`
	ImpactLevel    ImpactLevel `json:"impact_level"`
	DependencyPath []string    `json:"dependency_path"`
	Reason         string      `json:"reason"`
}

// AffectedFile is a file pulled into scope by import expansion.
type AffectedFile struct {
	FilePath    string      `json:"file_path"`
	ImpactLevel ImpactLevel `json:"impact_level"`
	Reason      string      `json:"reason"`
}

// ChangeScope is the computed blast radius of a change: the primary
// targets plus everything reached by bounded dependency expansion.
//
// Invariant: a module/file never appears both as primary and as
// dependent/affected; dependent and affected lists are deduplicated
// with the shallowest (first-seen) classification winning.
type ChangeScope struct {
	PrimaryModules   []string          `json:"primary_modules"`
	PrimaryFiles     []string          `json:"primary_files"`
	DependentModules []DependentModule `json:"dependent_modules"`
	AffectedFiles    []AffectedFile    `json:"affected_files"`
	AffectedEntities []string          `json:"affected_entities"`
	ExpansionDepth   int               `json:"expansion_depth"`
}

// HasPrimaryModule reports whether id is one of the scope's primary modules.
func (s *ChangeScope) HasPrimaryModule(id string) bool {
	for _, m := range s.PrimaryModules {
		if m == id {
			return true
		}
	}
	return false
}

// HasDependentModule reports whether id appears in the dependent module list.
func (s *ChangeScope) HasDependentModule(id string) bool {
	for _, d := range s.DependentModules {
		if d.ModuleID == id {
			return true
		}
	}
	return false
}

// HasAffectedEntity reports whether name is one of the affected entities.
func (s *ChangeScope) HasAffectedEntity(name string) bool {
	for _, e := range s.AffectedEntities {
		if e == name {
			return true
		}
	}
	return false
}

// --- Data flows ---

// DataFlow is a directed relationship between two modules describing how
// an entity's data moves or is shared. Flows are supplied by a
// DataFlowProvider; the engine performs no static analysis itself.
type DataFlow struct {
	From          string       `json:"from"`
	To            string       `json:"to"`
	Entities      []string     `json:"entities"`
	FlowType      FlowType     `json:"flow_type"`
	Strength      FlowStrength `json:"strength"`
	Relationships []string     `json:"relationships"`
}

// ImpactDataFlow is a DataFlow classified against a ChangeScope. The
// original flow fields are preserved unchanged.
type ImpactDataFlow struct {
	DataFlow
	ID                 string      `json:"id"`
	ImpactLevel        ImpactLevel `json:"impact_level"`
	AffectedOperations []string    `json:"affected_operations"`
	ValidationRequired bool        `json:"validation_required"`
	SuggestedTests     []string    `json:"suggested_tests"`
}
