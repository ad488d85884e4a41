// Package refgraph persists the entity reference graph: directed, typed,
// deduplicated edges between arbitrary project entities (tasks, tickets,
// sessions, knowledge docs, rules, specs, modules).
//
// It is independent of the code-level dependency graphs the analysis
// engine consults — any producer can link any two entities, and any
// consumer can query or traverse the graph.
package refgraph

import "fmt"

// Relationship is the closed vocabulary for reference edges. Unknown
// values are a caller contract violation: validate at the boundary with
// ValidateRelationship, the store itself does not police them.
type Relationship string

const (
	RelConvertsTo    Relationship = "converts_to"
	RelImplementedBy Relationship = "implemented_by"
	RelDependsOn     Relationship = "depends_on"
	RelBlocks        Relationship = "blocks"
	RelBlockedBy     Relationship = "blocked_by"
	RelRelatedTo     Relationship = "related_to"
	RelMentions      Relationship = "mentions"
	RelReferences    Relationship = "references"
	RelSupersedes    Relationship = "supersedes"
	RelPartOf        Relationship = "part_of"
)

// validRelationships is the set of allowed relationship values.
var validRelationships = map[Relationship]bool{
	RelConvertsTo:    true,
	RelImplementedBy: true,
	RelDependsOn:     true,
	RelBlocks:        true,
	RelBlockedBy:     true,
	RelRelatedTo:     true,
	RelMentions:      true,
	RelReferences:    true,
	RelSupersedes:    true,
	RelPartOf:        true,
}

// RelationshipValues returns the allowed relationship values as strings,
// for tool schemas and resource listings.
func RelationshipValues() []string {
	return []string{
		string(RelConvertsTo), string(RelImplementedBy), string(RelDependsOn),
		string(RelBlocks), string(RelBlockedBy), string(RelRelatedTo),
		string(RelMentions), string(RelReferences), string(RelSupersedes),
		string(RelPartOf),
	}
}

// ValidateRelationship returns an error if the relationship is not part
// of the closed vocabulary.
func ValidateRelationship(r Relationship) error {
	if !validRelationships[r] {
		return fmt.Errorf("invalid relationship %q: must be one of: %v", r, RelationshipValues())
	}
	return nil
}

// knownEntityTypes is the entity-type vocabulary. It is advisory: the
// store accepts any type, but tool boundaries normalize unknown values.
var knownEntityTypes = map[string]bool{
	"task":      true,
	"ticket":    true,
	"session":   true,
	"knowledge": true,
	"rule":      true,
	"spec":      true,
	"module":    true,
	"document":  true,
}

// CanonicalEntityType normalizes an entity type, mapping anything
// outside the known vocabulary to "document". ("document" is the single
// canonical fallback; earlier vocabularies used "concept" for this.)
func CanonicalEntityType(t string) string {
	if knownEntityTypes[t] {
		return t
	}
	return "document"
}

// EntityReference is a typed directed edge between two entities.
// References are immutable once created; the 5-tuple (source type/id,
// target type/id, relationship) is unique.
type EntityReference struct {
	ID           string            `json:"id"`
	SourceType   string            `json:"source_type"`
	SourceID     string            `json:"source_id"`
	TargetType   string            `json:"target_type"`
	TargetID     string            `json:"target_id"`
	Relationship Relationship      `json:"relationship"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    int64             `json:"created_at"` // epoch milliseconds
	CreatedBy    string            `json:"created_by,omitempty"`
}

// CreateParams holds the input for creating a reference.
type CreateParams struct {
	SourceType   string            `json:"source_type"`
	SourceID     string            `json:"source_id"`
	TargetType   string            `json:"target_type"`
	TargetID     string            `json:"target_id"`
	Relationship Relationship      `json:"relationship"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedBy    string            `json:"created_by,omitempty"`
}

// Direction selects which side of an edge a bidirectional query matches.
type Direction string

const (
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
	DirectionBoth    Direction = "both"
)

// Query filters reference lookups. Two forms are supported:
//   - directional: any of the Source*/Target* fields filter strictly on
//     that side of the edge;
//   - bidirectional: EntityType+EntityID with a Direction match the
//     entity on the source side (forward), target side (reverse), or
//     either (both).
//
// Relationship optionally narrows either form. Limit is clamped to 500.
type Query struct {
	SourceType string
	SourceID   string
	TargetType string
	TargetID   string

	EntityType string
	EntityID   string
	Direction  Direction

	Relationship Relationship
	Limit        int
	Offset       int
}

// GraphStats summarizes the stored reference graph.
type GraphStats struct {
	TotalReferences int            `json:"total_references"`
	ByRelationship  map[string]int `json:"by_relationship"`
}
