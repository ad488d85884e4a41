package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/impactmap/ripple/internal/refgraph"
	"github.com/mark3labs/mcp-go/mcp"
)

// Reference tools expose the entity reference graph. They all share a
// *refgraph.Store and are only registered when the store opened
// successfully.

// relationshipHint lists the accepted relationship values for tool schemas.
func relationshipHint() string {
	return strings.Join(refgraph.RelationshipValues(), ", ")
}

// referenceParams extracts the common link 5-tuple from a request,
// normalizing entity types and validating the relationship. The second
// return is a non-empty caller error message when the input is invalid.
func referenceParams(req mcp.CallToolRequest) (refgraph.CreateParams, string) {
	p := refgraph.CreateParams{
		SourceType:   refgraph.CanonicalEntityType(req.GetString("source_type", "")),
		SourceID:     strings.TrimSpace(req.GetString("source_id", "")),
		TargetType:   refgraph.CanonicalEntityType(req.GetString("target_type", "")),
		TargetID:     strings.TrimSpace(req.GetString("target_id", "")),
		Relationship: refgraph.Relationship(req.GetString("relationship", "")),
		CreatedBy:    req.GetString("created_by", ""),
	}
	if p.SourceID == "" || p.TargetID == "" {
		return p, "'source_id' and 'target_id' are required"
	}
	if err := refgraph.ValidateRelationship(p.Relationship); err != nil {
		return p, err.Error()
	}
	if meta, ok := req.GetArguments()["metadata"].(map[string]any); ok {
		p.Metadata = map[string]string{}
		for k, v := range meta {
			if s, ok := v.(string); ok {
				p.Metadata[k] = s
			}
		}
	}
	return p, ""
}

// --- ripple_link ---

// LinkTool handles the ripple_link MCP tool: create one entity reference.
type LinkTool struct {
	store *refgraph.Store
}

// NewLinkTool creates a LinkTool backed by the given store.
func NewLinkTool(store *refgraph.Store) *LinkTool {
	return &LinkTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *LinkTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_link",
		mcp.WithDescription(
			"Link two entities in the reference graph. Creating the same link twice "+
				"is idempotent and returns the existing reference.",
		),
		mcp.WithString("source_type",
			mcp.Required(),
			mcp.Description("Source entity type (task, ticket, session, knowledge, rule, spec, module, document)"),
		),
		mcp.WithString("source_id",
			mcp.Required(),
			mcp.Description("Source entity id"),
		),
		mcp.WithString("target_type",
			mcp.Required(),
			mcp.Description("Target entity type"),
		),
		mcp.WithString("target_id",
			mcp.Required(),
			mcp.Description("Target entity id"),
		),
		mcp.WithString("relationship",
			mcp.Required(),
			mcp.Description("Relationship: "+relationshipHint()),
		),
		mcp.WithObject("metadata",
			mcp.Description("Optional string key/value metadata stored with the reference"),
		),
		mcp.WithString("created_by",
			mcp.Description("Optional author of the link"),
		),
	)
}

// Handle processes the ripple_link tool call.
func (t *LinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, msg := referenceParams(req)
	if msg != "" {
		return mcp.NewToolResultError(msg), nil
	}

	ref, err := t.store.CreateReference(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("creating reference: %w", err)
	}

	return mcp.NewToolResultText(fmt.Sprintf("Linked %s:%s —%s→ %s:%s (id %s)",
		ref.SourceType, ref.SourceID, ref.Relationship, ref.TargetType, ref.TargetID, ref.ID)), nil
}

// --- ripple_link_bulk ---

// LinkBulkTool handles the ripple_link_bulk MCP tool: create many
// references in one transaction.
type LinkBulkTool struct {
	store *refgraph.Store
}

// NewLinkBulkTool creates a LinkBulkTool backed by the given store.
func NewLinkBulkTool(store *refgraph.Store) *LinkBulkTool {
	return &LinkBulkTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *LinkBulkTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_link_bulk",
		mcp.WithDescription(
			"Link many entity pairs at once. The whole batch is one transaction; "+
				"duplicates of existing links are skipped, not errors. Returns the "+
				"references actually inserted.",
		),
		mcp.WithArray("links",
			mcp.Required(),
			mcp.Description("Array of links, each with source_type, source_id, target_type, target_id, relationship and optional metadata/created_by"),
		),
	)
}

// Handle processes the ripple_link_bulk tool call.
func (t *LinkBulkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["links"].([]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("'links' is required and must be a non-empty array"), nil
	}

	params := make([]refgraph.CreateParams, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("links[%d] must be an object", i)), nil
		}
		p := refgraph.CreateParams{
			SourceType:   refgraph.CanonicalEntityType(stringField(obj, "source_type")),
			SourceID:     strings.TrimSpace(stringField(obj, "source_id")),
			TargetType:   refgraph.CanonicalEntityType(stringField(obj, "target_type")),
			TargetID:     strings.TrimSpace(stringField(obj, "target_id")),
			Relationship: refgraph.Relationship(stringField(obj, "relationship")),
			CreatedBy:    stringField(obj, "created_by"),
		}
		if p.SourceID == "" || p.TargetID == "" {
			return mcp.NewToolResultError(fmt.Sprintf("links[%d]: source_id and target_id are required", i)), nil
		}
		if err := refgraph.ValidateRelationship(p.Relationship); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("links[%d]: %v", i, err)), nil
		}
		if meta, ok := obj["metadata"].(map[string]any); ok {
			p.Metadata = map[string]string{}
			for k, v := range meta {
				if s, ok := v.(string); ok {
					p.Metadata[k] = s
				}
			}
		}
		params = append(params, p)
	}

	inserted, err := t.store.CreateReferencesBulk(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("creating references: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Inserted %d of %d links (%d already existed).\n",
		len(inserted), len(params), len(params)-len(inserted))
	for _, ref := range inserted {
		fmt.Fprintf(&sb, "- %s:%s —%s→ %s:%s (id %s)\n",
			ref.SourceType, ref.SourceID, ref.Relationship, ref.TargetType, ref.TargetID, ref.ID)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// stringField reads a string value out of a decoded JSON object.
func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// --- ripple_references ---

// ReferencesTool handles the ripple_references MCP tool: filtered,
// paginated reference queries.
type ReferencesTool struct {
	store *refgraph.Store
}

// NewReferencesTool creates a ReferencesTool backed by the given store.
func NewReferencesTool(store *refgraph.Store) *ReferencesTool {
	return &ReferencesTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ReferencesTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_references",
		mcp.WithDescription(
			"Query the reference graph. Either filter on specific edge sides "+
				"(source_type/source_id/target_type/target_id), or look up one entity "+
				"bidirectionally with entity_type + entity_id and a direction. "+
				"Results are ordered oldest first.",
		),
		mcp.WithString("source_type", mcp.Description("Filter on source entity type")),
		mcp.WithString("source_id", mcp.Description("Filter on source entity id")),
		mcp.WithString("target_type", mcp.Description("Filter on target entity type")),
		mcp.WithString("target_id", mcp.Description("Filter on target entity id")),
		mcp.WithString("entity_type", mcp.Description("Bidirectional lookup: entity type (with entity_id)")),
		mcp.WithString("entity_id", mcp.Description("Bidirectional lookup: entity id (with entity_type)")),
		mcp.WithString("direction", mcp.Description("Bidirectional lookup side: forward, reverse, both (default: both)")),
		mcp.WithString("relationship", mcp.Description("Filter on relationship: "+relationshipHint())),
		mcp.WithNumber("limit", mcp.Description("Page size (default 100, max 500)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	)
}

// Handle processes the ripple_references tool call.
func (t *ReferencesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := refgraph.Query{
		SourceType: req.GetString("source_type", ""),
		SourceID:   req.GetString("source_id", ""),
		TargetType: req.GetString("target_type", ""),
		TargetID:   req.GetString("target_id", ""),
		EntityType: req.GetString("entity_type", ""),
		EntityID:   req.GetString("entity_id", ""),
		Direction:  refgraph.Direction(req.GetString("direction", string(refgraph.DirectionBoth))),
		Limit:      intArg(req, "limit", 0),
		Offset:     intArg(req, "offset", 0),
	}
	if rel := req.GetString("relationship", ""); rel != "" {
		q.Relationship = refgraph.Relationship(rel)
		if err := refgraph.ValidateRelationship(q.Relationship); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	switch q.Direction {
	case refgraph.DirectionForward, refgraph.DirectionReverse, refgraph.DirectionBoth:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown direction %q (valid: forward, reverse, both)", q.Direction)), nil
	}

	refs, err := t.store.QueryReferences(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying references: %w", err)
	}
	return mcp.NewToolResultText(renderReferences(refs)), nil
}

// --- ripple_related ---

// RelatedTool handles the ripple_related MCP tool: bounded BFS over the
// reference graph from one entity.
type RelatedTool struct {
	store *refgraph.Store
}

// NewRelatedTool creates a RelatedTool backed by the given store.
func NewRelatedTool(store *refgraph.Store) *RelatedTool {
	return &RelatedTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *RelatedTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_related",
		mcp.WithDescription(
			"Walk the reference graph outward from one entity, following edges in "+
				"both directions up to max_depth hops, and return every edge reached. "+
				"Cycle-safe.",
		),
		mcp.WithString("entity_type",
			mcp.Required(),
			mcp.Description("Entity type of the starting node"),
		),
		mcp.WithString("entity_id",
			mcp.Required(),
			mcp.Description("Entity id of the starting node"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Traversal bound in hops (default: 1)"),
		),
	)
}

// Handle processes the ripple_related tool call.
func (t *RelatedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entityType := refgraph.CanonicalEntityType(req.GetString("entity_type", ""))
	entityID := strings.TrimSpace(req.GetString("entity_id", ""))
	if entityID == "" {
		return mcp.NewToolResultError("'entity_id' is required"), nil
	}

	refs, err := t.store.GetRelatedEntities(ctx, entityType, entityID, intArg(req, "max_depth", 1))
	if err != nil {
		return nil, fmt.Errorf("walking references: %w", err)
	}
	return mcp.NewToolResultText(renderReferences(refs)), nil
}

// --- ripple_unlink ---

// UnlinkTool handles the ripple_unlink MCP tool: delete a reference by
// id or by its link tuple.
type UnlinkTool struct {
	store *refgraph.Store
}

// NewUnlinkTool creates an UnlinkTool backed by the given store.
func NewUnlinkTool(store *refgraph.Store) *UnlinkTool {
	return &UnlinkTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *UnlinkTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_unlink",
		mcp.WithDescription(
			"Remove a reference from the graph, either by its id or by the full "+
				"source/target/relationship tuple.",
		),
		mcp.WithString("id",
			mcp.Description("Reference id to delete"),
		),
		mcp.WithString("source_type", mcp.Description("Tuple delete: source entity type")),
		mcp.WithString("source_id", mcp.Description("Tuple delete: source entity id")),
		mcp.WithString("target_type", mcp.Description("Tuple delete: target entity type")),
		mcp.WithString("target_id", mcp.Description("Tuple delete: target entity id")),
		mcp.WithString("relationship", mcp.Description("Tuple delete: relationship")),
	)
}

// Handle processes the ripple_unlink tool call.
func (t *UnlinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := strings.TrimSpace(req.GetString("id", "")); id != "" {
		deleted, err := t.store.DeleteReference(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("deleting reference: %w", err)
		}
		if !deleted {
			return mcp.NewToolResultText(fmt.Sprintf("No reference with id %s.", id)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Deleted reference %s.", id)), nil
	}

	sourceType := refgraph.CanonicalEntityType(req.GetString("source_type", ""))
	sourceID := strings.TrimSpace(req.GetString("source_id", ""))
	targetType := refgraph.CanonicalEntityType(req.GetString("target_type", ""))
	targetID := strings.TrimSpace(req.GetString("target_id", ""))
	rel := refgraph.Relationship(req.GetString("relationship", ""))
	if sourceID == "" || targetID == "" {
		return mcp.NewToolResultError("provide either 'id' or the full source/target/relationship tuple"), nil
	}
	if err := refgraph.ValidateRelationship(rel); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	deleted, err := t.store.DeleteReferenceByLink(ctx, sourceType, sourceID, targetType, targetID, rel)
	if err != nil {
		return nil, fmt.Errorf("deleting reference: %w", err)
	}
	if !deleted {
		return mcp.NewToolResultText("No matching reference."), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Unlinked %s:%s —%s→ %s:%s.",
		sourceType, sourceID, rel, targetType, targetID)), nil
}

// renderReferences formats references as a markdown list, one line per
// edge with its metadata inlined as JSON.
func renderReferences(refs []refgraph.EntityReference) string {
	if len(refs) == 0 {
		return "No references found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d reference(s):\n", len(refs))
	for _, ref := range refs {
		fmt.Fprintf(&sb, "- [%s] %s:%s —%s→ %s:%s",
			ref.ID, ref.SourceType, ref.SourceID, ref.Relationship, ref.TargetType, ref.TargetID)
		if len(ref.Metadata) > 0 {
			if data, err := json.Marshal(ref.Metadata); err == nil {
				fmt.Fprintf(&sb, " %s", data)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
