package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/impactmap/ripple/internal/refgraph"
)

// newTestRefStore creates a refgraph.Store in a temp directory.
func newTestRefStore(t *testing.T) *refgraph.Store {
	t.Helper()
	store, err := refgraph.New(refgraph.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// --- LinkTool ---

func TestLinkTool_CreateAndIdempotent(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewLinkTool(store)

	args := map[string]interface{}{
		"source_type":  "task",
		"source_id":    "T-1",
		"target_type":  "spec",
		"target_id":    "S-1",
		"relationship": "implemented_by",
		"metadata":     map[string]interface{}{"note": "phase 1"},
	}

	result, err := tool.Handle(context.Background(), makeReq(args))
	mustNotError(t, result, err)
	first := resultText(result)
	if !strings.Contains(first, "task:T-1") || !strings.Contains(first, "spec:S-1") {
		t.Fatalf("unexpected link output: %s", first)
	}

	// Relinking the same tuple returns the existing reference id.
	result, err = tool.Handle(context.Background(), makeReq(args))
	mustNotError(t, result, err)
	if resultText(result) != first {
		t.Errorf("relink should be idempotent:\nfirst:  %s\nsecond: %s", first, resultText(result))
	}
}

func TestLinkTool_UnknownEntityTypeFallsBack(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewLinkTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source_type":  "concept",
		"source_id":    "C-1",
		"target_type":  "task",
		"target_id":    "T-1",
		"relationship": "related_to",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "document:C-1") {
		t.Errorf("unknown entity type should canonicalize to document: %s", resultText(result))
	}
}

func TestLinkTool_InvalidRelationship(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewLinkTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source_type":  "task",
		"source_id":    "T-1",
		"target_type":  "task",
		"target_id":    "T-2",
		"relationship": "friends_with",
	}))
	mustBeToolError(t, result, err, "invalid relationship")
}

func TestLinkTool_MissingIDs(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewLinkTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source_type":  "task",
		"target_type":  "task",
		"relationship": "blocks",
	}))
	mustBeToolError(t, result, err, "required")
}

// --- LinkBulkTool ---

func TestLinkBulkTool_SkipsDuplicates(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewLinkBulkTool(store)

	link := func(src, dst string) map[string]interface{} {
		return map[string]interface{}{
			"source_type":  "task",
			"source_id":    src,
			"target_type":  "task",
			"target_id":    dst,
			"relationship": "blocks",
		}
	}

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"links": []interface{}{link("A", "B"), link("A", "B"), link("B", "C")},
	}))
	mustNotError(t, result, err)
	if text := resultText(result); !strings.Contains(text, "Inserted 2 of 3") {
		t.Errorf("in-batch duplicate should be skipped: %s", text)
	}

	// Replaying the whole batch inserts nothing.
	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"links": []interface{}{link("A", "B"), link("B", "C")},
	}))
	mustNotError(t, result, err)
	if text := resultText(result); !strings.Contains(text, "Inserted 0 of 2") {
		t.Errorf("replay should insert nothing: %s", text)
	}
}

func TestLinkBulkTool_ValidatesEachLink(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewLinkBulkTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"links": []interface{}{
			map[string]interface{}{
				"source_type": "task", "source_id": "A",
				"target_type": "task", "target_id": "B",
				"relationship": "nope",
			},
		},
	}))
	mustBeToolError(t, result, err, "links[0]")

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "links")
}

// --- ReferencesTool / RelatedTool ---

// seedReferences creates a small graph: T-1 →blocks→ T-2 →blocks→ T-3,
// plus S-1 →implemented_by→ T-1.
func seedReferences(t *testing.T, store *refgraph.Store) {
	t.Helper()
	ctx := context.Background()
	links := []refgraph.CreateParams{
		{SourceType: "task", SourceID: "T-1", TargetType: "task", TargetID: "T-2", Relationship: refgraph.RelBlocks},
		{SourceType: "task", SourceID: "T-2", TargetType: "task", TargetID: "T-3", Relationship: refgraph.RelBlocks},
		{SourceType: "spec", SourceID: "S-1", TargetType: "task", TargetID: "T-1", Relationship: refgraph.RelImplementedBy},
	}
	for _, p := range links {
		if _, err := store.CreateReference(ctx, p); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestReferencesTool_BidirectionalLookup(t *testing.T) {
	store := newTestRefStore(t)
	seedReferences(t, store)
	tool := NewReferencesTool(store)

	// T-1 has one outgoing (blocks T-2) and one incoming (from S-1).
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entity_type": "task",
		"entity_id":   "T-1",
	}))
	mustNotError(t, result, err)
	if text := resultText(result); !strings.Contains(text, "Found 2 reference(s)") {
		t.Errorf("expected 2 references for T-1: %s", text)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entity_type": "task",
		"entity_id":   "T-1",
		"direction":   "forward",
	}))
	mustNotError(t, result, err)
	if text := resultText(result); !strings.Contains(text, "Found 1 reference(s)") {
		t.Errorf("expected 1 forward reference for T-1: %s", text)
	}
}

func TestReferencesTool_RelationshipFilter(t *testing.T) {
	store := newTestRefStore(t)
	seedReferences(t, store)
	tool := NewReferencesTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"relationship": "implemented_by",
	}))
	mustNotError(t, result, err)
	text := resultText(result)
	if !strings.Contains(text, "Found 1 reference(s)") || !strings.Contains(text, "spec:S-1") {
		t.Errorf("unexpected filter result: %s", text)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"relationship": "nope",
	}))
	mustBeToolError(t, result, err, "invalid relationship")

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"direction": "sideways",
	}))
	mustBeToolError(t, result, err, "unknown direction")
}

func TestRelatedTool_DepthBound(t *testing.T) {
	store := newTestRefStore(t)
	seedReferences(t, store)
	tool := NewRelatedTool(store)

	// Depth 1 from T-3: only the T-2 → T-3 edge.
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entity_type": "task",
		"entity_id":   "T-3",
	}))
	mustNotError(t, result, err)
	if text := resultText(result); !strings.Contains(text, "Found 1 reference(s)") {
		t.Errorf("depth 1 should find one edge: %s", text)
	}

	// Depth 3 reaches the whole chain including the spec link.
	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entity_type": "task",
		"entity_id":   "T-3",
		"max_depth":   float64(3),
	}))
	mustNotError(t, result, err)
	if text := resultText(result); !strings.Contains(text, "Found 3 reference(s)") {
		t.Errorf("depth 3 should find all edges: %s", text)
	}
}

func TestRelatedTool_RequiresEntityID(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewRelatedTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entity_type": "task",
	}))
	mustBeToolError(t, result, err, "entity_id")
}

// --- UnlinkTool ---

func TestUnlinkTool_ByID(t *testing.T) {
	store := newTestRefStore(t)
	tool := NewUnlinkTool(store)

	ref, err := store.CreateReference(context.Background(), refgraph.CreateParams{
		SourceType: "task", SourceID: "T-1",
		TargetType: "task", TargetID: "T-2",
		Relationship: refgraph.RelBlocks,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"id": ref.ID,
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Deleted reference") {
		t.Errorf("unexpected output: %s", resultText(result))
	}

	// Second delete finds nothing.
	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"id": ref.ID,
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No reference") {
		t.Errorf("expected not-found notice: %s", resultText(result))
	}
}

func TestUnlinkTool_ByTuple(t *testing.T) {
	store := newTestRefStore(t)
	seedReferences(t, store)
	tool := NewUnlinkTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"source_type":  "task",
		"source_id":    "T-1",
		"target_type":  "task",
		"target_id":    "T-2",
		"relationship": "blocks",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Unlinked") {
		t.Errorf("unexpected output: %s", resultText(result))
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "provide either")
}
