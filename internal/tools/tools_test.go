package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/impactmap/ripple/internal/analysis"
	"github.com/impactmap/ripple/internal/projectmap"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Test helpers ---

const testMapYAML = `modules:
  - id: users
    name: Users
    path: src/users
    entities: [User]
  - id: orders
    name: Orders
    path: src/orders
    entities: [Order]
  - id: billing
    name: Billing
    path: src/billing
    entities: [Invoice]

links:
  - from: orders
    to: users
  - from: billing
    to: orders

specs:
  - id: spec-007
    module: orders
    title: Order lifecycle
    dependencies:
      - module: billing
        relationship: writes

imports:
  - file: src/orders/checkout.go
    imports: [src/users/session.go]

flows:
  - from: users
    to: orders
    entities: [User]
    type: read
    strength: critical
    relationships: [owns]
  - from: orders
    to: billing
    entities: [Order]
    type: write
    strength: important
    relationships: [creates]
`

// setupProjectMap writes a ripple.yaml into a temp dir and changes cwd
// to it so findProjectRoot resolves it. Returns a cleanup function.
func setupProjectMap(t *testing.T) func() {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, projectmap.DefaultFilename)
	if err := os.WriteFile(path, []byte(testMapYAML), 0o644); err != nil {
		t.Fatalf("setup: write map: %v", err)
	}

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("setup: getwd: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("setup: chdir: %v", err)
	}
	return func() { _ = os.Chdir(origDir) }
}

// setupEmptyDir changes cwd to a temp dir with no project map.
func setupEmptyDir(t *testing.T) func() {
	t.Helper()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("setup: getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("setup: chdir: %v", err)
	}
	return func() { _ = os.Chdir(origDir) }
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// mustNotError asserts the Handle call succeeded at both levels.
func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// mustBeToolError asserts the Handle call returns a tool error (not a
// Go error) containing the given substring.
func mustBeToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error, got success: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, wantSubstr) {
		t.Fatalf("tool error %q does not contain %q", text, wantSubstr)
	}
}

// --- AnalyzeTool ---

func TestAnalyzeTool_Definition(t *testing.T) {
	def := NewAnalyzeTool(analysis.DefaultOptions()).Definition()
	if def.Name != "ripple_analyze_change" {
		t.Errorf("tool name = %q, want ripple_analyze_change", def.Name)
	}

	props := def.InputSchema.Properties
	for _, p := range []string{"description", "entities", "keywords", "change_type", "target_modules", "target_files", "spec_id", "max_depth", "include_indirect"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}

	found := false
	for _, r := range def.InputSchema.Required {
		if r == "description" {
			found = true
		}
	}
	if !found {
		t.Error("'description' should be required")
	}
}

func TestAnalyzeTool_RequiresDescription(t *testing.T) {
	tool := NewAnalyzeTool(analysis.DefaultOptions())
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "description")
}

func TestAnalyzeTool_RejectsUnknownChangeType(t *testing.T) {
	tool := NewAnalyzeTool(analysis.DefaultOptions())
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"description": "something",
		"change_type": "yolo",
	}))
	mustBeToolError(t, result, err, "invalid change type")
}

func TestAnalyzeTool_FullReport(t *testing.T) {
	cleanup := setupProjectMap(t)
	defer cleanup()

	tool := NewAnalyzeTool(analysis.DefaultOptions())
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"description":    "Add email verification to user signup",
		"target_modules": []interface{}{"users"},
		"entities":       []interface{}{"User"},
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	for _, want := range []string{
		"# Change Impact Analysis",
		"**Primary modules:** users",
		"Dependent Modules",
		"orders", // depends on users
		"## Data Flows",
		"users → orders",
		"⚠ manual", // critical flow on a primary module
		"Suggested Tests",
		"## Statistics",
		"```mermaid",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q\n---\n%s", want, text)
		}
	}
}

func TestAnalyzeTool_NoProjectMap(t *testing.T) {
	cleanup := setupEmptyDir(t)
	defer cleanup()

	tool := NewAnalyzeTool(analysis.DefaultOptions())
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"description":    "Tweak something",
		"target_modules": []interface{}{"users"},
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "No ripple.yaml project map found") {
		t.Errorf("expected missing-map notice, got:\n%s", text)
	}
	if !strings.Contains(text, "users") {
		t.Error("explicit target module should still appear in scope")
	}
}

// --- ScopeTool ---

func TestScopeTool_SpecSeeding(t *testing.T) {
	cleanup := setupProjectMap(t)
	defer cleanup()

	tool := NewScopeTool(analysis.DefaultOptions())
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"description": "Implement spec-007",
		"spec_id":     "spec-007",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "**Primary modules:** orders") {
		t.Errorf("spec module should be primary:\n%s", text)
	}
	if !strings.Contains(text, "billing") {
		t.Errorf("spec dependency should appear as dependent module:\n%s", text)
	}
}

func TestScopeTool_FileTarget(t *testing.T) {
	cleanup := setupProjectMap(t)
	defer cleanup()

	tool := NewScopeTool(analysis.DefaultOptions())
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"description":  "Refactor checkout",
		"target_files": []interface{}{"src/orders/checkout.go"},
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "orders") {
		t.Errorf("file target should resolve its owning module:\n%s", text)
	}
	// checkout.go imports session.go, so import expansion should reach it.
	if !strings.Contains(text, "src/users/session.go") {
		t.Errorf("import expansion should surface imported file:\n%s", text)
	}
}

func TestScopeTool_RequiresDescription(t *testing.T) {
	tool := NewScopeTool(analysis.DefaultOptions())
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustBeToolError(t, result, err, "description")
}

// --- DiagramTool ---

func TestDiagramTool_Flowchart(t *testing.T) {
	cleanup := setupProjectMap(t)
	defer cleanup()

	tool := NewDiagramTool()
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "```mermaid") {
		t.Fatalf("expected mermaid block:\n%s", text)
	}
	if !strings.Contains(text, "graph LR") {
		t.Errorf("expected flowchart:\n%s", text)
	}
	for _, node := range []string{"users", "orders", "billing"} {
		if !strings.Contains(text, node) {
			t.Errorf("diagram missing node %q", node)
		}
	}
}

func TestDiagramTool_EntityFilterAndERFormat(t *testing.T) {
	cleanup := setupProjectMap(t)
	defer cleanup()

	tool := NewDiagramTool()
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entity": "Order",
		"format": "er",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	if !strings.Contains(text, "erDiagram") {
		t.Fatalf("expected ER diagram:\n%s", text)
	}
	if !strings.Contains(text, "ORDERS") || !strings.Contains(text, "BILLING") {
		t.Errorf("ER diagram should include the Order flow endpoints:\n%s", text)
	}
	// The User flow does not carry Order and must be filtered out.
	if strings.Contains(text, "USERS") {
		t.Errorf("entity filter leaked an unrelated flow:\n%s", text)
	}
}

func TestDiagramTool_UnknownFormat(t *testing.T) {
	tool := NewDiagramTool()
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"format": "png",
	}))
	mustBeToolError(t, result, err, "unknown format")
}

func TestWrapFlows_AssignsEdgeIDs(t *testing.T) {
	flows := []analysis.DataFlow{
		{From: "users", To: "orders", FlowType: analysis.FlowRead},
		{From: "orders", To: "billing", FlowType: analysis.FlowWrite},
	}

	wrapped := wrapFlows(flows)
	if len(wrapped) != len(flows) {
		t.Fatalf("wrapped %d flows, want %d", len(wrapped), len(flows))
	}
	seen := map[string]bool{}
	for i, w := range wrapped {
		if w.ID == "" {
			t.Errorf("flow %d has empty id", i)
		}
		if seen[w.ID] {
			t.Errorf("duplicate flow id %q", w.ID)
		}
		seen[w.ID] = true
		if w.From != flows[i].From || w.To != flows[i].To {
			t.Errorf("flow %d fields not preserved: %+v", i, w)
		}
	}

	graph := analysis.BuildFlowGraph(wrapped, nil)
	for i, e := range graph.Edges {
		if e.ID == "" {
			t.Errorf("edge %d has empty id", i)
		}
	}
}

func TestDiagramTool_NoFlows(t *testing.T) {
	cleanup := setupProjectMap(t)
	defer cleanup()

	tool := NewDiagramTool()
	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"entity": "Nonexistent",
	}))
	mustNotError(t, result, err)
	if text := resultText(result); !strings.Contains(text, "No data flows") {
		t.Errorf("expected empty notice, got:\n%s", text)
	}
}
