package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/impactmap/ripple/internal/analysis"
	"github.com/mark3labs/mcp-go/mcp"
)

// DiagramTool handles the ripple_flow_diagram MCP tool: Mermaid
// rendering of the project's data flows, optionally narrowed to the
// flows carrying a single entity.
type DiagramTool struct{}

// NewDiagramTool creates a DiagramTool.
func NewDiagramTool() *DiagramTool {
	return &DiagramTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *DiagramTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_flow_diagram",
		mcp.WithDescription(
			"Render the data flows declared in ripple.yaml as a Mermaid diagram. "+
				"Without 'entity', diagrams every declared flow; with it, only the "+
				"flows carrying that entity.",
		),
		mcp.WithString("entity",
			mcp.Description("Narrow the diagram to flows carrying this entity"),
		),
		mcp.WithString("format",
			mcp.Description("Diagram format: flowchart or er (default: flowchart)"),
		),
		mcp.WithString("title",
			mcp.Description("Optional diagram title"),
		),
	)
}

// Handle processes the ripple_flow_diagram tool call.
func (t *DiagramTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", "flowchart")
	if format != "flowchart" && format != "er" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (valid: flowchart, er)", format)), nil
	}

	pm, err := loadProjectMap()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading project map: %v", err)), nil
	}
	if pm == nil {
		return mcp.NewToolResultError("no ripple.yaml project map found — nothing to diagram"), nil
	}

	var flows []analysis.DataFlow
	entity := strings.TrimSpace(req.GetString("entity", ""))
	if entity == "" {
		flows = pm.AllFlows()
	} else {
		flows, err = pm.GetEntityFlows(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("loading flows for %s: %w", entity, err)
		}
	}
	if len(flows) == 0 {
		return mcp.NewToolResultText("No data flows to diagram."), nil
	}

	graph := analysis.BuildFlowGraph(wrapFlows(flows), nil)

	title := req.GetString("title", "")
	var diagram string
	if format == "er" {
		diagram = analysis.ERDiagram(graph, title)
	} else {
		diagram = analysis.FlowchartDiagram(graph, title)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString(diagram)
	sb.WriteString("```\n")
	return mcp.NewToolResultText(sb.String()), nil
}

// wrapFlows adapts raw flows for the graph builder. Diagram rendering
// needs no impact classification, but edges still carry ids, assigned
// the same way the analyzer does.
func wrapFlows(flows []analysis.DataFlow) []analysis.ImpactDataFlow {
	wrapped := make([]analysis.ImpactDataFlow, 0, len(flows))
	for _, f := range flows {
		wrapped = append(wrapped, analysis.ImpactDataFlow{DataFlow: f, ID: uuid.NewString()})
	}
	return wrapped
}
