package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/impactmap/ripple/internal/analysis"
	"github.com/impactmap/ripple/internal/projectmap"
	"github.com/mark3labs/mcp-go/mcp"
)

// AnalyzeTool handles the ripple_analyze_change MCP tool: the full
// pipeline from change description to classified data flows.
type AnalyzeTool struct {
	opts analysis.Options
}

// NewAnalyzeTool creates an AnalyzeTool with the given default options.
func NewAnalyzeTool(opts analysis.Options) *AnalyzeTool {
	return &AnalyzeTool{opts: opts}
}

// Definition returns the MCP tool definition for registration.
func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_analyze_change",
		mcp.WithDescription(
			"Analyze the blast radius of a proposed change: expand the change across the "+
				"module, spec, file-import, and data-flow graphs declared in ripple.yaml, "+
				"classify every relevant data flow by impact level, and report suggested "+
				"tests, affected operations, and flows requiring manual validation. "+
				"Best-effort heuristic aid — it does not guarantee completeness.",
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Natural-language description of the change"),
		),
		mcp.WithArray("entities",
			mcp.Description("Entity names the change touches (e.g. User, OrderItem)"),
		),
		mcp.WithArray("keywords",
			mcp.Description("Keywords extracted from the change description; exact module-name matches become primary modules"),
		),
		mcp.WithString("change_type",
			mcp.Description("Kind of change: feature, bugfix, refactor, enhancement, chore (default: feature)"),
		),
		mcp.WithArray("target_modules",
			mcp.Description("Explicit module ids to treat as primary"),
		),
		mcp.WithArray("target_files",
			mcp.Description("Explicit file paths to treat as primary"),
		),
		mcp.WithString("spec_id",
			mcp.Description("Spec id to seed scope from its module and declared dependencies"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Bound for every dependency expansion (default: 3)"),
		),
		mcp.WithBoolean("include_indirect",
			mcp.Description("Keep transitive expansion results beyond one hop (default: true)"),
		),
	)
}

// Handle processes the ripple_analyze_change tool call.
func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := strings.TrimSpace(req.GetString("description", ""))
	if description == "" {
		return mcp.NewToolResultError("'description' is required — describe the change to analyze"), nil
	}

	changeType := analysis.ChangeType(req.GetString("change_type", string(analysis.ChangeFeature)))
	if err := analysis.ValidateChangeType(changeType); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	input := analysis.ChangeInput{
		Description:   description,
		TargetModules: stringListArg(req, "target_modules"),
		TargetFiles:   stringListArg(req, "target_files"),
		SpecID:        req.GetString("spec_id", ""),
	}
	parsed := analysis.ParsedChange{
		Entities:   stringListArg(req, "entities"),
		Keywords:   stringListArg(req, "keywords"),
		ChangeType: changeType,
		Confidence: 1.0, // caller-supplied parse, taken at face value
	}

	opts := t.opts
	if d := intArg(req, "max_depth", 0); d > 0 {
		opts.MaxDepth = d
	}
	opts.IncludeIndirect = boolArg(req, "include_indirect", opts.IncludeIndirect)

	pm, err := loadProjectMap()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading project map: %v", err)), nil
	}

	scope, err := newDetector(opts, pm).Detect(ctx, input, parsed)
	if err != nil {
		return nil, fmt.Errorf("detecting scope: %w", err)
	}

	flows := gatherFlows(ctx, pm, scope.AffectedEntities)
	impactFlows := analysis.NewAnalyzer().AnalyzeForImpact(flows, scope, parsed)
	graph := analysis.BuildFlowGraph(impactFlows, scope)
	stats := analysis.GetFlowStatistics(impactFlows)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Change Impact Analysis\n\n**Change:** %s (%s)\n\n", description, changeType)
	if pm == nil {
		sb.WriteString("_No ripple.yaml project map found — only explicit targets are in scope._\n\n")
	}
	renderScope(&sb, scope)
	renderFlows(&sb, impactFlows)
	renderStatistics(&sb, stats, graph)

	if len(graph.Edges) > 0 {
		sb.WriteString("## Flow Diagram\n\n```mermaid\n")
		sb.WriteString(analysis.FlowchartDiagram(graph, ""))
		sb.WriteString("```\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// gatherFlows collects the data flows for every affected entity,
// deduplicated across entities (one flow can carry several).
func gatherFlows(ctx context.Context, pm *projectmap.Map, entities []string) []analysis.DataFlow {
	if pm == nil {
		return nil
	}
	seen := map[string]bool{}
	var result []analysis.DataFlow
	for _, entity := range entities {
		flows, err := pm.GetEntityFlows(ctx, entity)
		if err != nil {
			continue
		}
		for _, f := range flows {
			key := f.From + "|" + f.To + "|" + string(f.FlowType) + "|" + strings.Join(f.Relationships, ",")
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, f)
		}
	}
	return result
}

// --- Report rendering ---

func renderScope(sb *strings.Builder, scope *analysis.ChangeScope) {
	sb.WriteString("## Scope\n\n")
	fmt.Fprintf(sb, "- **Primary modules:** %s\n", orNone(scope.PrimaryModules))
	fmt.Fprintf(sb, "- **Primary files:** %s\n", orNone(scope.PrimaryFiles))
	fmt.Fprintf(sb, "- **Affected entities:** %s\n", orNone(scope.AffectedEntities))
	fmt.Fprintf(sb, "- **Expansion depth:** %d\n\n", scope.ExpansionDepth)

	if len(scope.DependentModules) > 0 {
		sb.WriteString("### Dependent Modules\n\n")
		sb.WriteString("| Module | Impact | Path | Reason |\n|---|---|---|---|\n")
		for _, dep := range scope.DependentModules {
			fmt.Fprintf(sb, "| %s | %s | %s | %s |\n",
				dep.ModuleName, dep.ImpactLevel, strings.Join(dep.DependencyPath, " → "), dep.Reason)
		}
		sb.WriteString("\n")
	}

	if len(scope.AffectedFiles) > 0 {
		sb.WriteString("### Affected Files\n\n")
		for _, f := range scope.AffectedFiles {
			fmt.Fprintf(sb, "- `%s` (%s) — %s\n", f.FilePath, f.ImpactLevel, f.Reason)
		}
		sb.WriteString("\n")
	}
}

func renderFlows(sb *strings.Builder, flows []analysis.ImpactDataFlow) {
	if len(flows) == 0 {
		sb.WriteString("## Data Flows\n\n_No data flows involve the affected entities._\n\n")
		return
	}

	sb.WriteString("## Data Flows\n\n")
	sb.WriteString("| Flow | Type | Strength | Impact | Operations | Validate |\n|---|---|---|---|---|---|\n")
	for _, f := range flows {
		validate := ""
		if f.ValidationRequired {
			validate = "⚠ manual"
		}
		fmt.Fprintf(sb, "| %s → %s | %s | %s | %s | %s | %s |\n",
			f.From, f.To, f.FlowType, f.Strength, f.ImpactLevel,
			strings.Join(f.AffectedOperations, ", "), validate)
	}
	sb.WriteString("\n")

	var suggestions []string
	for _, f := range flows {
		suggestions = append(suggestions, f.SuggestedTests...)
	}
	if len(suggestions) > 0 {
		sb.WriteString("### Suggested Tests\n\n")
		seen := map[string]bool{}
		for _, s := range suggestions {
			if seen[s] {
				continue
			}
			seen[s] = true
			fmt.Fprintf(sb, "- [ ] %s\n", s)
		}
		sb.WriteString("\n")
	}
}

func renderStatistics(sb *strings.Builder, stats analysis.FlowStatistics, graph *analysis.FlowGraph) {
	sb.WriteString("## Statistics\n\n")
	fmt.Fprintf(sb, "- Flows analyzed: %d (direct %d, indirect %d, cascade %d)\n",
		stats.Total,
		stats.ByImpactLevel[analysis.ImpactDirect],
		stats.ByImpactLevel[analysis.ImpactIndirect],
		stats.ByImpactLevel[analysis.ImpactCascade])
	fmt.Fprintf(sb, "- Requiring manual validation: %d\n", stats.RequiresValidation)
	fmt.Fprintf(sb, "- Suggested tests: %d\n", stats.TotalSuggestedTests)
	fmt.Fprintf(sb, "- Criticality score: %.2f\n\n", graph.Metadata.CriticalityScore)
}

func orNone(values []string) string {
	if len(values) == 0 {
		return "_none_"
	}
	return strings.Join(values, ", ")
}
