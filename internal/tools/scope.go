package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/impactmap/ripple/internal/analysis"
	"github.com/mark3labs/mcp-go/mcp"
)

// ScopeTool handles the ripple_detect_scope MCP tool: scope detection
// only, without data-flow classification. Useful for a quick read on
// which modules a change will reach before committing to full analysis.
type ScopeTool struct {
	opts analysis.Options
}

// NewScopeTool creates a ScopeTool with the given default options.
func NewScopeTool(opts analysis.Options) *ScopeTool {
	return &ScopeTool{opts: opts}
}

// Definition returns the MCP tool definition for registration.
func (t *ScopeTool) Definition() mcp.Tool {
	return mcp.NewTool("ripple_detect_scope",
		mcp.WithDescription(
			"Detect the scope of a proposed change: which modules, files, and entities "+
				"it reaches, expanded across the module, spec, and file-import graphs "+
				"declared in ripple.yaml. Reports scope only; use ripple_analyze_change "+
				"for data-flow impact classification.",
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
		mcp.WithBoolean("expand_imports",
			mcp.Description("Expand primary files across the file-import graph (default: true)"),
		),
	)
}

// Handle processes the ripple_detect_scope tool call.
func (t *ScopeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := strings.TrimSpace(req.GetString("description", ""))
	if description == "" {
		return mcp.NewToolResultError("'description' is required — describe the change to scope"), nil
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
		ChangeType: analysis.ChangeFeature,
		Confidence: 1.0,
	}

	opts := t.opts
	if d := intArg(req, "max_depth", 0); d > 0 {
		opts.MaxDepth = d
	}
	opts.IncludeIndirect = boolArg(req, "include_indirect", opts.IncludeIndirect)
	opts.ExpandImports = boolArg(req, "expand_imports", opts.ExpandImports)

	pm, err := loadProjectMap()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading project map: %v", err)), nil
	}

	scope, err := newDetector(opts, pm).Detect(ctx, input, parsed)
	if err != nil {
		return nil, fmt.Errorf("detecting scope: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Change Scope\n\n**Change:** %s\n\n", description)
	if pm == nil {
		sb.WriteString("_No ripple.yaml project map found — only explicit targets are in scope._\n\n")
	}
	renderScope(&sb, scope)

	return mcp.NewToolResultText(sb.String()), nil
}
