// Package prompts implements MCP prompt handlers for ripple.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ImpactPrompt handles the ripple-impact MCP prompt.
// It guides the AI through a full impact review of a proposed change.
type ImpactPrompt struct{}

// NewImpactPrompt creates an ImpactPrompt.
func NewImpactPrompt() *ImpactPrompt {
	return &ImpactPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ImpactPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("ripple-impact",
		mcp.WithPromptDescription(
			"Run a full impact review of a proposed change: detect its scope, "+
				"classify the affected data flows, and walk through the suggested "+
				"tests before any code is touched.",
		),
		mcp.WithArgument("change",
			mcp.ArgumentDescription("Description of the change to review"),
		),
	)
}

// Handle processes the ripple-impact prompt request.
func (p *ImpactPrompt) Handle(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	change := "the change I'm about to make"
	if args := req.Params.Arguments; args != nil {
		if c, ok := args["change"]; ok && c != "" {
			change = c
		}
	}

	return &mcp.GetPromptResult{
		Description: "Impact review",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					`Review the impact of this change before implementing it: %s

Follow these steps:

1. Call ripple_analyze_change with the change description. Pass any
   entities, modules, or files I named explicitly as target_modules /
   target_files / entities so detection does not have to infer them.
2. Read the scope section carefully: confirm the primary modules match
   my intent, and call out any dependent module I did not mention.
3. For every data flow marked "manual validation", explain what could
   break and how to check it.
4. Turn the suggested tests into a concrete checklist, removing any
   that clearly do not apply and saying why.
5. If the criticality score is high or critical flows are affected,
   recommend whether the change should be split into smaller steps.

The analysis is a heuristic aid over the declared project map, not a
guarantee — flag anything the map might be missing.`, change)),
			},
		},
	}, nil
}
