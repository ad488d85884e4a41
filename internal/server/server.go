// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on them.
// No analysis logic lives here — only wiring.
package server

import (
	"log"

	"github.com/impactmap/ripple/internal/analysis"
	"github.com/impactmap/ripple/internal/prompts"
	"github.com/impactmap/ripple/internal/refgraph"
	"github.com/impactmap/ripple/internal/resources"
	"github.com/impactmap/ripple/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the reference store's database
// connection and must be called on shutdown (typically via defer).
// It is always non-nil and safe to call even if the store init failed.
func New() (*server.MCPServer, func(), error) {
	s := server.NewMCPServer(
		"ripple",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register analysis tools ---
	//
	// Analysis reads the project map from disk per call and needs no
	// shared state, so these tools always register.

	opts := analysis.DefaultOptions()

	analyzeTool := tools.NewAnalyzeTool(opts)
	s.AddTool(analyzeTool.Definition(), analyzeTool.Handle)

	scopeTool := tools.NewScopeTool(opts)
	s.AddTool(scopeTool.Definition(), scopeTool.Handle)

	diagramTool := tools.NewDiagramTool()
	s.AddTool(diagramTool.Definition(), diagramTool.Handle)

	// --- Register reference graph tools ---
	//
	// The reference graph is an independent subsystem: if its SQLite
	// store fails to open, analysis tools keep working. We log a
	// warning and skip registration.

	cleanup := noop
	store, storeErr := refgraph.New(refgraph.DefaultConfig())
	if storeErr != nil {
		log.Printf("WARNING: reference graph disabled: %v", storeErr)
	} else {
		cleanup = func() {
			if err := store.Close(); err != nil {
				log.Printf("WARNING: reference store close: %v", err)
			}
		}
		registerReferenceTools(s, store)

		resourceHandler := resources.NewHandler(store)
		s.AddResource(resourceHandler.GraphStatsResource(), resourceHandler.HandleGraphStats)
		s.AddResource(resourceHandler.RelationshipsResource(), resourceHandler.HandleRelationships)
	}

	// --- Register prompts ---

	impactPrompt := prompts.NewImpactPrompt()
	s.AddPrompt(impactPrompt.Definition(), impactPrompt.Handle)

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when the
// reference store is disabled or hasn't been initialized.
func noop() {}

// registerReferenceTools registers the entity linking tools with the server.
func registerReferenceTools(s *server.MCPServer, store *refgraph.Store) {
	linkTool := tools.NewLinkTool(store)
	s.AddTool(linkTool.Definition(), linkTool.Handle)

	linkBulkTool := tools.NewLinkBulkTool(store)
	s.AddTool(linkBulkTool.Definition(), linkBulkTool.Handle)

	referencesTool := tools.NewReferencesTool(store)
	s.AddTool(referencesTool.Definition(), referencesTool.Handle)

	relatedTool := tools.NewRelatedTool(store)
	s.AddTool(relatedTool.Definition(), relatedTool.Handle)

	unlinkTool := tools.NewUnlinkTool(store)
	s.AddTool(unlinkTool.Definition(), unlinkTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use ripple effectively.
func serverInstructions() string {
	return `You have access to ripple, a change-impact analysis MCP server.

## WHEN TO USE ripple

Before making a non-trivial change to a project that has a ripple.yaml
project map, run ripple_analyze_change with a description of the change.
Pass the modules, files, and entities the user named explicitly as
target_modules / target_files / entities — detection only infers scope
when nothing explicit is given.

Use ripple_detect_scope when you only need to know which modules a
change reaches, and ripple_flow_diagram to visualize the declared data
flows (optionally narrowed to one entity).

The analysis is a heuristic aid over the declared project map, not a
guarantee of completeness. Treat "manual validation" flags seriously:
those flows are critical or directly impacted and their behavior should
be verified by hand or by the suggested tests.

## THE REFERENCE GRAPH

ripple also keeps a persistent reference graph linking work items
across sessions (tasks, tickets, sessions, knowledge, rules, specs,
modules, documents). Use ripple_link when you learn that two entities
are related (a task implements a spec, a ticket blocks another), and
ripple_related to recall everything connected to the entity you are
working on. Links are idempotent: re-linking the same pair is safe.

## SCOPE OF ADVICE

Do not present ripple's output as exhaustive. It knows only what the
project map declares; undeclared couplings (shared globals, reflection,
external services) are invisible to it.`
}
