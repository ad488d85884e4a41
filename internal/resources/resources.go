// Package resources implements MCP resource handlers for ripple.
//
// Resources provide read-only data that the host can consume for
// context. They use URI-based addressing (ripple://...) following MCP
// conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/impactmap/ripple/internal/refgraph"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handler manages ripple resource endpoints.
type Handler struct {
	store *refgraph.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *refgraph.Store) *Handler {
	return &Handler{store: store}
}

// GraphStatsResource returns the MCP resource definition for reference
// graph statistics.
func (h *Handler) GraphStatsResource() mcp.Resource {
	return mcp.NewResource(
		"ripple://graph/stats",
		"Reference Graph Statistics",
		mcp.WithResourceDescription("Total stored references and their breakdown by relationship"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleGraphStats returns the current reference graph statistics as JSON.
func (h *Handler) HandleGraphStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.store.Stats(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling stats: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// RelationshipsResource returns the MCP resource definition for the
// relationship vocabulary.
func (h *Handler) RelationshipsResource() mcp.Resource {
	return mcp.NewResource(
		"ripple://reference/relationships",
		"Reference Relationship Vocabulary",
		mcp.WithResourceDescription("The relationship values accepted by the linking tools"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRelationships returns the accepted relationship values as JSON.
func (h *Handler) HandleRelationships(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(refgraph.RelationshipValues(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling relationships: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
