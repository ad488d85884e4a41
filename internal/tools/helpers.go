// Package tools implements the MCP tool handlers for ripple.
//
// Each tool is a struct that receives its dependencies via constructor
// and exposes Definition() plus a Handle method compatible with mcp-go's
// CallToolRequest signature. Caller mistakes (missing arguments, unknown
// relationships) come back as tool errors; real failures propagate.
package tools

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/impactmap/ripple/internal/analysis"
	"github.com/impactmap/ripple/internal/projectmap"
	"github.com/mark3labs/mcp-go/mcp"
)

// findProjectRoot walks up from the current working directory looking
// for a ripple.yaml project map. If none is found, returns cwd.
// This allows tools to work from any subdirectory of the project.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		candidate := filepath.Join(current, projectmap.DefaultFilename)
		if _, err := os.Stat(candidate); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root, no project map found.
			// Return original cwd — the caller decides what to do.
			return dir, nil
		}
		current = parent
	}
}

// loadProjectMap loads the project map from the project root, or nil
// when no map exists. A missing map is not an error: detection simply
// runs with no providers configured.
func loadProjectMap() (*projectmap.Map, error) {
	root, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(root, projectmap.DefaultFilename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return projectmap.Load(path)
}

// newDetector builds a detector over the project map's providers. A nil
// map yields a zero-provider detector.
func newDetector(opts analysis.Options, pm *projectmap.Map) *analysis.Detector {
	if pm == nil {
		return analysis.NewDetector(opts, nil, nil, nil, nil)
	}
	return analysis.NewDetector(opts, pm, pm, pm, pm)
}

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringListArg extracts a string-array argument from a tool request.
// Non-string elements are skipped.
func stringListArg(req mcp.CallToolRequest, key string) []string {
	raw, ok := req.GetArguments()[key].([]any)
	if !ok {
		return nil
	}
	var result []string
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			result = append(result, s)
		}
	}
	return result
}
