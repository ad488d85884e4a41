// Ripple: Change-Impact Analysis MCP Server
//
// An MCP server that integrates with any AI coding tool to analyze the
// blast radius of a proposed change before it is made: scope detection
// over a declared project map, data-flow impact classification, and a
// persistent cross-session entity reference graph.
//
// Usage:
//
//	ripple serve    # Start MCP server (stdio transport)
package main

import (
	"fmt"
	"os"

	rippleserver "github.com/impactmap/ripple/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("ripple v%s\n", rippleserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := rippleserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// stdout belongs to the MCP stdio transport; everything else
	// (warnings, usage) goes to stderr.
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Ripple v%s — Change-Impact Analysis MCP Server

Usage:
  ripple serve    Start the MCP server (stdio transport)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "ripple": {
        "command": "ripple",
        "args": ["serve"]
      }
    }
  }

Project map:
  Analysis tools read a ripple.yaml project map from the project root
  (modules, links, specs, imports, flows). Without one, only explicit
  targets are in scope.

Data:
  The reference graph is stored in $RIPPLE_DATA_DIR (default ~/.ripple).
`, rippleserver.Version)
}
