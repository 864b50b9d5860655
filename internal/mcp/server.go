// Package mcp exposes the workout log to AI assistants over the Model
// Context Protocol.
package mcp

import (
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("TitanLift", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("TitanLift strength training log. Query logged sessions, personal records, training totals, the workout in progress and templates. Weights are in kg."),
	)

	h := newHandlers(ds, log)

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetTrainingStats, Handler: h.getTrainingStats},
		server.ServerTool{Tool: toolCalculatePlates, Handler: h.calculatePlates},
		server.ServerTool{Tool: toolGetActiveWorkout, Handler: h.getActiveWorkout},
		server.ServerTool{Tool: toolListTemplates, Handler: h.listTemplates},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActiveWorkout, Handler: h.activeWorkout},
		server.ServerResource{Resource: resTemplates, Handler: h.templates},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
	now func() time.Time
}

func newHandlers(ds DataSource, log *slog.Logger) *handlers {
	if log == nil {
		log = slog.Default()
	}
	return &handlers{ds: ds, log: log, now: time.Now}
}

// --- Resource definitions ---

var resActiveWorkout = mcp.NewResource(
	"titanlift://active_workout",
	"Active Workout",
	mcp.WithResourceDescription("The workout in progress with its sets and timer, or null"),
	mcp.WithMIMEType("application/json"),
)

var resTemplates = mcp.NewResource(
	"titanlift://templates",
	"Workout Templates",
	mcp.WithResourceDescription("All workout templates with exercise names in order"),
	mcp.WithMIMEType("application/json"),
)
