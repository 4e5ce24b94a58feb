package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/crimpy/internal/intensity"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, model *intensity.Model, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("crimpy", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("crimpy climbing training server. Query per-session training intensity "+
			"(fingerboard, campus board, pull-ups, projects), period summaries and exercise progressions, "+
			"or score a session record without storing it."),
	)

	h := &handlers{ds: ds, model: model, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetSessions, Handler: h.getSessions},
		server.ServerTool{Tool: toolGetIntensityTimeline, Handler: h.getIntensityTimeline},
		server.ServerTool{Tool: toolGetIntensitySummary, Handler: h.getIntensitySummary},
		server.ServerTool{Tool: toolGetProgression, Handler: h.getProgression},
		server.ServerTool{Tool: toolComparePeriods, Handler: h.comparePeriods},
		server.ServerTool{Tool: toolCalculateIntensity, Handler: h.calculateIntensity},
		server.ServerTool{Tool: toolGetDataStats, Handler: h.getDataStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resIntensityParams, Handler: h.intensityParams},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds    DataSource
	model *intensity.Model
	log   *slog.Logger
}

// --- Resource definitions ---

var resRecentSessions = mcp.NewResource(
	"crimpy://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("Training sessions and outdoor days from the last 14 days with their intensity breakdown"),
	mcp.WithMIMEType("application/json"),
)

var resIntensityParams = mcp.NewResource(
	"crimpy://intensity_params",
	"Intensity Model Parameters",
	mcp.WithResourceDescription("Reference values, weights, category constants and rest discounts of the active intensity model"),
	mcp.WithMIMEType("application/json"),
)
