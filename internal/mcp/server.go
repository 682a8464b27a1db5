package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"state", "store"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"state_save": {
		def:     stateSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStateSave },
	},
	"state_recall": {
		def:     stateRecallToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStateRecall },
	},
	"state_status": {
		def:     stateStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStateStatus },
	},
	"store_search": {
		def:     storeSearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStoreSearch },
	},
	"store_add": {
		def:     storeAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStoreAdd },
	},
	"store_forget": {
		def:     storeForgetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStoreForget },
	},
	"store_list": {
		def:     storeListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStoreList },
	},
	"store_export": {
		def:     storeExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStoreExport },
	},
	"store_import": {
		def:     storeImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStoreImport },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "state_save" → "state").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with carryon tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(deps *ops.Deps, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"carryon",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps *ops.Deps, cfg *config.Config, version string) error {
	s := NewServer(deps, cfg, version)
	return server.ServeStdio(s)
}
