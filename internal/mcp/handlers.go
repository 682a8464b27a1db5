package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/carryon/internal/errors"
	"github.com/hpungsan/carryon/internal/ops"
)

// Handlers contains the MCP tool handlers.
type Handlers struct {
	deps *ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps *ops.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Request types for JSON decoding

// StateSaveRequest represents the arguments for state_save.
type StateSaveRequest struct {
	Transcript   string `json:"transcript"`
	ContextID    string `json:"context_id,omitempty"`
	MessageCount int    `json:"message_count,omitempty"`
	Force        bool   `json:"force,omitempty"`
}

// StateRecallRequest represents the arguments for state_recall.
type StateRecallRequest struct {
	MessageCount    int    `json:"message_count,omitempty"`
	UserMessage     string `json:"user_message,omitempty"`
	AlreadyRecalled bool   `json:"already_recalled,omitempty"`
}

// StoreSearchRequest represents the arguments for store_search.
type StoreSearchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Filter    string  `json:"filter,omitempty"`
}

// StoreAddRequest represents the arguments for store_add.
type StoreAddRequest struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StoreForgetRequest represents the arguments for store_forget.
type StoreForgetRequest struct {
	IDs       []string `json:"ids,omitempty"`
	Query     string   `json:"query,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Filter    string   `json:"filter,omitempty"`
}

// StoreListRequest represents the arguments for store_list.
type StoreListRequest struct {
	Filter string `json:"filter,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// StoreExportRequest represents the arguments for store_export.
type StoreExportRequest struct {
	Path   string `json:"path,omitempty"`
	Filter string `json:"filter,omitempty"`
	Label  string `json:"label,omitempty"`
}

// StoreImportRequest represents the arguments for store_import.
type StoreImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleStateSave handles the state_save tool call.
func (h *Handlers) HandleStateSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StateSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Save(ctx, h.deps, ops.SaveInput{
		Transcript:   input.Transcript,
		ContextID:    input.ContextID,
		MessageCount: input.MessageCount,
		Force:        input.Force,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStateRecall handles the state_recall tool call.
func (h *Handlers) HandleStateRecall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StateRecallRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Recall(ctx, h.deps, ops.RecallInput{
		MessageCount:    input.MessageCount,
		UserMessage:     input.UserMessage,
		AlreadyRecalled: input.AlreadyRecalled,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStateStatus handles the state_status tool call.
func (h *Handlers) HandleStateStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Status(ctx, h.deps)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStoreSearch handles the store_search tool call.
func (h *Handlers) HandleStoreSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreSearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.deps, ops.SearchInput(input))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStoreAdd handles the store_add tool call.
func (h *Handlers) HandleStoreAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Add(ctx, h.deps, ops.AddInput(input))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStoreForget handles the store_forget tool call.
func (h *Handlers) HandleStoreForget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreForgetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Forget(ctx, h.deps, ops.ForgetInput(input))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStoreList handles the store_list tool call.
func (h *Handlers) HandleStoreList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.deps, ops.ListInput(input))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStoreExport handles the store_export tool call.
func (h *Handlers) HandleStoreExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.deps, ops.ExportInput(input))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStoreImport handles the store_import tool call.
func (h *Handlers) HandleStoreImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StoreImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.deps, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result. Messages of wrapped errors keep
// the wrapper context; INTERNAL errors never carry details.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if cErr, ok := errors.As(err); ok {
		msg := cErr.Message
		if err != error(cErr) && cErr.Code != errors.ErrInternal {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": msg,
			"status":  cErr.Status,
		}
		if cErr.Code != errors.ErrInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
