// Package mcpserver exposes the conversations backend as MCP tools so
// agents can browse and manage transcripts.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/comigor/convoview/internal/conversation"
	"github.com/comigor/convoview/internal/logger"
	"github.com/comigor/convoview/internal/view"
)

const (
	serverName = "convoview"

	ToolList   = "list_conversations"
	ToolGet    = "get_conversation"
	ToolDelete = "delete_conversation"
	ToolSave   = "save_conversation"
)

// Tools holds the tool handlers.
type Tools struct {
	svc view.Service
}

// NewTools wraps svc.
func NewTools(svc view.Service) *Tools {
	return &Tools{svc: svc}
}

// New builds an MCP server with every conversation tool registered.
func New(svc view.Service, version string) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithToolCapabilities(false),
	)
	NewTools(svc).Register(server)
	return server
}

// ServeStdio serves the tools on stdin/stdout until the peer disconnects.
func ServeStdio(svc view.Service, version string) error {
	logger.L.Info("serving MCP tools on stdio")
	return mcpserver.ServeStdio(New(svc, version))
}

// Register adds the tools to server.
func (t *Tools) Register(server *mcpserver.MCPServer) {
	server.AddTool(
		mcpgo.NewTool(ToolList,
			mcpgo.WithDescription("List recorded conversations with their status, start time and duration."),
		),
		t.List,
	)
	server.AddTool(
		mcpgo.NewTool(ToolGet,
			mcpgo.WithDescription("Get one conversation including its full transcript."),
			mcpgo.WithString("conversation_id", mcpgo.Required(), mcpgo.Description("Conversation id as returned by list_conversations")),
		),
		t.Get,
	)
	server.AddTool(
		mcpgo.NewTool(ToolDelete,
			mcpgo.WithDescription("Delete a conversation. This cannot be undone."),
			mcpgo.WithString("conversation_id", mcpgo.Required(), mcpgo.Description("Conversation to delete")),
		),
		t.Delete,
	)
	server.AddTool(
		mcpgo.NewTool(ToolSave,
			mcpgo.WithDescription("Ask the backend to save the transcript to a text file."),
			mcpgo.WithString("conversation_id", mcpgo.Required(), mcpgo.Description("Conversation to save")),
			mcpgo.WithString("filename", mcpgo.Description("File name, defaults to conversation_<id>.txt")),
		),
		t.Save,
	)
}

// List handles list_conversations.
func (t *Tools) List(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	items, err := t.svc.List(ctx)
	if err != nil {
		return toolError(ToolList, err), nil
	}
	return jsonResult(conversation.ListResponse{Conversations: items})
}

// Get handles get_conversation.
func (t *Tools) Get(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := req.RequireString("conversation_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	detail, err := t.svc.Get(ctx, id)
	if err != nil {
		return toolError(ToolGet, err), nil
	}
	if detail == nil {
		return mcpgo.NewToolResultError(view.NotFoundMessage), nil
	}
	return jsonResult(detail)
}

// Delete handles delete_conversation.
func (t *Tools) Delete(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := req.RequireString("conversation_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	if err := t.svc.Delete(ctx, id); err != nil {
		return toolError(ToolDelete, err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Conversation %s deleted.", id)), nil
}

// Save handles save_conversation.
func (t *Tools) Save(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := req.RequireString("conversation_id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", conversation.SaveFilename(id))
	if err := t.svc.Save(ctx, id, filename); err != nil {
		return toolError(ToolSave, err), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("Conversation %s saved to %s.", id, filename)), nil
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// toolError logs the raw error and hands the agent a tool-level failure.
func toolError(tool string, err error) *mcpgo.CallToolResult {
	logger.L.Error("mcp tool failed", "tool", tool, "error", err)
	return mcpgo.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}
