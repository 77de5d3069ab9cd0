// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the svncoord MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"svncoord Merge-Info Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	considerInheritance := mcp.WithBoolean("consider_inheritance",
		mcp.Description("Treat ranges with different inheritability as distinct. Defaults to false."))

	// --- 1. Tool: parse_mergeinfo ---
	s.AddTool(mcp.NewTool("parse_mergeinfo",
		mcp.WithDescription("Parse and normalize an svn:mergeinfo property value."),
		mcp.WithString("mergeinfo", mcp.Description("Property value, one 'path:ranges' per line."), mcp.Required()),
	), h.handleParse)

	// --- 2. Tool: merge_mergeinfo ---
	s.AddTool(mcp.NewTool("merge_mergeinfo",
		mcp.WithDescription("Union two merge-info values."),
		mcp.WithString("left", mcp.Description("First merge-info value."), mcp.Required()),
		mcp.WithString("right", mcp.Description("Second merge-info value."), mcp.Required()),
	), h.handleMerge)

	// --- 3. Tool: intersect_mergeinfo ---
	s.AddTool(mcp.NewTool("intersect_mergeinfo",
		mcp.WithDescription("Keep the revisions present in both merge-info values."),
		mcp.WithString("left", mcp.Description("First merge-info value."), mcp.Required()),
		mcp.WithString("right", mcp.Description("Second merge-info value."), mcp.Required()),
		considerInheritance,
	), h.handleIntersect)

	// --- 4. Tool: remove_mergeinfo ---
	s.AddTool(mcp.NewTool("remove_mergeinfo",
		mcp.WithDescription("Remove the revisions of eraser from whiteboard."),
		mcp.WithString("eraser", mcp.Description("Revisions to remove."), mcp.Required()),
		mcp.WithString("whiteboard", mcp.Description("Merge-info to remove them from."), mcp.Required()),
		considerInheritance,
	), h.handleRemove)

	// --- 5. Tool: diff_mergeinfo ---
	s.AddTool(mcp.NewTool("diff_mergeinfo",
		mcp.WithDescription("Report the revisions deleted and added going from one merge-info value to another."),
		mcp.WithString("from", mcp.Description("Original merge-info value."), mcp.Required()),
		mcp.WithString("to", mcp.Description("Updated merge-info value."), mcp.Required()),
		considerInheritance,
	), h.handleDiff)

	// --- 6. Tool: eligible_revisions ---
	s.AddTool(mcp.NewTool("eligible_revisions",
		mcp.WithDescription("Select the revisions of a source history not yet merged into a target."),
		mcp.WithString("target_mergeinfo", mcp.Description("Merge-info recorded on the target.")),
		mcp.WithString("target_history", mcp.Description("Natural history of the target as merge-info.")),
		mcp.WithString("source_history", mcp.Description("Natural history of the merge source as merge-info."), mcp.Required()),
	), h.handleEligible)

	// --- 7. Tool: list_commits ---
	s.AddTool(mcp.NewTool("list_commits",
		mcp.WithDescription("List journaled commit transactions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Limit the number of results returned.")),
	), h.handleListCommits)

	// --- 8. Tool: get_mergeinfo_snapshot ---
	s.AddTool(mcp.NewTool("get_mergeinfo_snapshot",
		mcp.WithDescription("Return the merge-info journaled after the last merge into a target."),
		mcp.WithString("target", mcp.Description("Working-copy path of the merge target."), mcp.Required()),
	), h.handleGetSnapshot)

	return s
}

// StartMCPServer starts the svncoord MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
