package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/svncoord/core/mergeinfo"
	"github.com/huangsam/svncoord/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// mergeInfoView is the JSON answer for a merge-info value: the normalized
// property text plus each path's ranges.
type mergeInfoView struct {
	MergeInfo string            `json:"mergeinfo"`
	Paths     map[string]string `json:"paths"`
}

func newView(mi mergeinfo.MergeInfo) mergeInfoView {
	view := mergeInfoView{MergeInfo: mi.String(), Paths: map[string]string{}}
	for _, p := range mi.Paths() {
		if !mi[p].IsEmpty() {
			view.Paths[p] = mi[p].String()
		}
	}
	return view
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData))
}

// parseArgs parses each named argument as merge-info. Missing arguments parse as empty.
func parseArgs(request mcp.CallToolRequest, names ...string) ([]mergeinfo.MergeInfo, error) {
	out := make([]mergeinfo.MergeInfo, 0, len(names))
	for _, name := range names {
		mi, err := mergeinfo.Parse(request.GetString(name, ""))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, err)
		}
		out = append(out, mi)
	}
	return out, nil
}

func (h *toolHandler) handleParse(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(request, "mergeinfo")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(newView(args[0])), nil
}

func (h *toolHandler) handleMerge(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(request, "left", "right")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(newView(mergeinfo.Merge(args[0], args[1]))), nil
}

func (h *toolHandler) handleIntersect(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(request, "left", "right")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	inherit := request.GetBool("consider_inheritance", false)
	return jsonResult(newView(mergeinfo.Intersect(args[0], args[1], inherit))), nil
}

func (h *toolHandler) handleRemove(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(request, "eraser", "whiteboard")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	inherit := request.GetBool("consider_inheritance", false)
	return jsonResult(newView(mergeinfo.Remove(args[0], args[1], inherit))), nil
}

func (h *toolHandler) handleDiff(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(request, "from", "to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deleted, added := mergeinfo.Diff(args[0], args[1], request.GetBool("consider_inheritance", false))
	return jsonResult(struct {
		Deleted mergeInfoView `json:"deleted"`
		Added   mergeInfoView `json:"added"`
	}{newView(deleted), newView(added)}), nil
}

func (h *toolHandler) handleEligible(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(request, "target_mergeinfo", "target_history", "source_history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel := mergeinfo.Eligible(args[0], args[1], args[2])
	return jsonResult(struct {
		Revisions string        `json:"revisions"`
		LogTarget string        `json:"log_target,omitempty"`
		Youngest  int64         `json:"youngest"`
		PerPath   mergeInfoView `json:"per_path"`
	}{sel.Ranges.String(), sel.LogTarget, sel.Youngest, newView(sel.PerPath)}), nil
}

func (h *toolHandler) journal() (contract.JournalStore, error) {
	if h.mgr == nil {
		return nil, fmt.Errorf("journal is not configured")
	}
	store := h.mgr.GetJournalStore()
	if store == nil {
		return nil, fmt.Errorf("journal is not configured")
	}
	return store, nil
}

func (h *toolHandler) handleListCommits(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.journal()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := h.baseCfg.Limit
	if l := request.GetInt("limit", 0); l > 0 {
		limit = l
	}
	if limit > contract.MaxJournalLimit {
		limit = contract.MaxJournalLimit
	}
	records, err := store.ListCommits(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("journal query failed: %v", err)), nil
	}
	return jsonResult(records), nil
}

func (h *toolHandler) handleGetSnapshot(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := request.GetString("target", "")
	if target == "" {
		return mcp.NewToolResultError("target is required"), nil
	}
	store, err := h.journal()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	record, err := store.GetMergeInfo(target)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("journal query failed: %v", err)), nil
	}
	return jsonResult(record), nil
}
