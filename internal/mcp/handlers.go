package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/bookmark-lens/internal/app"
	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/errors"
	"github.com/hpungsan/bookmark-lens/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	ingestor *ops.Ingestor
	searcher *ops.Searcher
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{ingestor: a.Ingestor, searcher: a.Searcher}
}

// Request types for each tool

// SaveRequest represents the arguments for bookmark_save.
type SaveRequest struct {
	URL    string   `json:"url"`
	Note   string   `json:"note,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Dedupe bool     `json:"dedupe,omitempty"`
}

// SearchRequest represents the arguments for bookmark_search.
type SearchRequest struct {
	Query  string   `json:"query"`
	Limit  int      `json:"limit,omitempty"`
	Tags   []string `json:"tags,omitempty"`
	Domain string   `json:"domain,omitempty"`
	Since  string   `json:"since,omitempty"`
	Until  string   `json:"until,omitempty"`
}

// GetRequest represents the arguments for bookmark_get.
type GetRequest struct {
	ID             string `json:"id"`
	IncludeContent bool   `json:"include_content,omitempty"`
}

// UpdateRequest represents the arguments for bookmark_update.
type UpdateRequest struct {
	ID      string    `json:"id"`
	Note    *string   `json:"note,omitempty"`
	Title   *string   `json:"title,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
	TagMode string    `json:"tag_mode,omitempty"`
	Refetch bool      `json:"refetch,omitempty"`
}

// DeleteRequest represents the arguments for bookmark_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for bookmark_list.
type ListRequest struct {
	Tags   []string `json:"tags,omitempty"`
	Domain string   `json:"domain,omitempty"`
	Since  string   `json:"since,omitempty"`
	Until  string   `json:"until,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}

// DoctorRequest represents the arguments for bookmark_doctor.
type DoctorRequest struct {
	Repair bool `json:"repair,omitempty"`
}

// Handler implementations

// HandleSave handles the bookmark_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ingestor.Save(ctx, ops.SaveInput{
		URL:    input.URL,
		Note:   input.Note,
		Tags:   input.Tags,
		Dedupe: input.Dedupe,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the bookmark_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	since, until, err := parseBounds(input.Since, input.Until)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.searcher.Search(ctx, ops.SearchInput{
		Query:  input.Query,
		Limit:  input.Limit,
		Tags:   input.Tags,
		Domain: input.Domain,
		Since:  since,
		Until:  until,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the bookmark_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.searcher.Get(ctx, ops.GetInput{ID: input.ID, IncludeContent: input.IncludeContent})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the bookmark_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ingestor.Update(ctx, ops.UpdateInput{
		ID:      input.ID,
		Note:    input.Note,
		Title:   input.Title,
		Tags:    input.Tags,
		TagMode: ops.TagMode(input.TagMode),
		Refetch: input.Refetch,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the bookmark_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ingestor.Delete(ctx, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the bookmark_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	since, until, err := parseBounds(input.Since, input.Until)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.searcher.List(ctx, ops.ListInput{
		Tags:   input.Tags,
		Domain: input.Domain,
		Since:  since,
		Until:  until,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDoctor handles the bookmark_doctor tool call.
func (h *Handlers) HandleDoctor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DoctorRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ingestor.Doctor(ctx, ops.DoctorInput{Repair: input.Repair})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

func parseBounds(since, until string) (*int64, *int64, error) {
	s, err := bookmark.ParseTime(since)
	if err != nil {
		return nil, nil, errors.NewInvalidRequest("since: " + err.Error())
	}
	u, err := bookmark.ParseTime(until)
	if err != nil {
		return nil, nil, errors.NewInvalidRequest("until: " + err.Error())
	}
	return s, u, nil
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var lensErr *errors.LensError
	if stderrors.As(err, &lensErr) && lensErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    lensErr.Code,
			"message": lensErr.Message,
			"status":  lensErr.Status,
		}
		if lensErr.Details != nil {
			errorObj["details"] = lensErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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
