package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const timeFormats = "Unix seconds, YYYY-MM-DD, or RFC 3339."

var saveToolDef = mcp.NewTool("bookmark_save",
	mcp.WithDescription("Save a URL as a bookmark. Fetches the page, embeds its text for semantic search, "+
		"and, when an LLM is configured, adds a summary, topic, and auto tags."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Absolute http(s) URL.")),
	mcp.WithString("note", mcp.Description("Your note. Included in the search text.")),
	mcp.WithArray("tags", mcp.Description("Manual tags. Lowercased, spaces become hyphens."), mcp.WithStringItems()),
	mcp.WithBoolean("dedupe", mcp.Description("If the URL is already saved, add the note and tags to the newest copy instead of creating a new bookmark.")),
	mcp.WithOpenWorldHintAnnotation(true),
)

var searchToolDef = mcp.NewTool("bookmark_search",
	mcp.WithDescription("Semantic search over saved bookmarks, most similar first, with optional exact filters."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query.")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 10, max 50).")),
	mcp.WithArray("tags", mcp.Description("Only bookmarks carrying every one of these tags."), mcp.WithStringItems()),
	mcp.WithString("domain", mcp.Description("Only bookmarks from this domain, e.g. github.com.")),
	mcp.WithString("since", mcp.Description("Created at or after. "+timeFormats)),
	mcp.WithString("until", mcp.Description("Created at or before. "+timeFormats)),
	mcp.WithReadOnlyHintAnnotation(true),
)

var getToolDef = mcp.NewTool("bookmark_get",
	mcp.WithDescription("Get one bookmark by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Bookmark id.")),
	mcp.WithBoolean("include_content", mcp.Description("Include the stored page text.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var updateToolDef = mcp.NewTool("bookmark_update",
	mcp.WithDescription("Update a bookmark's note, title, or tags, or re-fetch its page. Text changes re-embed it."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Bookmark id.")),
	mcp.WithString("note", mcp.Description("New note. Empty string clears it.")),
	mcp.WithString("title", mcp.Description("New title.")),
	mcp.WithArray("tags", mcp.Description("Tags to apply according to tag_mode."), mcp.WithStringItems()),
	mcp.WithString("tag_mode", mcp.Description("append (default) adds to the existing tags; replace overwrites them."), mcp.Enum("append", "replace")),
	mcp.WithBoolean("refetch", mcp.Description("Re-download the page and refresh title and content.")),
	mcp.WithIdempotentHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("bookmark_delete",
	mcp.WithDescription("Delete a bookmark and its embedding. Deleting an unknown id reports deleted=false."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Bookmark id.")),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithIdempotentHintAnnotation(true),
)

var listToolDef = mcp.NewTool("bookmark_list",
	mcp.WithDescription("List bookmarks newest first with exact filters and pagination."),
	mcp.WithArray("tags", mcp.Description("Only bookmarks carrying every one of these tags."), mcp.WithStringItems()),
	mcp.WithString("domain", mcp.Description("Only bookmarks from this domain.")),
	mcp.WithString("since", mcp.Description("Created at or after. "+timeFormats)),
	mcp.WithString("until", mcp.Description("Created at or before. "+timeFormats)),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100).")),
	mcp.WithNumber("offset", mcp.Description("Items to skip.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var doctorToolDef = mcp.NewTool("bookmark_doctor",
	mcp.WithDescription("Check that every bookmark has an embedding and every embedding has a bookmark. "+
		"With repair, delete stray embeddings and re-embed bookmarks that lack one."),
	mcp.WithBoolean("repair", mcp.Description("Fix what the check finds.")),
)
