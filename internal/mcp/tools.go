package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stateSaveToolDef = mcp.NewTool("state_save",
	mcp.WithDescription(`Condense a conversation transcript into the session state record.
The transcript tail is summarized into current task, decisions, context and next steps, and replaces the previously stored state.
Without force, nothing happens unless continuation is enabled and message_count is a multiple of the save interval (at least 2).`),
	mcp.WithString("transcript", mcp.Required(), mcp.Description("Conversation text, one \"role: text\" line per message")),
	mcp.WithString("context_id", mcp.Description("Conversation identifier stored with the record (generated when omitted)")),
	mcp.WithNumber("message_count", mcp.Description("Messages in the conversation so far")),
	mcp.WithBoolean("force", mcp.Description("Save regardless of the capture gate")),
)

var stateRecallToolDef = mcp.NewTool("state_recall",
	mcp.WithDescription(`Recall the saved session state for a new or resumed conversation.
Recall happens on the first message, or later when the user message asks to continue, resume, pick up, or carry on.
Returns the context block to prepend to the prompt.`),
	mcp.WithNumber("message_count", mcp.Description("Messages so far including the current one (0 or 1 = first turn)")),
	mcp.WithString("user_message", mcp.Description("Current user message, checked for continuation keywords")),
	mcp.WithBoolean("already_recalled", mcp.Description("The caller already holds recalled state for this conversation")),
)

var stateStatusToolDef = mcp.NewTool("state_status",
	mcp.WithDescription("Show the current session state record and the continuation settings. Returns NOT_FOUND when nothing is saved."),
)

var storeSearchToolDef = mcp.NewTool("store_search",
	mcp.WithDescription("Similarity search over stored documents, best match first."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	mcp.WithNumber("limit", mcp.Description("Maximum results (default 5, max 50)")),
	mcp.WithNumber("threshold", mcp.Description("Minimum score in [0, 1] (default 0)")),
	mcp.WithString("filter", mcp.Description("Metadata filter, e.g. area=='session_state' and context_id!='x'")),
)

var storeAddToolDef = mcp.NewTool("store_add",
	mcp.WithDescription("Store a document with optional string metadata."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Document text")),
	mcp.WithObject("metadata", mcp.Description("String key/value metadata, e.g. {\"area\": \"notes\"}")),
)

var storeForgetToolDef = mcp.NewTool("store_forget",
	mcp.WithDescription("Delete documents by id, or every document matching a query at or above a threshold."),
	mcp.WithArray("ids", mcp.WithStringItems(), mcp.Description("Document ids to delete")),
	mcp.WithString("query", mcp.Description("Delete documents similar to this text")),
	mcp.WithNumber("threshold", mcp.Description("Minimum score for query deletes (default 0.8)")),
	mcp.WithString("filter", mcp.Description("Metadata filter for query deletes")),
)

var storeListToolDef = mcp.NewTool("store_list",
	mcp.WithDescription("List stored documents, newest first."),
	mcp.WithString("filter", mcp.Description("Metadata filter")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var storeExportToolDef = mcp.NewTool("store_export",
	mcp.WithDescription("Export stored documents to a JSONL file in ~/.carryon/exports or an allowed path."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path (default ~/.carryon/exports/<label>-<timestamp>.jsonl)")),
	mcp.WithString("filter", mcp.Description("Metadata filter")),
	mcp.WithString("label", mcp.Description("File name prefix for the default path")),
)

var storeImportToolDef = mcp.NewTool("store_import",
	mcp.WithDescription("Import documents from a JSONL export. Texts are re-embedded with the configured embedder."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path")),
	mcp.WithString("mode", mcp.Description("On id collision: error (default, atomic), replace, or rename")),
)
