// Package tools exposes the JSON Schema surface for the fifteen named
// memory operations. This is metadata only: the transport that dispatches a
// named tool call to the matching agentmemory.Service method lives outside
// this module, but a caller needs these schemas to build a tool-calling LLM
// prompt around the service.
package tools

// ToolDefinition describes one callable operation's name, purpose, and
// JSON Schema input shape.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Definitions returns the JSON Schema input shape for each of the fifteen
// operations. Write operations accept an optional "thought" parameter so a
// tool-calling agent can record its reasoning alongside the call.
func Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "init_session",
			Description: "Initialize a new working-memory session or resume an existing one.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"session_id": StringProperty("Optional: an existing session key to resume. Omit to create a new session."),
				"user_id":    StringProperty("The owning user's identifier."),
				"org_id":     StringProperty("Optional organization identifier."),
				"max_tokens": IntegerProperty("Optional session token capacity (default 8000)."),
			}, "user_id"),
		},
		{
			Name:        "add_to_working_memory",
			Description: "Append an item to a session's working memory. Content is security-checked unless content_type is 'system'.",
			InputSchema: WithThought(ObjectSchema(map[string]interface{}{
				"session_id":   StringProperty("The session to append to."),
				"content_type": StringEnumProperty("The item's content-type tag.", "message", "task-state", "scratchpad", "system", "retrieved-memory"),
				"content":      StringProperty("The item's textual content."),
				"relevance":    NumberProperty("Optional relevance score in [0,1]."),
				"pinned":       BooleanProperty("Optional: protect this item from eviction (default false)."),
			}, "session_id", "content_type", "content"), false),
		},
		{
			Name:        "get_working_memory",
			Description: "Return a session's working-memory items, greedy-filled up to a token budget.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"session_id":   StringProperty("The session to read."),
				"token_budget": IntegerProperty("Maximum tokens to return."),
			}, "session_id", "token_budget"),
		},
		{
			Name:        "update_working_memory_item",
			Description: "Update an existing working-memory item's pinned flag and/or relevance score.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"session_id": StringProperty("The item's owning session."),
				"item_id":    StringProperty("The item to update."),
				"pinned":     BooleanProperty("Optional new pinned flag."),
				"relevance":  NumberProperty("Optional new relevance score in [0,1]."),
			}, "session_id", "item_id"),
		},
		{
			Name:        "clear_working_memory",
			Description: "Clear a session's working memory, optionally checkpointing qualifying items into long-term memory first.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"session_id":       StringProperty("The session to clear."),
				"checkpoint_first": BooleanProperty("Promote qualifying items to long-term memory before clearing (default true)."),
			}, "session_id"),
		},
		{
			Name:        "store_memory",
			Description: "Store content as a long-term memory for a user. Runs deduplication: byte-identical or near-identical content merges with an existing memory instead of inserting a new row.",
			InputSchema: WithThought(ObjectSchema(map[string]interface{}{
				"user_id":    StringProperty("The owning user's identifier."),
				"content":    StringProperty("The memory's textual content."),
				"category":   StringEnumProperty("Optional category hint.", "episodic", "semantic", "procedural", "preference"),
				"subtype":    StringProperty("Optional subtype hint, valid for the given category."),
				"importance": NumberProperty("Optional importance score in [0,1]."),
				"entities":   ArrayProperty("Optional pre-extracted entities, each \"type:name\".", StringProperty("a \"type:name\" entity")),
				"metadata":   ObjectSchema(map[string]interface{}{}),
			}, "user_id", "content"), true),
		},
		{
			Name:        "recall_memories",
			Description: "Retrieve long-term memories for a user ranked by composite relevance (semantic similarity, recency, frequency, and importance).",
			InputSchema: ObjectSchema(map[string]interface{}{
				"user_id":    StringProperty("The owning user's identifier."),
				"query":      StringProperty("The natural-language query to search for."),
				"categories": ArrayProperty("Optional category filter.", StringProperty("a category")),
				"subtypes":   ArrayProperty("Optional subtype filter.", StringProperty("a subtype")),
				"limit":      IntegerProperty("Maximum memories to return (default 10)."),
				"sigma_min":  NumberProperty("Optional minimum cosine similarity (default 0.7)."),
			}, "user_id", "query"),
		},
		{
			Name:        "update_memory",
			Description: "Update an existing long-term memory's content and/or metadata.",
			InputSchema: WithThought(ObjectSchema(map[string]interface{}{
				"memory_id": StringProperty("The memory to update."),
				"user_id":   StringProperty("The owning user's identifier."),
				"content":   StringProperty("Optional replacement content; triggers re-embedding."),
				"metadata":  ObjectSchema(map[string]interface{}{}),
			}, "memory_id", "user_id"), true),
		},
		{
			Name:        "forget_memory",
			Description: "Delete a long-term memory, soft by default.",
			InputSchema: WithThought(ObjectSchema(map[string]interface{}{
				"memory_id": StringProperty("The memory to delete."),
				"user_id":   StringProperty("The owning user's identifier."),
				"hard":      BooleanProperty("Permanently remove the row and its relationships instead of soft-deleting (default false)."),
			}, "memory_id", "user_id"), true),
		},
		{
			Name:        "forget_all_user_memories",
			Description: "Permanently erase every long-term memory, relationship, and working-memory row owned by a user. Requires an explicit literal confirmation token.",
			InputSchema: WithThought(ObjectSchema(map[string]interface{}{
				"user_id": StringProperty("The user whose data will be erased."),
				"confirm": StringProperty("Must equal the literal string \"CONFIRM_DELETE_ALL\"."),
			}, "user_id", "confirm"), true),
		},
		{
			Name:        "get_relevant_context",
			Description: "Assemble a token-budgeted context blending working memory and long-term memory, weighted by detected or supplied query intent.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"session_id":     StringProperty("The session supplying the working-memory phase."),
				"user_id":        StringProperty("The owning user's identifier."),
				"query":          StringProperty("The query to assemble context for."),
				"token_budget":   IntegerProperty("Total token budget for the assembled context."),
				"intent":         StringEnumProperty("Optional intent hint.", "how-to", "what-happened", "what-is", "debug", "general"),
				"focus_entities": ArrayProperty("Optional entities to boost, each \"type:name\".", StringProperty("a \"type:name\" entity")),
			}, "session_id", "user_id", "query", "token_budget"),
		},
		{
			Name:        "checkpoint_working_memory",
			Description: "Promote qualifying working-memory items to long-term memory without deleting them.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"session_id": StringProperty("The session to checkpoint."),
			}, "session_id"),
		},
		{
			Name:        "get_stats",
			Description: "Return Model Gateway operation statistics (call counts, success rates, mean latency, token totals).",
			InputSchema: ObjectSchema(map[string]interface{}{}),
		},
		{
			Name:        "get_recent_calls",
			Description: "Return the most recent Model Gateway metric samples.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"limit": IntegerProperty("Maximum samples to return (default 50)."),
			}),
		},
		{
			Name:        "get_memory_analytics",
			Description: "Return a read-only quality report over a user's long-term memories: counts by category/subtype, mean importance, mean decay factor, and staleness/supersession counts.",
			InputSchema: ObjectSchema(map[string]interface{}{
				"user_id": StringProperty("The user to report on."),
			}, "user_id"),
		},
	}
}
