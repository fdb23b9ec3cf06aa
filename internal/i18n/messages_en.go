package i18n

// loadEnglishMessages loads all English translations.
func loadEnglishMessages() {
	messages[LangEN] = map[string]string{
		// Common
		"app.name":        "haku",
		"app.description": "An assistant that answers from your own documents",
		"app.version":     "haku v%s",
		"goodbye":         "Goodbye!",

		// Chat TUI
		"chat.placeholder": "Ask anything about your documents...",
		"chat.prompt":      "You> ",
		"chat.assistant":   "haku> ",
		"chat.thinking":    "Thinking...",
		"chat.canceled":    "(canceled)",
		"chat.timeout":     "The answer timed out after 5 minutes. Try a shorter question.",
		"chat.error":       "Error: ",
		"chat.help": "Commands: /help, /clear, /sources, /quit\n" +
			"Shortcuts:\n" +
			"  Enter: send\n" +
			"  Shift+Enter: new line\n" +
			"  Ctrl+C: cancel/clear\n" +
			"  Ctrl+D: quit\n" +
			"  Up/Down: input history\n" +
			"  PgUp/PgDn: scroll",
		"chat.unknown_command": "Unknown command: %s",
		"chat.sources.title":   "Sources for the last answer:",
		"chat.sources.none":    "No sources yet. Ask something first.",

		// Welcome tips under the banner
		"tips.title":   "Tips for getting started:",
		"tips.ask":     "  • Answers come from your own ingested documents",
		"tips.help":    "  • Use /help to see commands, /sources to inspect retrieval",
		"tips.quit":    "  • Press Ctrl+C to cancel, Ctrl+D to quit",
		"tips.history": "  • Up/Down arrows browse input history",

		// CLI
		"sessions.title":    "Sessions:",
		"sessions.empty":    "No sessions yet.",
		"sessions.untitled": "(untitled)",
		"sessions.created":  "Started new session %s.",
		"sessions.switched": "Switched to session %s.",
		"sessions.renamed":  "Renamed session %s.",
		"sessions.deleted":  "Deleted session %s.",
		"sessions.cleared":  "All sessions deleted.",
		"search.empty":      "No matches.",
		"ingest.done":       "Stored %d chunks (%d tokens) from %s",
		"ingest.skipped":    "Skipped %s: %v",
		"setup.done":        "Database schema is ready.",
		"setup.sample":      "Sample documents loaded.",
		"serve.listening":   "HTTP API listening on %s",

		// Relative timestamps in session listings
		"time.just_now":    "just now",
		"time.minutes_ago": "%d minutes ago",
		"time.hours_ago":   "%d hours ago",
		"time.days_ago":    "%d days ago",

		// Help screen
		"help.text": "haku - An assistant that answers from your own documents\n" +
			"\n" +
			"Usage:\n" +
			"  haku chat              Start interactive chat\n" +
			"  haku ask <question>    Answer one question and exit\n" +
			"  haku ingest <target>   Load a file, directory or URL into the knowledge base\n" +
			"  haku search <query>    Similarity search without generation\n" +
			"  haku sessions          List and manage stored conversations\n" +
			"  haku serve [addr]      Start the HTTP API server (default: 127.0.0.1:3400)\n" +
			"  haku mcp               Start the MCP server on stdio\n" +
			"  haku setup             Prepare the database schema (-sample-data loads samples)\n" +
			"  haku version           Show version information\n" +
			"  haku help              Show this help\n" +
			"\n" +
			"Chat commands:\n" +
			"  /help                  Show available commands\n" +
			"  /sources               Show sources for the last answer\n" +
			"  /clear                 Clear the conversation view\n" +
			"  /exit, /quit           Leave the chat\n" +
			"\n" +
			"Environment:\n" +
			"  OPENAI_API_KEY         API key for the default provider\n" +
			"  HAKU_LANG              Interface language (en, fi)\n" +
			"  DEBUG                  Enable debug logging",
	}
}
