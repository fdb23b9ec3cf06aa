package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/knowledge"
)

// SearchDocumentsInput defines the input schema for the search_documents
// tool.
type SearchDocumentsInput struct {
	Query string `json:"query" jsonschema:"the search query, matched against stored chunks by semantic similarity"`
	K     int    `json:"k,omitempty" jsonschema:"maximum results to return (default 4, capped at 20)"`
}

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the knowledge base"`
}

// searchOutput is the JSON payload search_documents returns, shaped like
// the HTTP API's search response so clients of either front end see the
// same fields.
type searchOutput struct {
	Query   string          `json:"query"`
	Results []documentMatch `json:"results"`
	Count   int             `json:"count"`
}

type documentMatch struct {
	ID         int64          `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}

// registerTools registers both tools with the MCP server.
func (s *Server) registerTools() error {
	searchSchema, err := jsonschema.For[SearchDocumentsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolSearchDocuments, err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolSearchDocuments,
		Description: "Search the knowledge base using semantic similarity. " +
			"Returns matching document chunks with similarity scores as JSON.",
		InputSchema: searchSchema,
	}, s.SearchDocuments)

	askSchema, err := jsonschema.For[AskInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", ToolAsk, err)
	}

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolAsk,
		Description: "Answer a question from the knowledge base. Retrieves " +
			"relevant documents and generates a grounded answer. Responds in " +
			"the language of the question.",
		InputSchema: askSchema,
	}, s.Ask)

	return nil
}

// SearchDocuments handles the search_documents MCP tool call.
func (s *Server) SearchDocuments(ctx context.Context, _ *mcp.CallToolRequest, input SearchDocumentsInput) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return errorResult("query is required"), nil, nil
	}

	k := input.K
	if k <= 0 {
		k = s.topK
	}
	if k > maxSearchResults {
		k = maxSearchResults
	}
	var opts []knowledge.SearchOption
	if k > 0 {
		opts = append(opts, knowledge.WithTopK(k))
	}

	s.logger.Debug("mcp tool call", "tool", ToolSearchDocuments, "query_length", len(query), "k", k)

	results, err := s.assistant.SearchWithScores(ctx, query, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("searching documents: %w", err)
	}

	out := searchOutput{
		Query:   query,
		Results: make([]documentMatch, len(results)),
		Count:   len(results),
	}
	for i, res := range results {
		out.Results[i] = documentMatch{
			ID:         res.Document.ID,
			Content:    res.Document.Content,
			Metadata:   res.Document.Metadata,
			Similarity: res.Similarity,
		}
	}

	return dataToMCP(out), nil, nil
}

// Ask handles the ask MCP tool call. Each call runs against fresh
// conversation state, so consecutive calls do not see each other.
func (s *Server) Ask(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, any, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return errorResult("query is required"), nil, nil
	}

	var opts []knowledge.SearchOption
	if s.topK > 0 {
		opts = append(opts, knowledge.WithTopK(s.topK))
	}

	s.logger.Debug("mcp tool call", "tool", ToolAsk, "query_length", len(query))

	answer, err := s.assistant.Turn(ctx, chat.NewState(1), query, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("answering question: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: answer.Text}},
	}, nil, nil
}
