package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hakulabs/haku/internal/ingest"
	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/security"
)

const (
	// maxIngestBody caps the request body for document ingestion, matching
	// the file ingestion limit.
	maxIngestBody = 10 * 1024 * 1024

	// maxSearchQueryLength is the maximum search query length in bytes.
	maxSearchQueryLength = 1000

	defaultSearchK = 0 // zero lets the assistant's top-k apply
	maxSearchK     = 50
)

// documentsHandler serves document ingestion, deletion and search.
type documentsHandler struct {
	ingestor  Ingestor
	documents DocumentStore
	searcher  Searcher
	files     *security.Path
	logger    *slog.Logger
}

func newDocumentsHandler(ingestor Ingestor, documents DocumentStore, searcher Searcher, files *security.Path, logger *slog.Logger) *documentsHandler {
	return &documentsHandler{
		ingestor:  ingestor,
		documents: documents,
		searcher:  searcher,
		files:     files,
		logger:    logger,
	}
}

func (h *documentsHandler) register(mux *http.ServeMux) {
	if h.ingestor != nil {
		mux.HandleFunc("POST /api/documents", h.ingestContent)
		if h.files != nil {
			mux.HandleFunc("POST /api/documents/file", h.ingestFile)
		}
	}
	if h.documents != nil {
		mux.HandleFunc("DELETE /api/documents/{id}", h.deleteDocument)
	}
	if h.searcher != nil {
		mux.HandleFunc("GET /api/search", h.search)
	}
}

// ingestRequest is the body for POST /api/documents. Exactly one of Content
// and URL must be set. Metadata applies to text ingestion only; URL
// ingestion derives its own metadata from the page.
type ingestRequest struct {
	Content  string         `json:"content,omitempty"`
	URL      string         `json:"url,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ingestResponse reports what one ingestion stored.
type ingestResponse struct {
	Source string  `json:"source"`
	IDs    []int64 `json:"ids"`
	Chunks int     `json:"chunks"`
	Tokens int     `json:"tokens"`
	Failed int     `json:"failed,omitempty"`
}

func toIngestResponse(res *ingest.Result) ingestResponse {
	return ingestResponse{
		Source: res.Source,
		IDs:    res.IDs,
		Chunks: res.Chunks,
		Tokens: res.Tokens,
		Failed: len(res.Failed),
	}
}

// ingestContent handles POST /api/documents: raw text or a URL into the
// knowledge base. Responds 201 with the ingestion result; chunk-level
// failures surface in the failed count without failing the request as long
// as something was stored.
func (h *documentsHandler) ingestContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	switch {
	case req.Content == "" && req.URL == "":
		writeError(w, http.StatusBadRequest, "missing_content", "content or url is required", h.logger)
		return
	case req.Content != "" && req.URL != "":
		writeError(w, http.StatusBadRequest, "ambiguous_request", "provide content or url, not both", h.logger)
		return
	}

	var (
		res *ingest.Result
		err error
	)
	if req.URL != "" {
		res, err = h.ingestor.LoadURL(r.Context(), req.URL)
	} else {
		res, err = h.ingestor.LoadText(r.Context(), req.Content, req.Metadata)
	}
	if err != nil {
		if errors.Is(err, ingest.ErrNoContent) {
			writeError(w, http.StatusUnprocessableEntity, "no_content", "page has no readable text", h.logger)
			return
		}
		h.logger.Error("ingesting content", "error", err, "url", req.URL)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "failed to ingest content", h.logger)
		return
	}
	if res.Chunks == 0 && len(res.Failed) > 0 {
		h.logger.Error("ingestion stored nothing", "source", res.Source, "failed", len(res.Failed))
		writeError(w, http.StatusInternalServerError, "ingest_failed", "no chunks could be stored", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, toIngestResponse(res), h.logger)
}

// fileRequest is the body for POST /api/documents/file.
type fileRequest struct {
	Path string `json:"path"`
}

// ingestFile handles POST /api/documents/file. The path must resolve inside
// the configured allowed directories; everything else is rejected before
// touching the filesystem.
func (h *documentsHandler) ingestFile(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "missing_path", "path is required", h.logger)
		return
	}

	path, err := h.files.Validate(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_path", err.Error(), h.logger)
		return
	}

	res, err := h.ingestor.LoadFile(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			writeError(w, http.StatusNotFound, "file_not_found", "file does not exist", h.logger)
		case errors.Is(err, ingest.ErrFileTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), h.logger)
		case errors.Is(err, ingest.ErrNotUTF8):
			writeError(w, http.StatusUnprocessableEntity, "not_text", "file is not valid UTF-8 text", h.logger)
		default:
			h.logger.Error("ingesting file", "error", err, "path", path)
			writeError(w, http.StatusInternalServerError, "ingest_failed", "failed to ingest file", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toIngestResponse(res), h.logger)
}

// deleteDocument handles DELETE /api/documents/{id}.
func (h *documentsHandler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "document id must be an integer", h.logger)
		return
	}

	if err := h.documents.Delete(r.Context(), id); err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "document does not exist", h.logger)
			return
		}
		h.logger.Error("deleting document", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete document", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// documentResult is the wire form of one search hit.
type documentResult struct {
	ID         int64          `json:"id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}

// search handles GET /api/search?q=...&k=4: raw similarity search with
// scores, no generation stage.
func (h *documentsHandler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query parameter 'q' is required", h.logger)
		return
	}
	if len(query) > maxSearchQueryLength {
		writeError(w, http.StatusBadRequest, "query_too_long", "query must be 1000 characters or fewer", h.logger)
		return
	}

	var opts []knowledge.SearchOption
	if k := parseIntParam(r, "k", defaultSearchK, 1, maxSearchK); k > 0 {
		opts = append(opts, knowledge.WithTopK(k))
	}

	results, err := h.searcher.SearchWithScores(r.Context(), query, opts...)
	if err != nil {
		h.logger.Error("searching documents", "error", err, "queryLen", len(query))
		writeError(w, http.StatusInternalServerError, "search_failed", "failed to search documents", h.logger)
		return
	}

	items := make([]documentResult, len(results))
	for i, res := range results {
		items[i] = documentResult{
			ID:         res.Document.ID,
			Content:    res.Document.Content,
			Metadata:   res.Document.Metadata,
			Similarity: res.Similarity,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": items,
		"count":   len(items),
	}, h.logger)
}
