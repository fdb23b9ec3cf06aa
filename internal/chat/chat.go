// Package chat implements the retrieval-generation workflow: embed the
// query, fetch the nearest documents from the knowledge base, and answer
// from that context with a bounded conversation memory.
//
// A turn has two sequential stages. Retrieval failures and generation
// failures both abort the turn and leave the conversation memory untouched;
// an exchange is recorded only after a complete success. Zero retrieval
// hits is not a failure: the model is told no relevant documents were found
// and answers accordingly.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/session"
)

const (
	// emptyContext stands in for retrieved passages when the search returns
	// nothing. The system prompt tells the model to admit it lacks
	// information, so this phrasing steers it there.
	emptyContext = "No relevant documents found."

	// contextPlaceholder marks where retrieved passages go in a system
	// prompt template.
	contextPlaceholder = "{context}"

	// fallbackAnswer is returned when the model produces an empty response.
	fallbackAnswer = "Anteeksi, en pystynyt muodostamaan vastausta. Yritä muotoilla kysymys uudelleen."
)

// defaultSystemPrompt instructs the model to answer from the retrieved
// context, in Finnish unless asked otherwise.
const defaultSystemPrompt = `Olet avulias assistentti, joka vastaa kysymyksiin annetun kontekstin perusteella.

Käytä seuraavaa kontekstia vastataksesi käyttäjän kysymykseen:

{context}

Jos et löydä vastausta kontekstista, sano että et löydä riittävästi tietoa vastaukseen.
Vastaa aina suomeksi, ellei käyttäjä pyydä muuta kieltä.`

// Sentinel errors for the ask flow.
var (
	// ErrInvalidSession indicates the session ID is invalid or malformed.
	ErrInvalidSession = errors.New("invalid session")

	// ErrExecutionFailed indicates a turn failed after the input was accepted.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrNoSessions indicates a session-backed turn was requested but no
	// session store is configured.
	ErrNoSessions = errors.New("no session store configured")
)

// GenerationError wraps a model-call failure with the operation that hit it.
// It unwraps to the underlying error so callers can use errors.Is against
// sentinels such as ErrCircuitOpen.
type GenerationError struct {
	Op  string // "generate"
	Err error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e == nil {
		return "<nil GenerationError>"
	}
	return fmt.Sprintf("chat: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// QueryEmbedder turns a search query into a vector. embedding.Service is
// the production implementation.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher finds the documents nearest a query vector. knowledge.Store is
// the production implementation.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// SessionStore persists conversations across restarts. session.Store is the
// production implementation. Session and Rename exist for the auto-titling
// of fresh sessions after their first completed turn.
type SessionStore interface {
	History(ctx context.Context, sessionID uuid.UUID) ([]*ai.Message, error)
	AppendMessages(ctx context.Context, sessionID uuid.UUID, msgs []*ai.Message) error
	Session(ctx context.Context, sessionID uuid.UUID) (*session.Session, error)
	Rename(ctx context.Context, sessionID uuid.UUID, title string) error
}

// StreamCallback is called for each chunk of a streaming response.
// Return an error to abort the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Config contains the required and optional parameters for an Assistant.
type Config struct {
	Genkit   *genkit.Genkit
	Embedder QueryEmbedder
	Store    Searcher
	Logger   *slog.Logger

	// Sessions enables TurnWithSession; nil disables session-backed turns.
	Sessions SessionStore

	// ModelName is the provider-qualified chat model, e.g.
	// "openai/gpt-4o-mini". Empty falls back to genkit's default model.
	ModelName string

	// Temperature is passed to the model on every call. Zero is
	// deterministic and is the intended default for grounded answers.
	Temperature float64

	// SystemPrompt overrides the default prompt template. The {context}
	// marker is replaced with the retrieved passages; templates without the
	// marker get the passages appended.
	SystemPrompt string

	TopK       int // retrieved documents per turn (default knowledge.DefaultTopK)
	MaxHistory int // kept exchanges per conversation (default DefaultMaxHistory)

	// Resilience settings. Zero values use defaults.
	RetryConfig          RetryConfig
	CircuitBreakerConfig CircuitBreakerConfig
	RateLimiter          *rate.Limiter // nil = 10 req/s sustained, burst 30
}

// validate checks that all required dependencies are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Embedder == nil {
		return errors.New("query embedder is required")
	}
	if cfg.Store == nil {
		return errors.New("document store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Assistant answers questions from the knowledge base.
//
// Configuration is captured immutably at construction. The only mutable
// piece is the conversation memory behind Ask, which follows State's
// concurrency rules: one conversation, one goroutine at a time.
type Assistant struct {
	modelName    string
	temperature  float64
	systemPrompt string
	topK         int
	maxHistory   int

	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	g        *genkit.Genkit
	embedder QueryEmbedder
	store    Searcher
	sessions SessionStore
	logger   *slog.Logger

	// Conversation memory for Ask/AskStream. Session-backed turns build
	// their own State per request instead.
	state *State
}

// New creates an Assistant from cfg, applying defaults for everything
// optional.
func New(cfg Config) (*Assistant, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = knowledge.DefaultTopK
	}

	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	a := &Assistant{
		modelName:    cfg.ModelName,
		temperature:  cfg.Temperature,
		systemPrompt: systemPrompt,
		topK:         topK,
		maxHistory:   maxHistory,

		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rl,

		g:        cfg.Genkit,
		embedder: cfg.Embedder,
		store:    cfg.Store,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,

		state: NewState(maxHistory),
	}

	a.logger.Info("assistant initialized",
		"model", a.modelName,
		"top_k", a.topK,
		"max_history", a.maxHistory,
	)
	return a, nil
}

// Answer is the complete result of one turn.
type Answer struct {
	Query   string
	Text    string
	Sources []knowledge.Result // retrieved documents, best match first
	Context string             // rendered context the model answered from
}

// Ask runs one turn against the assistant's own conversation memory.
func (a *Assistant) Ask(ctx context.Context, query string, opts ...knowledge.SearchOption) (*Answer, error) {
	return a.TurnStream(ctx, a.state, query, nil, opts...)
}

// AskStream is Ask with streaming output.
func (a *Assistant) AskStream(ctx context.Context, query string, callback StreamCallback, opts ...knowledge.SearchOption) (*Answer, error) {
	return a.TurnStream(ctx, a.state, query, callback, opts...)
}

// ClearHistory drops the assistant's conversation memory.
func (a *Assistant) ClearHistory() {
	a.state.Clear()
}

// History returns the exchanges recorded in the assistant's conversation
// memory, oldest first.
func (a *Assistant) History() []Exchange {
	return a.state.Exchanges()
}

// Turn runs one turn against caller-owned conversation memory.
func (a *Assistant) Turn(ctx context.Context, state *State, query string, opts ...knowledge.SearchOption) (*Answer, error) {
	return a.TurnStream(ctx, state, query, nil, opts...)
}

// TurnStream runs one turn: retrieve, generate, then record the exchange.
// On any failure the turn aborts with state untouched. A non-nil callback
// receives response chunks as they arrive.
func (a *Assistant) TurnStream(ctx context.Context, state *State, query string, callback StreamCallback, opts ...knowledge.SearchOption) (*Answer, error) {
	if state == nil {
		return nil, errors.New("chat: nil conversation state")
	}

	sources, err := a.retrieve(ctx, query, opts...)
	if err != nil {
		return nil, err
	}
	docContext := buildContext(sources)

	text, err := a.generate(ctx, state, query, docContext, callback)
	if err != nil {
		return nil, err
	}

	state.Append(query, text)
	a.logger.Info("turn completed",
		"sources", len(sources),
		"answer_len", len(text),
	)
	return &Answer{
		Query:   query,
		Text:    text,
		Sources: sources,
		Context: docContext,
	}, nil
}

// TurnWithSession runs one turn against a stored conversation: history is
// loaded from the session store and the completed exchange appended back.
// The append is best-effort; the answer is already committed to the caller
// when it happens. Used by the server, where requests carry a session ID
// instead of in-process memory.
func (a *Assistant) TurnWithSession(ctx context.Context, sessionID uuid.UUID, query string, callback StreamCallback) (*Answer, error) {
	if a.sessions == nil {
		return nil, ErrNoSessions
	}

	history, err := a.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	state := StateFromMessages(a.maxHistory, history)

	ans, err := a.TurnStream(ctx, state, query, callback)
	if err != nil {
		return nil, err
	}

	exchange := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(query)),
		ai.NewModelMessage(ai.NewTextPart(ans.Text)),
	}
	if err := a.sessions.AppendMessages(ctx, sessionID, exchange); err != nil {
		a.logger.Warn("appending messages to session",
			"session_id", sessionID, "error", err)
	}

	a.maybeTitleSession(ctx, sessionID, query)
	return ans, nil
}

// SearchWithScores runs a raw similarity search with the assistant's
// retrieval settings and no generation stage. Results carry their
// similarity scores.
func (a *Assistant) SearchWithScores(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	return a.retrieve(ctx, query, opts...)
}

// retrieve embeds the query and searches the knowledge base. The
// assistant's top-k is applied first so caller options can override it.
func (a *Assistant) retrieve(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	vec, err := a.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	searchOpts := append([]knowledge.SearchOption{knowledge.WithTopK(a.topK)}, opts...)
	results, err := a.store.Search(ctx, vec, searchOpts...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	return results, nil
}

// generate calls the model behind the circuit breaker and retry loop.
// An empty model response becomes fallbackAnswer rather than an error.
func (a *Assistant) generate(ctx context.Context, state *State, query, docContext string, callback StreamCallback) (string, error) {
	messages := append(state.Messages(), ai.NewUserMessage(ai.NewTextPart(query)))

	opts := []ai.GenerateOption{
		ai.WithSystem(renderSystemPrompt(a.systemPrompt, docContext)),
		ai.WithMessages(messages...),
		ai.WithConfig(&ai.GenerationCommonConfig{Temperature: a.temperature}),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(callback))
	}

	if err := a.circuitBreaker.Allow(); err != nil {
		a.logger.Warn("circuit breaker is open, rejecting request",
			"state", a.circuitBreaker.State().String())
		return "", &GenerationError{Op: "generate", Err: err}
	}

	resp, err := a.generateWithRetry(ctx, opts)
	if err != nil {
		a.circuitBreaker.Failure()
		return "", &GenerationError{Op: "generate", Err: err}
	}
	a.circuitBreaker.Success()

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		a.logger.Warn("model returned empty response")
		text = fallbackAnswer
	}
	return text, nil
}

// buildContext renders retrieved documents as numbered blocks, the shape
// the system prompt refers to.
func buildContext(results []knowledge.Result) string {
	if len(results) == 0 {
		return emptyContext
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("Document %d:\n%s\n", i+1, r.Document.Content)
	}
	return strings.Join(parts, "\n")
}

// renderSystemPrompt injects the retrieved context into the prompt
// template. Templates without the marker get the context appended, so a
// custom prompt can never silently lose its passages.
func renderSystemPrompt(template, docContext string) string {
	if strings.Contains(template, contextPlaceholder) {
		return strings.ReplaceAll(template, contextPlaceholder, docContext)
	}
	return template + "\n\n" + docContext
}

// Title generation constants.
const (
	titleGenerationTimeout = 5 * time.Second
	titleInputMaxRunes     = 500
	titleMaxRunes          = 100
)

var titlePrompt = fmt.Sprintf(`Generate a concise title (max %d characters) for a chat session based on this first message.`, titleMaxRunes) + `
The title should capture the main topic or intent.
Use the language of the message itself.
Return ONLY the title text, no quotes, no explanations, no punctuation at the end.

Message: %s

Title:`

// titleFallbackMaxRunes bounds the truncation fallback title.
const titleFallbackMaxRunes = 50

// maybeTitleSession names a still-untitled session after a completed turn.
// Best-effort: the answer is already committed to the caller, so every
// failure here only logs.
func (a *Assistant) maybeTitleSession(ctx context.Context, sessionID uuid.UUID, userMessage string) {
	sess, err := a.sessions.Session(ctx, sessionID)
	if err != nil {
		a.logger.Warn("loading session for titling",
			"session_id", sessionID, "error", err)
		return
	}
	if sess.Title != "" {
		return
	}

	title := a.GenerateTitle(ctx, userMessage)
	if title == "" {
		title = truncateForTitle(userMessage)
	}
	if title == "" {
		return
	}

	if err := a.sessions.Rename(ctx, sessionID, title); err != nil {
		a.logger.Warn("setting session title",
			"session_id", sessionID, "error", err)
		return
	}
	a.logger.Info("titled session", "session_id", sessionID, "title", title)
}

// truncateForTitle derives a title from the message itself when generation
// is unavailable, cutting at a word boundary where one falls in the second
// half of the budget.
func truncateForTitle(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= titleFallbackMaxRunes {
		return message
	}

	truncated := string(runes[:titleFallbackMaxRunes])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > titleFallbackMaxRunes/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated) + "..."
}

// GenerateTitle produces a short session title from the user's first
// message. Best-effort: returns an empty string on failure, and callers
// fall back to a truncated message.
func (a *Assistant) GenerateTitle(ctx context.Context, userMessage string) string {
	ctx, cancel := context.WithTimeout(ctx, titleGenerationTimeout)
	defer cancel()

	inputRunes := []rune(userMessage)
	if len(inputRunes) > titleInputMaxRunes {
		userMessage = string(inputRunes[:titleInputMaxRunes]) + "..."
	}

	opts := []ai.GenerateOption{
		ai.WithPrompt(titlePrompt, userMessage),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}

	resp, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		a.logger.Debug("title generation failed", "error", err)
		return ""
	}

	title := strings.TrimSpace(resp.Text())
	if titleRunes := []rune(title); len(titleRunes) > titleMaxRunes {
		title = string(titleRunes[:titleMaxRunes-3]) + "..."
	}
	return title
}
