package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hakulabs/haku/internal/embedding"
	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/testutil"
)

// ============================================================
// Mocks
// ============================================================

// mockEmbedder returns deterministic vectors: element 0 encodes the input's
// position so tests can verify chunk order survives the pipeline.
type mockEmbedder struct {
	err       error
	calls     int
	lastTexts []string
}

func (m *mockEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.lastTexts = texts
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1, 0}
	}
	return out, nil
}

// mockStore records inserted documents and can fail specific insert calls.
type mockStore struct {
	insertErr error
	failAt    map[int]error // insert call index (0-based) -> error
	calls     int
	docs      []knowledge.Document
	nextID    int64
}

func (m *mockStore) Insert(_ context.Context, doc knowledge.Document) (knowledge.Document, error) {
	call := m.calls
	m.calls++
	if err, ok := m.failAt[call]; ok {
		return knowledge.Document{}, err
	}
	if m.insertErr != nil {
		return knowledge.Document{}, m.insertErr
	}
	m.nextID++
	doc.ID = m.nextID
	m.docs = append(m.docs, doc)
	return doc, nil
}

func newTestIngestor(t *testing.T, embedder Embedder, store *mockStore, opts ...Option) *Ingestor {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.DiscardLogger())}, opts...)
	ing, err := New(embedder, store, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return ing
}

func smallSplitter(t *testing.T, size, overlap int) *embedding.Splitter {
	t.Helper()
	sp, err := embedding.NewSplitter(size, overlap)
	if err != nil {
		t.Fatalf("NewSplitter(%d, %d) error: %v", size, overlap, err)
	}
	return sp
}

// ============================================================
// Constructor
// ============================================================

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(nil, &mockStore{}); err == nil {
		t.Error("New() with nil embedder should fail")
	}
	if _, err := New(&mockEmbedder{}, nil); err == nil {
		t.Error("New() with nil store should fail")
	}
}

// ============================================================
// LoadText
// ============================================================

func TestLoadText_SingleChunk(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	res, err := ing.LoadText(t.Context(), "Suomen pääkaupunki on Helsinki.", nil)
	if err != nil {
		t.Fatalf("LoadText() error: %v", err)
	}

	if res.Chunks != 1 || len(res.IDs) != 1 {
		t.Fatalf("expected 1 stored chunk, got Chunks=%d IDs=%v", res.Chunks, res.IDs)
	}
	if res.Source != "text" {
		t.Errorf("default source = %q, want %q", res.Source, "text")
	}
	if res.Tokens <= 0 {
		t.Errorf("Tokens = %d, want > 0", res.Tokens)
	}

	doc := store.docs[0]
	if doc.Content != "Suomen pääkaupunki on Helsinki." {
		t.Errorf("stored content = %q", doc.Content)
	}
	if doc.Metadata["source"] != "text" {
		t.Errorf("metadata source = %v, want %q", doc.Metadata["source"], "text")
	}
	if doc.Metadata["chunk_index"] != 0 {
		t.Errorf("chunk_index = %v, want 0", doc.Metadata["chunk_index"])
	}
	if doc.Metadata["total_chunks"] != 1 {
		t.Errorf("total_chunks = %v, want 1", doc.Metadata["total_chunks"])
	}
	if tc, ok := doc.Metadata["token_count"].(int); !ok || tc <= 0 {
		t.Errorf("token_count = %v, want positive int", doc.Metadata["token_count"])
	}
}

func TestLoadText_ChunkOrderAndMetadata(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store, WithSplitter(smallSplitter(t, 20, 0)))

	text := "eka kappale tässä.\n\ntoka kappale tässä.\n\nkolmas kappale on."
	metadata := map[string]any{"topic": "testi"}

	res, err := ing.LoadText(t.Context(), text, metadata)
	if err != nil {
		t.Fatalf("LoadText() error: %v", err)
	}
	if res.Chunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", res.Chunks)
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.calls)
	}

	for i, doc := range store.docs {
		if doc.Metadata["chunk_index"] != i {
			t.Errorf("doc %d: chunk_index = %v", i, doc.Metadata["chunk_index"])
		}
		if doc.Metadata["total_chunks"] != res.Chunks {
			t.Errorf("doc %d: total_chunks = %v, want %d", i, doc.Metadata["total_chunks"], res.Chunks)
		}
		if doc.Metadata["topic"] != "testi" {
			t.Errorf("doc %d: caller metadata lost: %v", i, doc.Metadata)
		}
		// Vector element 0 encodes the chunk's position in the embed call.
		if doc.Embedding[0] != float32(i) {
			t.Errorf("doc %d: got vector for chunk %v, order not preserved", i, doc.Embedding[0])
		}
		if doc.Content != embedder.lastTexts[i] {
			t.Errorf("doc %d: content does not match embedded chunk", i)
		}
	}
}

func TestLoadText_EmptyText(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	res, err := ing.LoadText(t.Context(), "", nil)
	if err != nil {
		t.Fatalf("LoadText() error: %v", err)
	}
	if res.Chunks != 0 {
		t.Errorf("Chunks = %d, want 0", res.Chunks)
	}
	if embedder.calls != 0 || store.calls != 0 {
		t.Error("empty text should not reach embedder or store")
	}
}

func TestLoadText_EmbedFailureAbortsBeforeWrites(t *testing.T) {
	embedErr := errors.New("quota exceeded")
	embedder := &mockEmbedder{err: embedErr}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	_, err := ing.LoadText(t.Context(), "jotain tekstiä", nil)
	if !errors.Is(err, embedErr) {
		t.Fatalf("expected embed error, got: %v", err)
	}
	if store.calls != 0 {
		t.Errorf("store called %d times after embed failure, want 0", store.calls)
	}
}

func TestLoadText_PartialInsertFailure(t *testing.T) {
	dbErr := errors.New("connection reset")
	embedder := &mockEmbedder{}
	store := &mockStore{failAt: map[int]error{1: dbErr}}
	ing := newTestIngestor(t, embedder, store, WithSplitter(smallSplitter(t, 20, 0)))

	text := "eka kappale tässä.\n\ntoka kappale tässä.\n\nkolmas kappale on."
	res, err := ing.LoadText(t.Context(), text, nil)
	if err != nil {
		t.Fatalf("LoadText() error: %v", err)
	}

	if len(res.Failed) != 1 {
		t.Fatalf("Failed = %v, want exactly one entry", res.Failed)
	}
	if res.Failed[0].Index != 1 {
		t.Errorf("failed chunk index = %d, want 1", res.Failed[0].Index)
	}
	if !errors.Is(res.Failed[0].Err, dbErr) {
		t.Errorf("failed chunk error = %v", res.Failed[0].Err)
	}

	// Chunks stored before and after the failure stay stored.
	if res.Chunks != len(store.docs) {
		t.Errorf("Chunks = %d, stored = %d", res.Chunks, len(store.docs))
	}
	if res.Chunks == 0 {
		t.Error("no chunks survived, expected the failure to be isolated")
	}

	sumErr := res.Err()
	if sumErr == nil {
		t.Fatal("Result.Err() = nil despite failed chunks")
	}
	if !errors.Is(sumErr, dbErr) {
		t.Errorf("Result.Err() does not wrap the chunk error: %v", sumErr)
	}
	if !strings.Contains(sumErr.Error(), "1 of") {
		t.Errorf("Result.Err() = %q, want failure count summary", sumErr)
	}
}

func TestLoadText_DoesNotMutateCallerMetadata(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	metadata := map[string]any{"topic": "Suomi"}
	if _, err := ing.LoadText(t.Context(), "lyhyt teksti", metadata); err != nil {
		t.Fatalf("LoadText() error: %v", err)
	}

	if len(metadata) != 1 {
		t.Errorf("caller metadata mutated: %v", metadata)
	}
}

func TestLoadText_KeepsCallerSource(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	res, err := ing.LoadText(t.Context(), "sisältöä", map[string]any{"source": "muistio.txt"})
	if err != nil {
		t.Fatalf("LoadText() error: %v", err)
	}
	if res.Source != "muistio.txt" {
		t.Errorf("Source = %q, want caller's value", res.Source)
	}
	if store.docs[0].Metadata["source"] != "muistio.txt" {
		t.Errorf("stored source = %v", store.docs[0].Metadata["source"])
	}
}

// ============================================================
// AddDocuments
// ============================================================

func TestAddDocuments_MetadataCountMismatch(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})

	_, err := ing.AddDocuments(t.Context(),
		[]string{"yksi", "kaksi"},
		[]map[string]any{{"topic": "a"}})
	if err == nil {
		t.Fatal("expected error for mismatched metadata count")
	}
}

func TestAddDocuments_AllSucceed(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	texts := []string{"eka dokumentti", "toka dokumentti", "kolmas dokumentti"}
	metadatas := []map[string]any{
		{"topic": "a"}, {"topic": "b"}, {"topic": "c"},
	}

	batch, err := ing.AddDocuments(t.Context(), texts, metadatas)
	if err != nil {
		t.Fatalf("AddDocuments() error: %v", err)
	}
	if len(batch.Results) != 3 || len(batch.Skipped) != 0 {
		t.Fatalf("Results=%d Skipped=%d, want 3/0", len(batch.Results), len(batch.Skipped))
	}
	if len(store.docs) != 3 {
		t.Errorf("stored %d documents, want 3", len(store.docs))
	}
	for i, doc := range store.docs {
		if doc.Metadata["topic"] != metadatas[i]["topic"] {
			t.Errorf("doc %d: topic = %v", i, doc.Metadata["topic"])
		}
	}
}

func TestAddDocuments_SkipsFailedItems(t *testing.T) {
	// The embedder fails on the second call only; the first and third texts
	// must still land.
	embedErr := errors.New("rate limit exceeded")
	embedder := &failNthEmbedder{failCall: 2, err: embedErr}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	batch, err := ing.AddDocuments(t.Context(),
		[]string{"eka", "toka", "kolmas"}, nil)
	if err != nil {
		t.Fatalf("AddDocuments() error: %v", err)
	}

	if len(batch.Results) != 2 {
		t.Errorf("Results = %d, want 2", len(batch.Results))
	}
	if len(batch.Skipped) != 1 {
		t.Fatalf("Skipped = %v, want one entry", batch.Skipped)
	}
	if batch.Skipped[0].Index != 1 {
		t.Errorf("skipped index = %d, want 1", batch.Skipped[0].Index)
	}
	if !errors.Is(batch.Skipped[0].Err, embedErr) {
		t.Errorf("skipped error = %v", batch.Skipped[0].Err)
	}
}

// failNthEmbedder fails exactly one call, counted from 1.
type failNthEmbedder struct {
	failCall int
	err      error
	calls    int
}

func (m *failNthEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.calls == m.failCall {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

// ============================================================
// Sample Documents
// ============================================================

func TestSampleDocuments(t *testing.T) {
	samples := SampleDocuments()
	if len(samples) != 3 {
		t.Fatalf("expected 3 sample documents, got %d", len(samples))
	}

	topics := map[string]string{
		"Suomi":   "Helsinki",
		"tekoäly": "Koneoppiminen",
		"python":  "NumPy",
	}
	for _, doc := range samples {
		topic, ok := doc.Metadata["topic"].(string)
		if !ok {
			t.Fatalf("sample missing topic: %v", doc.Metadata)
		}
		want, known := topics[topic]
		if !known {
			t.Fatalf("unexpected sample topic %q", topic)
		}
		if !strings.Contains(doc.Text, want) {
			t.Errorf("sample %q does not mention %q", topic, want)
		}
		if doc.Metadata["category"] == "" {
			t.Errorf("sample %q has no category", topic)
		}
	}
}

func TestSeedSamples(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	results, err := ing.SeedSamples(t.Context())
	if err != nil {
		t.Fatalf("SeedSamples() error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Chunks == 0 {
			t.Errorf("sample %q stored no chunks", res.Source)
		}
	}

	// Every stored chunk keeps its sample topic for filtered search.
	for _, doc := range store.docs {
		if doc.Metadata["topic"] == nil {
			t.Errorf("stored sample chunk lost its topic: %v", doc.Metadata)
		}
	}
}

func TestSeedSamples_StopsOnFailure(t *testing.T) {
	embedErr := errors.New("service unavailable")
	embedder := &failNthEmbedder{failCall: 2, err: embedErr}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	results, err := ing.SeedSamples(t.Context())
	if !errors.Is(err, embedErr) {
		t.Fatalf("expected embed error, got: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results before failure = %d, want 1", len(results))
	}
	if !strings.Contains(fmt.Sprint(err), "tekoäly") {
		t.Errorf("error should name the failing sample, got: %v", err)
	}
}
