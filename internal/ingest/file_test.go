package ingest

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// ============================================================
// LoadFile
// ============================================================

func TestLoadFile_TextFile(t *testing.T) {
	embedder := &mockEmbedder{}
	store := &mockStore{}
	ing := newTestIngestor(t, embedder, store)

	dir := t.TempDir()
	path := writeFile(t, dir, "muistio.txt", []byte("Helsinki on Suomen pääkaupunki."))

	res, err := ing.LoadFile(t.Context(), path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if res.Source != path {
		t.Errorf("Source = %q, want %q", res.Source, path)
	}
	if res.Chunks != 1 {
		t.Fatalf("Chunks = %d, want 1", res.Chunks)
	}

	md := store.docs[0].Metadata
	if md["source"] != path {
		t.Errorf("metadata source = %v", md["source"])
	}
	if md["file_name"] != "muistio.txt" {
		t.Errorf("file_name = %v", md["file_name"])
	}
	if md["file_type"] != "txt" {
		t.Errorf("file_type = %v, want %q", md["file_type"], "txt")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})

	_, err := ing.LoadFile(t.Context(), filepath.Join(t.TempDir(), "puuttuu.txt"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got: %v", err)
	}
}

func TestLoadFile_RejectsBinary(t *testing.T) {
	embedder := &mockEmbedder{}
	ing := newTestIngestor(t, embedder, &mockStore{})

	path := writeFile(t, t.TempDir(), "kuva.txt", []byte{0xff, 0xfe, 0x01, 0x00})

	_, err := ing.LoadFile(t.Context(), path)
	if !errors.Is(err, ErrNotUTF8) {
		t.Errorf("expected ErrNotUTF8, got: %v", err)
	}
	if embedder.calls != 0 {
		t.Error("binary file should not reach the embedder")
	}
}

func TestLoadFile_TooLarge(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})

	path := writeFile(t, t.TempDir(), "iso.txt", bytes.Repeat([]byte("a"), maxFileSize+1))

	_, err := ing.LoadFile(t.Context(), path)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got: %v", err)
	}
}

// ============================================================
// LoadDirectory
// ============================================================

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("ensimmäinen tiedosto"))
	writeFile(t, dir, "b.md", []byte("# toinen tiedosto"))
	writeFile(t, dir, "c.log", []byte("log line"))

	sub := filepath.Join(dir, "ali")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, sub, "d.txt", []byte("alihakemiston tiedosto"))
	return dir
}

func resultSources(results []*Result) map[string]bool {
	set := make(map[string]bool, len(results))
	for _, r := range results {
		set[filepath.Base(r.Source)] = true
	}
	return set
}

func TestLoadDirectory_Default(t *testing.T) {
	store := &mockStore{}
	ing := newTestIngestor(t, &mockEmbedder{}, store)
	dir := fixtureDir(t)

	out, err := ing.LoadDirectory(t.Context(), dir)
	if err != nil {
		t.Fatalf("LoadDirectory() error: %v", err)
	}

	sources := resultSources(out.Results)
	if len(out.Results) != 2 || !sources["a.txt"] || !sources["b.md"] {
		t.Errorf("ingested %v, want a.txt and b.md only", sources)
	}
	if sources["d.txt"] {
		t.Error("non-recursive load descended into a subdirectory")
	}
	// Extension-filtered files are not failures.
	if len(out.Skipped) != 0 {
		t.Errorf("Skipped = %v, want none", out.Skipped)
	}
}

func TestLoadDirectory_Recursive(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})
	dir := fixtureDir(t)

	out, err := ing.LoadDirectory(t.Context(), dir, WithRecursive())
	if err != nil {
		t.Fatalf("LoadDirectory() error: %v", err)
	}

	sources := resultSources(out.Results)
	if len(out.Results) != 3 || !sources["d.txt"] {
		t.Errorf("ingested %v, want a.txt, b.md and ali/d.txt", sources)
	}
}

func TestLoadDirectory_CustomExtensions(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})
	dir := fixtureDir(t)

	// Extensions normalize: "log" and ".LOG" both match c.log.
	out, err := ing.LoadDirectory(t.Context(), dir, WithExtensions("log"))
	if err != nil {
		t.Fatalf("LoadDirectory() error: %v", err)
	}

	sources := resultSources(out.Results)
	if len(out.Results) != 1 || !sources["c.log"] {
		t.Errorf("ingested %v, want c.log only", sources)
	}
}

func TestLoadDirectory_RecordsBadFiles(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})

	dir := t.TempDir()
	writeFile(t, dir, "hyvä.txt", []byte("kelvollista tekstiä"))
	bad := writeFile(t, dir, "huono.txt", []byte{0xff, 0xfe})

	out, err := ing.LoadDirectory(t.Context(), dir)
	if err != nil {
		t.Fatalf("LoadDirectory() error: %v", err)
	}

	if len(out.Results) != 1 {
		t.Errorf("Results = %d, want 1; the bad file must not abort the batch", len(out.Results))
	}
	if len(out.Skipped) != 1 {
		t.Fatalf("Skipped = %v, want one entry", out.Skipped)
	}
	if out.Skipped[0].Source != bad {
		t.Errorf("skipped source = %q, want %q", out.Skipped[0].Source, bad)
	}
	if !errors.Is(out.Skipped[0].Err, ErrNotUTF8) {
		t.Errorf("skipped error = %v", out.Skipped[0].Err)
	}
}

func TestLoadDirectory_NotADirectory(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})
	path := writeFile(t, t.TempDir(), "f.txt", []byte("x"))

	if _, err := ing.LoadDirectory(t.Context(), path); err == nil {
		t.Error("expected error for non-directory path")
	}
}

func TestLoadDirectory_ContextCancelled(t *testing.T) {
	ing := newTestIngestor(t, &mockEmbedder{}, &mockStore{})
	dir := fixtureDir(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := ing.LoadDirectory(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}
