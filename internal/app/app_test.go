package app

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/hakulabs/haku/internal/config"
)

// ============================================================================
// Close
// ============================================================================

func TestAppClose_NilSafe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		app  *App
	}{
		{name: "zero value", app: &App{}},
		{name: "config only", app: &App{Config: &config.Config{}}},
		{name: "nil cleanups entry survives registration order", app: &App{cleanups: []func(){func() {}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.app.Close(); err != nil {
				t.Errorf("Close() = %v, want nil", err)
			}
		})
	}
}

func TestAppClose_ReverseOrder(t *testing.T) {
	t.Parallel()

	var order []string
	a := &App{
		cleanups: []func(){
			func() { order = append(order, "tracing") },
			func() { order = append(order, "pool") },
		},
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	// The pool was acquired after tracing, so it must be released first.
	want := []string{"pool", "tracing"}
	if len(order) != len(want) {
		t.Fatalf("ran %d cleanups, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("cleanup[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestAppClose_RunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	a := &App{cleanups: []func(){func() { calls++ }}}

	if err := a.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}

	if calls != 1 {
		t.Errorf("cleanup ran %d times, want 1", calls)
	}
}

// ============================================================================
// Setup failure paths
// ============================================================================

func TestSetup_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := Setup(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("Setup(nil config) succeeded, want error")
	}
}

func TestSetup_UnreachableDatabase(t *testing.T) {
	t.Parallel()

	// Port 1 on loopback refuses immediately, so the failure is fast and the
	// error must come from the migration step, the first thing to touch the
	// database.
	cfg := &config.Config{
		Provider:         config.ProviderOpenAI,
		ModelName:        config.DefaultModelName,
		EmbedderModel:    config.DefaultEmbedderModel,
		ChunkSize:        config.DefaultChunkSize,
		ChunkOverlap:     config.DefaultChunkOverlap,
		PostgresHost:     "localhost",
		PostgresPort:     1,
		PostgresUser:     "haku",
		PostgresPassword: "haku",
		PostgresDBName:   "haku",
		PostgresSSLMode:  "disable",
	}

	logger := slog.New(slog.DiscardHandler)
	_, err := Setup(context.Background(), cfg, logger)
	if err == nil {
		t.Fatal("Setup with unreachable database succeeded, want error")
	}
	if !strings.Contains(err.Error(), "running migrations") {
		t.Errorf("error = %v, want migration failure", err)
	}
}

// ============================================================================
// Tracing wiring
// ============================================================================

func TestProvideTracing_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cleanup := provideTracing(context.Background(), cfg, slog.New(slog.DiscardHandler))
	if cleanup == nil {
		t.Fatal("provideTracing returned nil cleanup")
	}
	cleanup()
}
