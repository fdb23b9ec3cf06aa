package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/hakulabs/haku/internal/chat"
	"github.com/hakulabs/haku/internal/knowledge"
	"github.com/hakulabs/haku/internal/log"
)

// fakeAssistant implements Assistant with canned responses. Nil function
// fields fall back to a fixed Finnish fixture.
type fakeAssistant struct {
	turnFn   func(ctx context.Context, state *chat.State, query string, opts ...knowledge.SearchOption) (*chat.Answer, error)
	searchFn func(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

func (f *fakeAssistant) Turn(ctx context.Context, state *chat.State, query string, opts ...knowledge.SearchOption) (*chat.Answer, error) {
	if f.turnFn == nil {
		return &chat.Answer{Query: query, Text: "Sauna on suomalainen löylyhuone."}, nil
	}
	return f.turnFn(ctx, state, query, opts...)
}

func (f *fakeAssistant) SearchWithScores(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error) {
	if f.searchFn == nil {
		return []knowledge.Result{
			{
				Document: knowledge.Document{
					ID:       1,
					Content:  "Sauna on suomalainen keksintö.",
					Metadata: map[string]any{"source": "sauna.txt"},
				},
				Similarity: 0.92,
			},
		}, nil
	}
	return f.searchFn(ctx, query, opts...)
}

func validConfig() Config {
	return Config{
		Name:      "haku",
		Version:   "1.0.0",
		Assistant: &fakeAssistant{},
		Logger:    log.NewNop(),
	}
}

func newTestServer(t *testing.T, assistant Assistant) *Server {
	t.Helper()

	cfg := validConfig()
	cfg.Assistant = assistant
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}
	return s
}

func TestNewServer_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing name", mutate: func(c *Config) { c.Name = "" }, wantErr: "server name is required"},
		{name: "missing version", mutate: func(c *Config) { c.Version = "" }, wantErr: "server version is required"},
		{name: "nil assistant", mutate: func(c *Config) { c.Assistant = nil }, wantErr: "assistant is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			s, err := NewServer(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewServer() unexpected error: %v", err)
				}
				if s == nil {
					t.Fatal("NewServer() returned nil server")
				}
				return
			}

			if err == nil {
				t.Fatalf("NewServer() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewServer() error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewServer_NilLoggerFallsBack(t *testing.T) {
	cfg := validConfig()
	cfg.Logger = nil

	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() unexpected error: %v", err)
	}
	if s.logger == nil {
		t.Error("NewServer() left logger nil, want slog.Default() fallback")
	}
}
