package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/hakulabs/haku/internal/config"
)

// LiveSetup bundles the resources for tests that exercise a real model
// provider end to end.
type LiveSetup struct {
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	ModelName string
	Logger    *slog.Logger
}

// SetupLive initializes Genkit against a real provider. Tests calling it
// only run when a provider API key is present in the environment:
// OPENAI_API_KEY selects the OpenAI plugin, otherwise GEMINI_API_KEY
// selects Google AI. With neither set the test is skipped, so the normal
// test run stays hermetic.
func SetupLive(t *testing.T) *LiveSetup {
	t.Helper()

	ctx := context.Background()

	switch {
	case os.Getenv("OPENAI_API_KEY") != "":
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			t.Fatal("initializing genkit with openai provider")
		}
		embedder := genkit.LookupEmbedder(g, api.NewName("openai", config.DefaultEmbedderModel))
		if embedder == nil {
			t.Fatalf("openai embedder %q not found", config.DefaultEmbedderModel)
		}
		return &LiveSetup{
			Genkit:    g,
			Embedder:  embedder,
			ModelName: "openai/" + config.DefaultModelName,
			Logger:    DiscardLogger(),
		}

	case os.Getenv("GEMINI_API_KEY") != "":
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			t.Fatal("initializing genkit with googleai provider")
		}
		embedder := googlegenai.GoogleAIEmbedder(g, "gemini-embedding-001")
		if embedder == nil {
			t.Fatal("googleai embedder gemini-embedding-001 not found")
		}
		return &LiveSetup{
			Genkit:    g,
			Embedder:  embedder,
			ModelName: "googleai/gemini-2.5-flash",
			Logger:    DiscardLogger(),
		}

	default:
		t.Skip("OPENAI_API_KEY or GEMINI_API_KEY not set, skipping live provider test")
		return nil
	}
}
