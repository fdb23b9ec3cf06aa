package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"

	"github.com/hakulabs/haku/internal/app"
	"github.com/hakulabs/haku/internal/i18n"
	"github.com/hakulabs/haku/internal/tui"
)

// runChat initializes and starts the interactive chat with Bubble Tea TUI.
func runChat() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	// An empty base directory selects ~/.haku for the current session file.
	sess, err := a.Sessions.ResolveCurrentSession(ctx, "")
	if err != nil {
		return fmt.Errorf("resolving session: %w", err)
	}

	model, err := tui.New(ctx, a.Flow, sess.ID)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}

	fmt.Println(i18n.T("goodbye"))
	return nil
}
