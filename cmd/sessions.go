package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hakulabs/haku/internal/app"
	"github.com/hakulabs/haku/internal/i18n"
	"github.com/hakulabs/haku/internal/session"
)

// sessionPageSize bounds one listing query.
const sessionPageSize = 100

// runSessions manages stored conversations. With no subcommand it lists
// them; subcommands are list, new, use, show, rename, delete and clear.
func runSessions() error {
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

	args := argsAfterCommand()
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "list":
		return runSessionsList(ctx, a.Sessions)
	case "new":
		return runSessionsNew(ctx, a.Sessions, strings.Join(args, " "))
	case "use":
		return runSessionsUse(ctx, a.Sessions, args)
	case "show":
		return runSessionsShow(ctx, a.Sessions, args)
	case "rename":
		return runSessionsRename(ctx, a.Sessions, args)
	case "delete":
		return runSessionsDelete(ctx, a.Sessions, args)
	case "clear":
		return runSessionsClear(ctx, a.Sessions)
	default:
		return fmt.Errorf("unknown sessions subcommand: %s", sub)
	}
}

func runSessionsList(ctx context.Context, store *session.Store) error {
	sessions, err := store.Sessions(ctx, sessionPageSize, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println(i18n.T("sessions.empty"))
		return nil
	}

	// The active session gets a * marker. A missing or unreadable state
	// file just means no marker.
	var currentID uuid.UUID
	if id, err := session.LoadCurrentSessionID(""); err == nil && id != nil {
		currentID = *id
	}

	fmt.Println(i18n.T("sessions.title"))
	for _, s := range sessions {
		marker := " "
		if s.ID == currentID {
			marker = "*"
		}
		title := s.Title
		if title == "" {
			title = i18n.T("sessions.untitled")
		}
		fmt.Printf("%s %s  %-40s  %3d  %s\n", marker, s.ID, title, s.MessageCount, formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsNew(ctx context.Context, store *session.Store, title string) error {
	sess, err := store.CreateSession(ctx, title)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	if err := session.SaveCurrentSessionID("", sess.ID); err != nil {
		slog.Warn("saving session state", "error", err)
	}
	fmt.Println(i18n.Sprintf("sessions.created", sess.ID))
	return nil
}

func runSessionsUse(ctx context.Context, store *session.Store, args []string) error {
	id, err := parseSessionID(args, "use")
	if err != nil {
		return err
	}
	if _, err := store.Session(ctx, id); err != nil {
		return fmt.Errorf("validating session: %w", err)
	}
	if err := session.SaveCurrentSessionID("", id); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}
	fmt.Println(i18n.Sprintf("sessions.switched", id))
	return nil
}

func runSessionsShow(ctx context.Context, store *session.Store, args []string) error {
	id, err := parseSessionID(args, "show")
	if err != nil {
		return err
	}

	sess, err := store.Session(ctx, id)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	messages, err := store.Messages(ctx, id, sessionPageSize, 0)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	title := sess.Title
	if title == "" {
		title = i18n.T("sessions.untitled")
	}
	fmt.Printf("%s\n%s · %s\n\n", title, sess.ID, formatTime(sess.UpdatedAt))

	for _, msg := range messages {
		label := i18n.T("chat.prompt")
		if msg.Role == "model" {
			label = i18n.T("chat.assistant")
		}
		fmt.Printf("%s%s\n\n", label, msg.Text())
	}
	return nil
}

func runSessionsRename(ctx context.Context, store *session.Store, args []string) error {
	id, err := parseSessionID(args, "rename")
	if err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(args[1:], " "))
	if title == "" {
		return fmt.Errorf("usage: haku sessions rename <session-id> <title>")
	}
	if err := store.Rename(ctx, id, title); err != nil {
		return fmt.Errorf("renaming session: %w", err)
	}
	fmt.Println(i18n.Sprintf("sessions.renamed", id))
	return nil
}

func runSessionsDelete(ctx context.Context, store *session.Store, args []string) error {
	id, err := parseSessionID(args, "delete")
	if err != nil {
		return err
	}
	if err := store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if current, err := session.LoadCurrentSessionID(""); err == nil && current != nil && *current == id {
		if err := session.ClearCurrentSessionID(""); err != nil {
			slog.Warn("clearing session state", "error", err)
		}
	}
	fmt.Println(i18n.Sprintf("sessions.deleted", id))
	return nil
}

func runSessionsClear(ctx context.Context, store *session.Store) error {
	for {
		page, err := store.Sessions(ctx, sessionPageSize, 0)
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, s := range page {
			if err := store.DeleteSession(ctx, s.ID); err != nil {
				return fmt.Errorf("deleting session %s: %w", s.ID, err)
			}
		}
	}
	if err := session.ClearCurrentSessionID(""); err != nil {
		slog.Warn("clearing session state", "error", err)
	}
	fmt.Println(i18n.T("sessions.cleared"))
	return nil
}

// parseSessionID reads the session id argument for a subcommand.
func parseSessionID(args []string, usage string) (uuid.UUID, error) {
	if len(args) == 0 {
		return uuid.Nil, fmt.Errorf("usage: haku sessions %s <session-id>", usage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q: %w", args[0], err)
	}
	return id, nil
}

// formatTime renders t relative to now for recent times and as an absolute
// timestamp beyond a week.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return i18n.T("time.just_now")
	case diff < time.Hour:
		return i18n.Sprintf("time.minutes_ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return i18n.Sprintf("time.hours_ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return i18n.Sprintf("time.days_ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
