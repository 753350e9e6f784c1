package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"NeoNest/internal/repo"

	"go.uber.org/zap"
)

const (
	batchSize   = 20
	recentLimit = 5
)

// Notifier forwards unsent feedback to AdminID and serves chat commands.
type Notifier struct {
	Repo     repo.Repository
	Bot      *Bot
	AdminID  int64
	Interval time.Duration
	Log      *zap.Logger
	Now      func() time.Time
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// Notify sends pending feedback every Interval until ctx ends.
func (n *Notifier) Notify(ctx context.Context) error {
	ticker := time.NewTicker(n.Interval)
	defer ticker.Stop()
	for {
		if sent, err := n.NotifyOnce(ctx); err != nil {
			n.Log.Warn("notify feedback", zap.Int("sent", sent), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// NotifyOnce sends one batch of pending feedback, marking each message as
// it is delivered.
func (n *Notifier) NotifyOnce(ctx context.Context) (int, error) {
	pending, err := n.Repo.PendingFeedback(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, f := range pending {
		if err := n.Bot.SendMessage(ctx, n.AdminID, formatFeedback(f)); err != nil {
			return sent, err
		}
		if err := n.Repo.MarkFeedbackNotified(ctx, f.ID, n.now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// Listen long-polls for chat commands until ctx ends.
func (n *Notifier) Listen(ctx context.Context) error {
	offset := 0
	for {
		updates, err := n.Bot.GetUpdates(ctx, offset, 20*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n.Log.Warn("getUpdates", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message != nil {
				n.handleMessage(ctx, u.Message)
			}
		}
	}
}

func (n *Notifier) handleMessage(ctx context.Context, m *Message) {
	if m.Chat.ID != n.AdminID {
		_ = n.Bot.SendMessage(ctx, m.Chat.ID, "Not allowed")
		return
	}
	command := ""
	if f := strings.Fields(m.Text); len(f) > 0 {
		command = f[0]
	}
	var reply string
	switch command {
	case "/recent":
		list, err := n.Repo.ListFeedback(ctx, recentLimit)
		if err != nil {
			n.Log.Error("list feedback", zap.Error(err))
			reply = "Could not load feedback"
			break
		}
		if len(list) == 0 {
			reply = "No feedback yet"
			break
		}
		parts := make([]string, len(list))
		for i, f := range list {
			parts[i] = formatFeedback(f)
		}
		reply = strings.Join(parts, "\n\n")
	case "/pending":
		sent, err := n.NotifyOnce(ctx)
		if err != nil {
			n.Log.Warn("notify feedback", zap.Error(err))
		}
		reply = fmt.Sprintf("Sent %d pending", sent)
	default:
		reply = "Commands: /recent, /pending"
	}
	if err := n.Bot.SendMessage(ctx, m.Chat.ID, reply); err != nil {
		n.Log.Warn("reply", zap.Error(err))
	}
}

func formatFeedback(f repo.Feedback) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s [%s] %s\n", f.ID, f.Type, f.Priority, f.Subject)
	if f.Message != "" {
		b.WriteString(f.Message)
		b.WriteString("\n")
	}
	var who []string
	for _, s := range []string{f.ProfileName, f.ProfileDesignation, f.ProfileHospital, f.ProfileCity} {
		if s != "" {
			who = append(who, s)
		}
	}
	if len(who) > 0 {
		fmt.Fprintf(&b, "from %s", strings.Join(who, ", "))
		if f.ProfileEmail != "" {
			fmt.Fprintf(&b, " <%s>", f.ProfileEmail)
		}
		b.WriteString("\n")
	}
	b.WriteString(f.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	return b.String()
}
