// Package titles generates conversation titles in the background after a
// message exchange, using the title renamer agent.
package titles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/internal/sessions"
)

// DefaultMaxTurns bounds title generation runs.
const DefaultMaxTurns = 3

// defaultTitles are the titles the renamer is allowed to replace. A
// conversation whose title differs has been customized and is left alone.
var defaultTitles = map[string]bool{
	"New Chat":         true,
	"New Conversation": true,
}

const promptTemplate = `Based on the following conversation messages, generate a concise, meaningful title (maximum 6 words):

%s

Generate only the title, nothing else.`

// Renamer runs the chat title renamer agent against the opening messages
// of a conversation and stores the result.
type Renamer struct {
	engine   *agent.Engine
	factory  *agent.Factory
	store    sessions.Store
	logger   *observability.Logger
	maxTurns int
	timeout  time.Duration
}

// NewRenamer builds a title renamer. maxTurns <= 0 uses DefaultMaxTurns.
func NewRenamer(engine *agent.Engine, factory *agent.Factory, store sessions.Store, logger *observability.Logger, maxTurns int) *Renamer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Renamer{
		engine:   engine,
		factory:  factory,
		store:    store,
		logger:   logger,
		maxTurns: maxTurns,
		timeout:  30 * time.Second,
	}
}

// Spawn kicks off title generation in the background. The run is detached
// from the request context so a client disconnect cannot abort it.
// Failures are logged, never surfaced.
func (r *Renamer) Spawn(ctx context.Context, sessionID, userID string) {
	runCtx := observability.WithValue(context.WithoutCancel(ctx), observability.SessionIDKey, sessionID)
	go func() {
		runCtx, cancel := context.WithTimeout(runCtx, r.timeout)
		defer cancel()
		if err := r.GenerateAndUpdate(runCtx, sessionID, userID); err != nil {
			r.logger.Error(runCtx, "title generation failed", "error", err)
		}
	}()
}

// GenerateAndUpdate reads the first messages of the conversation, runs the
// title agent, and writes the cleaned title back. Conversations with a
// customized title or no messages are skipped.
func (r *Renamer) GenerateAndUpdate(ctx context.Context, sessionID, userID string) error {
	page, err := r.store.GetConversation(ctx, sessionID, userID, 3, 0)
	if err != nil {
		return fmt.Errorf("loading conversation: %w", err)
	}
	if len(page.Messages) == 0 {
		r.logger.Warn(ctx, "no messages found for conversation", "session_id", sessionID)
		return nil
	}
	if !defaultTitles[page.Conversation.Title] {
		r.logger.Info(ctx, "conversation already has custom title", "title", page.Conversation.Title)
		return nil
	}

	var lines []string
	for _, msg := range page.Messages {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Item.Role(), msg.Item.Content()))
	}
	prompt := fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))

	def, err := r.factory.Get(agent.KeyChatTitleRenamer)
	if err != nil {
		return err
	}

	var title string
	sink := func(ev agent.RawEvent) {
		if ev.Kind == agent.RawRunItem && ev.Item == agent.RunItemMessageOutput {
			title = ev.Content
		}
	}
	err = r.engine.Run(ctx, &agent.RunRequest{
		Definition: def,
		Message:    prompt,
		MaxTurns:   r.maxTurns,
	}, sink)
	if err != nil {
		return fmt.Errorf("running title agent: %w", err)
	}

	title = CleanTitle(title)
	if title == "" {
		r.logger.Warn(ctx, "no title generated", "session_id", sessionID)
		return nil
	}

	if err := r.store.UpdateTitle(ctx, sessionID, userID, title); err != nil {
		return fmt.Errorf("updating title: %w", err)
	}
	r.logger.Info(ctx, "generated conversation title", "title", title)
	return nil
}

// CleanTitle strips surrounding quotes and truncates long titles to 50
// characters.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) >= 2 && title[0] == '"' && title[len(title)-1] == '"' {
		title = title[1 : len(title)-1]
	}
	if len(title) >= 2 && title[0] == '\'' && title[len(title)-1] == '\'' {
		title = title[1 : len(title)-1]
	}
	if len(title) > 50 {
		title = title[:47] + "..."
	}
	return title
}
