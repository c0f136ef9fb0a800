package agent

import (
	"context"
	"strings"

	"github.com/haasonsaas/parley/internal/observability"
	"github.com/haasonsaas/parley/internal/sessions"
	"github.com/haasonsaas/parley/pkg/models"
)

// SendRequest is one message delivery: either a fresh user message or a
// continuation carrying client tool results. The request is a continuation
// exactly when ToolResults is non-empty.
type SendRequest struct {
	SessionID   string
	UserID      string
	AgentKey    string
	Message     string
	ClientTools []models.ClientToolDefinition
	ToolResults []models.ClientToolResult
}

// Orchestrator wires the agent catalog, session store, and engine into the
// message-send operation consumed by the HTTP layer.
type Orchestrator struct {
	engine     *Engine
	factory    *Factory
	store      sessions.Store
	normalizer *Normalizer
	logger     *observability.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(engine *Engine, factory *Factory, store sessions.Store, normalizer *Normalizer, logger *observability.Logger) *Orchestrator {
	return &Orchestrator{
		engine:     engine,
		factory:    factory,
		store:      store,
		normalizer: normalizer,
		logger:     logger,
	}
}

// SendMessage validates the request, opens the session, and runs the engine,
// returning the ordered stream of wire events. The returned channel is
// closed when the run finishes or suspends.
//
// Validation failures are returned synchronously so the HTTP layer can map
// them to status codes before committing to a stream.
func (o *Orchestrator) SendMessage(ctx context.Context, req *SendRequest) (<-chan models.WireEvent, error) {
	def, err := o.factory.Get(req.AgentKey)
	if err != nil {
		return nil, err
	}

	isContinuation := len(req.ToolResults) > 0
	if !isContinuation && strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	sess, err := o.store.OpenSession(ctx, req.SessionID, req.UserID)
	if err != nil {
		return nil, err
	}

	if tools, stopNames := BuildClientTools(req.ClientTools, o.logger); len(tools) > 0 {
		def = def.WithClientTools(tools, stopNames)
	}

	runReq := &RunRequest{
		Definition:  def,
		Session:     sess,
		Message:     req.Message,
		ToolResults: req.ToolResults,
	}

	out := make(chan models.WireEvent, 64)
	// Persistence must complete even when the client disconnects mid-stream,
	// so the engine runs on a context detached from the request's cancel.
	runCtx := context.WithoutCancel(ctx)
	runCtx = observability.WithValue(runCtx, observability.SessionIDKey, req.SessionID)
	runCtx = observability.WithValue(runCtx, observability.UserIDKey, req.UserID)
	runCtx = observability.WithValue(runCtx, observability.AgentKeyKey, req.AgentKey)

	go func() {
		defer close(out)

		sink := func(raw RawEvent) {
			wev := o.normalizer.Normalize(runCtx, raw)
			if wev == nil {
				return
			}
			select {
			case out <- *wev:
			case <-ctx.Done():
				// The consumer is gone; drop the event but let the run
				// finish so session state stays consistent.
			}
		}

		if err := o.engine.Run(runCtx, runReq, sink); err != nil {
			o.logger.Error(runCtx, "agent run failed", "error", err)
		}
	}()

	return out, nil
}
