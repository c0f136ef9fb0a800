package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/haasonsaas/parley/internal/agent"
	"github.com/haasonsaas/parley/internal/auth"
	"github.com/haasonsaas/parley/internal/sessions"
	"github.com/haasonsaas/parley/pkg/models"
)

// ndjsonContentType is the media type of the event stream.
const ndjsonContentType = "application/x-ndjson"

// messageRequest is the body of POST /v1/chat/send_message. The request is
// a continuation exactly when tool_results is non-empty.
type messageRequest struct {
	Message     string                        `json:"message"`
	SessionID   string                        `json:"session_id"`
	AgentKey    string                        `json:"agent_key"`
	ClientTools []models.ClientToolDefinition `json:"client_tools,omitempty"`
	ToolResults []models.ClientToolResult     `json:"tool_results,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	userID := auth.UserID(r)

	events, err := s.orchestrator.SendMessage(r.Context(), &agent.SendRequest{
		SessionID:   req.SessionID,
		UserID:      userID,
		AgentKey:    req.AgentKey,
		Message:     req.Message,
		ClientTools: req.ClientTools,
		ToolResults: req.ToolResults,
	})
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrUnknownAgent):
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid agent key: %s", req.AgentKey))
		case errors.Is(err, agent.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "message is required")
		default:
			s.logger.Error(r.Context(), "send_message failed", "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// Title generation runs after the response is fully streamed, matching
	// background-task semantics: the run's items are persisted by then.
	if s.renamer != nil {
		defer s.renamer.Spawn(r.Context(), req.SessionID, userID)
	}

	w.Header().Set("Content-Type", ndjsonContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			// Client is gone; drain the channel so the run can finish.
			for range events {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

type conversationSummary struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Title      string    `json:"title"`
	IsArchived bool      `json:"is_archived"`
	IsStarred  bool      `json:"is_starred"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func summarize(conv *models.Conversation) conversationSummary {
	return conversationSummary{
		ID:         conv.ID,
		SessionID:  conv.SessionID,
		Title:      conv.Title,
		IsArchived: conv.IsArchived,
		IsStarred:  conv.IsStarred,
		CreatedAt:  conv.CreatedAt,
		UpdatedAt:  conv.UpdatedAt,
	}
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	opts := sessions.ListOptions{
		IsArchived: queryBool(r, "is_archived"),
		Limit:      queryInt(r, "limit", 20),
		Offset:     queryInt(r, "offset", 0),
	}

	convs, err := s.store.ListConversations(r.Context(), auth.UserID(r), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch conversations: %s", err))
		return
	}

	summaries := make([]conversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, summarize(conv))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": summaries,
		"total":         len(summaries),
	})
}

type messageEntry struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	MessageData models.TurnItem `json:"message_data"`
	Content     models.TurnItem `json:"content"`
	Role        string          `json:"role"`
	UserID      string          `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	limit := queryInt(r, "limit", 10)
	offset := queryInt(r, "offset", 0)

	page, err := s.store.GetConversation(r.Context(), sessionID, auth.UserID(r), limit, offset)
	if err != nil {
		if errors.Is(err, sessions.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get conversation: %s", err))
		return
	}

	messages := make([]messageEntry, 0, len(page.Messages))
	for _, msg := range page.Messages {
		role := string(msg.Item.Role())
		if role == "" {
			role = "assistant"
		}
		messages = append(messages, messageEntry{
			ID:          msg.ID,
			SessionID:   msg.SessionID,
			MessageData: msg.Item,
			Content:     msg.Item,
			Role:        role,
			UserID:      msg.UserID,
			CreatedAt:   msg.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation":   summarize(page.Conversation),
		"messages":       messages,
		"total_messages": page.TotalMessages,
		"has_more":       page.HasMore,
	})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := s.store.DeleteConversation(r.Context(), sessionID, auth.UserID(r)); err != nil {
		s.conversationError(w, r, err, "Failed to delete conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Conversation %s deleted successfully", sessionID),
	})
}

func (s *Server) handleDeleteAllConversations(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.DeleteAllConversations(r.Context(), auth.UserID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to delete conversations: %s", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       fmt.Sprintf("Deleted %d conversations", count),
		"deleted_count": count,
	})
}

func (s *Server) handleArchiveConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := s.store.SetArchived(r.Context(), sessionID, auth.UserID(r), true); err != nil {
		s.conversationError(w, r, err, "Failed to archive conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Conversation %s archived successfully", sessionID),
	})
}

func (s *Server) handleStarConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := s.store.SetStarred(r.Context(), sessionID, auth.UserID(r), true); err != nil {
		s.conversationError(w, r, err, "Failed to star conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Conversation %s starred successfully", sessionID),
	})
}

func (s *Server) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := s.store.UpdateTitle(r.Context(), sessionID, auth.UserID(r), body.Title); err != nil {
		s.conversationError(w, r, err, "Failed to update title")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Conversation %s title updated successfully", sessionID),
	})
}

func (s *Server) conversationError(w http.ResponseWriter, r *http.Request, err error, prefix string) {
	if errors.Is(err, sessions.ErrConversationNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error(r.Context(), "conversation operation failed", "error", err)
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %s", prefix, err))
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
