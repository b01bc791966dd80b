package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

const chatCollection = "chat_sessions"

const chatSystemPrompt = "You are a supportive personal health coach. " +
	"Answer in the user's language, keep replies under 200 words, and " +
	"ground advice in the health context you are given. Never diagnose; " +
	"suggest seeing a professional for medical concerns."

type ChatService struct {
	store    store.Store
	ai       *AIClient
	tracking *TrackingService
	plans    *PlanService
}

func NewChatService(st store.Store, ai *AIClient, tracking *TrackingService, plans *PlanService) *ChatService {
	return &ChatService{store: st, ai: ai, tracking: tracking, plans: plans}
}

// SendMessage answers one chat turn. The session document accumulates
// the running transcript so follow-up turns keep their history.
func (s *ChatService) SendMessage(userID string, req *dto.ChatRequest) (store.Document, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}

	sessionID := req.SessionID
	var history []interface{}
	if sessionID != "" {
		session, err := s.store.GetUserDoc(userID, chatCollection, sessionID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			history, _ = session["messages"].([]interface{})
		}
	}
	if len(history) == 0 {
		// clients migrating from local-only chat can seed the transcript
		for _, m := range req.History {
			history = append(history, m)
		}
	}

	context, err := s.buildContext(userID)
	if err != nil {
		return nil, err
	}
	for k, v := range req.Context {
		context[k] = v
	}

	reply, err := s.ai.Generate(s.buildPrompt(context, history, req.Message), chatSystemPrompt, 0.8, 1024)
	if errors.Is(err, ErrAIUnavailable) {
		reply = "I can't reach the coaching assistant right now. " +
			"Your message was saved, please try again in a moment."
	} else if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	history = append(history,
		store.Document{"role": "user", "content": req.Message, "sent_at": now},
		store.Document{"role": "assistant", "content": reply, "sent_at": now},
	)
	// keep sessions bounded
	if len(history) > 40 {
		history = history[len(history)-40:]
	}

	sessionDoc := store.Document{
		"messages":        history,
		"last_message_at": now,
	}
	if sessionID == "" {
		sessionDoc["started_at"] = now
		sessionID, err = s.store.AddUserDoc(userID, chatCollection, sessionDoc)
		if err != nil {
			return nil, err
		}
	} else if err := s.store.UpdateUserDoc(userID, chatCollection, sessionID, sessionDoc); err != nil {
		return nil, err
	}

	return store.Document{
		"session_id": sessionID,
		"reply":      reply,
		"sent_at":    now,
	}, nil
}

func (s *ChatService) GetSession(userID, sessionID string) (store.Document, error) {
	doc, err := s.store.GetUserDoc(userID, chatCollection, sessionID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("session not found")
	}
	return doc, nil
}

func (s *ChatService) ListSessions(userID string, limit int) ([]store.Document, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.store.QueryUserDocs(userID, chatCollection, store.Query{Limit: limit})
}

func (s *ChatService) DeleteSession(userID, sessionID string) error {
	return s.store.DeleteUserDoc(userID, chatCollection, sessionID)
}

// buildContext assembles everything the coach should know: the profile,
// the last week of tracking, the active plan and recent insights.
func (s *ChatService) buildContext(userID string) (store.Document, error) {
	ctx := store.Document{}

	profile, err := s.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		ctx["profile"] = profile
	}

	days, err := s.tracking.History(userID, 7)
	if err != nil {
		return nil, err
	}
	ctx["recent_tracking"] = days

	plan, err := s.plans.ActivePlan(userID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		ctx["active_plan"] = plan
	}

	insights, err := s.store.QueryUserDocs(userID, insightCollection, store.Query{Limit: 5})
	if err != nil {
		return nil, err
	}
	if len(insights) > 0 {
		ctx["recent_insights"] = insights
	}

	return ctx, nil
}

func (s *ChatService) buildPrompt(context store.Document, history []interface{}, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Health context:\n%s\n\n", compactJSON(context))

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		start := 0
		if len(history) > 10 {
			start = len(history) - 10
		}
		for _, entry := range history[start:] {
			m, ok := entry.(map[string]interface{})
			if !ok {
				if d, ok2 := entry.(store.Document); ok2 {
					m = map[string]interface{}(d)
				} else {
					continue
				}
			}
			fmt.Fprintf(&b, "%v: %v\n", m["role"], m["content"])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User message: %s", message)
	return b.String()
}
