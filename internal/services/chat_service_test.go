package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vitacoach/coach-backend/internal/dto"
	"github.com/vitacoach/coach-backend/internal/store"
)

func newChatFixture() (*ChatService, *store.Memory) {
	st := store.NewMemory()
	ai := offlineAI()
	tracking := NewTrackingService(st)
	plans := NewPlanService(st, ai)
	return NewChatService(st, ai, tracking, plans), st
}

func TestSendMessageCreatesSession(t *testing.T) {
	svc, _ := newChatFixture()

	reply, err := svc.SendMessage("u1", &dto.ChatRequest{Message: "How am I doing?"})
	require.NoError(t, err)
	require.NotEmpty(t, reply["session_id"])
	require.NotEmpty(t, reply["reply"])

	session, err := svc.GetSession("u1", reply["session_id"].(string))
	require.NoError(t, err)
	messages := session["messages"].([]interface{})
	require.Len(t, messages, 2) // user turn plus assistant turn
}

func TestSendMessageAppendsToSession(t *testing.T) {
	svc, _ := newChatFixture()

	first, err := svc.SendMessage("u1", &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	sessionID := first["session_id"].(string)

	second, err := svc.SendMessage("u1", &dto.ChatRequest{
		Message: "and again", SessionID: sessionID,
	})
	require.NoError(t, err)
	require.Equal(t, sessionID, second["session_id"])

	session, err := svc.GetSession("u1", sessionID)
	require.NoError(t, err)
	require.Len(t, session["messages"].([]interface{}), 4)
}

func TestSendMessageRejectsEmpty(t *testing.T) {
	svc, _ := newChatFixture()

	_, err := svc.SendMessage("u1", &dto.ChatRequest{Message: "   "})
	require.Error(t, err)
}

func TestDeleteSessionRemovesIt(t *testing.T) {
	svc, _ := newChatFixture()

	first, err := svc.SendMessage("u1", &dto.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	sessionID := first["session_id"].(string)

	require.NoError(t, svc.DeleteSession("u1", sessionID))

	_, err = svc.GetSession("u1", sessionID)
	require.Error(t, err)

	sessions, err := svc.ListSessions("u1", 10)
	require.NoError(t, err)
	require.Empty(t, sessions)
}
