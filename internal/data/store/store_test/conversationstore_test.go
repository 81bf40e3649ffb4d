package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/data/redisStore"
	"github.com/akolanti/AuditRAG/internal/data/store"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func redisConversationStore(t *testing.T) *store.RedisConversationStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return store.TestConversationStore(redisStore.NewTestStore(client))
}

func TestRedisConversationStore_InitAndValidate(t *testing.T) {
	s := redisConversationStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")

	if s.ValidateChatId(ctx, "chat-1") {
		t.Error("Unknown chat id should not validate")
	}

	if err := s.InitNewChat(ctx, "chat-1"); err != nil {
		t.Fatalf("InitNewChat failed: %v", err)
	}
	if !s.ValidateChatId(ctx, "chat-1") {
		t.Error("Chat id should validate right after init, before any turn")
	}

	// the init marker must not show up as a turn
	history, err := s.History(ctx, "chat-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected empty history for a fresh chat, got %v", history)
	}
}

func TestRedisConversationStore_WindowTrim(t *testing.T) {
	s := redisConversationStore(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")

	if err := s.InitNewChat(ctx, "chat-w"); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= config.MaxHistoryTurns+3; i++ {
		turn := jobModel.Turn{
			Question: fmt.Sprintf("question %d", i),
			Answer:   fmt.Sprintf("answer %d", i),
		}
		if err := s.AppendTurn(ctx, "chat-w", turn); err != nil {
			t.Fatalf("AppendTurn %d failed: %v", i, err)
		}
	}

	history, err := s.History(ctx, "chat-w")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != config.MaxHistoryTurns {
		t.Fatalf("Expected window of %d turns, got %d", config.MaxHistoryTurns, len(history))
	}
	// oldest first, oldest surviving turn is number 4
	if history[0].Question != "question 4" {
		t.Errorf("Oldest turn = %q, want question 4", history[0].Question)
	}
	if history[len(history)-1].Question != fmt.Sprintf("question %d", config.MaxHistoryTurns+3) {
		t.Errorf("Newest turn = %q", history[len(history)-1].Question)
	}
}

func TestRedisConversationStore_InitResetsHistory(t *testing.T) {
	s := redisConversationStore(t)
	ctx := context.Background()

	s.InitNewChat(ctx, "chat-r")
	s.AppendTurn(ctx, "chat-r", jobModel.Turn{Question: "q", Answer: "a"})
	s.InitNewChat(ctx, "chat-r")

	history, _ := s.History(ctx, "chat-r")
	if len(history) != 0 {
		t.Errorf("Re-init should clear previous turns, got %v", history)
	}
}

func TestInMemoryConversationStore_Window(t *testing.T) {
	s := store.InitConversationStore()
	ctx := context.Background()

	if s.ValidateChatId(ctx, "chat-m") {
		t.Error("Unknown chat id should not validate")
	}
	s.InitNewChat(ctx, "chat-m")
	if !s.ValidateChatId(ctx, "chat-m") {
		t.Error("Chat id should validate after init")
	}

	for i := 1; i <= config.MaxHistoryTurns+2; i++ {
		s.AppendTurn(ctx, "chat-m", jobModel.Turn{Question: fmt.Sprintf("q%d", i), Answer: "a"})
	}

	history, _ := s.History(ctx, "chat-m")
	if len(history) != config.MaxHistoryTurns {
		t.Fatalf("Expected %d turns, got %d", config.MaxHistoryTurns, len(history))
	}
	if history[0].Question != "q3" {
		t.Errorf("Oldest turn = %q, want q3", history[0].Question)
	}
}
