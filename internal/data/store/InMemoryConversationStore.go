package store

import (
	"context"
	"sync"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
)

type InMemoryConversationStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]jobModel.Turn
}

func InitConversationStore() *InMemoryConversationStore {
	return &InMemoryConversationStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]jobModel.Turn),
	}
}

func (store *InMemoryConversationStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryConversationStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]jobModel.Turn, 0)
	return nil
}

func (store *InMemoryConversationStore) AppendTurn(ctx context.Context, id string, turn jobModel.Turn) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()

	turns := append(store.chatMap[id], turn)
	if len(turns) > config.MaxHistoryTurns {
		turns = turns[len(turns)-config.MaxHistoryTurns:]
	}
	store.chatMap[id] = turns
	return nil
}

func (store *InMemoryConversationStore) History(ctx context.Context, id string) ([]jobModel.Turn, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()

	turns := store.chatMap[id]
	out := make([]jobModel.Turn, len(turns))
	copy(out, turns)
	return out, nil
}
