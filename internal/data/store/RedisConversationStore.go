package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/data/redisStore"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

// RedisConversationStore keeps one redis list per chat. An empty marker turn
// is pushed on init so the key exists before the first real exchange; History
// filters it back out.
type RedisConversationStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisConversationStore(ctx context.Context) *RedisConversationStore {
	return &RedisConversationStore{
		store:  redisStore.GetRedisStore(ctx, config.RedisConversationStore),
		logger: logger_i.NewLogger("ConversationStore"),
	}
}

func (s *RedisConversationStore) ValidateChatId(ctx context.Context, chatId string) bool {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", chatId)
	isFound, err := s.store.Exists(ctx, chatId)
	if err != nil {
		log.Error("Failed to check if chatId exists", "err", err)
		return false
	}
	return isFound
}

func (s *RedisConversationStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", id)
	log.Debug("Initializing new chat")

	if err := s.store.Del(ctx, id); err != nil {
		log.Error("Error clearing previous chat", "error", err)
	}
	return s.push(ctx, id, jobModel.Turn{})
}

func (s *RedisConversationStore) AppendTurn(ctx context.Context, id string, turn jobModel.Turn) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", id)

	if err := s.push(ctx, id, turn); err != nil {
		log.Error("error saving turn", "error:", err)
		return err
	}
	//the window keeps one extra slot so the init marker cannot push out a
	//real turn before the list fills up
	if err := s.store.ListTrimTail(ctx, id, config.MaxHistoryTurns+1); err != nil {
		log.Error("error trimming history", "error:", err)
		return err
	}
	return s.store.Expire(ctx, id, config.RedisConversationStoreTTL)
}

func (s *RedisConversationStore) History(ctx context.Context, chatId string) ([]jobModel.Turn, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", chatId)

	raw, err := s.store.ListGetLast(ctx, chatId, int64(config.MaxHistoryTurns)+1)
	if err != nil {
		log.Error("Error getting history", "error:", err)
		return nil, err
	}

	turns := make([]jobModel.Turn, 0, len(raw))
	for _, item := range raw {
		var turn jobModel.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			log.Error("Error unmarshalling turn", "error:", err)
			continue
		}
		if turn.Question == "" && turn.Answer == "" {
			continue
		}
		turns = append(turns, turn)
	}
	if len(turns) > config.MaxHistoryTurns {
		turns = turns[len(turns)-config.MaxHistoryTurns:]
	}
	return turns, nil
}

func (s *RedisConversationStore) push(ctx context.Context, id string, turn jobModel.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	return s.store.ListPush(ctx, id, data)
}

func TestConversationStore(store *redisStore.Store) *RedisConversationStore {
	return &RedisConversationStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
