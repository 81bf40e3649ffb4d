package answercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/akolanti/AuditRAG/internal/data/redisStore"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

const keyPrefix = "answer_cache:"

// Entry is the full cached answer payload.
type Entry struct {
	Answer     string                   `json:"answer"`
	Sources    []commonModels.SourceRef `json:"sources"`
	EngineUsed commonModels.QueryEngine `json:"engine_used"`
	ModelUsed  string                   `json:"model_used"`
}

// Cache is a TTL'd answer cache over redis. If redis was unreachable at
// startup the cache runs as a permanent miss: every Get is absent, Set and
// Clear are no-ops, and callers never branch on availability.
//
// Keys include the requester's sorted permitted-group set, so two users with
// different access can never share an entry for the same question text.
type Cache struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func New(store *redisStore.Store, ttl time.Duration) *Cache {
	c := &Cache{
		store:  store,
		ttl:    ttl,
		logger: logger_i.NewLogger("AnswerCache"),
	}
	if store == nil {
		c.logger.Warn("Redis not available, answer caching disabled")
	}
	return c
}

func makeKey(question string, groups security.GroupSet) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	scope := strings.Join(groups.Sorted(), ",")
	sum := sha256.Sum256([]byte(normalized + "|" + scope))
	return keyPrefix + hex.EncodeToString(sum[:])[:16]
}

func (c *Cache) Get(ctx context.Context, question string, groups security.GroupSet) (Entry, bool) {
	if c.store == nil {
		return Entry{}, false
	}
	val, err := c.store.Get(ctx, makeKey(question, groups))
	if c.store.IsNil(err) {
		return Entry{}, false
	}
	if err != nil {
		c.logger.Warn("Cache read error", "error", err)
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		c.logger.Warn("Cache entry unmarshal failed", "error", err)
		return Entry{}, false
	}
	c.logger.Info("Cache hit", "question", truncate(question, 50))
	return entry, true
}

func (c *Cache) Set(ctx context.Context, question string, groups security.GroupSet, entry Entry) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("Cache entry marshal failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, makeKey(question, groups), data, c.ttl); err != nil {
		c.logger.Warn("Cache write error", "error", err)
		return
	}
	c.logger.Debug("Cached answer", "question", truncate(question, 50))
}

// Clear drops every cached answer. Called on any document add or delete -
// there is no per-entry document lineage, so partial invalidation is off the
// table.
func (c *Cache) Clear(ctx context.Context) {
	if c.store == nil {
		return
	}
	deleted, err := c.store.DeleteByPrefix(ctx, keyPrefix)
	if err != nil {
		c.logger.Warn("Cache clear error", "error", err)
		return
	}
	c.logger.Info("Cleared cached answers", "count", deleted)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
