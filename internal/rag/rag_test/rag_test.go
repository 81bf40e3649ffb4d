package rag_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/data/redisStore"
	"github.com/akolanti/AuditRAG/internal/data/store"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/rag"
	"github.com/akolanti/AuditRAG/internal/rag/answercache"
	"github.com/akolanti/AuditRAG/internal/rag/multiindex"
	"github.com/akolanti/AuditRAG/internal/rag/parentstore"
	"github.com/akolanti/AuditRAG/internal/rag/retrypolicy"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testEnv struct {
	service       rag.Service
	engine        *multiindex.Engine
	cache         *answercache.Cache
	conversations jobModel.ConversationStore
	index         *MockIndex
}

func newTestEnv(t *testing.T, llm *MockLLM) *testEnv {
	t.Helper()

	index := &MockIndex{}
	embedder := &MockEmbedder{}
	parents := parentstore.New(parentstore.SplitConfig{
		ParentSize:    config.ParentChunkSize,
		ParentOverlap: config.ParentChunkOverlap,
		ChildSize:     config.ChildChunkSize,
		ChildOverlap:  config.ChildChunkOverlap,
	})
	retry := retrypolicy.New(1, time.Millisecond, time.Millisecond)

	engine, err := multiindex.NewEngine(context.Background(), &MockProvider{Index: index}, embedder, llm, nil, parents, retry, multiindex.NewKeywordSelector())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	standard := engine.StandardRetriever(embedder, llm, nil, parents, retry)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := answercache.New(redisStore.NewTestStore(client), time.Hour)

	conversations := store.InitConversationStore()

	return &testEnv{
		service:       rag.NewService(engine, standard, llm, embedder, parents, cache, conversations),
		engine:        engine,
		cache:         cache,
		conversations: conversations,
		index:         index,
	}
}

func queryJob(chatId, question string, engine commonModels.QueryEngine) jobModel.Job {
	return jobModel.Job{
		Id:      "test-job",
		ChatId:  chatId,
		JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{
			Question:        question,
			Engine:          engine,
			Role:            "admin",
			PermittedGroups: []string{security.AllGroupsSentinel},
		},
	}
}

func testCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func TestProcessRequest_StandardFlow(t *testing.T) {
	env := newTestEnv(t, &MockLLM{})

	result := env.service.ProcessRequest(testCtx(), queryJob("chat-1", "What did the audit find?", commonModels.EngineStandard))

	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %v, want complete", result.Status)
	}
	if result.JobPayload.Answer != "final answer" {
		t.Errorf("Answer = %q, want the generated answer", result.JobPayload.Answer)
	}
	if result.JobPayload.FromCache {
		t.Error("First request must not come from cache")
	}

	history, _ := env.conversations.History(testCtx(), "chat-1")
	if len(history) != 1 || history[0].Answer != "final answer" {
		t.Errorf("Expected one appended turn, got %v", history)
	}
}

func TestProcessRequest_CacheHit(t *testing.T) {
	env := newTestEnv(t, &MockLLM{
		OnGenerate: func(ctx context.Context, system, prompt string) (string, error) {
			t.Error("Cache hit must not reach the LLM")
			return "", errors.New("should not be called")
		},
	})
	groups := security.GroupSet{security.AllGroupsSentinel}

	env.cache.Set(testCtx(), "What did the audit find?", groups, answercache.Entry{
		Answer:  "cached answer",
		Sources: []commonModels.SourceRef{{Source: "audit.pdf"}},
	})

	result := env.service.ProcessRequest(testCtx(), queryJob("chat-1", "What did the audit find?", commonModels.EngineStandard))

	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %v, want complete", result.Status)
	}
	if !result.JobPayload.FromCache {
		t.Error("Expected FromCache flag")
	}
	if result.JobPayload.Answer != "cached answer" {
		t.Errorf("Answer = %q, want the cached one", result.JobPayload.Answer)
	}
	if len(result.JobPayload.Sources) != 1 {
		t.Errorf("Cached sources should be returned, got %v", result.JobPayload.Sources)
	}
}

func TestProcessRequest_RouterSentinel(t *testing.T) {
	env := newTestEnv(t, &MockLLM{})

	result := env.service.ProcessRequest(testCtx(), queryJob("", "Which policy applies?", commonModels.EngineRouter))

	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Status = %v, want complete", result.Status)
	}
	if result.JobPayload.Answer != multiindex.SentinelAnswer {
		t.Errorf("Answer = %q, want sentinel before indexes are ready", result.JobPayload.Answer)
	}
}

func TestProcessRequest_LLMFailure(t *testing.T) {
	env := newTestEnv(t, &MockLLM{
		OnGenerate: func(ctx context.Context, system, prompt string) (string, error) {
			return "", errors.New("provider down")
		},
	})

	result := env.service.ProcessRequest(testCtx(), queryJob("", "question", commonModels.EngineStandard))

	if result.Status != jobModel.JobStatusError {
		t.Fatalf("Status = %v, want error", result.Status)
	}
	if result.Error.Code != http.StatusInternalServerError {
		t.Errorf("Error code = %d, want 500", result.Error.Code)
	}
}

func TestProcessRequest_UnknownEngineNormalized(t *testing.T) {
	env := newTestEnv(t, &MockLLM{})

	result := env.service.ProcessRequest(testCtx(), queryJob("", "question", "quantum"))

	if result.JobPayload.Engine != commonModels.EngineStandard {
		t.Errorf("Engine = %q, want normalization to standard", result.JobPayload.Engine)
	}
	if result.Status != jobModel.JobStatusComplete {
		t.Errorf("Status = %v, want complete", result.Status)
	}
}

func TestProcessRequestStream_TokensAndHistory(t *testing.T) {
	env := newTestEnv(t, &MockLLM{})

	result, tokens, err := env.service.ProcessRequestStream(testCtx(), queryJob("chat-s", "question", commonModels.EngineStandard))
	if err != nil {
		t.Fatalf("Stream setup failed: %v", err)
	}
	if result.Status == jobModel.JobStatusError {
		t.Fatalf("Unexpected error job: %+v", result.Error)
	}

	var full string
	for token := range tokens {
		full += token
	}
	if full != "final answer" {
		t.Errorf("Streamed %q, want the full answer", full)
	}

	// history append happens after the stream drains
	deadline := time.Now().Add(time.Second)
	for {
		history, _ := env.conversations.History(testCtx(), "chat-s")
		if len(history) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Turn was not appended after stream completion")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSearch_ReturnsSourceRefs(t *testing.T) {
	env := newTestEnv(t, &MockLLM{})

	// make the audit index hold something the fan-out view can see
	chunk := commonModels.Chunk{Id: "c1", Text: "finding text", Meta: commonModels.ChunkMeta{DocName: "audit.pdf", AccessGroup: "ALL"}}
	if err := env.engine.AddDocuments(testCtx(), commonModels.CategoryAudit, []commonModels.Chunk{chunk}, [][]float32{{0.1}}); err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}
	env.index.OnSearch = func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
		return []vectorDB.Hit{
			{Chunk: chunk, Score: 0.9},
			{Chunk: commonModels.Chunk{Id: "c2", Text: "other", Meta: commonModels.ChunkMeta{DocName: "other.pdf"}}, Score: 0.5},
		}, nil
	}

	results := env.service.Search(testCtx(), "findings", security.GroupSet{security.AllGroupsSentinel}, 1)

	if len(results) != 1 {
		t.Fatalf("Expected topK to cap results at 1, got %d", len(results))
	}
	if results[0].Source != "audit.pdf" {
		t.Errorf("Source = %q, want audit.pdf", results[0].Source)
	}
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t, &MockLLM{})

	job := jobModel.Job{
		Id:      "del-job",
		JobType: jobModel.JobTypeDelete,
		JobPayload: jobModel.JobPayload{
			DeleteDocumentId: "doc-1",
		},
	}

	result := env.service.DeleteDocument(testCtx(), job)
	if result.Status != jobModel.JobStatusComplete {
		t.Errorf("Status = %v, want complete", result.Status)
	}
}
