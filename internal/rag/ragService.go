package rag

import (
	"context"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/metrics"
	"github.com/akolanti/AuditRAG/internal/rag/answercache"
	"github.com/akolanti/AuditRAG/internal/rag/embedding"
	"github.com/akolanti/AuditRAG/internal/rag/ingest"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
	"github.com/akolanti/AuditRAG/internal/rag/multiindex"
	"github.com/akolanti/AuditRAG/internal/rag/parentstore"
	"github.com/akolanti/AuditRAG/internal/rag/retriever"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

// Service is the only surface the worker and the streaming handler see. The
// private struct below holds the actual clients so callers stay decoupled
// from the retrieval stack.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job
	ProcessRequestStream(ctx context.Context, job jobModel.Job) (jobModel.Job, <-chan string, error)
	Search(ctx context.Context, question string, groups security.GroupSet, topK int) []commonModels.SourceRef
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	DeleteDocument(ctx context.Context, job jobModel.Job) jobModel.Job
}

type service struct {
	engine        *multiindex.Engine
	standard      *retriever.Retriever
	llmProvider   llm.Provider
	embedder      embedding.Embedder
	parents       *parentstore.Store
	cache         *answercache.Cache
	conversations jobModel.ConversationStore
	logger        *logger_i.Logger
}

// NewService constructor
func NewService(engine *multiindex.Engine, standard *retriever.Retriever, llmProvider llm.Provider, embedder embedding.Embedder, parents *parentstore.Store, cache *answercache.Cache, conversations jobModel.ConversationStore) Service {
	return &service{
		engine:        engine,
		standard:      standard,
		llmProvider:   llmProvider,
		embedder:      embedder,
		parents:       parents,
		cache:         cache,
		conversations: conversations,
		logger:        logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) retrievalOptions(groups security.GroupSet) retriever.Options {
	return retriever.Options{
		UseQueryExpansion:  true,
		UseReranking:       true,
		UseParentExpansion: true,
		TopK:               config.RetrievalTopK,
		RerankTopN:         config.RerankTopN,
		Groups:             groups,
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	groups := security.GroupSet(jobt.JobPayload.PermittedGroups)
	question := jobt.JobPayload.Question
	engine := commonModels.NormalizeEngine(jobt.JobPayload.Engine)
	jobt.JobPayload.Engine = engine

	history := s.executeHistoryStep(processContext, inMethodLogger, &jobt)

	// Cache Check
	if cached, found := s.executeCacheCheckStep(processContext, inMethodLogger, &jobt, groups); found {
		jobt.JobPayload.Sources = cached.Sources
		jobt.JobPayload.FromCache = true
		s.appendTurn(processContext, inMethodLogger, jobt.ChatId, question, cached.Answer)
		return returnOutput(jobt, cached.Answer)
	}

	// Retrieval + Generation per engine
	var answer string
	switch engine {
	case commonModels.EngineRouter:
		routed := s.executeRouterStep(processContext, inMethodLogger, &jobt, question, groups)
		if routed.Sentinel {
			return returnOutput(jobt, multiindex.SentinelAnswer)
		}
		jobt.JobPayload.Sources = sourceRefs(routed.Retrieval)
		generated, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, history, routed.Retrieval.Context)
		if err != nil {
			return s.jobError(jobt, err, "LLM_GENERATION_FAILURE", true)
		}
		answer = generated

	case commonModels.EngineSubQuestion:
		result, err := s.executeSubQuestionStep(processContext, inMethodLogger, &jobt, question, groups)
		if err != nil {
			return s.jobError(jobt, err, "SUB_QUESTION_FAILURE", true)
		}
		if result.Sentinel {
			return returnOutput(jobt, multiindex.SentinelAnswer)
		}
		jobt.JobPayload.Sources = result.Sources
		answer = result.Answer

	default:
		result := s.executeRetrievalStep(processContext, inMethodLogger, &jobt, question, groups)
		jobt.JobPayload.Sources = sourceRefs(result)
		generated, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, history, result.Context)
		if err != nil {
			return s.jobError(jobt, err, "LLM_GENERATION_FAILURE", true)
		}
		answer = generated
	}

	s.appendTurn(processContext, inMethodLogger, jobt.ChatId, question, answer)

	//Background Cache Save
	entry := answercache.Entry{
		Answer:     answer,
		Sources:    jobt.JobPayload.Sources,
		EngineUsed: engine,
		ModelUsed:  s.llmProvider.ModelName(),
	}
	go s.cache.Set(context.WithoutCancel(ctx), question, groups, entry)

	return returnOutput(jobt, answer)
}

// ProcessRequestStream is the synchronous streaming path. It runs the same
// pipeline as ProcessRequest up to generation, then hands back a token
// channel; history append and the cache write happen once the stream drains.
// Sub-question decomposition does not stream, so that engine degrades to
// standard here.
func (s *service) ProcessRequestStream(ctx context.Context, jobt jobModel.Job) (jobModel.Job, <-chan string, error) {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "JobId", jobt.Id)

	groups := security.GroupSet(jobt.JobPayload.PermittedGroups)
	question := jobt.JobPayload.Question
	engine := commonModels.NormalizeEngine(jobt.JobPayload.Engine)
	if engine == commonModels.EngineSubQuestion {
		engine = commonModels.EngineStandard
	}
	jobt.JobPayload.Engine = engine

	history := s.executeHistoryStep(ctx, inMethodLogger, &jobt)

	if cached, found := s.executeCacheCheckStep(ctx, inMethodLogger, &jobt, groups); found {
		jobt.JobPayload.Sources = cached.Sources
		jobt.JobPayload.FromCache = true
		s.appendTurn(ctx, inMethodLogger, jobt.ChatId, question, cached.Answer)
		return returnOutput(jobt, cached.Answer), replayChannel(cached.Answer), nil
	}

	var result retriever.Result
	if engine == commonModels.EngineRouter {
		routed := s.executeRouterStep(ctx, inMethodLogger, &jobt, question, groups)
		if routed.Sentinel {
			return returnOutput(jobt, multiindex.SentinelAnswer), replayChannel(multiindex.SentinelAnswer), nil
		}
		result = routed.Retrieval
	} else {
		result = s.executeRetrievalStep(ctx, inMethodLogger, &jobt, question, groups)
	}
	jobt.JobPayload.Sources = sourceRefs(result)

	jobt = logOutput(jobt, jobModel.LLMCall, inMethodLogger)
	tokens, err := s.llmProvider.GenerateStream(ctx, config.SystemPrompt, buildPrompt(history, result.Context, question))
	if err != nil {
		return s.jobError(jobt, err, "LLM_STREAM_FAILURE", true), nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		var full string
		for token := range tokens {
			full += token
			select {
			case out <- token:
			case <-ctx.Done():
				return
			}
		}
		if full == "" {
			return
		}
		finishCtx := context.WithoutCancel(ctx)
		s.appendTurn(finishCtx, inMethodLogger, jobt.ChatId, question, full)
		s.cache.Set(finishCtx, question, groups, answercache.Entry{
			Answer:     full,
			Sources:    jobt.JobPayload.Sources,
			EngineUsed: engine,
			ModelUsed:  s.llmProvider.ModelName(),
		})
	}()

	jobt.CurrentStep = jobModel.Complete
	return jobt, out, nil
}

// Search runs retrieval without generation: access-filtered similarity
// search, re-rank, no parent expansion. Used by the MCP search tool.
func (s *service) Search(ctx context.Context, question string, groups security.GroupSet, topK int) []commonModels.SourceRef {
	opts := s.retrievalOptions(groups)
	opts.UseQueryExpansion = false
	opts.UseParentExpansion = false
	if topK > 0 {
		opts.RerankTopN = topK
	}
	return sourceRefs(s.standard.Retrieve(ctx, question, opts))
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	j := ingest.ProcessDocumentIngestion(ctx, job, s.embedder, s.parents, s.engine)
	if j.Status == jobModel.JobStatusError {
		return s.jobError(j, errorFrom(j), "INGESTION_FAILURE", true)
	}

	//any corpus change invalidates every cached answer
	s.cache.Clear(ctx)
	return j
}

func (s *service) DeleteDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "JobId", job.Id)
	job = logOutput(job, jobModel.DeleteProcessing, inMethodLogger)

	documentId := job.JobPayload.DeleteDocumentId
	if err := s.engine.RemoveDocument(ctx, documentId); err != nil {
		return s.jobError(job, err, "DELETE_FAILURE", true)
	}
	s.parents.RemoveDocument(documentId)
	s.cache.Clear(ctx)

	inMethodLogger.Info("Document removed", "documentId", documentId)
	return returnOutput(job, "deleted")
}
