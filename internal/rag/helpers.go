package rag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/metrics"
	"github.com/akolanti/AuditRAG/internal/rag/answercache"
	"github.com/akolanti/AuditRAG/internal/rag/multiindex"
	"github.com/akolanti/AuditRAG/internal/rag/retriever"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func errorFrom(job jobModel.Job) error {
	if job.Error.Message != "" {
		return errors.New(job.Error.Message)
	}
	return errors.New("job failed")
}

func sourceRefs(r retriever.Result) []commonModels.SourceRef {
	refs := make([]commonModels.SourceRef, 0, len(r.Hits))
	for _, h := range r.Hits {
		refs = append(refs, commonModels.ToSourceRef(h.Chunk, h.Score))
	}
	return refs
}

// replayChannel turns an already-complete answer into a single-token stream
// so cached and sentinel answers reuse the streaming transport.
func replayChannel(answer string) <-chan string {
	out := make(chan string, 1)
	out <- answer
	close(out)
	return out
}

func (s *service) executeHistoryStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) []jobModel.Turn {
	*job = logOutput(*job, jobModel.RedisCall, log)

	if job.ChatId == "" {
		return nil
	}
	history, err := s.conversations.History(ctx, job.ChatId)
	if err != nil {
		//a lost history narrows the prompt, it never fails the request
		log.Warn("Could not load conversation history", "error", err)
		return nil
	}
	return history
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, groups security.GroupSet) (answercache.Entry, bool) {
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	entry, found := s.cache.Get(ctx, job.JobPayload.Question, groups)
	if found {
		metrics.IncrementCacheHit()
	} else {
		metrics.IncrementCacheMiss()
	}
	return entry, found
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, question string, groups security.GroupSet) retriever.Result {
	*job = logOutput(*job, jobModel.RetrievalCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	return s.standard.Retrieve(ctx, question, s.retrievalOptions(groups))
}

func (s *service) executeRouterStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, question string, groups security.GroupSet) multiindex.RouterResult {
	*job = logOutput(*job, jobModel.RouterCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("router_query", time.Since(start)) }()

	return s.engine.RouterQuery(ctx, question, s.retrievalOptions(groups))
}

func (s *service) executeSubQuestionStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, question string, groups security.GroupSet) (multiindex.SubQuestionResult, error) {
	*job = logOutput(*job, jobModel.RouterCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("sub_question_query", time.Since(start)) }()

	return s.engine.SubQuestionQuery(ctx, question, s.retrievalOptions(groups))
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, history []jobModel.Turn, contextChunks []commonModels.Chunk) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, config.SystemPrompt, buildPrompt(history, contextChunks, job.JobPayload.Question))
}

func (s *service) appendTurn(ctx context.Context, log *logger_i.Logger, chatId string, question string, answer string) {
	if chatId == "" {
		return
	}
	if err := s.conversations.AppendTurn(ctx, chatId, jobModel.Turn{Question: question, Answer: answer}); err != nil {
		log.Warn("Could not append conversation turn", "error", err)
	}
}
