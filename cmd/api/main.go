// @title           Audit RAG API
// @version         1.0
// @description     Natural-language question answering over audit, policy and financial documents with access-group filtering.
// @termsOfService  http://swagger.io/terms/

// @contact.name    me lol
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/data/redisStore"
	"github.com/akolanti/AuditRAG/internal/data/store"
	jobmodel "github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/handlers"
	"github.com/akolanti/AuditRAG/internal/job"
	"github.com/akolanti/AuditRAG/internal/mcpserver"
	"github.com/akolanti/AuditRAG/internal/rag"
	"github.com/akolanti/AuditRAG/internal/rag/answercache"
	"github.com/akolanti/AuditRAG/internal/rag/embedding"
	"github.com/akolanti/AuditRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/AuditRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
	"github.com/akolanti/AuditRAG/internal/rag/llm/gemini"
	"github.com/akolanti/AuditRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/AuditRAG/internal/rag/multiindex"
	"github.com/akolanti/AuditRAG/internal/rag/parentstore"
	"github.com/akolanti/AuditRAG/internal/rag/rerank/cohere"
	"github.com/akolanti/AuditRAG/internal/rag/retrypolicy"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/AuditRAG/internal/server"
	"github.com/akolanti/AuditRAG/internal/worker"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

var (
	listenAddr        string
	mcpAddr           string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.StringVar(&mcpAddr, "mcp-addr", config.MCPListenAddr, "mcp server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and stores - redis when it answers, in-memory otherwise
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          jobStore(serviceContext, logger),
		ConversationStore: conversationStore(serviceContext, logger),
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	vectorDB := qdrantDB.GetQdrantClient(serviceContext)
	llmProvider, embeddingService := modelProviders(serviceContext, logger)

	if vectorDB == nil || embeddingService == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}

	parents := parentstore.New(parentstore.SplitConfig{
		ParentSize:    config.ParentChunkSize,
		ParentOverlap: config.ParentChunkOverlap,
		ChildSize:     config.ChildChunkSize,
		ChildOverlap:  config.ChildChunkOverlap,
	})
	retry := retrypolicy.New(config.RetryMaxAttempts, config.RetryBaseDelay, config.RetryMaxDelay)
	reranker := cohere.NewFromEnv()
	if reranker == nil {
		logger.Warn("COHERE_API_KEY not set - re-ranking disabled, keeping retrieval order")
	}

	engine, err := multiindex.NewEngine(serviceContext, vectorDB, embeddingService, llmProvider, reranker, parents, retry, multiindex.NewLLMSelector(llmProvider))
	if err != nil {
		logger.Error("Could not initialize category indexes", "error", err)
		return
	}
	standard := engine.StandardRetriever(embeddingService, llmProvider, reranker, parents, retry)

	cache := answercache.New(redisStore.GetRedisStore(serviceContext, config.RedisAnswerCache), config.AnswerCacheTTL)

	ragService := rag.NewService(engine, standard, llmProvider, embeddingService, parents, cache, serviceConfig.ConversationStore)

	handlers.InitJobHandler(service, ragService)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//mcp surface for agent runtimes
	mcpServer := mcpserver.NewServer(ragService)
	go func() {
		if err := mcpServer.RunHTTP(serviceContext, mcpAddr); err != nil {
			logger.Error("MCP server stopped", "error", err)
		}
	}()

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}

func jobStore(ctx context.Context, logger *logger_i.Logger) jobmodel.JobStore {
	if redisStore.GetRedisStore(ctx, config.RedisJobStore) == nil {
		logger.Error("Redis job store is offline, using in-memory store")
		return store.InitInMemoryJobStore()
	}
	return store.GetRedisJobStore(ctx)
}

func conversationStore(ctx context.Context, logger *logger_i.Logger) jobmodel.ConversationStore {
	if redisStore.GetRedisStore(ctx, config.RedisConversationStore) == nil {
		logger.Error("Redis conversation store is offline, using in-memory store")
		return store.InitConversationStore()
	}
	return store.GetRedisConversationStore(ctx)
}

// modelProviders picks the chat + embedding stack from LLM_PROVIDER
// (openai by default, gemini as the alternative).
func modelProviders(ctx context.Context, logger *logger_i.Logger) (llm.Provider, embedding.Embedder) {
	if os.Getenv("LLM_PROVIDER") == "gemini" {
		logger.Info("Using Gemini models")
		return gemini.GetGeminiClient(ctx, config.GeminiModelName),
			googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel)
	}
	logger.Info("Using OpenAI models")
	return openaiLLM.GetOpenAIClient(ctx, config.OpenAIModelName),
		openaiEmbedding.GetOpenAIEmbeddingClient(ctx, config.OpenAIEmbeddingModel)
}
