package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"
	USER_KEY       = "requestUser"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//auth - overridden by AUTH_TOKEN env var, bypass is for local runs only
	NoAuthBypass = true
	AuthToken    = ""

	//chunking - children are indexed, parents go to the LLM
	ParentChunkSize    = 1500
	ParentChunkOverlap = 100
	ChildChunkSize     = 200
	ChildChunkOverlap  = 20

	//retrieval
	RetrievalTopK       = 20
	RerankTopN          = 5
	QueryExpansionCount = 3

	//retry policy for external calls during retrieval
	RetryMaxAttempts = 3
	RetryBaseDelay   = 500 * time.Millisecond
	RetryMaxDelay    = 4 * time.Second

	//embeddings
	EmbeddingOutputDimensionality int32 = 1536
	OpenAIEmbeddingModel                = "text-embedding-3-small"
	GoogleEmbeddingModel                = "gemini-embedding-001"

	//llm
	OpenAIModelName = "gpt-4o-mini"
	GeminiModelName = "gemini-2.5-flash-lite-preview-09-2025"

	SystemPrompt = "You are an expert audit intelligence assistant for a financial institution. " +
		"Answer questions based ONLY on the provided document context. " +
		"If the context does not contain enough information, say so clearly. " +
		"Always cite the specific document and section your answer comes from."

	//reranker - unconfigured key means the fallback path is always taken
	CohereRerankModel = "rerank-english-v3.0"
	CohereRerankURL   = "https://api.cohere.com/v2/rerank"

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"
	MCPListenAddr    = ":3001"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost             = ""
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1
	QdrantKeepAliveTimeout = 30 * time.Second

	//one qdrant collection per document category, picked by the router
	AuditCollection     = "audit_reports"
	PolicyCollection    = "policies"
	FinancialCollection = "financial_data"

	ModelTemperature float32 = 0.0
	MaxOutputTokens          = 2500

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore          = 0
	RedisConversationStore = 1
	RedisAnswerCache       = 2

	RedisJobStoreTTL          = 24 * time.Hour
	RedisConversationStoreTTL = 24 * time.Hour
	AnswerCacheTTL            = 1 * time.Hour

	//bounded conversation memory, older turns are discarded
	MaxHistoryTurns = 5
)
