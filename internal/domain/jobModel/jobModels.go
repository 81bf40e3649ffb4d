package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit InternalStatus = "Init"
	CacheCall     InternalStatus = "CacheCall"
	RetrievalCall InternalStatus = "Retrieval"
	LLMCall       InternalStatus = "LLM"
	RouterCall    InternalStatus = "Router"
	RedisCall     InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	DeleteProcessing InternalStatus = "DeleteProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
	JobTypeDelete JobType = "Delete"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Question  string                    `json:"question,omitempty"`
	Answer    string                    `json:"answer,omitempty"`
	Sources   []commonModels.SourceRef  `json:"sources,omitempty"`
	Engine    commonModels.QueryEngine  `json:"engine,omitempty"`
	FromCache bool                      `json:"from_cache,omitempty"`

	//identity resolved once at the request boundary, never widened later
	Role            string   `json:"role,omitempty"`
	PermittedGroups []string `json:"permitted_groups,omitempty"`

	IngestFileName string                `json:"ingest_file_name,omitempty"`
	IngestURL      string                `json:"ingest_url,omitempty"`
	Category       commonModels.Category `json:"category,omitempty"`
	AccessGroup    string                `json:"access_group,omitempty"`

	DeleteDocumentId string `json:"delete_document_id,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// Turn is one question/answer exchange in a conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type ConversationStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	InitNewChat(ctx context.Context, id string) error
	AppendTurn(ctx context.Context, id string, turn Turn) error
	//History returns at most the configured window of turns, oldest first.
	History(ctx context.Context, id string) ([]Turn, error)
}
