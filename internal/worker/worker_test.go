package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/job"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

// MockRagService to track if jobs are executed
type MockRagService struct {
	ProcessedCount int32
	IngestedCount  int32
	DeletedCount   int32
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	return j
}

func (m *MockRagService) ProcessRequestStream(ctx context.Context, j jobModel.Job) (jobModel.Job, <-chan string, error) {
	out := make(chan string)
	close(out)
	return j, out, nil
}

func (m *MockRagService) Search(ctx context.Context, question string, groups security.GroupSet, topK int) []commonModels.SourceRef {
	return nil
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.IngestedCount, 1)
	return j
}

func (m *MockRagService) DeleteDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.DeletedCount, 1)
	return j
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
	saved     sync.Map
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	if v, ok := m.saved.Load(jobId); ok {
		return v.(jobModel.Job), true
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {
	m.saved.Delete(jobID)
}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.saved.Store(j.Id, j)
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

type MockConversationStore struct{}

func (m *MockConversationStore) ValidateChatId(ctx context.Context, id string) bool { return true }
func (m *MockConversationStore) InitNewChat(ctx context.Context, id string) error   { return nil }
func (m *MockConversationStore) AppendTurn(ctx context.Context, id string, turn jobModel.Turn) error {
	return nil
}
func (m *MockConversationStore) History(ctx context.Context, id string) ([]jobModel.Turn, error) {
	return nil, nil
}

func TestWorkerPool_Flow(t *testing.T) {
	jobStore := &MockJobStore{}
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobStore,
		ConversationStore: &MockConversationStore{},
	}
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true

		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes a query job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeQuery}

		time.Sleep(50 * time.Millisecond)

		if processed := atomic.LoadInt32(&mockRag.ProcessedCount); processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
		saved, found := jobStore.GetJob(context.Background(), "test-1")
		if !found || saved.Status != jobModel.JobStatusComplete {
			t.Errorf("Expected job marked complete in store, got %+v found=%v", saved, found)
		}
	})

	t.Run("Worker routes ingest and delete jobs", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "ing-1", JobType: jobModel.JobTypeIngest}
		jobSvc.JobChannel <- jobModel.Job{Id: "del-1", JobType: jobModel.JobTypeDelete}

		time.Sleep(50 * time.Millisecond)

		if ingested := atomic.LoadInt32(&mockRag.IngestedCount); ingested != 1 {
			t.Errorf("Expected 1 ingest, got %d", ingested)
		}
		if deleted := atomic.LoadInt32(&mockRag.DeletedCount); deleted != 1 {
			t.Errorf("Expected 1 delete, got %d", deleted)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	// Temporarily override config/globals for test
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 2) // Must be > 1 based on retirement logic
	logger = logger_i.NewLogger("TestWorkerPool")
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	createWorker()
	time.Sleep(config.IdleWorkerTimeout)

	time.Sleep(100 * time.Millisecond)
	count := atomic.LoadInt64(&currentWorkerCount)
	if count != 0 {
		t.Errorf("Worker should have timed out and retired, but count is %d", count)
	}
}
