package ingest

import (
	"context"
	"os"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/metrics"
	"github.com/akolanti/AuditRAG/internal/rag/embedding"
	"github.com/akolanti/AuditRAG/internal/rag/multiindex"
	"github.com/akolanti/AuditRAG/internal/rag/parentstore"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Ingestion ")

func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, e embedding.Embedder, parents *parentstore.Store, engine *multiindex.Engine) jobModel.Job {
	logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL
	category := job.JobPayload.Category

	logger.Debug("Processing document", "filename", docName, "path", docPath, "category", category)
	job.CurrentStep = jobModel.IngestProcessing

	if !commonModels.IsValidCategory(category) {
		logger.Error("Unknown category", "category", category)
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Unknown document category"
		return job
	}

	docType := getDocType(docPath)
	if docType == commonModels.ERR {
		logger.Error("Unsupported document type", "path", docPath)
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Unsupported document type"
		return job
	}

	accessGroup := job.JobPayload.AccessGroup
	if accessGroup == "" {
		accessGroup = security.DefaultAccessGroup
	}

	doc := commonModels.Document{
		Id:                  job.Id,
		Name:                docName,
		Category:            category,
		AccessGroup:         accessGroup,
		ContentType:         docType,
		LastIngestTimestamp: time.Now(),
	}

	sections, err := extractText(docPath, doc.ContentType)
	if err != nil {
		logger.Error("Error processing document", "error", err)
		job.Status = jobModel.JobStatusError
		job.Error.Message = "Error extracting document content"
		return job
	}
	logger.Debug("Processing document", "sections", len(sections))

	children, parentChunks := parents.Ingest(doc, sections)
	logger.Debug("Processing document", "children", len(children), "parents", len(parentChunks))

	if err := BatchIngest(ctx, children, category, engine, e); err != nil {
		//neither the parent map nor the index may keep spans from a
		//half-finished ingest; earlier batches are already upserted
		parents.RemoveDocument(doc.Id)
		if rbErr := engine.RemoveDocument(ctx, doc.Id); rbErr != nil {
			logger.Error("Could not remove partial batches from index", "error", rbErr)
		}
		job.Status = jobModel.JobStatusError
		logger.Error("Error processing document", "error", err)
		return job
	}

	if err := os.Remove(docPath); err != nil {
		logger.Error("Error removing file", "error", err)
	}

	metrics.IncrementDocumentsIngested(string(category))
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}
