package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/embedding"
	"github.com/akolanti/AuditRAG/internal/rag/multiindex"
)

func getDocType(docPath string) commonModels.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return commonModels.PDF
	case ".docx", ".rtf", ".odt":
		return commonModels.DOCX
	case ".pptx":
		return commonModels.PPTX
	case ".txt":
		return commonModels.TXT
	default:
		return commonModels.ERR
	}
}

func extractText(path string, contentType commonModels.DocType) ([]commonModels.Section, error) {
	switch contentType {
	case commonModels.PDF:
		return extractPDF(path)
	case commonModels.DOCX, commonModels.TXT:
		return extractDocxTxtRtf(path)
	case commonModels.PPTX:
		return extractPPTX(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

// BatchIngest embeds child chunks in batches and adds them to the category's
// index through the multi-index engine.
func BatchIngest(ctx context.Context, children []commonModels.Chunk, category commonModels.Category, engine *multiindex.Engine, embedder embedding.Embedder) error {
	batchSize := 100

	for i := 0; i < len(children); i += batchSize {
		end := i + batchSize
		if end > len(children) {
			end = len(children)
		}
		currentBatch := children[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Text
		}

		logger.Debug("Starting embedding call", "current batch length ", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}

		if err := engine.AddDocuments(ctx, category, currentBatch, vectors); err != nil {
			return fmt.Errorf("adding batch to %s index failed: %w", category, err)
		}
	}
	return nil
}
