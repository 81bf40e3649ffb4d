package parentstore

import (
	"sync"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/splitter"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
	"github.com/google/uuid"
)

// SplitConfig holds the two chunk granularities: large parents for LLM
// context, small children for precise vector search.
type SplitConfig struct {
	ParentSize    int
	ParentOverlap int
	ChildSize     int
	ChildOverlap  int
}

// Store owns the parent_id -> parent chunk mapping. Children live in the
// vector index and point back here via Meta.ParentId. Nobody else holds
// long-lived references to parent content - callers get value copies.
type Store struct {
	mu         sync.RWMutex
	parents    map[string]commonModels.Chunk
	byDocument map[string][]string
	cfg        SplitConfig
	logger     *logger_i.Logger
}

func New(cfg SplitConfig) *Store {
	return &Store{
		parents:    make(map[string]commonModels.Chunk),
		byDocument: make(map[string][]string),
		cfg:        cfg,
		logger:     logger_i.NewLogger("ParentStore"),
	}
}

// Ingest splits a document's sections into parent and child chunks, records
// the parents and returns both sets. Children carry their parent id; each
// child's text is a substring of exactly one parent's text because children
// are re-split from the parent span itself.
//
// Re-ingesting a document replaces its parents in one locked swap, so
// concurrent readers see either the old or the new set, never a mix.
func (s *Store) Ingest(doc commonModels.Document, sections []commonModels.Section) (children []commonModels.Chunk, parents []commonModels.Chunk) {
	for _, section := range sections {
		for _, parentText := range splitter.Split(section.Text, s.cfg.ParentSize, s.cfg.ParentOverlap) {
			parentId := uuid.New().String()
			parent := commonModels.Chunk{
				Id:   parentId,
				Text: parentText,
				Meta: chunkMeta(doc, section, ""),
			}
			parents = append(parents, parent)

			for _, childText := range splitter.Split(parentText, s.cfg.ChildSize, s.cfg.ChildOverlap) {
				children = append(children, commonModels.Chunk{
					Id:   uuid.New().String(),
					Text: childText,
					Meta: chunkMeta(doc, section, parentId),
				})
			}
		}
	}

	ids := make([]string, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, p.Id)
	}

	s.mu.Lock()
	s.removeLocked(doc.Id)
	for _, p := range parents {
		s.parents[p.Id] = p
	}
	s.byDocument[doc.Id] = ids
	s.mu.Unlock()

	s.logger.Info("Split document", "docId", doc.Id, "parents", len(parents), "children", len(children))
	return children, parents
}

// ResolveParents maps retrieved children to their parents, de-duplicated and
// in order of first occurrence (which tracks relevance order from search).
// A child whose parent is gone is a data-integrity warning, not an error.
func (s *Store) ResolveParents(children []commonModels.Chunk) []commonModels.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(children))
	var parents []commonModels.Chunk
	for _, child := range children {
		parentId := child.Meta.ParentId
		if parentId == "" {
			continue
		}
		if _, ok := seen[parentId]; ok {
			continue
		}
		seen[parentId] = struct{}{}
		parent, ok := s.parents[parentId]
		if !ok {
			s.logger.Warn("Child references missing parent", "childId", child.Id, "parentId", parentId)
			continue
		}
		parents = append(parents, parent)
	}
	return parents
}

// RemoveDocument deletes every parent belonging to the document. Stale
// children still sitting in the vector index resolve to nothing afterwards.
func (s *Store) RemoveDocument(documentId string) {
	s.mu.Lock()
	removed := s.removeLocked(documentId)
	s.mu.Unlock()
	s.logger.Info("Removed document parents", "docId", documentId, "count", removed)
}

func (s *Store) removeLocked(documentId string) int {
	ids := s.byDocument[documentId]
	for _, id := range ids {
		delete(s.parents, id)
	}
	delete(s.byDocument, documentId)
	return len(ids)
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parents)
}

func chunkMeta(doc commonModels.Document, section commonModels.Section, parentId string) commonModels.ChunkMeta {
	return commonModels.ChunkMeta{
		SourceDocId: doc.Id,
		DocName:     doc.Name,
		FileType:    doc.ContentType,
		Category:    doc.Category,
		AccessGroup: doc.AccessGroup,
		ParentId:    parentId,
		Page:        section.Page,
		SheetName:   section.SheetName,
		SlideNumber: section.SlideNumber,
		IngestedAt:  doc.LastIngestTimestamp,
	}
}
