package commonModels

import "time"

type Document struct {
	Id                  string    `json:"source_doc_id"`
	Name                string    `json:"doc_name"`
	Category            Category  `json:"category"`
	AccessGroup         string    `json:"access_group"`
	ContentType         DocType   `json:"content_type"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
}

// Chunk is one contiguous span of document text. The same type carries both
// granularities: children (small, indexed for search) hold the ParentId of the
// large parent span they were cut from.
type Chunk struct {
	Id   string    `json:"chunk_id"`
	Text string    `json:"content"`
	Meta ChunkMeta `json:"metadata"`
}

type ChunkMeta struct {
	SourceDocId string    `json:"source_doc_id"`
	DocName     string    `json:"doc_name"`
	FileType    DocType   `json:"file_type"`
	Category    Category  `json:"category"`
	AccessGroup string    `json:"access_group"`
	ParentId    string    `json:"parent_id,omitempty"`
	Page        int       `json:"page,omitempty"`
	SheetName   string    `json:"sheet_name,omitempty"`
	SlideNumber int       `json:"slide_number,omitempty"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Section is one extracted unit of source text (a page, sheet or slide)
// before chunking.
type Section struct {
	Text        string `json:"text"`
	Page        int    `json:"page,omitempty"`
	SheetName   string `json:"sheet_name,omitempty"`
	SlideNumber int    `json:"slide_number,omitempty"`
}

// SourceRef is the citation form of a chunk that goes back to the caller.
type SourceRef struct {
	Content  string  `json:"content"`
	Source   string  `json:"source"`
	FileType DocType `json:"file_type"`
	Page     int     `json:"page,omitempty"`
	Score    float32 `json:"relevance_score,omitempty"`
}

const sourcePreviewLen = 300

func ToSourceRef(c Chunk, score float32) SourceRef {
	content := c.Text
	if len(content) > sourcePreviewLen {
		content = content[:sourcePreviewLen] + "..."
	}
	return SourceRef{
		Content:  content,
		Source:   c.Meta.DocName,
		FileType: c.Meta.FileType,
		Page:     c.Meta.Page,
		Score:    score,
	}
}

type DocType string

var (
	PDF  DocType = "PDF"
	DOCX DocType = "DOCX"
	TXT  DocType = "TXT"
	PPTX DocType = "PPTX"
	XLSX DocType = "XLSX"
	ERR  DocType = "ERROR"
)

type Category string

const (
	CategoryAudit     Category = "audit"
	CategoryPolicy    Category = "policy"
	CategoryFinancial Category = "financial"
)

func Categories() []Category {
	return []Category{CategoryAudit, CategoryPolicy, CategoryFinancial}
}

func IsValidCategory(c Category) bool {
	switch c {
	case CategoryAudit, CategoryPolicy, CategoryFinancial:
		return true
	}
	return false
}

// QueryEngine selects how a question is answered.
type QueryEngine string

const (
	EngineStandard    QueryEngine = "standard"     //direct retrieval + generation
	EngineRouter      QueryEngine = "router"       //auto-pick one category index
	EngineSubQuestion QueryEngine = "sub_question" //decompose across categories
)

func NormalizeEngine(e QueryEngine) QueryEngine {
	switch e {
	case EngineRouter, EngineSubQuestion:
		return e
	}
	return EngineStandard
}
