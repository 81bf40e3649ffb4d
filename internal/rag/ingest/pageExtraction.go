package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

func extractPDF(path string) ([]commonModels.Section, error) {
	logger.Debug("extractPDF", "attempting extraction", path)
	f, err := pdf.Open(path)
	if err != nil {
		logger.Error("failed opening of pdf file")
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var sections []commonModels.Section
	numPages := f.NumPage()
	logger.Debug("extractPDF", "number of pages", numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// keep going with the remaining pages
			logger.Error("Error parsing page content", "page", i, "Error", err)
			continue
		}

		sections = append(sections, commonModels.Section{
			Text: content,
			Page: i,
		})
	}
	return sections, nil
}

// extractDocxTxtRtf reads a .odt, .docx, .rtf or plaintext file. These
// formats carry no page structure, so the whole document is one section.
func extractDocxTxtRtf(path string) ([]commonModels.Section, error) {
	text, err := cat.File(path)
	if err != nil {
		logger.Error("Error extracting content from doc")
		return nil, fmt.Errorf("failed to extract docx: %w", err)
	}

	return []commonModels.Section{
		{
			Text: text,
			Page: 1,
		},
	}, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(time.Second * 10):
		logger.Error("pageExtract", "timeout")
		return "", errors.New("timeout")
	}
}
