package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
)

var slidePathPattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX reads slide text straight out of the pptx zip container. One
// section per slide, carrying its slide number.
func extractPPTX(path string) ([]commonModels.Section, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		logger.Error("failed opening of pptx file")
		return nil, fmt.Errorf("failed to open pptx: %w", err)
	}
	defer reader.Close()

	type slideFile struct {
		number int
		file   *zip.File
	}
	var slides []slideFile
	for _, f := range reader.File {
		m := slidePathPattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		slides = append(slides, slideFile{number: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })
	logger.Debug("extractPPTX", "number of slides", len(slides))

	var sections []commonModels.Section
	for _, s := range slides {
		text, err := slideText(s.file)
		if err != nil {
			// keep going with the remaining slides
			logger.Error("Error parsing slide content", "slide", s.number, "Error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		sections = append(sections, commonModels.Section{
			Text:        text,
			SlideNumber: s.number,
		})
	}
	return sections, nil
}

// slideText walks the slide XML and collects the character data of the
// DrawingML text runs (a:t elements), one line per a:p paragraph.
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var b strings.Builder
	decoder := xml.NewDecoder(rc)
	inTextRun := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inTextRun = false
			} else if t.Name.Local == "p" && b.Len() > 0 {
				b.WriteString("\n")
			}
		case xml.CharData:
			if inTextRun {
				b.Write(t)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
