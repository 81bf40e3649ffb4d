package rag

import (
	"fmt"
	"strings"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
)

// buildPrompt renders the user-side prompt: prior turns oldest first, then
// context blocks labelled by source document, then the question. The system
// instructions travel separately as the provider's system message.
func buildPrompt(history []jobModel.Turn, contextChunks []commonModels.Chunk, question string) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Question, turn.Answer)
		}
		b.WriteString("\n")
	}

	if len(contextChunks) == 0 {
		b.WriteString("No relevant documents were found for this question. Say so and do not invent an answer.\n\n")
	} else {
		b.WriteString("Context from the document corpus:\n\n")
		for _, c := range contextChunks {
			b.WriteString(sourceLabel(c))
			b.WriteString("\n")
			b.WriteString(c.Text)
			b.WriteString("\n\n")
		}
	}

	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

func sourceLabel(c commonModels.Chunk) string {
	label := "[Source: " + c.Meta.DocName
	switch {
	case c.Meta.Page > 0:
		label += fmt.Sprintf(", page %d", c.Meta.Page)
	case c.Meta.SheetName != "":
		label += ", sheet " + c.Meta.SheetName
	case c.Meta.SlideNumber > 0:
		label += fmt.Sprintf(", slide %d", c.Meta.SlideNumber)
	}
	return label + "]"
}
