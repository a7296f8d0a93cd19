// Package prompt formats the instruction sent to the language model.
package prompt

import (
	"strings"
)

// NoContext replaces the context block when retrieval found nothing.
const NoContext = "No relevant context found"

const systemFraming = "You are an AI model that reads and answers questions based on finance articles."

// Build joins the retrieved chunks into a context block and wraps it with
// the fixed framing and the verbatim question.
func Build(query string, chunks []string) string {
	context := NoContext
	if len(chunks) > 0 {
		context = strings.Join(chunks, "\n")
	}

	var b strings.Builder
	b.WriteString(systemFraming)
	b.WriteString("\n\nContext:\n")
	b.WriteString(context)
	b.WriteString("\n\nUser's Question: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}
