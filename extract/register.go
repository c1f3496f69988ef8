package extract

import (
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/ingestion"
)

// NewRegistry returns a parser registry with the local parsers registered
// for text, markdown, pdf and ppt resources.
func NewRegistry() *ingestion.ParserRegistry {
	registry := ingestion.NewParserRegistry()
	// Types are distinct, so Register cannot fail here.
	_ = registry.Register(core.ResourceTypeText, TextParser{})
	_ = registry.Register(core.ResourceTypeMarkdown, MarkdownParser{})
	_ = registry.Register(core.ResourceTypePDF, PDFParser{})
	_ = registry.Register(core.ResourceTypePPT, PPTXParser{})
	return registry
}
