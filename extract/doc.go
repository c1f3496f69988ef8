// Package extract provides local implementations of the ingestion adapters.
//
// TextParser and MarkdownParser read UTF-8 files directly. PDFParser,
// FFmpegConverter and FileFetcher shell out to or copy from the local
// system; slide decks and speech recognition have no local implementation
// and must be supplied by the caller.
package extract
