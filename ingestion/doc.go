// Package ingestion drives a single resource from extraction to assembly.
//
// The Dispatcher moves a queued resource to running, runs the video or
// document pipeline to turn it into content pieces, marks it succeeded and
// then asks the assembler to rebuild the course. When assembly ran, the
// validation gate must accept the new chunks; a rejection fails the resource
// that triggered the rebuild. Every error ends with the resource marked
// failed and its retry count incremented. Nothing is retried automatically.
//
// Media download, audio conversion, speech recognition and document parsing
// are collaborators behind the interfaces in adapters.go.
package ingestion
