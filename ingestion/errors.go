package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrAssemblerRequired is returned when an assembler is not provided.
	ErrAssemblerRequired = errors.New("assembler required")

	// ErrValidatorRequired is returned when a chunk validator is not provided.
	ErrValidatorRequired = errors.New("chunk validator required")

	// ErrVideoNotConfigured is returned when a video resource is processed
	// without a media fetcher, audio converter and transcriber.
	ErrVideoNotConfigured = errors.New("video processing is not configured")

	// ErrNoParser is returned when no document parser handles a resource type.
	ErrNoParser = errors.New("no document parser for resource type")

	// ErrDuplicateParser is returned when a resource type is registered twice.
	ErrDuplicateParser = errors.New("document parser already registered")
)
