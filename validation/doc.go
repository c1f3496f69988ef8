// Package validation checks persisted chunks against the ready-to-embed
// contract before ingestion is allowed to report success.
//
// The per-field contract is expressed as validator struct tags on a flat
// view of the chunk; validator failures are translated into the short
// human-readable messages stored on failed resources.
package validation
