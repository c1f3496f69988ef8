// Package embedding turns the assembled chunks of a course into vectors.
//
// The Pipeline walks a course's chunks in (section, order, id) order, embeds
// them in fixed-size batches with a bounded fixed-delay retry, upserts each
// batch into the course's vector collection and persists progress on the
// course after every batch. Provider failures that outlast the retry budget
// and any vector store failure end the job with the course marked failed.
package embedding
