package search

import (
	"github.com/poiesic/syllabus/core"
	"github.com/poiesic/syllabus/vectorstore"
)

// SearchMonitor provides hooks to observe the search process.
type SearchMonitor interface {
	Start(courseID core.ID, query string)
	AfterEmbedding(dimension int)
	AfterVectorQuery(hits []vectorstore.Hit)
	SkippedHit(hit vectorstore.Hit)
	Finish(results []Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.ID, _ string)            {}
func (n *noopMonitor) AfterEmbedding(_ int)                 {}
func (n *noopMonitor) AfterVectorQuery(_ []vectorstore.Hit) {}
func (n *noopMonitor) SkippedHit(_ vectorstore.Hit)         {}
func (n *noopMonitor) Finish(_ []Result)                    {}
