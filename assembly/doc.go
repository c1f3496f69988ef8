// Package assembly rebuilds the sections and chunks of a course from its
// content pieces.
//
// Assembly is all-or-nothing per course: it only runs once every resource
// of the course has succeeded, and each run deletes the previous sections
// and chunks before regenerating them lecture by lecture. Sectioning and
// chunking share one greedy grouping rule with different character bounds;
// both are exposed as pure functions so they can be tested in isolation.
package assembly
