// Package neurips turns OpenReview notes for a NeurIPS conference into a
// table of accepted papers with review score statistics.
//
// The Driver pages through submissions, fetches each decision and, for
// accepted papers, the official reviews. Every fetch goes through a
// NotesFunc, which in production is the memoized client call so that an
// interrupted run resumes without re-fetching. Results are folded into a
// Tally one submission at a time with Step.
package neurips
