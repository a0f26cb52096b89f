package neurips

import "github.com/JasonGross/openreview-exploration/openreview"

// DefaultTitle stands in for a submission without a title.
const DefaultTitle = "N/A"

// Row is one accepted paper in the output table.
type Row struct {
	Title   string
	Authors []string
	Scores  *Summary // nil when no review carried a rating
	Tier    Tier
	Number  int
	ID      string
}

// Observation is everything fetched for one submission. Reviews are only
// fetched for accepted papers.
type Observation struct {
	Submission openreview.Note
	Decision   string
	Reviews    []openreview.Note
}

// Evaluate classifies obs and builds its row. ok is false when the paper
// was not accepted.
func Evaluate(obs Observation) (row Row, ok bool) {
	tier, ok := Classify(obs.Decision)
	if !ok {
		return Row{}, false
	}
	sub := obs.Submission
	return Row{
		Title:   sub.Text("title", DefaultTitle),
		Authors: sub.Strings("authors"),
		Scores:  Summarize(Ratings(obs.Reviews)),
		Tier:    tier,
		Number:  sub.Number,
		ID:      sub.ID,
	}, true
}

// Tally accumulates the outcome of a run.
type Tally struct {
	Seen      int // submissions processed
	Found     int // accepted papers
	Oral      int
	Spotlight int
	Rows      []Row
}

// Step folds one observation into t and returns the new tally. Like
// append, Step may reuse t's row storage, so t must not be used after the
// call.
func Step(t Tally, obs Observation) Tally {
	t.Seen++
	row, ok := Evaluate(obs)
	if !ok {
		return t
	}
	t.Found++
	switch row.Tier {
	case Oral:
		t.Oral++
	case Spotlight:
		t.Spotlight++
	}
	t.Rows = append(t.Rows, row)
	return t
}

// Report is a progress snapshot taken after each submission.
type Report struct {
	Seen      int
	Total     int
	Found     int
	Oral      int
	Spotlight int
	Number    int // submission number just processed
}

// ProgressFunc receives a Report after each submission.
type ProgressFunc func(Report)
