package neurips

import (
	"context"
	"errors"
	"fmt"

	"github.com/JasonGross/openreview-exploration/openreview"
)

// DefaultPageSize matches the API's maximum page size.
const DefaultPageSize = 1000

// ErrNoNotesFunc indicates a Driver without a NotesFunc.
var ErrNoNotesFunc = errors.New("neurips: driver has no notes function")

// NotesFunc fetches one page of notes.
type NotesFunc func(ctx context.Context, q openreview.NotesQuery) ([]openreview.Note, error)

// Iterate pages through every note matching q, calling fn for each. Pages
// are requested with limit pageSize at increasing offsets until a page
// comes back short. q.Limit and q.Offset are overwritten.
func Iterate(ctx context.Context, notes NotesFunc, q openreview.NotesQuery, pageSize int, fn func(openreview.Note) error) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	q.Limit = pageSize
	for offset := 0; ; {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.Offset = offset
		page, err := notes(ctx, q)
		if err != nil {
			return err
		}
		for _, n := range page {
			if err := fn(n); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		offset += len(page)
	}
}

// Collect returns every note matching q.
func Collect(ctx context.Context, notes NotesFunc, q openreview.NotesQuery, pageSize int) ([]openreview.Note, error) {
	var out []openreview.Note
	err := Iterate(ctx, notes, q, pageSize, func(n openreview.Note) error {
		out = append(out, n)
		return nil
	})
	return out, err
}

// Driver collects accepted papers of one venue.
type Driver struct {
	Notes    NotesFunc
	Venue    Venue
	PageSize int

	// Progress, if set, is called after every submission.
	Progress ProgressFunc
}

// Submissions returns every submission of the venue.
func (d *Driver) Submissions(ctx context.Context) ([]openreview.Note, error) {
	subs, err := Collect(ctx, d.Notes, openreview.NotesQuery{Invitation: d.Venue.Submission()}, d.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// Observe fetches the decision for sub and, if it is an acceptance, its
// reviews.
func (d *Driver) Observe(ctx context.Context, sub openreview.Note) (Observation, error) {
	obs := Observation{Submission: sub}

	decisions, err := d.Notes(ctx, openreview.NotesQuery{
		Invitation: d.Venue.Decision(sub.Number),
		Limit:      1,
	})
	if err != nil {
		return obs, fmt.Errorf("submission %d: decision: %w", sub.Number, err)
	}
	if len(decisions) > 0 {
		obs.Decision = decisions[0].Text("decision", "")
	}
	if !Accepted(obs.Decision) {
		return obs, nil
	}

	obs.Reviews, err = Collect(ctx, d.Notes, openreview.NotesQuery{
		Invitation: d.Venue.OfficialReview(sub.Number),
	}, d.PageSize)
	if err != nil {
		return obs, fmt.Errorf("submission %d: reviews: %w", sub.Number, err)
	}
	return obs, nil
}

// Run processes every submission in order and returns the final tally.
// On error the tally so far is returned alongside it.
func (d *Driver) Run(ctx context.Context) (Tally, error) {
	var tally Tally
	if d.Notes == nil {
		return tally, ErrNoNotesFunc
	}

	subs, err := d.Submissions(ctx)
	if err != nil {
		return tally, err
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return tally, err
		}
		obs, err := d.Observe(ctx, sub)
		if err != nil {
			return tally, err
		}
		tally = Step(tally, obs)

		if d.Progress != nil {
			d.Progress(Report{
				Seen:      tally.Seen,
				Total:     len(subs),
				Found:     tally.Found,
				Oral:      tally.Oral,
				Spotlight: tally.Spotlight,
				Number:    sub.Number,
			})
		}
	}
	return tally, nil
}
