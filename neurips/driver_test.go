package neurips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/JasonGross/openreview-exploration/memo"
	"github.com/JasonGross/openreview-exploration/openreview"
)

// fakeAPI serves notes by invitation and honours limit and offset.
type fakeAPI struct {
	notes   map[string][]openreview.Note
	queries []openreview.NotesQuery
	failOn  string
}

func (f *fakeAPI) GetNotes(ctx context.Context, q openreview.NotesQuery) ([]openreview.Note, error) {
	f.queries = append(f.queries, q)
	if q.Invitation == f.failOn {
		return nil, errors.New("connection reset by peer")
	}
	all := f.notes[q.Invitation]
	start := min(q.Offset, len(all))
	end := len(all)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(all))
	}
	return all[start:end], nil
}

func mustNote(raw string) openreview.Note {
	var n openreview.Note
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		panic(err)
	}
	return n
}

// threeSubmissions is one oral paper rated 8 and 9, one rejected paper,
// and one poster without reviews.
func threeSubmissions(v Venue) *fakeAPI {
	return &fakeAPI{notes: map[string][]openreview.Note{
		v.Submission(): {
			mustNote(`{"id":"s1","number":1,"content":{"title":{"value":"Oral Paper"},"authors":{"value":["Ada Lovelace","Alan Turing"]}}}`),
			mustNote(`{"id":"s2","number":2,"content":{"title":{"value":"Rejected Paper"}}}`),
			mustNote(`{"id":"s3","number":3,"content":{"title":{"value":"Poster Paper"},"authors":{"value":["Grace Hopper"]}}}`),
		},
		v.Decision(1): {mustNote(`{"id":"d1","content":{"decision":{"value":"Accept (Oral)"}}}`)},
		v.Decision(2): {mustNote(`{"id":"d2","content":{"decision":{"value":"Reject"}}}`)},
		v.Decision(3): {mustNote(`{"id":"d3","content":{"decision":{"value":"Accept (Poster)"}}}`)},
		v.OfficialReview(1): {
			mustNote(`{"id":"r1","content":{"rating":{"value":"8: Strong Accept"}}}`),
			mustNote(`{"id":"r2","content":{"rating":{"value":"9: Very Strong Accept"}}}`),
		},
	}}
}

func TestDriver_Run_EndToEnd(t *testing.T) {
	v := NeurIPS(2023)
	api := threeSubmissions(v)

	var reports []Report
	d := &Driver{Notes: api.GetNotes, Venue: v, Progress: func(r Report) { reports = append(reports, r) }}
	tally, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(tally.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(tally.Rows), tally.Rows)
	}
	first, second := tally.Rows[0], tally.Rows[1]
	if first.Tier != Oral || first.Scores == nil || first.Scores.Mean != 8.5 {
		t.Errorf("first row = %+v (scores %+v)", first, first.Scores)
	}
	if second.Tier != Poster || second.Scores != nil {
		t.Errorf("second row = %+v (scores %+v)", second, second.Scores)
	}

	if tally.Seen != 3 || tally.Found != 2 || tally.Oral != 1 || tally.Spotlight != 0 {
		t.Errorf("tally counters = %+v", tally)
	}

	if len(reports) != 3 {
		t.Fatalf("expected 3 progress reports, got %d", len(reports))
	}
	last := reports[2]
	if last != (Report{Seen: 3, Total: 3, Found: 2, Oral: 1, Number: 3}) {
		t.Errorf("last report = %+v", last)
	}

	// Reviews are only fetched for accepted papers.
	for _, q := range api.queries {
		if q.Invitation == v.OfficialReview(2) {
			t.Errorf("fetched reviews of a rejected paper: %+v", q)
		}
	}
}

func TestDriver_DecisionQueryUsesLimitOne(t *testing.T) {
	v := NeurIPS(2023)
	api := threeSubmissions(v)
	d := &Driver{Notes: api.GetNotes, Venue: v}

	if _, err := d.Observe(context.Background(), mustNote(`{"id":"s2","number":2}`)); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	want := openreview.NotesQuery{Invitation: v.Decision(2), Limit: 1}
	if len(api.queries) != 1 || api.queries[0] != want {
		t.Errorf("queries = %+v, want [%+v]", api.queries, want)
	}
}

func TestDriver_MissingDecisionExcluded(t *testing.T) {
	v := NeurIPS(2024)
	api := &fakeAPI{notes: map[string][]openreview.Note{
		v.Submission(): {mustNote(`{"id":"s9","number":9}`)},
	}}
	tally, err := (&Driver{Notes: api.GetNotes, Venue: v}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tally.Seen != 1 || len(tally.Rows) != 0 {
		t.Errorf("tally = %+v", tally)
	}
}

func TestDriver_ErrorAbortsRun(t *testing.T) {
	v := NeurIPS(2023)
	api := threeSubmissions(v)
	api.failOn = v.Decision(2)

	tally, err := (&Driver{Notes: api.GetNotes, Venue: v}).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if tally.Seen != 1 {
		t.Errorf("expected partial tally with 1 submission, got %+v", tally)
	}
}

func TestDriver_NoNotesFunc(t *testing.T) {
	if _, err := (&Driver{Venue: NeurIPS(2023)}).Run(context.Background()); !errors.Is(err, ErrNoNotesFunc) {
		t.Fatalf("expected ErrNoNotesFunc, got %v", err)
	}
}

func TestDriver_CanceledContext(t *testing.T) {
	v := NeurIPS(2023)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Driver{Notes: threeSubmissions(v).GetNotes, Venue: v}).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIterate_Pagination(t *testing.T) {
	inv := "Test/-/Submission"
	var notes []openreview.Note
	for i := 1; i <= 5; i++ {
		notes = append(notes, mustNote(fmt.Sprintf(`{"id":"n%d","number":%d}`, i, i)))
	}
	api := &fakeAPI{notes: map[string][]openreview.Note{inv: notes}}

	got, err := Collect(context.Background(), api.GetNotes, openreview.NotesQuery{Invitation: inv}, 2)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 notes, got %d", len(got))
	}

	var offsets []int
	for _, q := range api.queries {
		if q.Limit != 2 {
			t.Errorf("limit = %d", q.Limit)
		}
		offsets = append(offsets, q.Offset)
	}
	if !reflect.DeepEqual(offsets, []int{0, 2, 4}) {
		t.Errorf("offsets = %v", offsets)
	}
}

func TestIterate_ExactMultipleRequestsEmptyPage(t *testing.T) {
	inv := "Test/-/Submission"
	api := &fakeAPI{notes: map[string][]openreview.Note{inv: {
		mustNote(`{"id":"a"}`), mustNote(`{"id":"b"}`),
	}}}

	got, err := Collect(context.Background(), api.GetNotes, openreview.NotesQuery{Invitation: inv}, 2)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(got) != 2 || len(api.queries) != 2 {
		t.Errorf("got %d notes in %d queries", len(got), len(api.queries))
	}
}

func TestIterate_CallbackError(t *testing.T) {
	inv := "Test/-/Submission"
	api := &fakeAPI{notes: map[string][]openreview.Note{inv: {mustNote(`{"id":"a"}`)}}}
	stop := errors.New("stop")

	err := Iterate(context.Background(), api.GetNotes, openreview.NotesQuery{Invitation: inv}, 10, func(openreview.Note) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestDriver_MemoizedRerunMakesNoCalls(t *testing.T) {
	v := NeurIPS(2023)
	api := threeSubmissions(v)
	store := memo.NewMemoryStore()

	m, err := memo.Wrap(store, "openreview.get_notes", api.GetNotes)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	d := &Driver{Notes: NotesFunc(m.Func()), Venue: v}
	first, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	calls := len(api.queries)

	second, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(api.queries) != calls {
		t.Errorf("second run made %d API calls", len(api.queries)-calls)
	}
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Errorf("rows differ between runs:\n%+v\n%+v", first.Rows, second.Rows)
	}
	if s := m.Stats(); s.Hits != int64(calls) || s.Misses != int64(calls) {
		t.Errorf("stats = %+v, want %d hits and misses", s, calls)
	}
}
