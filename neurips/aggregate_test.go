package neurips

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/JasonGross/openreview-exploration/openreview"
)

func note(t *testing.T, raw string) openreview.Note {
	t.Helper()
	var n openreview.Note
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		t.Fatalf("unmarshal note: %v", err)
	}
	return n
}

func TestEvaluate_Defaults(t *testing.T) {
	sub := note(t, `{"id":"p1","number":3,"content":{}}`)

	row, ok := Evaluate(Observation{Submission: sub, Decision: "Accept (Poster)"})
	if !ok {
		t.Fatal("expected accepted")
	}
	want := Row{Title: "N/A", Tier: Poster, Number: 3, ID: "p1"}
	if !reflect.DeepEqual(row, want) {
		t.Errorf("row = %+v, want %+v", row, want)
	}
}

func TestEvaluate_Rejected(t *testing.T) {
	if _, ok := Evaluate(Observation{Decision: "Reject"}); ok {
		t.Fatal("rejected paper produced a row")
	}
	if _, ok := Evaluate(Observation{}); ok {
		t.Fatal("missing decision produced a row")
	}
}

func TestStep(t *testing.T) {
	oral := Observation{
		Submission: note(t, `{"id":"a","number":1,"content":{"title":{"value":"A"},"authors":{"value":["X","Y"]}}}`),
		Decision:   "Accept (Oral)",
		Reviews: []openreview.Note{
			note(t, `{"id":"r1","content":{"rating":{"value":"8: accept"}}}`),
			note(t, `{"id":"r2","content":{"rating":{"value":"9: strong accept"}}}`),
		},
	}
	rejected := Observation{
		Submission: note(t, `{"id":"b","number":2,"content":{"title":{"value":"B"}}}`),
		Decision:   "Reject",
	}
	spotlight := Observation{
		Submission: note(t, `{"id":"c","number":3,"content":{"title":{"value":"C"}}}`),
		Decision:   "Accept (spotlight)",
	}

	var tally Tally
	tally = Step(tally, oral)
	tally = Step(tally, rejected)
	tally = Step(tally, spotlight)

	if tally.Seen != 3 || tally.Found != 2 || tally.Oral != 1 || tally.Spotlight != 1 {
		t.Errorf("counters = %+v", tally)
	}
	if len(tally.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tally.Rows))
	}
	first := tally.Rows[0]
	if first.Title != "A" || !reflect.DeepEqual(first.Authors, []string{"X", "Y"}) {
		t.Errorf("first row = %+v", first)
	}
	if first.Scores == nil || first.Scores.Mean != 8.5 {
		t.Errorf("first row scores = %+v", first.Scores)
	}
	if tally.Rows[1].Tier != Spotlight || tally.Rows[1].Scores != nil {
		t.Errorf("second row = %+v", tally.Rows[1])
	}
}
