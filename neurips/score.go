package neurips

import (
	"slices"
	"strconv"
	"strings"

	"github.com/JasonGross/openreview-exploration/openreview"
)

// ParseRating extracts the numeric score from a rating such as
// "7: Accept: Technically solid paper". The score is the integer before the
// first colon; a bare integer is accepted too.
func ParseRating(rating string) (int, bool) {
	head, _, _ := strings.Cut(rating, ":")
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Ratings returns the parsed ratings of reviews in order. Reviews without
// a rating, or with one that does not parse, are skipped.
func Ratings(reviews []openreview.Note) []int {
	var out []int
	for _, r := range reviews {
		if !r.Has("rating") {
			continue
		}
		if n, ok := ParseRating(r.Text("rating", "")); ok {
			out = append(out, n)
		}
	}
	return out
}

// Summary holds review score statistics of one paper.
type Summary struct {
	Count  int
	Min    float64
	Mean   float64
	Median float64
	Max    float64
}

// Summarize computes statistics over ratings. It returns nil when there
// are no ratings, so that absent scores are never reported as zero.
// Every rating counts once; the mean is not weighted.
func Summarize(ratings []int) *Summary {
	if len(ratings) == 0 {
		return nil
	}
	sorted := slices.Clone(ratings)
	slices.Sort(sorted)

	sum := 0
	for _, r := range sorted {
		sum += r
	}
	n := len(sorted)

	var median float64
	if n%2 == 1 {
		median = float64(sorted[n/2])
	} else {
		median = float64(sorted[n/2-1]+sorted[n/2]) / 2
	}

	return &Summary{
		Count:  n,
		Min:    float64(sorted[0]),
		Mean:   float64(sum) / float64(n),
		Median: median,
		Max:    float64(sorted[n-1]),
	}
}
