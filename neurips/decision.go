package neurips

import "strings"

// Tier is the presentation category of an accepted paper.
type Tier string

const (
	Oral      Tier = "Oral"
	Spotlight Tier = "Spotlight"
	Poster    Tier = "Poster"
)

// Classify derives the tier from a decision string.
//
// Matching is case-insensitive. A decision is an acceptance iff it contains
// "accept"; accepted papers are Oral if the decision mentions "oral",
// Spotlight if it mentions "spotlight", and Poster otherwise. ok is false
// for anything that is not an acceptance, including an empty decision.
func Classify(decision string) (tier Tier, ok bool) {
	d := strings.ToLower(decision)
	if !strings.Contains(d, "accept") {
		return "", false
	}
	switch {
	case strings.Contains(d, "oral"):
		return Oral, true
	case strings.Contains(d, "spotlight"):
		return Spotlight, true
	default:
		return Poster, true
	}
}

// Accepted reports whether decision is an acceptance.
func Accepted(decision string) bool {
	_, ok := Classify(decision)
	return ok
}
