package neurips

import "fmt"

// Venue identifies a conference on OpenReview, e.g. "NeurIPS.cc/2023/Conference".
type Venue string

// NeurIPS returns the venue of the NeurIPS main conference for year.
func NeurIPS(year int) Venue {
	return Venue(fmt.Sprintf("NeurIPS.cc/%d/Conference", year))
}

// Submission is the invitation under which papers are submitted.
func (v Venue) Submission() string {
	return string(v) + "/-/Submission"
}

// Decision is the invitation of the decision note for submission n.
func (v Venue) Decision(n int) string {
	return fmt.Sprintf("%s/Submission%d/-/Decision", v, n)
}

// OfficialReview is the invitation of the reviews for submission n.
func (v Venue) OfficialReview(n int) string {
	return fmt.Sprintf("%s/Submission%d/-/Official_Review", v, n)
}
