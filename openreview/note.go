package openreview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Note is a single OpenReview note: a submission, decision, review or
// comment.
type Note struct {
	ID          string           `json:"id"`
	Number      int              `json:"number,omitempty"`
	Forum       string           `json:"forum,omitempty"`
	ReplyTo     string           `json:"replyto,omitempty"`
	Invitations []string         `json:"invitations,omitempty"`
	Signatures  []string         `json:"signatures,omitempty"`
	CDate       int64            `json:"cdate,omitempty"`
	MDate       int64            `json:"mdate,omitempty"`
	Content     map[string]Field `json:"content,omitempty"`
	Details     json.RawMessage  `json:"details,omitempty"`
}

// Field is one entry of a note's content. API v2 wraps values as
// {"value": ...}; bare non-object values from older payloads are accepted
// as well.
type Field struct {
	Value json.RawMessage `json:"value,omitempty"`
}

func (f *Field) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return err
		}
		f.Value = wrapped["value"]
		return nil
	}
	f.Value = append(json.RawMessage(nil), trimmed...)
	return nil
}

// Has reports whether the content carries a non-null value for name.
func (n Note) Has(name string) bool {
	f, ok := n.Content[name]
	return ok && len(f.Value) > 0 && string(f.Value) != "null"
}

// Text returns the string value of content field name, or def when the
// field is missing or not a string. Numbers are rendered in decimal.
func (n Note) Text(name, def string) string {
	if !n.Has(name) {
		return def
	}
	raw := n.Content[name].Value

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return def
}

// Strings returns the string list held by content field name. A single
// string becomes a one-element list; anything else yields nil.
func (n Note) Strings(name string) []string {
	if !n.Has(name) {
		return nil
	}
	raw := n.Content[name].Value

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	return nil
}

// NotesQuery selects notes from GET /notes. Zero fields are omitted.
//
// The JSON form is used as the memoization key for page requests, so
// field names are part of the on-disk cache format.
type NotesQuery struct {
	ID         string `json:"id,omitempty"`
	Invitation string `json:"invitation,omitempty"`
	Forum      string `json:"forum,omitempty"`
	Number     int    `json:"number,omitempty"`
	Details    string `json:"details,omitempty"`
	Sort       string `json:"sort,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Values encodes q as URL query parameters.
func (q NotesQuery) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("id", q.ID)
	set("invitation", q.Invitation)
	set("forum", q.Forum)
	set("details", q.Details)
	set("sort", q.Sort)
	if q.Number > 0 {
		v.Set("number", strconv.Itoa(q.Number))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	return v
}

func (q NotesQuery) String() string {
	return fmt.Sprintf("notes?%s", q.Values().Encode())
}

type notesResponse struct {
	Notes []Note `json:"notes"`
	Count int    `json:"count"`
}
