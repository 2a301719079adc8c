// Package extract turns a generateContent response body into a flat answer.
//
// Upstream bodies vary across model versions and failure modes: candidates
// may be missing, parts may carry no text, thought parts may precede the
// answer, and a blocked prompt returns no candidates at all. Every step of
// the fallback chain below reads only optional fields and never fails.
package extract

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Kind classifies an upstream result.
type Kind int

const (
	// KindSuccess is a 2xx body, expected to hold a candidate list.
	KindSuccess Kind = iota
	// KindError is any other status; the body is an opaque error object.
	KindError
)

func (k Kind) String() string {
	if k == KindSuccess {
		return "success"
	}
	return "error"
}

// NoteEmpty is the note used when nothing more specific explains an empty
// answer.
const NoteEmpty = "empty"

// partSeparator joins text parts of one candidate.
const partSeparator = "\n\n"

// Answer is the text extracted from a successful body. Note is set only when
// Text is empty.
type Answer struct {
	Text string
	Note string
}

// Classify tags an upstream status.
func Classify(status int) Kind {
	if status >= 200 && status < 300 {
		return KindSuccess
	}
	return KindError
}

// Extract runs the fallback chain over a successful body.
func Extract(body []byte) Answer {
	res := gjson.ParseBytes(body)
	if text := firstText(res.Get("candidates")); text != "" {
		return Answer{Text: text}
	}
	return Answer{Note: emptyNote(res)}
}

// firstText returns the text of the first candidate that yields any.
func firstText(candidates gjson.Result) string {
	if !candidates.IsArray() {
		return ""
	}
	for _, c := range candidates.Array() {
		if text := candidateText(c); text != "" {
			return text
		}
	}
	return ""
}

// candidateText joins the text parts of one candidate, skipping thought
// parts, and trims the result.
func candidateText(candidate gjson.Result) string {
	parts := candidate.Get("content.parts")
	if !parts.IsArray() {
		return ""
	}
	var texts []string
	for _, p := range parts.Array() {
		if p.Get("thought").Bool() {
			continue
		}
		t := p.Get("text")
		if t.Type != gjson.String || t.String() == "" {
			continue
		}
		texts = append(texts, t.String())
	}
	return strings.TrimSpace(strings.Join(texts, partSeparator))
}

// emptyNote explains an empty answer: the prompt block reason, else the first
// candidate's finish reason, else NoteEmpty.
func emptyNote(res gjson.Result) string {
	if r := res.Get("promptFeedback.blockReason").String(); r != "" {
		return r
	}
	if r := res.Get("candidates.0.finishReason").String(); r != "" {
		return r
	}
	return NoteEmpty
}
