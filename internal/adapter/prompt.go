package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// DefaultMaxPromptChars bounds the prompt shorthand.
const DefaultMaxPromptChars = 8000

// PayloadAdapter accepts {"payload": {...}} and forwards the inner object
// verbatim.
type PayloadAdapter struct{}

func (PayloadAdapter) Name() string { return "payload" }

func (PayloadAdapter) Normalize(req gjson.Result) (json.RawMessage, bool, error) {
	p := req.Get("payload")
	if !p.IsObject() {
		return nil, false, nil
	}
	return json.RawMessage(p.Raw), true, nil
}

// PromptAdapter accepts {"prompt": "..."} and wraps it as a single user turn.
type PromptAdapter struct {
	MaxChars int
}

func (PromptAdapter) Name() string { return "prompt" }

// promptRequest is the generateContent body built from a bare prompt.
type promptRequest struct {
	Contents []*genai.Content `json:"contents"`
}

func (a PromptAdapter) Normalize(req gjson.Result) (json.RawMessage, bool, error) {
	p := req.Get("prompt")
	if p.Type != gjson.String || strings.TrimSpace(p.String()) == "" {
		return nil, false, nil
	}
	limit := a.MaxChars
	if limit <= 0 {
		limit = DefaultMaxPromptChars
	}
	text := Truncate(p.String(), limit)

	body, err := json.Marshal(promptRequest{
		Contents: []*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		}},
	})
	if err != nil {
		return nil, false, fmt.Errorf("marshal prompt payload: %w", err)
	}
	return body, true, nil
}

// Truncate cuts s to at most limit characters.
func Truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
