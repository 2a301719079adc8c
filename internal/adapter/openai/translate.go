// Package openai accepts chat-style message lists and converts them to a
// generateContent request.
//
// Both common conventions are understood: OpenAI chat completions
// ({"messages":[{"role":"system",...}], "max_tokens":...}) and Anthropic
// messages ({"system":"...", "messages":[{"content":[{"type":"text",...}]}]}).
package openai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// Adapter converts a chat message list.
type Adapter struct{}

func (Adapter) Name() string { return "messages" }

// generateRequest is the upstream body built from a message list.
type generateRequest struct {
	Contents          []*genai.Content        `json:"contents"`
	SystemInstruction *genai.Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *genai.GenerationConfig `json:"generationConfig,omitempty"`
}

func (Adapter) Normalize(req gjson.Result) (json.RawMessage, bool, error) {
	msgs := req.Get("messages")
	if !msgs.IsArray() {
		return nil, false, nil
	}

	var (
		contents []*genai.Content
		system   []string
	)
	if s := strings.TrimSpace(messageText(req.Get("system"))); s != "" {
		system = append(system, s)
	}

	for _, m := range msgs.Array() {
		text := messageText(m.Get("content"))
		if strings.TrimSpace(text) == "" {
			continue
		}
		switch role := m.Get("role").String(); role {
		case "system", "developer":
			system = append(system, text)
		case "assistant", "model":
			contents = appendTurn(contents, genai.RoleModel, text)
		default:
			contents = appendTurn(contents, genai.RoleUser, text)
		}
	}
	if len(contents) == 0 {
		return nil, false, nil
	}

	out := generateRequest{
		Contents:         contents,
		GenerationConfig: generationConfig(req),
	}
	if len(system) > 0 {
		out.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, false, fmt.Errorf("marshal messages payload: %w", err)
	}
	return body, true, nil
}

// appendTurn adds a turn, merging consecutive turns of the same role since
// the upstream expects roles to alternate.
func appendTurn(contents []*genai.Content, role, text string) []*genai.Content {
	if n := len(contents); n > 0 && contents[n-1].Role == role {
		contents[n-1].Parts = append(contents[n-1].Parts, &genai.Part{Text: text})
		return contents
	}
	return append(contents, &genai.Content{
		Role:  role,
		Parts: []*genai.Part{{Text: text}},
	})
}

// messageText flattens a content value: either a plain string or an array
// of blocks of which only the text ones are kept.
func messageText(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	if !v.IsArray() {
		return ""
	}
	var texts []string
	for _, block := range v.Array() {
		if block.Type == gjson.String {
			texts = append(texts, block.String())
			continue
		}
		if t := block.Get("type").String(); t != "" && t != "text" {
			continue
		}
		if text := block.Get("text"); text.Type == gjson.String {
			texts = append(texts, text.String())
		}
	}
	return strings.Join(texts, "")
}

func generationConfig(req gjson.Result) *genai.GenerationConfig {
	var (
		cfg genai.GenerationConfig
		set bool
	)
	if v := firstOf(req, "max_completion_tokens", "max_tokens"); v.Exists() {
		if n := v.Int(); n > 0 {
			cfg.MaxOutputTokens = int32(min(n, math.MaxInt32))
			set = true
		}
	}
	if v := req.Get("temperature"); v.Type == gjson.Number {
		cfg.Temperature = genai.Ptr(float32(v.Float()))
		set = true
	}
	if v := req.Get("top_p"); v.Type == gjson.Number {
		cfg.TopP = genai.Ptr(float32(v.Float()))
		set = true
	}
	if v := req.Get("top_k"); v.Type == gjson.Number {
		cfg.TopK = genai.Ptr(float32(v.Float()))
		set = true
	}
	if !set {
		return nil
	}
	return &cfg
}

func firstOf(req gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := req.Get(k); v.Type == gjson.Number {
			return v
		}
	}
	return gjson.Result{}
}
