package openai

import (
	"math"
	"testing"

	"github.com/tidwall/gjson"
)

func normalize(t *testing.T, body string) gjson.Result {
	t.Helper()
	out, ok, err := Adapter{}.Normalize(gjson.Parse(body))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !ok {
		t.Fatalf("Normalize did not accept %s", body)
	}
	return gjson.ParseBytes(out)
}

func TestNormalize_OpenAIChat(t *testing.T) {
	got := normalize(t, `{
		"model":"gpt-4",
		"messages":[
			{"role":"system","content":"You are helpful."},
			{"role":"user","content":"What is 2+2?"},
			{"role":"assistant","content":"4"},
			{"role":"user","content":"Why?"}
		],
		"max_tokens":128,
		"temperature":0.2
	}`)

	if sys := got.Get("systemInstruction.parts.0.text").String(); sys != "You are helpful." {
		t.Errorf("systemInstruction = %q", sys)
	}
	contents := got.Get("contents").Array()
	if len(contents) != 3 {
		t.Fatalf("want 3 turns, got %d: %s", len(contents), got.Raw)
	}
	wantRoles := []string{"user", "model", "user"}
	for i, c := range contents {
		if r := c.Get("role").String(); r != wantRoles[i] {
			t.Errorf("turn %d role = %q, want %q", i, r, wantRoles[i])
		}
	}
	if last := contents[2].Get("parts.0.text").String(); last != "Why?" {
		t.Errorf("last turn = %q", last)
	}
	if n := got.Get("generationConfig.maxOutputTokens").Int(); n != 128 {
		t.Errorf("maxOutputTokens = %d", n)
	}
	if temp := got.Get("generationConfig.temperature").Float(); temp < 0.19 || temp > 0.21 {
		t.Errorf("temperature = %v", temp)
	}
	if got.Get("model").Exists() {
		t.Error("model must not be forwarded in the body")
	}
}

func TestNormalize_AnthropicBlocks(t *testing.T) {
	got := normalize(t, `{
		"system":"Be brief.",
		"max_tokens":64,
		"messages":[
			{"role":"user","content":[{"type":"text","text":"Hello "},{"type":"image","source":{}},{"type":"text","text":"there"}]},
			{"role":"user","content":"again"}
		]
	}`)
	if sys := got.Get("systemInstruction.parts.0.text").String(); sys != "Be brief." {
		t.Errorf("systemInstruction = %q", sys)
	}
	contents := got.Get("contents").Array()
	if len(contents) != 1 {
		t.Fatalf("consecutive user turns should merge, got %s", got.Get("contents").Raw)
	}
	parts := contents[0].Get("parts").Array()
	if len(parts) != 2 || parts[0].Get("text").String() != "Hello there" || parts[1].Get("text").String() != "again" {
		t.Errorf("parts = %s", contents[0].Get("parts").Raw)
	}
}

func TestNormalize_NotMessages(t *testing.T) {
	for _, body := range []string{
		`{"prompt":"hi"}`,
		`{"messages":"hi"}`,
		`{"messages":[]}`,
		`{"messages":[{"role":"system","content":"only system"}]}`,
		`{"messages":[{"role":"user","content":"  "}]}`,
	} {
		_, ok, err := Adapter{}.Normalize(gjson.Parse(body))
		if err != nil {
			t.Fatalf("%s: %v", body, err)
		}
		if ok {
			t.Errorf("%s: should not be accepted", body)
		}
	}
}

func TestNormalize_MaxTokensClamped(t *testing.T) {
	got := normalize(t, `{"messages":[{"role":"user","content":"hi"}],"max_tokens":5e9}`)
	if n := got.Get("generationConfig.maxOutputTokens").Int(); n != math.MaxInt32 {
		t.Errorf("maxOutputTokens = %d, want %d", n, math.MaxInt32)
	}

	got = normalize(t, `{"messages":[{"role":"user","content":"hi"}],"max_tokens":-1}`)
	if got.Get("generationConfig").Exists() {
		t.Errorf("negative max_tokens should be dropped: %s", got.Raw)
	}
}
