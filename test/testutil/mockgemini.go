package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockGemini is an httptest.Server that simulates the
// /v1beta/models/{model}:generateContent endpoint.
type MockGemini struct {
	Server *httptest.Server

	mu     sync.Mutex
	status int
	body   string

	lastRequest map[string]any
	lastKey     string
	lastModel   string
	calls       int
}

// NewMockGemini creates and starts a mock that answers every call with
// status and body.
func NewMockGemini(status int, body string) *MockGemini {
	m := &MockGemini{status: status, body: body}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// TextResponse builds a generateContent response with one candidate whose
// parts are the given texts.
func TextResponse(texts ...string) string {
	parts := make([]map[string]string, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, map[string]string{"text": t})
	}
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": parts},
			"finishReason": "STOP",
		}},
	})
	return string(b)
}

// Close shuts down the mock server.
func (m *MockGemini) Close() {
	m.Server.Close()
}

// URL returns the base URL of the mock server.
func (m *MockGemini) URL() string {
	return m.Server.URL
}

// Respond changes the canned reply.
func (m *MockGemini) Respond(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status, m.body = status, body
}

// Calls returns the number of generateContent calls received.
func (m *MockGemini) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent decoded request body.
func (m *MockGemini) LastRequest() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

// LastKey returns the ?key= value of the most recent call.
func (m *MockGemini) LastKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastKey
}

// LastModel returns the model named in the most recent call's path.
func (m *MockGemini) LastModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastModel
}

func (m *MockGemini) handle(w http.ResponseWriter, r *http.Request) {
	model, ok := strings.CutPrefix(r.URL.Path, "/v1beta/models/")
	if !ok || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	model, ok = strings.CutSuffix(model, ":generateContent")
	if !ok {
		http.NotFound(w, r)
		return
	}

	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.calls++
	m.lastRequest = body
	m.lastKey = r.URL.Query().Get("key")
	m.lastModel = model
	status, reply := m.status, m.body
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, reply)
}
