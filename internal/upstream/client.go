package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public Generative Language API host.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxResponseBytes caps how much of an upstream body is buffered.
const maxResponseBytes = 8 << 20

// Result is the raw upstream answer. Body is always valid JSON; a non-JSON
// upstream body is carried as a JSON string.
type Result struct {
	Status int
	Body   json.RawMessage
}

// Client sends generateContent requests to the Gemini API.
type Client struct {
	// baseURL is the API host, e.g. "https://generativelanguage.googleapis.com".
	// A trailing "/v1beta" is tolerated.
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client with the given base URL, credential, timeout
// and optional proxy URL. proxyURL may be empty to use the environment proxy.
func NewClient(baseURL, apiKey string, timeout time.Duration, proxyURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimSuffix(base, "/v1beta")

	transport := &http.Transport{}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &Client{
		baseURL: base,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// HasKey reports whether a credential is configured.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// Endpoint returns the generateContent URL for model, without the credential.
func (c *Client) Endpoint(model string) string {
	return c.baseURL + "/v1beta/models/" + url.PathEscape(model) + ":generateContent"
}

// Generate performs exactly one POST. Any HTTP status is returned as a
// Result; only transport failures are errors.
func (c *Client) Generate(ctx context.Context, model string, body []byte) (*Result, error) {
	if c.apiKey == "" {
		return nil, errors.New("upstream client has no API key")
	}
	endpoint := c.Endpoint(model)
	target := endpoint + "?key=" + url.QueryEscape(c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", redact(err, c.apiKey))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request to %s: %w", endpoint, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", redact(err, c.apiKey))
	}
	return &Result{Status: resp.StatusCode, Body: asJSON(raw)}, nil
}

// asJSON keeps valid JSON as-is and wraps anything else as a JSON string.
func asJSON(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && gjson.ValidBytes(trimmed) {
		return json.RawMessage(trimmed)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(string(trimmed))
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}

// redactedError hides the credential from error text while keeping the
// wrapped chain intact for errors.Is.
type redactedError struct {
	err error
	key string
}

func (r *redactedError) Error() string {
	msg := r.err.Error()
	msg = strings.ReplaceAll(msg, url.QueryEscape(r.key), "REDACTED")
	return strings.ReplaceAll(msg, r.key, "REDACTED")
}

func (r *redactedError) Unwrap() error { return r.err }

func redact(err error, key string) error {
	if err == nil || key == "" {
		return err
	}
	return &redactedError{err: err, key: key}
}
