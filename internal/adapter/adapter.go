package adapter

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	apierrors "github.com/zhengjr9/gemini-gateway/internal/errors"
)

// Payload is a normalized generateContent request, ready to be sent upstream.
type Payload struct {
	// Model is the upstream model id, without the "models/" prefix.
	Model string
	// Body is the JSON request body. It always satisfies Valid.
	Body json.RawMessage
	// Shape names the adapter that produced the payload, for logging.
	Shape string
}

// Adapter recognises one accepted client request shape and turns it into a
// Payload body.
type Adapter interface {
	// Name identifies the shape in logs.
	Name() string

	// Normalize returns the upstream body for req, or ok=false when req does
	// not carry this shape.
	Normalize(req gjson.Result) (body json.RawMessage, ok bool, err error)
}

// Valid reports whether body is a generateContent request the upstream call
// accepts: a non-empty contents array whose entries each carry a non-empty
// parts array with at least one text part.
func Valid(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	contents := gjson.GetBytes(body, "contents")
	if !contents.IsArray() || len(contents.Array()) == 0 {
		return false
	}
	for _, c := range contents.Array() {
		parts := c.Get("parts")
		if !parts.IsArray() || len(parts.Array()) == 0 {
			return false
		}
		hasText := false
		for _, p := range parts.Array() {
			if p.Get("text").Type == gjson.String {
				hasText = true
				break
			}
		}
		if !hasText {
			return false
		}
	}
	return true
}

var modelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ResolveModel picks the request's "model" field when present, otherwise
// fallback. The result is safe to splice into the upstream URL path.
func ResolveModel(req gjson.Result, fallback string) (string, error) {
	model := fallback
	if m := req.Get("model"); m.Exists() && m.Type != gjson.Null {
		if m.Type != gjson.String {
			return "", apierrors.ErrInvalidModel
		}
		if s := strings.TrimSpace(m.String()); s != "" {
			model = s
		}
	}
	model = strings.TrimPrefix(model, "models/")
	if !modelPattern.MatchString(model) {
		return "", apierrors.ErrInvalidModel
	}
	return model, nil
}

// Normalize runs adapters in order and returns the first valid payload.
// It fails with ErrMissingPayload when no adapter recognises req.
func Normalize(req gjson.Result, defaultModel string, adapters ...Adapter) (*Payload, error) {
	for _, a := range adapters {
		body, ok, err := a.Normalize(req)
		if err != nil {
			return nil, err
		}
		if !ok || !Valid(body) {
			continue
		}
		model, err := ResolveModel(req, defaultModel)
		if err != nil {
			return nil, err
		}
		return &Payload{Model: model, Body: body, Shape: a.Name()}, nil
	}
	return nil, apierrors.ErrMissingPayload
}
