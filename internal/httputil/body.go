package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	apierrors "github.com/zhengjr9/gemini-gateway/internal/errors"
)

var emptyObject = []byte("{}")

// ReadBody reads the whole request body, however it was delivered, up to
// limit bytes. A missing or empty body reads as "{}". Exceeding limit returns
// apierrors.ErrBodyTooLarge.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return emptyObject, nil
	}
	defer r.Body.Close()

	if r.ContentLength > limit {
		return nil, apierrors.ErrBodyTooLarge
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apierrors.ErrBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) == 0 {
		return emptyObject, nil
	}
	return raw, nil
}

// DecodeObject parses raw as a JSON object. Malformed input and non-object
// JSON both decode to an empty object; this never fails.
func DecodeObject(raw []byte) gjson.Result {
	if !gjson.ValidBytes(raw) {
		return gjson.Parse("{}")
	}
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return gjson.Parse("{}")
	}
	return res
}

// ObjectFromValue accepts a body the caller already holds in structured form.
// Values that do not encode to a JSON object decode to an empty object.
func ObjectFromValue(v any) gjson.Result {
	switch b := v.(type) {
	case gjson.Result:
		if b.IsObject() {
			return b
		}
		return gjson.Parse("{}")
	case []byte:
		return DecodeObject(b)
	case json.RawMessage:
		return DecodeObject(b)
	case string:
		return DecodeObject([]byte(b))
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return gjson.Parse("{}")
	}
	return DecodeObject(raw)
}
