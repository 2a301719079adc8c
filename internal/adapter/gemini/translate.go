// Package gemini accepts a native generateContent request sent at the top
// level of the body, e.g. {"contents":[...],"generationConfig":{...}}.
package gemini

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// gatewayFields are read by the gateway and never forwarded upstream.
var gatewayFields = []string{"model", "prompt", "payload"}

// Adapter forwards a bare generateContent body.
type Adapter struct{}

func (Adapter) Name() string { return "contents" }

func (Adapter) Normalize(req gjson.Result) (json.RawMessage, bool, error) {
	if !req.Get("contents").IsArray() {
		return nil, false, nil
	}
	body := []byte(req.Raw)
	for _, f := range gatewayFields {
		if !req.Get(f).Exists() {
			continue
		}
		var err error
		body, err = sjson.DeleteBytes(body, f)
		if err != nil {
			return nil, false, fmt.Errorf("strip %s: %w", f, err)
		}
	}
	return body, true, nil
}
