package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	apierrors "github.com/zhengjr9/gemini-gateway/internal/errors"
	"github.com/zhengjr9/gemini-gateway/internal/httputil"
)

// Messages written to callers. Internal error text is only logged.
const (
	msgMissingPayload  = "Missing payload"
	msgInvalidModel    = "Invalid model"
	msgTooLarge        = "Payload too large"
	msgMissingKey      = "Missing GEMINI_API_KEY configuration"
	msgUpstreamTimeout = "Upstream timeout"
	msgProxyFailure    = "Proxy failure"
	msgMethod          = "Method Not Allowed"
)

// successBody is the 200 envelope. Note appears only for empty answers.
type successBody struct {
	Text string          `json:"text"`
	Raw  json.RawMessage `json:"raw"`
	Note string          `json:"note,omitempty"`
}

type healthBody struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	HasKey  bool   `json:"hasKey"`
	Env     string `json:"env,omitempty"`
}

func writeSuccess(w http.ResponseWriter, resp *Response) {
	apierrors.WriteJSON(w, http.StatusOK, successBody{
		Text: resp.Text,
		Raw:  resp.Raw,
		Note: resp.Note,
	})
}

// writeError maps a pipeline error to its status and envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		upErr    *apierrors.UpstreamError
		stageErr *StageError
	)
	entry := log.WithField("request_id", httputil.RequestID(r.Context()))

	switch {
	case errors.Is(err, apierrors.ErrMissingPayload):
		apierrors.WriteJSONError(w, http.StatusBadRequest, msgMissingPayload)
	case errors.Is(err, apierrors.ErrInvalidModel):
		apierrors.WriteJSONError(w, http.StatusBadRequest, msgInvalidModel)
	case errors.Is(err, apierrors.ErrBodyTooLarge):
		apierrors.WriteJSONError(w, http.StatusRequestEntityTooLarge, msgTooLarge)
	case errors.Is(err, apierrors.ErrMissingAPIKey):
		entry.Error("GEMINI_API_KEY is not configured")
		apierrors.WriteJSONError(w, http.StatusInternalServerError, msgMissingKey)
	case errors.As(err, &upErr):
		apierrors.WriteJSON(w, upErr.Status, apierrors.Envelope{Error: upErr.Body})
	case errors.Is(err, apierrors.ErrUpstreamTimeout):
		apierrors.WriteJSONErrorAt(w, http.StatusGatewayTimeout, msgUpstreamTimeout, "upstream")
	case errors.As(err, &stageErr):
		entry.WithError(err).WithField("stage", stageErr.Stage).Error("proxy failure")
		apierrors.WriteJSONErrorAt(w, http.StatusInternalServerError, msgProxyFailure, stageErr.Stage)
	default:
		entry.WithError(err).Error("proxy failure")
		apierrors.WriteJSONError(w, http.StatusInternalServerError, msgProxyFailure)
	}
}
