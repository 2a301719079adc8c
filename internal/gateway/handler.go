package gateway

import (
	"errors"
	"net/http"

	"github.com/zhengjr9/gemini-gateway/internal/access"
	apierrors "github.com/zhengjr9/gemini-gateway/internal/errors"
	"github.com/zhengjr9/gemini-gateway/internal/httputil"
)

const healthMessage = "Gemini proxy up"

// Handler serves the gateway endpoint: OPTIONS preflight, GET liveness and
// POST generation. Every response carries the CORS headers.
type Handler struct {
	svc          *Service
	policy       *access.Policy
	maxBodyBytes int64
	env          string
}

// NewHandler constructs a Handler. env is the deployment label reported by
// the liveness probe and may be empty.
func NewHandler(svc *Service, policy *access.Policy, maxBodyBytes int64, env string) *Handler {
	return &Handler{svc: svc, policy: policy, maxBodyBytes: maxBodyBytes, env: env}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.policy.Apply(w, r)

	switch {
	case access.IsPreflight(r):
		access.WritePreflight(w)
	case !access.Allowed(r.Method):
		w.Header().Set("Allow", access.AllowHeader())
		apierrors.WriteJSONError(w, http.StatusMethodNotAllowed, msgMethod)
	case r.Method == http.MethodGet:
		h.serveHealth(w)
	default:
		h.serveGenerate(w, r)
	}
}

func (h *Handler) serveHealth(w http.ResponseWriter) {
	apierrors.WriteJSON(w, http.StatusOK, healthBody{
		OK:      true,
		Message: healthMessage,
		HasKey:  h.svc.HasKey(),
		Env:     h.env,
	})
}

func (h *Handler) serveGenerate(w http.ResponseWriter, r *http.Request) {
	// The credential is checked before the body is even read.
	if !h.svc.HasKey() {
		writeError(w, r, apierrors.ErrMissingAPIKey)
		return
	}

	raw, err := httputil.ReadBody(w, r, h.maxBodyBytes)
	if err != nil {
		if !errors.Is(err, apierrors.ErrBodyTooLarge) {
			err = &StageError{Stage: "read", Err: err}
		}
		writeError(w, r, err)
		return
	}

	resp, err := h.svc.Generate(r.Context(), httputil.DecodeObject(raw))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccess(w, resp)
}
