package proxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zhengjr9/gemini-gateway/internal/access"
	"github.com/zhengjr9/gemini-gateway/internal/adapter"
	"github.com/zhengjr9/gemini-gateway/internal/adapter/gemini"
	"github.com/zhengjr9/gemini-gateway/internal/adapter/openai"
	"github.com/zhengjr9/gemini-gateway/internal/config"
	"github.com/zhengjr9/gemini-gateway/internal/gateway"
	"github.com/zhengjr9/gemini-gateway/internal/upstream"
)

// Server is the gateway HTTP server.
type Server struct {
	httpServer *http.Server
	service    *gateway.Service
}

// Adapters returns the accepted request shapes in resolution order.
func Adapters(cfg *config.Config) []adapter.Adapter {
	return []adapter.Adapter{
		adapter.PayloadAdapter{},
		gemini.Adapter{},
		openai.Adapter{},
		adapter.PromptAdapter{MaxChars: cfg.MaxPromptChars},
	}
}

// NewService builds the pipeline shared by the HTTP and A2A surfaces.
func NewService(cfg *config.Config) *gateway.Service {
	client := upstream.NewClient(cfg.BaseURL, cfg.APIKey, cfg.RequestTimeout, cfg.ProxyURL)
	return gateway.NewService(client, gateway.Options{
		DefaultModel: cfg.Model,
		Timeout:      cfg.RequestTimeout,
		Adapters:     Adapters(cfg),
	})
}

// New constructs a Server from the given config.
func New(cfg *config.Config) (*Server, error) {
	list, err := access.NewAllowList(cfg.AllowedOrigins)
	if err != nil {
		return nil, fmt.Errorf("allowed origins: %w", err)
	}
	svc := NewService(cfg)
	gw := gateway.NewHandler(svc, access.NewPolicy(list), cfg.MaxBodyBytes, cfg.Environment)

	router := mux.NewRouter()
	router.Handle(cfg.Path, gw)

	var handler http.Handler = router
	handler = loggingMiddleware(handler)
	handler = recoveryMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = otelhttp.NewHandler(handler, "gemini-gateway")

	return &Server{
		service: svc,
		httpServer: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: cfg.RequestTimeout + 10*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

// Service returns the pipeline behind the HTTP endpoint.
func (s *Server) Service() *gateway.Service {
	return s.service
}

// Start begins listening and blocks until the server is stopped.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the underlying http.Handler (for use in tests with httptest.NewServer).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
