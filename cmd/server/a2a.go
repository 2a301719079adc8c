package main

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/volcengine/veadk-go/apps"

	"github.com/zhengjr9/gemini-gateway/internal/httputil"
)

// requestIDApp wraps a BasicApp and installs a middleware on its mux router
// that tags every A2A request with an X-Request-ID, so pipeline logs for
// agent calls carry the same id field as the HTTP endpoint.
type requestIDApp struct {
	apps.BasicApp
}

// Run passes w itself to apps.Run. The embedded Run would hand over the inner
// app and SetupRouters below would never be called.
func (w *requestIDApp) Run(ctx context.Context, config *apps.RunConfig) error {
	return apps.Run(ctx, config, w)
}

func (w *requestIDApp) SetupRouters(router *mux.Router, config *apps.RunConfig) error {
	if err := w.BasicApp.SetupRouters(router, config); err != nil {
		return err
	}
	router.Use(requestIDMiddleware)
	return nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, httputil.EnsureRequestID(w, r))
	})
}
