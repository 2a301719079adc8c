// Package gateway runs the single-shot pipeline: normalize the client body,
// call the upstream once, and extract a flat answer.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/zhengjr9/gemini-gateway/internal/adapter"
	apierrors "github.com/zhengjr9/gemini-gateway/internal/errors"
	"github.com/zhengjr9/gemini-gateway/internal/extract"
	"github.com/zhengjr9/gemini-gateway/internal/httputil"
	"github.com/zhengjr9/gemini-gateway/internal/upstream"
)

// Generator performs the upstream call.
type Generator interface {
	HasKey() bool
	Generate(ctx context.Context, model string, body []byte) (*upstream.Result, error)
}

// Options tune the pipeline.
type Options struct {
	DefaultModel string
	// Timeout bounds the upstream call. Zero leaves it to the Generator.
	Timeout  time.Duration
	Adapters []adapter.Adapter
}

// Response is a successful pipeline outcome. Note is set only when Text is
// empty.
type Response struct {
	Text  string
	Note  string
	Raw   json.RawMessage
	Model string
	Shape string
}

// StageError marks an unexpected failure with the pipeline stage it came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// Service is safe for concurrent use; it holds no per-request state.
type Service struct {
	client Generator
	opts   Options
}

// NewService constructs a Service.
func NewService(client Generator, opts Options) *Service {
	return &Service{client: client, opts: opts}
}

// HasKey reports whether the upstream credential is configured.
func (s *Service) HasKey() bool { return s.client.HasKey() }

// Generate runs the pipeline for an already-decoded request object.
func (s *Service) Generate(ctx context.Context, req gjson.Result) (*Response, error) {
	if !s.client.HasKey() {
		return nil, apierrors.ErrMissingAPIKey
	}

	payload, err := adapter.Normalize(req, s.opts.DefaultModel, s.opts.Adapters...)
	if err != nil {
		return nil, err
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.client.Generate(ctx, payload.Model, payload.Body)
	fields := log.Fields{
		"request_id": httputil.RequestID(ctx),
		"model":      payload.Model,
		"shape":      payload.Shape,
		"duration":   time.Since(start).String(),
	}
	if err != nil {
		if isTimeout(err) {
			log.WithFields(fields).WithError(err).Warn("gemini upstream timed out")
			return nil, fmt.Errorf("%w: %v", apierrors.ErrUpstreamTimeout, err)
		}
		return nil, &StageError{Stage: "upstream", Err: err}
	}
	fields["upstream_status"] = res.Status

	if extract.Classify(res.Status) == extract.KindError {
		log.WithFields(fields).WithField("body", string(res.Body)).Warn("gemini upstream error")
		return nil, &apierrors.UpstreamError{Status: res.Status, Body: res.Body}
	}

	ans := extract.Extract(res.Body)
	if ans.Text == "" {
		log.WithFields(fields).WithField("note", ans.Note).Info("gemini returned no text")
	} else {
		log.WithFields(fields).Debug("gemini answer extracted")
	}
	return &Response{
		Text:  ans.Text,
		Note:  ans.Note,
		Raw:   res.Body,
		Model: payload.Model,
		Shape: payload.Shape,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
