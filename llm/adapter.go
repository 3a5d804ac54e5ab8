package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/httpclient"
)

// ErrNoDialect is returned by NewWithDialect for a nil dialect.
var ErrNoDialect = errors.New("llm: dialect is required")

// Adapter is a provider client assembled from an httpclient.Client and a
// Dialect. All errors it returns are classified *errors.AppError values, or
// context.Canceled when the caller aborted.
type Adapter struct {
	client    *httpclient.Client
	dialect   Dialect
	model     string
	temp      float64
	maxTokens int
}

// New creates an adapter for the dialect named in cfg.
func New(cfg Config) (*Adapter, error) {
	dialect, err := GetDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return NewWithDialect(dialect, cfg)
}

// NewWithDialect creates an adapter with an explicit dialect instance.
func NewWithDialect(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, ErrNoDialect
	}
	cfg.ApplyDefaults()

	var auth *httpclient.AuthConfig
	if cfg.APIKey != "" {
		auth = httpclient.BearerAuth(cfg.APIKey)
		if cfg.AuthHeader != "" {
			auth = httpclient.HeaderAuth(cfg.AuthHeader, cfg.APIKey)
		}
	}

	client, err := httpclient.New(httpclient.Config{
		Service: dialect.Name(),
		BaseURL: cfg.BaseURL,
		Timeout: cfg.HeaderTimeout,
		Auth:    auth,
		Headers: cfg.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create http client: %w", err)
	}

	return &Adapter{
		client:    client,
		dialect:   dialect,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the dialect name.
func (a *Adapter) Name() string { return a.dialect.Name() }

// Model returns the default model.
func (a *Adapter) Model() string { return a.model }

// IsAvailable probes the dialect's health endpoint. Dialects without one
// are assumed available.
func (a *Adapter) IsAvailable(ctx context.Context) bool {
	hp := a.dialect.HealthPath()
	if hp == "" {
		return true
	}
	_, err := a.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: hp})
	return err == nil
}

// Complete sends a request and returns the full response.
func (a *Adapter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	a.applyDefaults(&req)
	req.Stream = false

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return nil, apperrors.InvalidInput("request", err.Error())
	}

	resp, err := a.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   a.dialect.ChatPath(),
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	result, err := a.dialect.ParseResponse(resp.Body)
	if err != nil {
		return nil, apperrors.ExternalServiceError(a.dialect.Name(), fmt.Errorf("parse response: %w", err))
	}
	return result, nil
}

// Stream sends a streaming request. It returns once the provider has
// accepted the request and sent headers; chunks are then delivered on the
// channel, which is closed after a Done chunk or an Err chunk. When ctx ends
// first the channel is closed without either and the caller reads ctx.Err().
// Cancelling ctx aborts the underlying connection.
func (a *Adapter) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	a.applyDefaults(&req)
	req.Stream = true

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return nil, apperrors.InvalidInput("request", err.Error())
	}

	streamResp, err := a.client.DoStream(ctx, httpclient.Request{
		Method:  http.MethodPost,
		Path:    a.dialect.ChatPath(),
		Body:    body,
		Headers: map[string]string{"Accept": a.dialect.StreamFormat().Accept()},
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk)
	go a.readStream(ctx, streamResp, ch)
	return ch, nil
}

// Dialect returns the dialect used by this adapter.
func (a *Adapter) Dialect() Dialect { return a.dialect }

func (a *Adapter) applyDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = a.model
	}
	if req.Temperature == 0 {
		req.Temperature = a.temp
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.maxTokens
	}
}
