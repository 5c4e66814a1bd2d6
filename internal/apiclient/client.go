// Package apiclient talks to the conversations REST backend.
//
// Every transport failure, non-2xx status or undecodable body is returned as
// an error; callers decide what the user gets to see.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/comigor/convoview/internal/conversation"
	"github.com/comigor/convoview/internal/logger"
)

const (
	conversationsPath = "/api/conversations"
	conversationPath  = "/api/conversations/{id}"
	savePath          = "/api/conversations/{id}/save"

	// RequestIDHeader correlates backend logs with the diagnostics journal.
	RequestIDHeader = "X-Request-ID"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds each request. Zero leaves requests to the transport.
	Timeout time.Duration
}

// Client is a thin resty wrapper around the four conversation endpoints.
type Client struct {
	http *resty.Client
}

// New creates a Client for the backend at cfg.BaseURL.
func New(cfg Config) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	return &Client{http: rc}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, uuid.NewString())
}

// List fetches all conversation summaries. A missing or null
// "conversations" field yields an empty slice.
func (c *Client) List(ctx context.Context) ([]conversation.Summary, error) {
	resp, err := c.request(ctx).Get(conversationsPath)
	if err := check(resp, err, http.MethodGet, conversationsPath); err != nil {
		return nil, errors.Wrap(err, "list conversations")
	}

	var envelope *conversation.ListResponse
	if err := decode(resp.Body(), &envelope); err != nil {
		return nil, errors.Wrap(err, "decode conversation list")
	}
	if envelope == nil || envelope.Conversations == nil {
		return []conversation.Summary{}, nil
	}
	return envelope.Conversations, nil
}

// Get fetches one conversation. A JSON null (or empty) body yields a nil
// detail and no error: the backend answered, but there is nothing to show.
func (c *Client) Get(ctx context.Context, id string) (*conversation.Detail, error) {
	resp, err := c.request(ctx).SetPathParam("id", id).Get(conversationPath)
	if err := check(resp, err, http.MethodGet, conversationPath); err != nil {
		return nil, errors.Wrapf(err, "get conversation %s", id)
	}

	var detail *conversation.Detail
	if err := decode(resp.Body(), &detail); err != nil {
		return nil, errors.Wrapf(err, "decode conversation %s", id)
	}
	return detail, nil
}

// Delete removes a conversation.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Delete(conversationPath)
	if err := check(resp, err, http.MethodDelete, conversationPath); err != nil {
		return errors.Wrapf(err, "delete conversation %s", id)
	}
	return nil
}

// Save asks the backend to write the transcript to filename.
func (c *Client) Save(ctx context.Context, id, filename string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(conversation.SaveRequest{Filename: filename}).
		Post(savePath)
	if err := check(resp, err, http.MethodPost, savePath); err != nil {
		return errors.Wrapf(err, "save conversation %s", id)
	}
	return nil
}

func check(resp *resty.Response, err error, method, path string) error {
	if err != nil {
		return err
	}
	if resp.IsSuccess() {
		return nil
	}
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode()}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(resp.Body(), &body) == nil {
		apiErr.Message = body.Error
	}
	logger.L.Debug("backend returned non-2xx", "method", method, "path", path, "status", resp.StatusCode())
	return apiErr
}

func decode(body []byte, dest any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, dest)
}
