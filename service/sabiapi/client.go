package sabiapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sabicash/sabicash/core"
)

const (
	headerRequestID = "X-Request-Id"

	codeInsufficientPoints = "insufficient_points"
)

type Config struct {
	BaseURL string        `valid:"requrl,required"`
	Timeout time.Duration `valid:"-"`
}

// Client is a thin JSON-over-HTTP transport for one base url.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   c,
		logger: logger.With("service", "sabiapi"),
	}
}

type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Request describes one api call. Out is decoded from a 2xx body.
type Request struct {
	Method string
	Path   string
	Token  string
	Query  map[string]string
	Body   any
	Out    any
}

func (c *Client) Do(ctx context.Context, r Request) error {
	var body errorBody
	req := c.http.R().
		SetContext(ctx).
		SetHeader(headerRequestID, uuid.NewString()).
		SetError(&body)

	if r.Token != "" {
		req.SetAuthToken(r.Token)
	}

	if len(r.Query) > 0 {
		req.SetQueryParams(r.Query)
	}

	if r.Body != nil {
		req.SetBody(r.Body)
	}

	if r.Out != nil {
		req.SetResult(r.Out)
	}

	resp, err := req.Execute(r.Method, r.Path)
	if err != nil {
		// a body that is not the expected json still carries a status
		if resp != nil && resp.StatusCode() >= http.StatusBadRequest {
			return statusError(resp.StatusCode(), errorBody{})
		}

		c.logger.Debug("http.Execute", "method", r.Method, "path", r.Path, "err", err)
		return core.WrapError(core.ErrNetwork, err)
	}

	if resp.IsError() {
		c.logger.Debug("request failed", "method", r.Method, "path", r.Path, "status", resp.StatusCode())
		return statusError(resp.StatusCode(), body)
	}

	return nil
}

func (c *Client) Get(ctx context.Context, path, token string, query map[string]string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Token: token, Query: query, Out: out})
}

func (c *Client) Post(ctx context.Context, path, token string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Token: token, Body: body, Out: out})
}

func (c *Client) Put(ctx context.Context, path, token string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Token: token, Body: body, Out: out})
}

func (c *Client) Patch(ctx context.Context, path, token string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Token: token, Body: body, Out: out})
}

func (c *Client) Delete(ctx context.Context, path, token string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Token: token})
}

func statusError(status int, body errorBody) *core.Error {
	msg := body.Detail
	if msg == "" {
		msg = body.Message
	}

	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}

	return &core.Error{
		Kind:    kindOf(status, body.Code),
		Status:  status,
		Code:    body.Code,
		Message: msg,
	}
}

func kindOf(status int, code string) error {
	if code == codeInsufficientPoints {
		return core.ErrInsufficientBalance
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.ErrAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.ErrValidation
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusPaymentRequired, http.StatusConflict:
		return core.ErrInsufficientBalance
	default:
		return core.ErrNetwork
	}
}

// StatusOf returns the http status carried by err, or 0.
func StatusOf(err error) int {
	var e *core.Error
	if errors.As(err, &e) {
		return e.Status
	}

	return 0
}
