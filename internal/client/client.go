package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/flashfile/internal/api/http"
	"github.com/GriffinCanCode/flashfile/internal/api/middleware"
	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// Config controls the HTTP client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Logger       *zap.Logger
}

// DefaultConfig returns settings suitable for a local server.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      30 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 200 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Body       apihttp.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Body.Error, e.StatusCode)
}

// Client wraps resty with retries on connection failures.
type Client struct {
	resty *resty.Client
}

// New creates a client for the server at cfg.BaseURL.
func New(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = retryPolicy
	retryClient.Logger = nil
	if cfg.Logger != nil {
		retryClient.Logger = leveledLogger{cfg.Logger.Sugar()}
	}

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "flashfile-cli/"+apihttp.Version).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	return &Client{resty: r}
}

// retryPolicy retries only when no response arrived.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.resty.R().
		SetContext(ctx).
		SetHeader(middleware.RequestIDHeader, uuid.NewString()).
		SetError(&apihttp.ErrorResponse{})
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if body, ok := resp.Error().(*apihttp.ErrorResponse); ok && body != nil {
		apiErr.Body = *body
	}
	if apiErr.Body.RequestID == "" {
		apiErr.Body.RequestID = resp.Header().Get(middleware.RequestIDHeader)
	}
	return apiErr
}

// Run executes src on the server. A zero timeout leaves the server's
// default in place. On a script failure the error is an *APIError whose
// body carries the console output.
func (c *Client) Run(ctx context.Context, src string, timeout time.Duration) (*apihttp.ScriptResponse, error) {
	var out apihttp.ScriptResponse
	resp, err := c.request(ctx).
		SetBody(apihttp.ScriptRequest{Script: src, TimeoutMs: int(timeout / time.Millisecond)}).
		SetResult(&out).
		Post("/api/v1/scripts")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns file sizes, filtered by a glob pattern when one is given.
func (c *Client) List(ctx context.Context, pattern string) (map[string]int64, error) {
	var out struct {
		Files map[string]int64 `json:"files"`
	}
	req := c.request(ctx).SetResult(&out)
	if pattern != "" {
		req.SetQueryParam("pattern", pattern)
	}
	if err := check(req.Get("/api/v1/files")); err != nil {
		return nil, err
	}
	if out.Files == nil {
		out.Files = map[string]int64{}
	}
	return out.Files, nil
}

// ReadFile downloads the content of name.
func (c *Client) ReadFile(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.request(ctx).
		SetPathParam("name", name).
		Get("/api/v1/files/{name}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// Info returns volume usage.
func (c *Client) Info(ctx context.Context) (file.VolumeInfo, error) {
	var out file.VolumeInfo
	err := check(c.request(ctx).SetResult(&out).Get("/api/v1/fsinfo"))
	return out, err
}

// PhysicalConfig returns the placement of the volume.
func (c *Client) PhysicalConfig(ctx context.Context) (volume.PhysicalConfig, error) {
	var out volume.PhysicalConfig
	err := check(c.request(ctx).SetResult(&out).Get("/api/v1/fscfg"))
	return out, err
}

// leveledLogger adapts zap to retryablehttp.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
