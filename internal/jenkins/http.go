package jenkins

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/vk/jobsync/internal/ctxlog"
)

// HTTPConfig holds the connection settings of an HTTPClient.
type HTTPConfig struct {
	URL      string
	Username string
	Password string
	// Timeout bounds every single request. Zero means no timeout.
	Timeout time.Duration
}

// HTTPClient implements Client over the Jenkins REST API. It never retries;
// a failed request is reported to the caller as is.
type HTTPClient struct {
	rest *resty.Client

	crumbMu      sync.Mutex
	crumbFetched bool
	crumb        crumb
}

// crumb is the CSRF token Jenkins requires on POST requests when CSRF
// protection is enabled.
type crumb struct {
	Field string `json:"crumbRequestField"`
	Value string `json:"crumb"`
}

// NewHTTPClient creates a client for the server at cfg.URL.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	rest := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetHeader("Accept", "application/json, application/xml")
	if cfg.Timeout > 0 {
		rest.SetTimeout(cfg.Timeout)
	}
	if cfg.Username != "" {
		rest.SetBasicAuth(cfg.Username, cfg.Password)
	}
	return &HTTPClient{rest: rest}
}

// Close releases the idle connections of the underlying client.
func (c *HTTPClient) Close() error {
	return c.rest.Close()
}

// JobExists reports whether the server has a job with that name.
func (c *HTTPClient) JobExists(ctx context.Context, job string) (bool, error) {
	resp, err := c.request(ctx).
		SetPathParam("job", job).
		Get("/job/{job}/api/json")
	if err != nil {
		return false, fmt.Errorf("jenkins exists %s: %w", job, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return false, nil
	case resp.IsError():
		return false, apiError("exists", job, resp)
	}
	return true, nil
}

// JobConfig returns the config.xml of a job.
func (c *HTTPClient) JobConfig(ctx context.Context, job string) (string, error) {
	resp, err := c.request(ctx).
		SetPathParam("job", job).
		Get("/job/{job}/config.xml")
	if err != nil {
		return "", fmt.Errorf("jenkins read %s: %w", job, err)
	}
	if resp.IsError() {
		return "", apiError("read", job, resp)
	}
	return resp.String(), nil
}

// CreateJob creates a job from a config.xml document.
func (c *HTTPClient) CreateJob(ctx context.Context, job, config string) error {
	req, err := c.post(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetQueryParam("name", job).
		SetHeader("Content-Type", "application/xml").
		SetBody(config).
		Post("/createItem")
	return check("create", job, resp, err)
}

// UpdateJob replaces the config.xml of an existing job.
func (c *HTTPClient) UpdateJob(ctx context.Context, job, config string) error {
	req, err := c.post(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetPathParam("job", job).
		SetHeader("Content-Type", "application/xml").
		SetBody(config).
		Post("/job/{job}/config.xml")
	return check("update", job, resp, err)
}

// DeleteJob deletes a job.
func (c *HTTPClient) DeleteJob(ctx context.Context, job string) error {
	req, err := c.post(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetPathParam("job", job).
		Post("/job/{job}/doDelete")
	return check("delete", job, resp, err)
}

// BuildJob queues a build of a job.
func (c *HTTPClient) BuildJob(ctx context.Context, job string) error {
	req, err := c.post(ctx)
	if err != nil {
		return err
	}
	resp, err := req.
		SetPathParam("job", job).
		Post("/job/{job}/build")
	return check("build", job, resp, err)
}

func (c *HTTPClient) request(ctx context.Context) *resty.Request {
	return c.rest.R().SetContext(ctx)
}

// post prepares a POST request carrying the CSRF crumb, if the server
// issues one.
func (c *HTTPClient) post(ctx context.Context) (*resty.Request, error) {
	cr, err := c.fetchCrumb(ctx)
	if err != nil {
		return nil, err
	}
	req := c.request(ctx)
	if cr.Field != "" {
		req.SetHeader(cr.Field, cr.Value)
	}
	return req, nil
}

// fetchCrumb asks the server for a CSRF crumb until it gets an answer, then
// keeps that answer for the life of the client. Servers with CSRF protection
// disabled answer 404, which leaves the crumb empty. Failed attempts are not
// cached.
func (c *HTTPClient) fetchCrumb(ctx context.Context) (crumb, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	if c.crumbFetched {
		return c.crumb, nil
	}

	logger := ctxlog.FromContext(ctx)
	var cr crumb
	resp, err := c.request(ctx).
		SetResult(&cr).
		Get("/crumbIssuer/api/json")
	switch {
	case err != nil:
		return crumb{}, fmt.Errorf("jenkins crumb: %w", err)
	case resp.StatusCode() == http.StatusNotFound:
		logger.Debug("Jenkins issues no CSRF crumb.")
		cr = crumb{}
	case resp.IsError():
		return crumb{}, apiError("crumb", "", resp)
	default:
		logger.Debug("Fetched Jenkins CSRF crumb.", "field", cr.Field)
	}
	c.crumb = cr
	c.crumbFetched = true
	return c.crumb, nil
}

func check(op, job string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("jenkins %s %s: %w", op, job, err)
	}
	if resp.IsError() {
		return apiError(op, job, resp)
	}
	return nil
}

func apiError(op, job string, resp *resty.Response) *APIError {
	msg := resp.Header().Get("X-Error")
	if msg == "" {
		msg = resp.String()
	}
	return &APIError{Op: op, Job: job, StatusCode: resp.StatusCode(), Message: msg}
}

var _ Client = (*HTTPClient)(nil)
