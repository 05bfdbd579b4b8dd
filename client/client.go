// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package client is a Go client for the empstats HTTP API.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/featurebasedb/empstats"
	"github.com/featurebasedb/empstats/logger"
	"github.com/featurebasedb/empstats/tracing"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// DefaultHost is the address used when none is given.
const DefaultHost = "localhost:8000"

// Error is a non-2xx response from the server.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// StatusCode returns the HTTP status of err if it is a server *Error, and 0
// otherwise.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// Client queries an empstats server.
type Client struct {
	base   *url.URL
	client *retryablehttp.Client
	logger logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(c *Client) error

// OptClientRetries sets how many times a request is retried on connection
// errors and 5xx responses.
func OptClientRetries(n int) ClientOption {
	return func(c *Client) error {
		if n < 0 {
			return errors.Errorf("retries must not be negative, got %d", n)
		}
		c.client.RetryMax = n
		return nil
	}
}

// OptClientRetryWait bounds the backoff between retries.
func OptClientRetryWait(min, max time.Duration) ClientOption {
	return func(c *Client) error {
		if min > max {
			return errors.Errorf("minimum retry wait %v is greater than maximum %v", min, max)
		}
		c.client.RetryWaitMin, c.client.RetryWaitMax = min, max
		return nil
	}
}

// OptClientTimeout sets the timeout of each attempt.
func OptClientTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.client.HTTPClient.Timeout = d
		return nil
	}
}

// OptClientTLS sets the TLS configuration used for https hosts.
func OptClientTLS(conf *tls.Config) ClientOption {
	return func(c *Client) error {
		if conf == nil {
			return nil
		}
		transport, ok := c.client.HTTPClient.Transport.(*http.Transport)
		if !ok {
			return errors.New("client transport does not support TLS configuration")
		}
		transport.TLSClientConfig = conf
		return nil
	}
}

// OptClientLogger sets the logger used for retry messages.
func OptClientLogger(lg logger.Logger) ClientOption {
	return func(c *Client) error {
		c.logger = lg
		c.client.Logger = lg
		return nil
	}
}

// NewClient returns a client for the server at host, which may be a
// host:port or a URL.
func NewClient(host string, opts ...ClientOption) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing host %q", host)
	}
	if base.Host == "" {
		return nil, errors.Errorf("no host in %q", host)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = 30 * time.Second

	c := &Client{
		base:   base,
		client: rc,
		logger: logger.NopLogger,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}
	return c, nil
}

// URL returns the base URL of the server.
func (c *Client) URL() string {
	return c.base.String()
}

// get issues a GET request for path and decodes a 200 response into v.
func (c *Client) get(ctx context.Context, path string, query url.Values, v interface{}) error {
	span, ctx := tracing.StartSpanFromContext(ctx, "Client.Get")
	defer span.Finish()

	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	tracing.GlobalTracer.InjectHTTPHeaders(req.Request)
	c.logger.Debugf("GET %s", u.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "getting %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}
	if resp.StatusCode != http.StatusOK {
		return newError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}

// newError builds an *Error from a response body, which is a JSON error
// object for most failures and plain text for the rest.
func newError(code int, body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return &Error{StatusCode: code, Message: resp.Error}
	}
	return &Error{StatusCode: code, Message: strings.TrimSpace(string(body))}
}

// Health returns nil if the server has its dataset loaded.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "/health", nil, &resp)
}

// Version returns the server's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/version", nil, &resp); err != nil {
		return "", err
	}
	return resp.Version, nil
}

// Summary returns the record count and missing values per field.
func (c *Client) Summary(ctx context.Context) (*empstats.SummaryResponse, error) {
	resp := &empstats.SummaryResponse{}
	if err := c.get(ctx, "/api/summary", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Employees returns one page of employees. Zero page or limit leaves the
// server default.
func (c *Client) Employees(ctx context.Context, page, limit int) (*empstats.PaginatedDataResponse, error) {
	q := url.Values{}
	if page != 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit != 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	resp := &empstats.PaginatedDataResponse{}
	if err := c.get(ctx, "/api/employees", q, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Industries returns the distinct industries.
func (c *Client) Industries(ctx context.Context) ([]string, error) {
	resp := &empstats.IndustryListResponse{}
	if err := c.get(ctx, "/api/industries", nil, resp); err != nil {
		return nil, err
	}
	return resp.Industries, nil
}

// Person returns the employees matching the names, case-insensitively.
func (c *Client) Person(ctx context.Context, firstName, lastName string) ([]empstats.PersonRecord, error) {
	q := url.Values{"first_name": {firstName}, "last_name": {lastName}}
	var resp []empstats.PersonRecord
	if err := c.get(ctx, "/api/person", q, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SalaryStats describes salaries, optionally within one industry.
func (c *Client) SalaryStats(ctx context.Context, industry string) (*empstats.StatsResponse, error) {
	return c.stats(ctx, "/api/salary/stats", industry)
}

// ExperienceStats describes years of experience, optionally within one
// industry.
func (c *Client) ExperienceStats(ctx context.Context, industry string) (*empstats.StatsResponse, error) {
	return c.stats(ctx, "/api/experience/stats", industry)
}

// AgeDistribution describes employee ages.
func (c *Client) AgeDistribution(ctx context.Context) (*empstats.StatsResponse, error) {
	return c.stats(ctx, "/api/age/distribution", "")
}

func (c *Client) stats(ctx context.Context, path, industry string) (*empstats.StatsResponse, error) {
	q := url.Values{}
	if industry != "" {
		q.Set("industry", industry)
	}
	resp := &empstats.StatsResponse{}
	if err := c.get(ctx, path, q, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// IndustryDistribution returns the topN industries by employee count. Zero
// topN leaves the server default.
func (c *Client) IndustryDistribution(ctx context.Context, topN int) (empstats.Counts, error) {
	q := url.Values{}
	if topN != 0 {
		q.Set("top_n", strconv.Itoa(topN))
	}
	var resp empstats.Counts
	if err := c.get(ctx, "/api/industry/distribution", q, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GenderDistribution returns employee counts by gender.
func (c *Client) GenderDistribution(ctx context.Context) (empstats.Counts, error) {
	var resp empstats.Counts
	if err := c.get(ctx, "/api/gender/distribution", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// TopEarners returns the n highest paid employees.
func (c *Client) TopEarners(ctx context.Context, n int) ([]empstats.PersonRecord, error) {
	return c.top(ctx, "/api/top-earners", n)
}

// TopExperienced returns the n most experienced employees.
func (c *Client) TopExperienced(ctx context.Context, n int) ([]empstats.PersonRecord, error) {
	return c.top(ctx, "/api/top-experienced", n)
}

func (c *Client) top(ctx context.Context, path string, n int) ([]empstats.PersonRecord, error) {
	q := url.Values{}
	if n != 0 {
		q.Set("n", strconv.Itoa(n))
	}
	var resp []empstats.PersonRecord
	if err := c.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Correlations returns the pairwise Pearson coefficients.
func (c *Client) Correlations(ctx context.Context) (*empstats.CorrelationResponse, error) {
	resp := &empstats.CorrelationResponse{}
	if err := c.get(ctx, "/api/correlations", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
