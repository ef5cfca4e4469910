package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wisslab/wissrank/pkg/logger"
)

const (
	DefaultEndpoint  = "https://query.wikidata.org/sparql"
	DefaultUserAgent = "wissrank/1.0 (https://github.com/wisslab/wissrank)"

	defaultPageSize   = 2000
	defaultPageDelay  = 1 * time.Second
	defaultMaxRetries = 4
	defaultTimeout    = 60 * time.Second
)

// Client is a Wikidata Query Service client. Queries go out as POSTed SPARQL;
// paged templates are walked with LIMIT/OFFSET until an empty page comes back.
// Throttling responses (429 and gateway 5xx) are retried with the endpoint's
// Retry-After when present, exponential backoff otherwise.
type Client struct {
	endpoint   string
	userAgent  string
	pageSize   int
	pageDelay  time.Duration
	maxRetries int
	httpClient *http.Client
}

type NewClientParams struct {
	Endpoint   string
	UserAgent  string
	PageSize   int
	PageDelay  time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

func NewClient(params NewClientParams) *Client {
	c := &Client{
		endpoint:   params.Endpoint,
		userAgent:  params.UserAgent,
		pageSize:   params.PageSize,
		pageDelay:  params.PageDelay,
		maxRetries: params.MaxRetries,
		httpClient: params.HTTPClient,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.pageDelay <= 0 {
		c.pageDelay = defaultPageDelay
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type binding map[string]sparqlValue

// value returns the plain string for a variable, empty when unbound.
func (b binding) value(name string) string {
	return b[name].Value
}

// entityID returns the trailing QID of an entity URI, or the raw value when it
// is not a URI.
func (b binding) entityID(name string) string {
	v := b[name].Value
	if idx := strings.LastIndex(v, "/"); idx != -1 {
		return v[idx+1:]
	}
	return v
}

type resultsEnvelope struct {
	Results struct {
		Bindings []binding `json:"bindings"`
	} `json:"results"`
}

type httpStatusError struct {
	status        int
	retryAfter    time.Duration
	hasRetryAfter bool
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("wdqs returned HTTP %d", e.status)
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// query runs one SPARQL query with bounded retries.
func (c *Client) query(ctx context.Context, sparql string) ([]binding, error) {
	delay := 1 * time.Second
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		bindings, err := c.queryOnce(ctx, sparql)
		if err == nil {
			return bindings, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		wait := delay
		if statusErr, ok := err.(*httpStatusError); ok {
			if !retryableStatus(statusErr.status) {
				return nil, err
			}
			if statusErr.hasRetryAfter {
				wait = statusErr.retryAfter
			}
		}
		if attempt == c.maxRetries {
			break
		}

		logger.Warn("[Wikidata] Query failed, retrying", "attempt", attempt, "wait", wait.String(), "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("wdqs query failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) queryOnce(ctx context.Context, sparql string) ([]binding, error) {
	form := url.Values{}
	form.Set("query", sparql)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		io.Copy(io.Discard, res.Body)
		statusErr := &httpStatusError{status: res.StatusCode}
		if after := res.Header.Get("Retry-After"); after != "" {
			if secs, err := strconv.Atoi(after); err == nil && secs >= 0 {
				statusErr.retryAfter = time.Duration(secs) * time.Second
				statusErr.hasRetryAfter = true
			}
		}
		return nil, statusErr
	}

	var envelope resultsEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode wdqs response: %w", err)
	}
	return envelope.Results.Bindings, nil
}

// paged walks a query template containing {LIMIT} and {OFFSET} placeholders
// until a page comes back empty, pausing between pages.
func (c *Client) paged(ctx context.Context, template string, fn func(binding) error) error {
	offset := 0
	for {
		q := strings.ReplaceAll(template, "{LIMIT}", strconv.Itoa(c.pageSize))
		q = strings.ReplaceAll(q, "{OFFSET}", strconv.Itoa(offset))

		batch, err := c.query(ctx, q)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for _, b := range batch {
			if err := fn(b); err != nil {
				return err
			}
		}

		offset += c.pageSize
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pageDelay):
		}
	}
}
