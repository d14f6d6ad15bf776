package kagi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://kagi.com/api"
	defaultUA      = "kagi-go/0.1 (+github.com/kagi-unofficial/kagi-go)"
)

// Client is a minimal HTTP client for the Kagi API. It is immutable after
// construction and safe for concurrent use.
type Client struct {
	token   string
	baseURL string
	ua      string
	http    *http.Client
	log     *logrus.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (useful for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom http.Client (e.g., with proxy or custom transport).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.ua = ua }
}

// WithTimeout sets the per-request timeout on the underlying http.Client.
// Apply it after WithHTTPClient when both are given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets a logger for request metadata. Only method, path, status
// and elapsed time are logged, at debug level. The token is never logged.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient constructs a Client with sane defaults.
func NewClient(token string, opts ...Option) *Client {
	log := logrus.New()
	log.SetOutput(io.Discard)
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		ua:      defaultUA,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type fastGPTRequest struct {
	Query string `json:"query"`
	Cache bool   `json:"cache"`
}

// GenerateOption configures a Generate call.
type GenerateOption func(*fastGPTRequest)

// WithoutCache asks the API to answer without serving a cached result.
func WithoutCache() GenerateOption {
	return func(r *fastGPTRequest) { r.Cache = false }
}

// Generate calls POST /v0/fastgpt and returns the generated answer along
// with its references. It performs exactly one request; errors surface
// directly with no retry.
func (c *Client) Generate(ctx context.Context, query string, opts ...GenerateOption) (*FastGPTResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("kagi: query is empty")
	}
	req := fastGPTRequest{Query: query, Cache: true}
	for _, o := range opts {
		o(&req)
	}
	const endpoint = "/v0/fastgpt"
	env, err := c.do(ctx, http.MethodPost, endpoint, nil, req)
	if err != nil {
		return nil, err
	}
	return decodeFastGPT(endpoint, env)
}

// EnrichWeb calls GET /v0/enrich/web and returns ranked web results for
// the query.
func (c *Client) EnrichWeb(ctx context.Context, query string) (*EnrichResponse, error) {
	return c.enrich(ctx, "/v0/enrich/web", query)
}

// EnrichNews calls GET /v0/enrich/news; same contract as EnrichWeb over
// the news index.
func (c *Client) EnrichNews(ctx context.Context, query string) (*EnrichResponse, error) {
	return c.enrich(ctx, "/v0/enrich/news", query)
}

func (c *Client) enrich(ctx context.Context, endpoint, query string) (*EnrichResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("kagi: query is empty")
	}
	env, err := c.do(ctx, http.MethodGet, endpoint, url.Values{"q": {query}}, nil)
	if err != nil {
		return nil, err
	}
	return decodeEnrich(endpoint, env)
}

type summarizeWireRequest struct {
	URL            string `json:"url,omitempty"`
	Text           string `json:"text,omitempty"`
	Engine         string `json:"engine,omitempty"`
	SummaryType    string `json:"summary_type,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	Cache          *bool  `json:"cache,omitempty"`
}

// Summarize calls POST /v0/summarize. Exactly one of req.URL and req.Text
// must be set; the check happens before any network I/O.
func (c *Client) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizationResponse, error) {
	if (req.URL == "") == (req.Text == "") {
		return nil, errors.New("kagi: exactly one of URL or Text must be set")
	}
	body := summarizeWireRequest{
		URL:            req.URL,
		Text:           req.Text,
		Engine:         string(req.Engine),
		SummaryType:    string(req.SummaryType),
		TargetLanguage: req.TargetLanguage,
	}
	if req.NoCache {
		f := false
		body.Cache = &f
	}
	const endpoint = "/v0/summarize"
	env, err := c.do(ctx, http.MethodPost, endpoint, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeSummarization(endpoint, env)
}

// do performs a single request against the API and decodes the response
// envelope. Non-2xx statuses map to the error taxonomy; network errors
// come back wrapped by the transport (*url.Error).
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any) (*wireEnvelope, error) {
	if c.token == "" {
		return nil, errors.New("kagi: API token is empty")
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", c.ua)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":  method,
		"path":    endpoint,
		"status":  res.StatusCode,
		"elapsed": time.Since(start),
	}).Debug("kagi api call")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20)) // 1 MiB
		switch res.StatusCode {
		case http.StatusUnauthorized:
			return nil, ErrUnauthorized
		case http.StatusForbidden:
			return nil, ErrForbidden
		case http.StatusTooManyRequests:
			return nil, ErrRateLimited
		}
		apiErr := &APIError{Status: res.StatusCode}
		var payload wireErrorBody
		if json.Unmarshal(b, &payload) == nil && len(payload.Error) > 0 {
			apiErr.Code = payload.Error[0].Code
			apiErr.Message = payload.Error[0].Msg
		}
		return nil, apiErr
	}

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	var env wireEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Err: err}
	}
	return &env, nil
}
