package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/trendlens/internal/metrics"
	"github.com/hyperjump/trendlens/internal/models"
	"github.com/hyperjump/trendlens/pkg/utils"
)

// AnalyzePath is the backend endpoint.
const AnalyzePath = "/analyze"

const maxErrorBody = 512

// Client calls the analysis backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d, Transport: c.httpClient.Transport}
		}
	}
}

// WithRateLimit limits outgoing requests to perMinute. Zero or negative disables limiting.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = utils.OrNop(l)
	}
}

// NewClient returns a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze posts the keywords and decodes the per-keyword results.
func (c *Client) Analyze(ctx context.Context, keywords []string) (*models.ResultSet, error) {
	keywords, err := models.NormalizeKeywords(keywords)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rs, err := c.do(ctx, keywords)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordAnalysis("error", elapsed)
		c.logger.Warn("analysis request failed", zap.Strings("keywords", keywords), zap.Error(err))
		return nil, err
	}
	metrics.RecordAnalysis("ok", elapsed)
	failed := len(rs.Failures())
	metrics.RecordKeywordResults(rs.Len()-failed, failed)
	c.logger.Debug("analysis complete",
		zap.Strings("keywords", keywords),
		zap.Int("failed", failed),
		zap.Float64("seconds", elapsed))
	return rs, nil
}

func (c *Client) do(ctx context.Context, keywords []string) (*models.ResultSet, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &models.TransportError{Err: fmt.Errorf("rate limit: %w", err)}
		}
	}
	body, err := json.Marshal(Request{Keywords: keywords})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AnalyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, &models.TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return nil, &models.TransportError{StatusCode: resp.StatusCode, Err: errors.New(text)}
	}

	var rs models.ResultSet
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return nil, &models.TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid response body: %w", err)}
	}
	return rs.InRequestOrder(keywords), nil
}
