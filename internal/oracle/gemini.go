package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/a3tai/mcp-notam-briefing/internal/metrics"
	"github.com/a3tai/mcp-notam-briefing/internal/notam"
)

// Gemini defaults
const (
	DefaultGeminiURL   = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultTimeout     = 60 * time.Second
	DefaultRPS         = 1.0

	endpointPath = "/v1beta/models/{model}:generateContent"
)

// ErrMissingAPIKey is returned when a client is built without a key
var ErrMissingAPIKey = errors.New("gemini: missing API key")

// GeminiOptions configures a GeminiClient. APIKey is opaque to the client
// and never logged.
type GeminiOptions struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing calls; Burst defaults to 1
	RequestsPerSecond float64
	Burst             int
	// HTTPClient overrides the default client, mainly for tests
	HTTPClient *http.Client
}

func (o *GeminiOptions) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultGeminiURL
	}
	if o.Model == "" {
		o.Model = DefaultGeminiModel
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = DefaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
}

// GeminiClient calls the Gemini generateContent endpoint. It is safe for
// concurrent use; the circuit breaker and the limiter are shared by every
// caller.
type GeminiClient struct {
	hc      *http.Client
	url     string
	model   string
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

// NewGeminiClient builds a client from opts. metrics and logger may be nil.
func NewGeminiClient(opts GeminiOptions, recorder *metrics.Recorder, logger *zap.Logger) (*GeminiClient, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	opts.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	path := strings.ReplaceAll(endpointPath, "{model}", url.PathEscape(opts.Model))
	c := &GeminiClient{
		hc:      hc,
		url:     strings.TrimRight(opts.BaseURL, "/") + path,
		model:   opts.Model,
		apiKey:  opts.APIKey,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// only an unreachable or failing upstream trips the breaker
		IsSuccessful: func(err error) bool {
			var unavailable *UnavailableError
			return err == nil || !errors.As(err, &unavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("oracle circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return c, nil
}

// Model returns the model name requests are sent to
func (c *GeminiClient) Model() string {
	return c.model
}

// Classify implements Classifier
func (c *GeminiClient) Classify(ctx context.Context, text string) (notam.TagMap, error) {
	start := time.Now()
	raw, err := c.generate(ctx, "classify", BuildClassificationPrompt(text, c.now()), true)
	if err != nil {
		c.metrics.OracleRequest("classify", metrics.OutcomeUnavailable, time.Since(start))
		return nil, err
	}

	tags, err := ParseTagMap(raw)
	if err != nil {
		c.metrics.OracleRequest("classify", metrics.OutcomeBadResponse, time.Since(start))
		return nil, err
	}
	c.metrics.OracleRequest("classify", metrics.OutcomeSuccess, time.Since(start))
	return tags, nil
}

// Summarize implements Summarizer
func (c *GeminiClient) Summarize(ctx context.Context, text string) (string, error) {
	start := time.Now()
	summary, err := c.generate(ctx, "brief", BuildBriefingPrompt(text), false)
	if err != nil {
		c.metrics.OracleRequest("brief", metrics.OutcomeUnavailable, time.Since(start))
		return "", err
	}
	c.metrics.OracleRequest("brief", metrics.OutcomeSuccess, time.Since(start))
	return summary, nil
}

type gmPart struct {
	Text string `json:"text"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmGenerationConfig struct {
	ResponseMIMEType string `json:"response_mime_type,omitempty"`
}

type gmReq struct {
	Contents         []gmContent         `json:"contents"`
	GenerationConfig *gmGenerationConfig `json:"generationConfig,omitempty"`
}

type gmResp struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// generate sends one prompt and returns the text of the first candidate.
// There are no retries: a failed call is reported to the caller as is.
func (c *GeminiClient) generate(ctx context.Context, operation, prompt string, jsonMode bool) (string, error) {
	requestID := uuid.NewString()
	logger := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("operation", operation),
		zap.String("model", c.model))

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &UnavailableError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.invoke(ctx, prompt, jsonMode)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		logger.Warn("oracle request rejected by circuit breaker")
		return "", &UnavailableError{Err: err}
	}
	if err != nil {
		logger.Warn("oracle request failed", zap.Error(err))
		return "", err
	}

	text := out.(string)
	logger.Debug("oracle request completed", zap.Int("response_bytes", len(text)))
	return text, nil
}

func (c *GeminiClient) invoke(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := gmReq{Contents: []gmContent{{Role: "user", Parts: []gmPart{{Text: prompt}}}}}
	if jsonMode {
		req.GenerationConfig = &gmGenerationConfig{ResponseMIMEType: "application/json"}
	}
	body, err := json.Marshal(&req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		// *url.Error repeats the request URL, which carries the key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", &UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &UnavailableError{
			Status: resp.StatusCode,
			Err:    errors.New(strings.TrimSpace(string(slurp))),
		}
	}

	var gr gmResp
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", &OracleResponseError{Err: fmt.Errorf("decode: %w", err)}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", &OracleResponseError{Err: errors.New("response has no candidates")}
	}

	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", &OracleResponseError{Err: errors.New("response text is empty")}
	}
	return b.String(), nil
}
