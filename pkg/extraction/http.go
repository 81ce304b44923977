package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/resilience"
)

// HTTPService speaks the extraction wire contract to a remote endpoint:
// POST {base}/parse and POST {base}/refine, JSON in, JSON out.
type HTTPService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   resilience.Config
}

// HTTPOption configures an HTTPService.
type HTTPOption func(*HTTPService)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPService) { s.client = c }
}

// WithAPIKey sets a bearer token for the service.
func WithAPIKey(key string) HTTPOption {
	return func(s *HTTPService) { s.apiKey = key }
}

// WithRetry overrides the retry policy.
func WithRetry(cfg resilience.Config) HTTPOption {
	return func(s *HTTPService) { s.retry = cfg }
}

// NewHTTP creates an HTTP-backed extraction service.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTPService {
	s := &HTTPService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   resilience.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Parse sends the initial extraction request.
func (s *HTTPService) Parse(ctx context.Context, req ParseRequest) (*Result, error) {
	return s.post(ctx, "/parse", req)
}

// Refine sends the second-pass request with question answers.
func (s *HTTPService) Refine(ctx context.Context, req RefineRequest) (*Result, error) {
	return s.post(ctx, "/refine", req)
}

func (s *HTTPService) post(ctx context.Context, path string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "extraction: marshal request")
	}

	res, err := resilience.DoVal(ctx, s.retry, "extraction"+path, func(ctx context.Context) (*Result, error) {
		return s.doOnce(ctx, path, body)
	})
	if err != nil {
		return nil, err
	}
	return normalize(res), nil
}

func (s *HTTPService) doOnce(ctx context.Context, path string, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "extraction: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		err := &NetworkError{Err: fmt.Errorf("extraction service returned %d", resp.StatusCode)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var res Result
	if unmarshalErr := json.Unmarshal(data, &res); unmarshalErr != nil {
		zap.L().Warn("extraction: undecodable response body",
			zap.String("path", path),
			zap.String("body", snippet(data)),
		)
		return nil, &MalformedResponseError{Err: unmarshalErr, Body: snippet(data)}
	}
	return &res, nil
}
