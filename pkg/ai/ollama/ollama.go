package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/wisslab/wissrank/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const (
	defaultDimensions    = 1024
	defaultTimeoutMin    = 5
	defaultMaxConcurrent = 2
)

// OllamaEmbedder implements ai.Embedder using a locally-hosted Ollama server.
type OllamaEmbedder struct {
	model      string
	dimensions int
	timeoutMin int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewOllamaEmbedderParams contains configuration options for creating a new
// OllamaEmbedder.
type NewOllamaEmbedderParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	Dimensions            int
	TimeoutMinutes        int
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewOllamaEmbedder creates a new Ollama-backed embedder. It connects to the
// Ollama server at the given BaseURL (or the default if empty).
func NewOllamaEmbedder(params NewOllamaEmbedderParams) (*OllamaEmbedder, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	dim := params.Dimensions
	if dim <= 0 {
		dim = defaultDimensions
	}
	timeoutMin := params.TimeoutMinutes
	if timeoutMin <= 0 {
		timeoutMin = defaultTimeoutMin
	}
	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	return &OllamaEmbedder{
		model:      params.Model,
		dimensions: dim,
		timeoutMin: timeoutMin,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		Client: api.NewClient(u, httpClient),
	}, nil
}

// Dimensions returns the configured embedding vector length.
func (c *OllamaEmbedder) Dimensions() int {
	return c.dimensions
}

// ResetMetrics clears the accumulated metrics.
func (c *OllamaEmbedder) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the metrics accumulated since the last reset.
func (c *OllamaEmbedder) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *OllamaEmbedder) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}
