package openai

import (
	"sync"

	"github.com/wisslab/wissrank/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const (
	defaultDimensions    = 1536
	defaultTimeoutMin    = 5
	defaultMaxConcurrent = 4
	defaultMaxTokens     = 8192
	defaultEncoding      = "cl100k_base"
)

// OpenAIEmbedder implements ai.Embedder against an OpenAI-compatible
// embeddings endpoint.
//
// An OpenAIEmbedder should be created using NewOpenAIEmbedder.
type OpenAIEmbedder struct {
	model      string
	dimensions int
	timeoutMin int
	maxTokens  int
	encoding   string

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *openai.Client
}

// NewOpenAIEmbedderParams defines the configuration for creating an OpenAIEmbedder.
//
// Model specifies the embedding model. BaseURL and ApiKey configure the
// endpoint; BaseURL may be empty for the default OpenAI API. Dimensions is
// the expected vector length; responses are truncated or zero-padded to it.
type NewOpenAIEmbedderParams struct {
	Model   string
	BaseURL string
	ApiKey  string

	Dimensions            int
	TimeoutMinutes        int
	MaxConcurrentRequests int64

	// MaxInputTokens bounds each input; longer texts are truncated under
	// TokenEncoding before the request is sent.
	MaxInputTokens int
	TokenEncoding  string
}

// NewOpenAIEmbedder creates a new OpenAIEmbedder configured with the provided
// parameters.
func NewOpenAIEmbedder(params NewOpenAIEmbedderParams) *OpenAIEmbedder {
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
	maxTokens := params.MaxInputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	encoding := params.TokenEncoding
	if encoding == "" {
		encoding = defaultEncoding
	}

	options := []option.RequestOption{
		option.WithAPIKey(params.ApiKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	return &OpenAIEmbedder{
		model:      params.Model,
		dimensions: dim,
		timeoutMin: timeoutMin,
		maxTokens:  maxTokens,
		encoding:   encoding,

		reqLock: semaphore.NewWeighted(maxConcurrent),

		Client: &client,
	}
}

// Dimensions returns the configured embedding vector length.
func (c *OpenAIEmbedder) Dimensions() int {
	return c.dimensions
}

// ResetMetrics clears the accumulated metrics.
func (c *OpenAIEmbedder) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the metrics accumulated since the last reset.
func (c *OpenAIEmbedder) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *OpenAIEmbedder) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}
