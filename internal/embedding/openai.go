package embedding

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimensions is the vector length of DefaultModel.
	DefaultDimensions = 1536
	// DefaultMaxBatchSize is the provider's per-request input limit.
	DefaultMaxBatchSize = 100
	// DefaultAPIKeyEnv is the environment variable holding the credential.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)

// OpenAIConfig configures an OpenAIEmbedder. Zero values take the defaults above.
type OpenAIConfig struct {
	Model             string
	Dimensions        int
	BaseURL           string // empty for api.openai.com; any compatible endpoint otherwise
	APIKeyEnv         string
	MaxBatchSize      int
	RequestsPerSecond float64 // 0 disables pacing
	Timeout           time.Duration
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	cfg        OpenAIConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// OpenAIOption configures an OpenAIEmbedder.
type OpenAIOption func(*OpenAIEmbedder)

// WithLogger sets a logger for per-request debug output.
func WithLogger(l *zap.Logger) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.logger = l }
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(e *OpenAIEmbedder) { e.httpClient = c }
}

// NewOpenAIEmbedder creates an embedder. The API key is not read here: it is
// looked up from the environment on every call so a missing key surfaces as
// ErrMissingAPIKey at the operation that needs it.
func NewOpenAIEmbedder(cfg OpenAIConfig, opts ...OpenAIOption) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
		if cfg.Model == "text-embedding-3-large" {
			cfg.Dimensions = 3072
		}
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	e := &OpenAIEmbedder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed generates an embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends texts in one request. It fails without I/O when the key is
// missing or the batch exceeds MaxBatchSize, and never retries.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > e.cfg.MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d inputs", len(texts), e.cfg.MaxBatchSize)
	}
	if err := e.Ready(); err != nil {
		return nil, err
	}
	key := os.Getenv(e.cfg.APIKeyEnv)
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	clientCfg := openai.DefaultConfig(key)
	if e.cfg.BaseURL != "" {
		clientCfg.BaseURL = e.cfg.BaseURL
	}
	clientCfg.HTTPClient = e.httpClient
	client := openai.NewClientWithConfig(clientCfg)

	start := time.Now()
	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	e.logger.Debug("embedding batch done",
		zap.Int("inputs", len(texts)),
		zap.String("model", e.cfg.Model),
		zap.Duration("elapsed", time.Since(start)),
	)

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbeddingService, len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || out[d.Index] != nil {
			return nil, fmt.Errorf("%w: invalid embedding index %d", ErrEmbeddingService, d.Index)
		}
		if len(d.Embedding) != e.cfg.Dimensions {
			return nil, fmt.Errorf("%w: embedding dimension %d, expected %d", ErrEmbeddingService, len(d.Embedding), e.cfg.Dimensions)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Ready reports ErrMissingAPIKey when the credential variable is unset.
func (e *OpenAIEmbedder) Ready() error {
	if os.Getenv(e.cfg.APIKeyEnv) == "" {
		return fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, e.cfg.APIKeyEnv)
	}
	return nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.cfg.Dimensions
}

// Model returns the model name.
func (e *OpenAIEmbedder) Model() string {
	return e.cfg.Model
}

// MaxBatchSize returns the per-request input limit.
func (e *OpenAIEmbedder) MaxBatchSize() int {
	return e.cfg.MaxBatchSize
}

// Close is a no-op; connections belong to the HTTP client.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
