package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// fakeEmbeddingServer answers with vector [len(text), i] for input i, listed in
// reverse order so clients must honor the index field.
func fakeEmbeddingServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), float32(i)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	t.Setenv("SHIRABE_TEST_KEY", "test-key")
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	e := NewOpenAIEmbedder(OpenAIConfig{
		Model:      "test-model",
		Dimensions: 2,
		BaseURL:    srv.URL + "/v1",
		APIKeyEnv:  "SHIRABE_TEST_KEY",
	})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bbb", "cc"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, want := range []float32{1, 3, 2} {
		if vecs[i][0] != want || vecs[i][1] != float32(i) {
			t.Errorf("vector %d = %v, want [%v %d]", i, vecs[i], want, i)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
	if e.Model() != "test-model" || e.Dimensions() != 2 {
		t.Errorf("Model=%s Dimensions=%d", e.Model(), e.Dimensions())
	}
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	t.Setenv("SHIRABE_TEST_KEY", "test-key")
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	e := NewOpenAIEmbedder(OpenAIConfig{Dimensions: 2, BaseURL: srv.URL + "/v1", APIKeyEnv: "SHIRABE_TEST_KEY"})
	v, err := e.Embed(context.Background(), "four")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 2 || v[0] != 4 {
		t.Errorf("vector = %v", v)
	}
}

func TestOpenAIEmbedder_MissingKeyFailsBeforeRequest(t *testing.T) {
	t.Setenv("SHIRABE_TEST_KEY", "")
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	e := NewOpenAIEmbedder(OpenAIConfig{Dimensions: 2, BaseURL: srv.URL + "/v1", APIKeyEnv: "SHIRABE_TEST_KEY"})
	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no request, got %d", n)
	}
}

func TestOpenAIEmbedder_ServiceError(t *testing.T) {
	t.Setenv("SHIRABE_TEST_KEY", "test-key")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	}))
	defer srv.Close()
	e := NewOpenAIEmbedder(OpenAIConfig{Dimensions: 2, BaseURL: srv.URL + "/v1", APIKeyEnv: "SHIRABE_TEST_KEY"})
	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	if !errors.Is(err, ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("error should carry provider message, got %v", err)
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	t.Setenv("SHIRABE_TEST_KEY", "test-key")
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	e := NewOpenAIEmbedder(OpenAIConfig{Dimensions: 3, BaseURL: srv.URL + "/v1", APIKeyEnv: "SHIRABE_TEST_KEY"})
	_, err := e.EmbedBatch(context.Background(), []string{"x"})
	if !errors.Is(err, ErrEmbeddingService) || !strings.Contains(err.Error(), "dimension") {
		t.Errorf("expected dimension error, got %v", err)
	}
}

func TestOpenAIEmbedder_BatchLimit(t *testing.T) {
	t.Setenv("SHIRABE_TEST_KEY", "test-key")
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	e := NewOpenAIEmbedder(OpenAIConfig{Dimensions: 2, BaseURL: srv.URL + "/v1", APIKeyEnv: "SHIRABE_TEST_KEY", MaxBatchSize: 2})
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"}); err == nil {
		t.Error("expected error for oversized batch")
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Errorf("expected no request, got %d", n)
	}
	if e.MaxBatchSize() != 2 {
		t.Errorf("MaxBatchSize = %d", e.MaxBatchSize())
	}
}

func TestOpenAIEmbedder_EmptyBatch(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIConfig{})
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("got %v, %v", vecs, err)
	}
}

func TestNewOpenAIEmbedder_Defaults(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIConfig{})
	if e.Model() != DefaultModel || e.Dimensions() != DefaultDimensions || e.MaxBatchSize() != DefaultMaxBatchSize {
		t.Errorf("defaults: model=%s dim=%d batch=%d", e.Model(), e.Dimensions(), e.MaxBatchSize())
	}
	large := NewOpenAIEmbedder(OpenAIConfig{Model: "text-embedding-3-large"})
	if large.Dimensions() != 3072 {
		t.Errorf("large dimensions = %d", large.Dimensions())
	}
}

func TestOpenAIEmbedder_RateLimitHonorsContext(t *testing.T) {
	t.Setenv("SHIRABE_TEST_KEY", "test-key")
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	e := NewOpenAIEmbedder(OpenAIConfig{Dimensions: 2, BaseURL: srv.URL + "/v1", APIKeyEnv: "SHIRABE_TEST_KEY", RequestsPerSecond: 0.001})
	if _, err := e.Embed(context.Background(), "first"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Embed(ctx, "second"); err == nil {
		t.Error("expected limiter wait to fail on cancelled context")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 request, got %d", n)
	}
}
