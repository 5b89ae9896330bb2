package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/shirabe/internal/config"
	"github.com/hyperjump/shirabe/internal/embedding"
	"go.uber.org/zap"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"release checklist", "-top-k", "3"},
			expected: []string{"-top-k", "3", "release checklist"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-top-k", "3", "release checklist"},
			expected: []string{"-top-k", "3", "release checklist"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"release checklist"},
			expected: []string{"release checklist"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"one", "two", "-dir", "./docs"},
			expected: []string{"-dir", "./docs", "one", "two"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"rollback"}, "rollback"},
		{"multiple words", []string{"rollback", "procedure"}, "rollback procedure"},
		{"single quoted phrase", []string{"rollback procedure"}, "rollback procedure"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
search:
  default_top_k: 7
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug || cfg.Search.DefaultTopK != 7 {
		t.Errorf("cwd config not applied: %+v", cfg)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Index.ChunkSize != 500 {
		t.Errorf("defaults not applied: chunk size %d", cfg.Index.ChunkSize)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestInitializeComponents_offline(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("shirabe indexes folders"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Embedding.Dimensions = 8
	c := initializeComponents(cfg, zap.NewNop(), nil, true)
	defer c.Close()

	if _, ok := c.Embedder.(*embedding.MockEmbedder); !ok {
		t.Fatalf("offline embedder = %T", c.Embedder)
	}
	summary, err := c.Tool.IndexPath(t.Context(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if summary.ChunkCount != 1 || summary.FileCount != 1 {
		t.Errorf("summary = %+v", summary)
	}
	resp, err := c.Tool.Search(t.Context(), "shirabe indexes folders", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Chunk.FilePath != "notes.md" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestQueryEmbedder(t *testing.T) {
	cfg := config.Default().Embedding
	emb := newEmbedder(&cfg, zap.NewNop(), false)
	if _, ok := emb.(*embedding.OpenAIEmbedder); !ok {
		t.Fatalf("index embedder = %T, want uncached OpenAI embedder", emb)
	}
	if _, ok := queryEmbedder(emb, cfg.CacheSize).(*embedding.CachedEmbedder); !ok {
		t.Error("expected cached query embedder when cache_size > 0")
	}
	if got := queryEmbedder(emb, 0); got != emb {
		t.Errorf("cache disabled: got %T", got)
	}
}

func TestInitializeComponents_indexerBypassesCache(t *testing.T) {
	c := initializeComponents(config.Default(), zap.NewNop(), nil, false)
	defer c.Close()
	if _, ok := c.Embedder.(*embedding.OpenAIEmbedder); !ok {
		t.Errorf("indexing embedder = %T, want uncached OpenAI embedder", c.Embedder)
	}
}
