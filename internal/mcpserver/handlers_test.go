package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/shirabe/internal/embedding"
	"github.com/hyperjump/shirabe/internal/indexer"
	"github.com/hyperjump/shirabe/internal/reader"
	"github.com/hyperjump/shirabe/internal/search"
	"github.com/hyperjump/shirabe/internal/tool"
	"github.com/hyperjump/shirabe/internal/vector"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	emb := embedding.NewMockEmbedder(8)
	store := vector.NewStore()
	idx := indexer.NewIndexer(reader.NewReader(nil), emb, store, nil)
	return &Handlers{
		Tool:   tool.New(nil, idx, search.NewEngine(emb, store, nil)),
		Logger: zap.NewNop(),
	}
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty result content")
	}
	return r.Content[0].(*mcp.TextContent).Text
}

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"guide.md":      "Install the package, then run the setup wizard.",
		"notes/faq.txt": "Refunds are processed within five business days.",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func Test_HandleIndex(t *testing.T) {
	h := newTestHandlers(t)
	dir := writeDocs(t)

	result, _, err := h.HandleIndex(context.Background(), nil, IndexArgs{Path: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got %s", resultText(t, result))
	}
	if text := resultText(t, result); !strings.Contains(text, "2 chunks from 2 files") {
		t.Errorf("unexpected summary: %s", text)
	}
}

func Test_HandleIndex_Errors(t *testing.T) {
	h := newTestHandlers(t)
	tests := []struct {
		name string
		path string
		want string
	}{
		{"Missing_path", "", "path parameter is required"},
		{"Not_found", filepath.Join(t.TempDir(), "nope"), "Index error"},
		{"No_files", t.TempDir(), "no eligible text files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _, err := h.HandleIndex(context.Background(), nil, IndexArgs{Path: tt.path})
			if err != nil {
				t.Fatalf("handler errors are reported in the result, got %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.want) {
				t.Errorf("expected %q in %q", tt.want, text)
			}
		})
	}
}

func Test_HandleSearch(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	result, _, _ := h.HandleSearch(ctx, nil, SearchArgs{Query: "refunds"})
	if !result.IsError || !strings.Contains(resultText(t, result), "no folder indexed") {
		t.Fatalf("expected not-indexed error, got %s", resultText(t, result))
	}

	if result, _, _ := h.HandleIndex(ctx, nil, IndexArgs{Path: writeDocs(t)}); result.IsError {
		t.Fatal(resultText(t, result))
	}
	result, _, err := h.HandleSearch(ctx, nil, SearchArgs{Query: "Refunds are processed within five business days.", TopK: 1})
	if err != nil || result.IsError {
		t.Fatalf("search failed: %v %s", err, resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "[1] notes/faq.txt") || strings.Contains(text, "[2]") {
		t.Errorf("expected only the faq passage:\n%s", text)
	}

	result, _, _ = h.HandleSearch(ctx, nil, SearchArgs{Query: "  "})
	if !result.IsError || !strings.Contains(resultText(t, result), "query cannot be empty") {
		t.Errorf("expected empty query error, got %s", resultText(t, result))
	}
}

func Test_HandleStatusAndClear(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()

	result, _, _ := h.HandleStatus(ctx, nil, StatusArgs{})
	if resultText(t, result) != "No folder indexed." {
		t.Errorf("unexpected status: %s", resultText(t, result))
	}

	dir := writeDocs(t)
	h.HandleIndex(ctx, nil, IndexArgs{Path: dir})
	result, _, _ = h.HandleStatus(ctx, nil, StatusArgs{})
	if text := resultText(t, result); !strings.Contains(text, dir) || !strings.Contains(text, "2 chunks from 2 files") {
		t.Errorf("unexpected status: %s", text)
	}

	result, _, _ = h.HandleClear(ctx, nil, ClearArgs{})
	if resultText(t, result) != "Index cleared." {
		t.Errorf("unexpected clear result: %s", resultText(t, result))
	}
	if h.Tool.IsIndexed() {
		t.Error("expected index to be cleared")
	}
}

func Test_Setup(t *testing.T) {
	if Setup(newTestHandlers(t), "test") == nil {
		t.Fatal("Setup returned nil server")
	}
}
