package resources

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/labelfewer/internal/embedding"
	"github.com/teemow/labelfewer/internal/memory"
	"github.com/teemow/labelfewer/internal/server"
)

func newTestContext(t *testing.T) *server.ServerContext {
	t.Helper()

	embedder := embedding.NewService(nil, embedding.DefaultDimensions, nil)
	store, err := memory.NewStore(filepath.Join(t.TempDir(), "memory.db"), embedder, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sc, err := server.NewServerContext(context.Background(), server.Options{Store: store})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func TestRegisterMemoryResources(t *testing.T) {
	sc := newTestContext(t)
	s := mcpserver.NewMCPServer("test", "0.0.0")

	if err := RegisterMemoryResources(s, sc); err != nil {
		t.Fatalf("RegisterMemoryResources() error = %v", err)
	}
}

func TestRegisterMemoryResources_RequiresStore(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), server.Options{})
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	defer func() { _ = sc.Shutdown() }()

	s := mcpserver.NewMCPServer("test", "0.0.0")
	if err := RegisterMemoryResources(s, sc); err == nil {
		t.Error("expected error when no store is configured")
	}
}

func TestHandleMemoryStats(t *testing.T) {
	sc := newTestContext(t)
	ctx := context.Background()

	if err := sc.Store().Upsert(ctx, memory.Example{
		MessageID: "msg-1", Subject: "Invoice #42", Label: "Finance", Accepted: true,
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "labeler://memory/stats"

	contents, err := handleMemoryStats(ctx, req, sc)
	if err != nil {
		t.Fatalf("handleMemoryStats() error = %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	text, ok := contents[0].(*mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if text.URI != "labeler://memory/stats" {
		t.Errorf("URI = %q", text.URI)
	}

	var stats memory.Stats
	if err := json.Unmarshal([]byte(text.Text), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Processed != 1 || stats.Accepted != 1 {
		t.Errorf("stats = %+v, want 1 processed and 1 accepted", stats)
	}
}

func TestHandleKnownLabels(t *testing.T) {
	sc := newTestContext(t)
	ctx := context.Background()

	for _, ex := range []memory.Example{
		{MessageID: "msg-1", Subject: "Invoice #42", Label: "Finance", Accepted: true},
		{MessageID: "msg-2", Subject: "Weekly digest", Label: "Newsletters", Accepted: true},
	} {
		if err := sc.Store().Upsert(ctx, ex); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "labeler://memory/labels"

	contents, err := handleKnownLabels(ctx, req, sc)
	if err != nil {
		t.Fatalf("handleKnownLabels() error = %v", err)
	}
	text, ok := contents[0].(*mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if !strings.Contains(text.Text, "Finance") || !strings.Contains(text.Text, "Newsletters") {
		t.Errorf("expected both labels in payload, got %s", text.Text)
	}
}
