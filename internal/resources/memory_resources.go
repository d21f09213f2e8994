package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/labelfewer/internal/server"
)

// RegisterMemoryResources registers read-only resources describing the
// label memory: aggregate statistics and the set of known labels.
func RegisterMemoryResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Store() == nil {
		return fmt.Errorf("memory resources require a label memory store")
	}

	statsResource := mcp.NewResource(
		"labeler://memory/stats",
		"Label Memory Statistics",
		mcp.WithResourceDescription("Counts of processed messages, accepted examples and rejections in label memory"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(statsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleMemoryStats(ctx, request, sc)
	})

	labelsResource := mcp.NewResource(
		"labeler://memory/labels",
		"Known Labels",
		mcp.WithResourceDescription("Labels the labeler has seen applied to messages, sorted alphabetically"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(labelsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleKnownLabels(ctx, request, sc)
	})

	return nil
}

func handleMemoryStats(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	stats, err := sc.Store().Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read label memory stats: %w", err)
	}

	jsonData, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func handleKnownLabels(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	labels, err := sc.Store().KnownLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read known labels: %w", err)
	}

	jsonData, err := json.MarshalIndent(map[string]interface{}{
		"labels": labels,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal labels: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
