package labeler_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/labelfewer/internal/server"
	"github.com/teemow/labelfewer/internal/tools/common"
)

// labelView is the JSON shape of one label in the listing.
type labelView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InMemory bool   `json:"inMemory"`
}

func handleListLabels(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	client, errResult := getClient(ctx, sc, account)
	if errResult != nil {
		return errResult, nil
	}

	labels, err := client.ListLabels()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list labels: %v", err)), nil
	}

	known, err := sc.Store().KnownLabels(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read label memory: %v", err)), nil
	}
	inMemory := make(map[string]bool, len(known))
	for _, name := range known {
		inMemory[name] = true
	}

	views := make([]labelView, 0, len(labels))
	for _, l := range labels {
		views = append(views, labelView{
			ID:       l.ID,
			Name:     l.Name,
			InMemory: inMemory[l.Name],
		})
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"account": account,
		"labels":  views,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode labels: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}
