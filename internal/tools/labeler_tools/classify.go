package labeler_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/labelfewer/internal/classifier"
	"github.com/teemow/labelfewer/internal/instrumentation"
	"github.com/teemow/labelfewer/internal/server"
	"github.com/teemow/labelfewer/internal/tools/batch"
	"github.com/teemow/labelfewer/internal/tools/common"
)

// suggestionView is the JSON shape tools return for one suggestion.
type suggestionView struct {
	MessageID string             `json:"messageId"`
	Subject   string             `json:"subject,omitempty"`
	Sender    string             `json:"sender,omitempty"`
	Skipped   bool               `json:"skipped,omitempty"`
	Label     string             `json:"label,omitempty"`
	LabelID   string             `json:"labelId,omitempty"`
	Source    string             `json:"source,omitempty"`
	Rationale string             `json:"rationale,omitempty"`
	Scores    map[string]float64 `json:"scores,omitempty"`
}

func newSuggestionView(msg classifier.Message, suggestion *classifier.Suggestion) suggestionView {
	view := suggestionView{
		MessageID: msg.ID,
		Subject:   msg.Subject,
		Sender:    msg.Sender,
	}
	if suggestion == nil {
		view.Skipped = true
		return view
	}
	view.Label = suggestion.Label
	view.LabelID = suggestion.LabelID
	view.Source = suggestion.Source
	view.Rationale = suggestion.Rationale
	view.Scores = suggestion.Scores
	return view
}

// classifyOne runs one classification and records the outcome metric.
func classifyOne(ctx context.Context, sc *server.ServerContext, msg classifier.Message, providerLabels map[string]string, excluded []string) (*classifier.Suggestion, error) {
	start := time.Now()

	var suggestion *classifier.Suggestion
	var err error
	if len(excluded) > 0 {
		suggestion, err = sc.Resolver().ClassifyExcluding(ctx, msg, providerLabels, excluded)
	} else {
		suggestion, err = sc.Resolver().Classify(ctx, msg, providerLabels)
	}

	if metrics := sc.Metrics(); metrics != nil {
		source := "none"
		status := instrumentation.StatusSkipped
		switch {
		case err != nil:
			status = instrumentation.StatusError
		case suggestion != nil:
			source = suggestion.Source
			status = instrumentation.StatusSuccess
		}
		metrics.RecordClassification(ctx, source, status, time.Since(start))
	}

	return suggestion, err
}

func handleClassifyInbox(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	maxResults := int64(5)
	if maxResultsVal, ok := args["maxResults"].(float64); ok && maxResultsVal > 0 {
		maxResults = int64(maxResultsVal)
	}

	client, errResult := getClient(ctx, sc, account)
	if errResult != nil {
		return errResult, nil
	}

	providerLabels, err := client.LabelIDsByName()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list labels: %v", err)), nil
	}

	messages, err := client.GetUnreadMessages(maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch unread messages: %v", err)), nil
	}

	processed, err := sc.Store().ProcessedIDs(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read label memory: %v", err)), nil
	}

	views := make([]suggestionView, 0, len(messages))
	for _, m := range messages {
		if processed[m.ID] {
			continue
		}

		msg := toClassifierMessage(m)
		suggestion, err := classifyOne(ctx, sc, msg, providerLabels, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to classify message %s: %v", m.ID, err)), nil
		}
		views = append(views, newSuggestionView(msg, suggestion))
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"account":     account,
		"unread":      len(messages),
		"suggestions": views,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode suggestions: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}

func handleClassifyMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := getClient(ctx, sc, account)
	if errResult != nil {
		return errResult, nil
	}

	providerLabels, err := client.LabelIDsByName()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list labels: %v", err)), nil
	}

	results := batch.ProcessBatch(messageIDs, func(messageID string) (string, error) {
		m, err := client.GetMessageByID(messageID)
		if err != nil {
			return "", err
		}

		msg := toClassifierMessage(m)
		suggestion, err := classifyOne(ctx, sc, msg, providerLabels, nil)
		if err != nil {
			return "", err
		}

		payload, err := json.Marshal(newSuggestionView(msg, suggestion))
		if err != nil {
			return "", err
		}
		return string(payload), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleResuggest(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	var excluded []string
	if raw, ok := args["excludedLabels"]; ok && raw != nil {
		var err error
		excluded, err = batch.ParseStringOrArray(raw, "excludedLabels")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	client, errResult := getClient(ctx, sc, account)
	if errResult != nil {
		return errResult, nil
	}

	providerLabels, err := client.LabelIDsByName()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list labels: %v", err)), nil
	}

	m, err := client.GetMessageByID(messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch message %s: %v", messageID, err)), nil
	}

	msg := toClassifierMessage(m)
	suggestion, err := classifyOne(ctx, sc, msg, providerLabels, excluded)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to classify message %s: %v", messageID, err)), nil
	}

	payload, err := json.MarshalIndent(newSuggestionView(msg, suggestion), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode suggestion: %v", err)), nil
	}

	return mcp.NewToolResultText(string(payload)), nil
}
