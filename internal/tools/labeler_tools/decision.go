package labeler_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/labelfewer/internal/classifier"
	"github.com/teemow/labelfewer/internal/instrumentation"
	"github.com/teemow/labelfewer/internal/server"
	"github.com/teemow/labelfewer/internal/tools/common"
)

func handleRecordDecision(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	approved, ok := args["approved"].(bool)
	if !ok {
		return mcp.NewToolResultError("approved is required"), nil
	}

	label, _ := args["label"].(string)
	if approved && label == "" {
		return mcp.NewToolResultError("label is required when approving a suggestion"), nil
	}

	client, errResult := getClient(ctx, sc, account)
	if errResult != nil {
		return errResult, nil
	}

	// The stored example needs subject, sender and snippet, not just the ID
	m, err := client.GetMessageByID(messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch message %s: %v", messageID, err)), nil
	}
	msg := toClassifierMessage(m)

	decision := classifier.Decision{
		MessageID:  messageID,
		Approved:   approved,
		FinalLabel: label,
	}
	if err := classifier.RecordDecision(ctx, sc.Store(), nil, msg, decision); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record decision: %v", err)), nil
	}

	applied := false
	if approved && sc.ApplyLabels() {
		labelID, created, err := client.EnsureLabel(label)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to ensure label %q: %v", label, err)), nil
		}
		if err := client.ApplyLabel(messageID, labelID); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to apply label %q: %v", label, err)), nil
		}
		applied = true

		if metrics := sc.Metrics(); metrics != nil {
			metrics.RecordLabelApplied(ctx, created)
		}
	}

	if metrics := sc.Metrics(); metrics != nil {
		decisionValue := instrumentation.DecisionRejected
		if approved {
			decisionValue = instrumentation.DecisionApproved
		}
		metrics.RecordFeedback(ctx, decisionValue)
	}

	if audit := sc.Audit(); audit != nil {
		audit.LogLabelDecision(&instrumentation.LabelDecision{
			MessageID: messageID,
			Sender:    msg.Sender,
			Label:     label,
			Approved:  approved,
			Applied:   applied,
			Account:   account,
		})
	}

	switch {
	case approved && applied:
		return mcp.NewToolResultText(fmt.Sprintf("Recorded approval of %q for message %s and applied the label in Gmail", label, messageID)), nil
	case approved:
		return mcp.NewToolResultText(fmt.Sprintf("Recorded approval of %q for message %s. Label application is disabled, nothing was changed in Gmail.", label, messageID)), nil
	case label != "":
		return mcp.NewToolResultText(fmt.Sprintf("Recorded rejection of %q for message %s. This label will not be suggested again for similar mail.", label, messageID)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("Marked message %s as processed without a label", messageID)), nil
	}
}
