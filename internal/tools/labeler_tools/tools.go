package labeler_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/labelfewer/internal/classifier"
	"github.com/teemow/labelfewer/internal/gmail"
	"github.com/teemow/labelfewer/internal/instrumentation"
	"github.com/teemow/labelfewer/internal/server"
	"github.com/teemow/labelfewer/internal/tools/common"
)

// RegisterLabelerTools registers all classification tools with the MCP server
func RegisterLabelerTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Store() == nil {
		return fmt.Errorf("labeler tools require a label memory store")
	}
	if sc.Resolver() == nil {
		return fmt.Errorf("labeler tools require a classification resolver")
	}

	classifyInboxTool := mcp.NewTool("labeler_classify_inbox",
		mcp.WithDescription("Suggest labels for unread Gmail messages that have not been processed yet"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of unread messages to classify (default: 5)"),
		),
	)

	s.AddTool(classifyInboxTool, common.InstrumentedToolHandlerWithOperation(
		"labeler_classify_inbox", instrumentation.ServiceGmail, "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClassifyInbox(ctx, request, sc)
		}))

	classifyMessageTool := mcp.NewTool("labeler_classify_message",
		mcp.WithDescription("Suggest a label for one or more Gmail messages by ID"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to classify"),
		),
	)

	s.AddTool(classifyMessageTool, common.InstrumentedToolHandlerWithOperation(
		"labeler_classify_message", instrumentation.ServiceGmail, "get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClassifyMessage(ctx, request, sc)
		}))

	resuggestTool := mcp.NewTool("labeler_resuggest",
		mcp.WithDescription("Suggest a different label for a message, excluding labels the user already turned down"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to re-classify"),
		),
		mcp.WithString("excludedLabels",
			mcp.Description("Label (string) or array of labels that must not be suggested again"),
		),
	)

	s.AddTool(resuggestTool, common.InstrumentedToolHandlerWithOperation(
		"labeler_resuggest", instrumentation.ServiceGmail, "get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleResuggest(ctx, request, sc)
		}))

	recordDecisionTool := mcp.NewTool("labeler_record_decision",
		mcp.WithDescription("Record the user's verdict on a label suggestion. Approvals become accepted examples in label memory, rejections are remembered so the label is not suggested again for similar mail. When label application is enabled, approved labels are created and applied in Gmail."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message the decision refers to"),
		),
		mcp.WithBoolean("approved",
			mcp.Required(),
			mcp.Description("Whether the user approved the suggested label"),
		),
		mcp.WithString("label",
			mcp.Description("The label the decision refers to. On approval this may differ from the suggestion if the user edited it."),
		),
	)

	s.AddTool(recordDecisionTool, common.InstrumentedToolHandlerWithOperation(
		"labeler_record_decision", instrumentation.ServiceGmail, "modify", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleRecordDecision(ctx, request, sc)
		}))

	listLabelsTool := mcp.NewTool("labeler_list_labels",
		mcp.WithDescription("List the user's Gmail labels, marking which ones have examples in label memory"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
	)

	s.AddTool(listLabelsTool, common.InstrumentedToolHandlerWithOperation(
		"labeler_list_labels", instrumentation.ServiceGmail, "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListLabels(ctx, request, sc)
		}))

	return nil
}

// getClient returns the Gmail client for the account, or an error result
// explaining how to authorize when no token exists yet.
func getClient(ctx context.Context, sc *server.ServerContext, account string) (*gmail.Client, *mcp.CallToolResult) {
	client := sc.GmailClientForAccount(account)
	if client != nil {
		return client, nil
	}

	if !gmail.HasTokenForAccount(account) {
		return nil, mcp.NewToolResultError(authHelp(account))
	}

	client, err := gmail.NewClientForAccount(ctx, account)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to create Gmail client for account %s: %v", account, err))
	}
	sc.SetGmailClientForAccount(account, client)
	return client, nil
}

func authHelp(account string) string {
	authURL, err := gmail.GetAuthURL()
	if err != nil {
		return fmt.Sprintf("Google OAuth token not found for account %q and no OAuth client is configured: %v", account, err)
	}

	return fmt.Sprintf(`Google OAuth token not found for account "%s". To authorize access:

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Gmail
4. Copy the authorization code

5. Provide the authorization code to your AI agent
   The agent will use the google_save_auth_code tool with account="%s" to complete authentication.

Note: You only need to authorize once. The tokens will be automatically refreshed.`, account, authURL, account)
}

// toClassifierMessage converts a Gmail message into the classifier's view
func toClassifierMessage(m gmail.Message) classifier.Message {
	return classifier.Message{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		Subject:  m.Subject,
		Sender:   m.From,
		Snippet:  m.Snippet,
		LabelIDs: m.LabelIDs,
	}
}
