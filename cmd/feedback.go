package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/labelfewer/internal/classifier"
	"github.com/teemow/labelfewer/internal/gmail"
)

func newFeedbackCmd() *cobra.Command {
	var (
		account string
		label   string
		reject  bool
		apply   bool
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:   "feedback <message-id>",
		Short: "Record a verdict on a suggested label",
		Long: `Record whether a suggested label was right for a message. Approvals
become accepted examples that future classification learns from; rejections
prevent the label from being suggested for similar messages again.

By default an approval only updates label memory. With --apply the label is
also created (if needed) and attached to the message in Gmail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if label == "" {
				return fmt.Errorf("--label is required")
			}
			cfg := loadStackConfig()
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			return runFeedback(cmd.Context(), cfg, account, args[0], label, !reject, apply)
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to use (default: 'default')")
	cmd.Flags().StringVar(&label, "label", "", "Label the verdict refers to (required)")
	cmd.Flags().BoolVar(&reject, "reject", false, "Record the label as rejected instead of approved")
	cmd.Flags().BoolVar(&apply, "apply", false, "Also apply the approved label in Gmail")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the label memory database")

	return cmd
}

func runFeedback(ctx context.Context, cfg stackConfig, account, messageID, label string, approved, apply bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	stk, err := buildStack(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = stk.Close() }()

	client, err := gmail.NewClientForAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to create Gmail client for account %s: %w", account, err)
	}

	m, err := client.GetMessageByID(messageID)
	if err != nil {
		return fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}

	msg := classifier.Message{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		Subject:  m.Subject,
		Sender:   m.From,
		Snippet:  m.Snippet,
		LabelIDs: m.LabelIDs,
	}

	if err := classifier.RecordDecision(ctx, stk.Store, nil, msg, classifier.Decision{
		MessageID:  messageID,
		Approved:   approved,
		FinalLabel: label,
	}); err != nil {
		return err
	}

	switch {
	case approved && apply:
		labelID, created, err := client.EnsureLabel(label)
		if err != nil {
			return fmt.Errorf("failed to ensure label %q: %w", label, err)
		}
		if err := client.ApplyLabel(messageID, labelID); err != nil {
			return fmt.Errorf("failed to apply label %q to message %s: %w", label, messageID, err)
		}
		if created {
			fmt.Printf("Created label %q and applied it to message %s\n", label, messageID)
		} else {
			fmt.Printf("Applied label %q to message %s\n", label, messageID)
		}
	case approved:
		fmt.Printf("Recorded %q as approved for message %s\n", label, messageID)
	default:
		fmt.Printf("Recorded %q as rejected for message %s\n", label, messageID)
	}
	return nil
}
