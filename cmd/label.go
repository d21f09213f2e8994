package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/labelfewer/internal/classifier"
	"github.com/teemow/labelfewer/internal/gmail"
)

func newLabelCmd() *cobra.Command {
	var (
		account    string
		maxResults int64
		apply      bool
		// Stack configuration
		dbPath         string
		scoreThreshold float64
	)

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Suggest labels for unread inbox messages",
		Long: `Scan unread messages in the Gmail inbox and suggest a label for each,
based on the label memory of past decisions. Messages already seen are
skipped.

Without --apply the suggestions are only printed. With --apply each
suggested label is created if needed and applied to the message, and the
message is marked processed. The suggestion does not become an accepted
example until confirmed with the feedback command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadStackConfig()
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("threshold") {
				cfg.ScoreThreshold = scoreThreshold
			}
			return runLabel(cmd.Context(), cfg, account, maxResults, apply)
		},
	}

	cmd.Flags().StringVar(&account, "account", "default", "Google account name to use (default: 'default')")
	cmd.Flags().Int64Var(&maxResults, "max-results", 10, "Maximum number of unread messages to classify")
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply suggested labels and mark messages processed (confirmation still happens via feedback)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the label memory database")
	cmd.Flags().Float64Var(&scoreThreshold, "threshold", 0, "Minimum centroid similarity for a memory-only suggestion")

	return cmd
}

func runLabel(ctx context.Context, cfg stackConfig, account string, maxResults int64, apply bool) error {
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

	providerLabels, err := client.LabelIDsByName()
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	messages, err := client.GetUnreadMessages(maxResults)
	if err != nil {
		return fmt.Errorf("failed to fetch unread messages: %w", err)
	}

	processed, err := stk.Store.ProcessedIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load processed messages: %w", err)
	}

	classified, skipped, applied := 0, 0, 0
	for _, m := range messages {
		if processed[m.ID] {
			continue
		}

		msg := classifier.Message{
			ID:       m.ID,
			ThreadID: m.ThreadID,
			Subject:  m.Subject,
			Sender:   m.From,
			Snippet:  m.Snippet,
			LabelIDs: m.LabelIDs,
		}

		suggestion, err := stk.Resolver.Classify(ctx, msg, providerLabels)
		if err != nil {
			return fmt.Errorf("failed to classify message %s: %w", m.ID, err)
		}
		if suggestion == nil {
			skipped++
			fmt.Printf("- %q: no suggestion\n", m.Subject)
			continue
		}
		classified++
		fmt.Printf("- %q -> %s (%s: %s)\n", m.Subject, suggestion.Label, suggestion.Source, suggestion.Rationale)
		if len(suggestion.Scores) > 0 {
			fmt.Printf("    scores: %s\n", formatScores(suggestion.Scores))
		}

		if !apply {
			continue
		}

		labelID, _, err := client.EnsureLabel(suggestion.Label)
		if err != nil {
			return fmt.Errorf("failed to ensure label %q: %w", suggestion.Label, err)
		}
		if err := client.ApplyLabel(m.ID, labelID); err != nil {
			return fmt.Errorf("failed to apply label %q to message %s: %w", suggestion.Label, m.ID, err)
		}
		// Mark processed without accepting; only explicit feedback turns a
		// suggestion into an accepted example.
		if err := stk.Store.MarkProcessed(ctx, m.ID, suggestion.Label); err != nil {
			return fmt.Errorf("failed to mark message %s processed: %w", m.ID, err)
		}
		applied++
	}

	fmt.Printf("Classified %d message(s), skipped %d", classified, skipped)
	if apply {
		fmt.Printf(", applied %d label(s)", applied)
	}
	fmt.Println()
	return nil
}

// formatScores renders a score map as "Label=82%, Other=61%" sorted by score.
func formatScores(scores map[string]float64) string {
	type entry struct {
		label string
		score float64
	}
	entries := make([]entry, 0, len(scores))
	for label, score := range scores {
		entries = append(entries, entry{label, score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].label < entries[j].label
	})

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s=%.0f%%", e.label, e.score))
	}
	return strings.Join(parts, ", ")
}
