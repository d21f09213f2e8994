package classifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/labelfewer/internal/logging"
	"github.com/teemow/labelfewer/internal/memory"
)

// RecordDecision stores the user's verdict on a suggestion. Approvals become
// accepted examples, refusals land in the rejection log; either way the
// message counts as processed afterwards.
func RecordDecision(ctx context.Context, store Memory, logger *slog.Logger, msg Message, d Decision) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithOperation(logger, "classifier.feedback")

	ex := memory.Example{
		MessageID: msg.ID,
		Subject:   msg.Subject,
		Sender:    msg.Sender,
		Snippet:   msg.Snippet,
	}

	switch {
	case d.Approved && d.FinalLabel != "":
		ex.Label = d.FinalLabel
		ex.Accepted = true
		if err := store.Upsert(ctx, ex); err != nil {
			return fmt.Errorf("failed to store approved example: %w", err)
		}
		logger.Info("stored approved example",
			logging.MessageID(msg.ID),
			logging.Label(d.FinalLabel))

	case !d.Approved && d.FinalLabel != "":
		if err := store.RecordRejection(ctx, ex, d.FinalLabel); err != nil {
			return fmt.Errorf("failed to store rejection: %w", err)
		}
		logger.Info("stored rejected label",
			logging.MessageID(msg.ID),
			logging.Label(d.FinalLabel))
	}

	// A rejected label lives in the rejection log only; the processed mark
	// must not carry it into the example table.
	label := "Uncategorized"
	if d.Approved && d.FinalLabel != "" {
		label = d.FinalLabel
	}
	if err := store.MarkProcessed(ctx, msg.ID, label); err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	return nil
}
