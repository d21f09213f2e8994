package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teemow/labelfewer/internal/embedding"
	"github.com/teemow/labelfewer/internal/logging"
)

// Example is one remembered labeling decision.
type Example struct {
	MessageID string
	Subject   string
	Sender    string
	Snippet   string
	Label     string
	Accepted  bool

	vec embedding.Vector
}

// Vector returns the stored embedding of the example text.
func (e *Example) Vector() embedding.Vector {
	return e.vec
}

// Rejection is one refused label suggestion.
type Rejection struct {
	ID        int64
	MessageID string
	Subject   string
	Sender    string
	Snippet   string
	Label     string
	CreatedAt time.Time

	vec embedding.Vector
}

// Store persists labeling decisions in sqlite and answers similarity queries
// over them.
type Store struct {
	db       *sql.DB
	embedder embedding.Embedder
	logger   *slog.Logger
	index    *index
}

// NewStore opens (creating if necessary) the database at path. The embedder
// is used to vectorize rows on write; stored vectors are reused on read.
func NewStore(path string, embedder embedding.Embedder, logger *slog.Logger) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite serializes writes per connection; a single
	// connection avoids SQLITE_BUSY under concurrent tool calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{
		db:       db,
		embedder: embedder,
		logger:   logging.WithOperation(logger, "memory.store"),
		index:    newIndex(),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.rebuildIndex(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS labeled_emails (
		message_id    TEXT PRIMARY KEY,
		subject       TEXT,
		sender        TEXT,
		snippet       TEXT,
		applied_label TEXT,
		accepted      INTEGER DEFAULT 0,
		embedding     TEXT
	);
	CREATE TABLE IF NOT EXISTS rejected_labels (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id     TEXT,
		subject        TEXT,
		sender         TEXT,
		snippet        TEXT,
		rejected_label TEXT,
		embedding      TEXT,
		created_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// EmbedText joins the text fields of a message the way stored rows are
// vectorized: subject, sender and snippet joined with " \n ", skipping empty
// parts. All callers that compare against stored vectors must go through
// this so query and row vectors live in the same space.
func (s *Store) EmbedText(ctx context.Context, subject, sender, snippet string) embedding.Vector {
	return s.embedder.Embed(ctx, joinText(subject, sender, snippet))
}

func joinText(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " \n ")
}

// Upsert records a labeling decision, replacing any previous row for the
// same message. The accepted-example index is rebuilt before returning so
// the next query already sees the new row.
func (s *Store) Upsert(ctx context.Context, ex Example) error {
	vec := s.EmbedText(ctx, ex.Subject, ex.Sender, ex.Snippet)
	enc, err := encodeVector(vec)
	if err != nil {
		return err
	}

	accepted := 0
	if ex.Accepted {
		accepted = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO labeled_emails (message_id, subject, sender, snippet, applied_label, accepted, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			subject       = excluded.subject,
			sender        = excluded.sender,
			snippet       = excluded.snippet,
			applied_label = excluded.applied_label,
			accepted      = excluded.accepted,
			embedding     = excluded.embedding`,
		ex.MessageID, ex.Subject, ex.Sender, ex.Snippet, ex.Label, accepted, enc)
	if err != nil {
		return fmt.Errorf("failed to upsert labeled email: %w", err)
	}

	s.logger.Debug("stored labeling decision",
		logging.MessageID(ex.MessageID),
		logging.Label(ex.Label),
		slog.Bool("accepted", ex.Accepted))

	return s.rebuildIndex(ctx)
}

// MarkProcessed records that a message has been handled. If a row already
// exists (for example from an earlier Upsert), only the applied label is
// touched, and only on rows that are not accepted: an accepted example is
// authoritative and a later processed-mark can neither relabel nor demote
// it. Because the similarity index holds accepted rows only, no rebuild is
// needed here.
func (s *Store) MarkProcessed(ctx context.Context, messageID, label string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO labeled_emails (message_id, subject, sender, snippet, applied_label, accepted, embedding)
		VALUES (?, '', '', '', ?, 0, '')
		ON CONFLICT(message_id) DO UPDATE SET
			applied_label = excluded.applied_label
		WHERE labeled_emails.accepted = 0`,
		messageID, label)
	if err != nil {
		return fmt.Errorf("failed to mark email processed: %w", err)
	}
	return nil
}

// RecordRejection appends a refused suggestion to the rejection log. Earlier
// rejections for the same message are kept.
func (s *Store) RecordRejection(ctx context.Context, ex Example, rejectedLabel string) error {
	vec := s.EmbedText(ctx, ex.Subject, ex.Sender, ex.Snippet)
	enc, err := encodeVector(vec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rejected_labels (message_id, subject, sender, snippet, rejected_label, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ex.MessageID, ex.Subject, ex.Sender, ex.Snippet, rejectedLabel, enc)
	if err != nil {
		return fmt.Errorf("failed to record rejection: %w", err)
	}

	s.logger.Debug("recorded rejected label",
		logging.MessageID(ex.MessageID),
		logging.Label(rejectedLabel))

	return nil
}

// ProcessedIDs returns the IDs of all messages that have been handled.
func (s *Store) ProcessedIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT message_id FROM labeled_emails`)
	if err != nil {
		return nil, fmt.Errorf("failed to query processed IDs: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message ID: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Stats summarizes the contents of the label memory.
type Stats struct {
	Processed  int `json:"processed"`
	Accepted   int `json:"accepted"`
	Rejections int `json:"rejections"`
	Labels     int `json:"labels"`
}

// Stats returns counts over the stored examples and rejections.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(accepted), 0),
		       COUNT(DISTINCT CASE WHEN applied_label != '' THEN applied_label END)
		FROM labeled_emails`).Scan(&st.Processed, &st.Accepted, &st.Labels)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count examples: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rejected_labels`).Scan(&st.Rejections)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count rejections: %w", err)
	}
	return st, nil
}

// LabelFor returns the label applied to a message, if any.
func (s *Store) LabelFor(ctx context.Context, messageID string) (string, bool, error) {
	var label sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT applied_label FROM labeled_emails WHERE message_id = ?`,
		messageID).Scan(&label)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up label: %w", err)
	}
	return label.String, label.Valid && label.String != "", nil
}

// ExamplesByIDs fetches stored examples by message ID. Missing IDs are
// silently skipped.
func (s *Store) ExamplesByIDs(ctx context.Context, ids []string) ([]Example, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT message_id, subject, sender, snippet, applied_label, accepted, embedding
		FROM labeled_emails WHERE message_id IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query examples: %w", err)
	}
	defer rows.Close()

	return s.scanExamples(ctx, rows)
}

func (s *Store) scanExamples(ctx context.Context, rows *sql.Rows) ([]Example, error) {
	var out []Example
	for rows.Next() {
		var (
			ex       Example
			subject  sql.NullString
			sender   sql.NullString
			snippet  sql.NullString
			label    sql.NullString
			accepted int
			enc      sql.NullString
		)
		if err := rows.Scan(&ex.MessageID, &subject, &sender, &snippet, &label, &accepted, &enc); err != nil {
			return nil, fmt.Errorf("failed to scan example: %w", err)
		}
		ex.Subject = subject.String
		ex.Sender = sender.String
		ex.Snippet = snippet.String
		ex.Label = label.String
		ex.Accepted = accepted == 1

		vec, err := decodeVector(enc.String)
		if err != nil {
			return nil, err
		}
		if vec == nil {
			// Rows written before embeddings were persisted.
			vec = s.EmbedText(ctx, ex.Subject, ex.Sender, ex.Snippet)
		}
		ex.vec = vec
		out = append(out, ex)
	}
	return out, rows.Err()
}

func encodeVector(vec embedding.Vector) (string, error) {
	data, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("failed to encode embedding: %w", err)
	}
	return string(data), nil
}

func decodeVector(enc string) (embedding.Vector, error) {
	if enc == "" {
		return nil, nil
	}
	var vec embedding.Vector
	if err := json.Unmarshal([]byte(enc), &vec); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vec, nil
}
