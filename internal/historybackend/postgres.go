package historybackend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/agentcore/core/pkg/models"
)

// PostgresBackend implements Backend against a Postgres-compatible
// database (Postgres, CockroachDB) via database/sql.
type PostgresBackend struct {
	db *sql.DB

	stmtUpsertSession *sql.Stmt
	stmtGetSession    *sql.Stmt
	stmtSetTitle      *sql.Stmt
	stmtAppendMessage *sql.Stmt
	stmtGetHistory    *sql.Stmt

	historyLimit int
}

// NewPostgresBackend opens db (already configured by the caller,
// matching database/sql's connection-pool-is-a-handle-not-a-single-
// connection idiom) and prepares its statements. historyLimit bounds
// how many of the most recent messages LoadHistory returns; zero
// defaults to 200.
func NewPostgresBackend(db *sql.DB, historyLimit int) (*PostgresBackend, error) {
	if historyLimit <= 0 {
		historyLimit = 200
	}
	b := &PostgresBackend{db: db, historyLimit: historyLimit}
	if err := b.prepareStatements(); err != nil {
		return nil, err
	}
	return b, nil
}

var _ Backend = (*PostgresBackend)(nil)

func (b *PostgresBackend) prepareStatements() error {
	var err error

	b.stmtUpsertSession, err = b.db.Prepare(`
		INSERT INTO agentcore_sessions (id, public_key, namespace, title, user_titled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert session: %w", err)
	}

	b.stmtGetSession, err = b.db.Prepare(`
		SELECT id, public_key, namespace, title, user_titled, created_at, updated_at
		FROM agentcore_sessions WHERE public_key = $1
		ORDER BY updated_at DESC LIMIT 1
	`)
	if err != nil {
		return fmt.Errorf("prepare get session: %w", err)
	}

	b.stmtSetTitle, err = b.db.Prepare(`
		UPDATE agentcore_sessions SET title = $2, user_titled = $3, updated_at = $4
		WHERE id = $1
	`)
	if err != nil {
		return fmt.Errorf("prepare set title: %w", err)
	}

	b.stmtAppendMessage, err = b.db.Prepare(`
		INSERT INTO agentcore_messages (session_id, sender, content, tool_call_id, tool_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("prepare append message: %w", err)
	}

	b.stmtGetHistory, err = b.db.Prepare(`
		SELECT sender, content, tool_call_id, tool_name, created_at
		FROM agentcore_messages WHERE session_id = $1
		ORDER BY created_at DESC LIMIT $2
	`)
	if err != nil {
		return fmt.Errorf("prepare get history: %w", err)
	}

	return nil
}

func (b *PostgresBackend) LoadHistory(ctx context.Context, publicKey string) (UserHistory, error) {
	var sess models.Session
	var ns string
	err := b.stmtGetSession.QueryRowContext(ctx, publicKey).Scan(
		&sess.ID, &sess.PublicKey, &ns, &sess.Title, &sess.UserTitled, &sess.CreatedAt, &sess.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return UserHistory{}, nil
	}
	if err != nil {
		return UserHistory{}, fmt.Errorf("load session: %w", err)
	}
	sess.Namespace = models.Namespace(ns)

	rows, err := b.stmtGetHistory.QueryContext(ctx, sess.ID, b.historyLimit)
	if err != nil {
		return UserHistory{}, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var sender string
		var toolCallID, toolName sql.NullString
		if err := rows.Scan(&sender, &m.Content, &toolCallID, &toolName, &m.Timestamp); err != nil {
			return UserHistory{}, fmt.Errorf("scan message: %w", err)
		}
		m.SessionID = sess.ID
		m.Sender = models.Role(sender)
		m.ToolCallID = toolCallID.String
		m.ToolName = toolName.String
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return UserHistory{}, err
	}

	// The query orders newest-first to apply LIMIT against the tail of
	// the log; reverse back to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return UserHistory{Session: sess, Messages: msgs}, nil
}

func (b *PostgresBackend) SaveMessage(ctx context.Context, sessionID models.SessionID, msg models.ChatMessage) error {
	if msg.Streaming {
		return errors.New("historybackend: refusing to persist an in-progress streaming message")
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := b.stmtAppendMessage.ExecContext(ctx, sessionID, string(msg.Sender), msg.Content, nullableString(msg.ToolCallID), nullableString(msg.ToolName), ts)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (b *PostgresBackend) SaveTitle(ctx context.Context, sessionID models.SessionID, title string, isUserTitle bool) error {
	_, err := b.stmtSetTitle.ExecContext(ctx, sessionID, title, isUserTitle, time.Now())
	if err != nil {
		return fmt.Errorf("save title: %w", err)
	}
	return nil
}

// EnsureSession upserts sess's metadata row; the Session Manager calls
// this once on get_or_create before the first SaveMessage.
func (b *PostgresBackend) EnsureSession(ctx context.Context, sess models.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	_, err := b.stmtUpsertSession.ExecContext(ctx, sess.ID, sess.PublicKey, string(sess.Namespace), sess.Title, sess.UserTitled, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
