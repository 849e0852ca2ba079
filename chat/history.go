package chat

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one append-only transcript entry. Prior messages are never
// edited.
type Message struct {
	ID        string
	ProjectID string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// History persists chat transcripts per project in SQLite, so a conversation
// survives CLI restarts.
type History struct {
	db *sql.DB
}

// NewHistory opens (or creates) the transcript database under basePath.
// Pass ":memory:" for an ephemeral transcript.
func NewHistory(basePath string) (*History, error) {
	var dbPath string
	if basePath == ":memory:" {
		dbPath = ":memory:"
	} else {
		dbPath = filepath.Join(basePath, "chat.db")
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			return nil, fmt.Errorf("create chat directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	h := &History{db: db}
	if err := h.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return h, nil
}

// initSchema creates the transcript table if it doesn't exist.
func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project_id, created_at);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Append stores one transcript entry and returns it with its identifier.
func (h *History) Append(ctx context.Context, projectID string, role Role, content string) (Message, error) {
	m := Message{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO messages (id, project_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, string(m.Role), m.Content, m.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// Messages returns a project's transcript in chronological order. An empty
// project ID returns the pre-project transcript (messages sent before the
// first plan created the project).
func (h *History) Messages(ctx context.Context, projectID string) ([]Message, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, project_id, role, content, created_at FROM messages WHERE project_id = ? ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Message
	for rows.Next() {
		var m Message
		var role, created string
		if err := rows.Scan(&m.ID, &m.ProjectID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = Role(role)
		if ts, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			m.CreatedAt = ts
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AdoptProject rebinds the pre-project transcript to a newly created project
// so the conversation that produced the project stays attached to it.
func (h *History) AdoptProject(ctx context.Context, projectID string) error {
	_, err := h.db.ExecContext(ctx,
		`UPDATE messages SET project_id = ? WHERE project_id = ''`,
		projectID,
	)
	if err != nil {
		return fmt.Errorf("adopt project: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (h *History) Close() error {
	return h.db.Close()
}
