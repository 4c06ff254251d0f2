package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
)

const uniqueViolation = "23505"

// Store implements the database port on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const toolColumns = `id, name, description, keywords, params_schema, code, language,
	is_approved, is_ai_generated, run_count, last_run_at, created_at, updated_at`

// FindByName returns the named tool, restricted to approved rows when
// approvedOnly is set.
func (s *Store) FindByName(ctx context.Context, name string, approvedOnly bool) (*tool.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE name = $1`
	if approvedOnly {
		query += ` AND is_approved`
	}
	t, err := scanTool(s.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tool %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find tool %q: %w", name, err)
	}
	return t, nil
}

// FindCandidates returns all approved tools in insertion order.
func (s *Store) FindCandidates(ctx context.Context) ([]tool.Tool, error) {
	query := `SELECT ` + toolColumns + ` FROM tools WHERE is_approved
		ORDER BY created_at ASC, id ASC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var tools []tool.Tool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		tools = append(tools, *t)
	}
	return tools, rows.Err()
}

// Insert stores a new tool, assigning its ID and timestamps.
func (s *Store) Insert(ctx context.Context, t *tool.Tool) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	schema, err := json.Marshal(schemaOrEmpty(t.ParamsSchema))
	if err != nil {
		return fmt.Errorf("marshal params schema: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tools (id, name, description, keywords, params_schema, code,
			language, is_approved, is_ai_generated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.Name, t.Description, t.Keywords, schema, t.Code,
		string(t.Language), t.IsApproved, t.IsAIGenerated, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("tool %q: %w", t.Name, domain.ErrDuplicateName)
		}
		return fmt.Errorf("insert tool %q: %w", t.Name, err)
	}
	return nil
}

// Approve marks the named tool approved.
func (s *Store) Approve(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tools SET is_approved = TRUE, updated_at = now() WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("approve tool %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tool %q: %w", name, domain.ErrNotFound)
	}
	return nil
}

// RecordRun appends the audit record and bumps the tool's usage counters in
// one transaction. Partial bookkeeping is never visible.
func (s *Store) RecordRun(ctx context.Context, rec *run.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.CreatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin run transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (id, tool_id, tool_name, params_hash, params_preview,
			output_preview, success, error, duration_ms, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.ToolID, rec.ToolName, rec.ParamsHash, rec.ParamsPreview,
		rec.OutputPreview, rec.Success, rec.Error, rec.DurationMS, rec.Origin,
		rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE tools SET run_count = run_count + 1, last_run_at = $2 WHERE id = $1`,
		rec.ToolID, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("bump tool usage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run transaction: %w", err)
	}
	return nil
}

// ListRunsByTool returns the most recent audit records for a tool name.
// The name is the lookup key so history stays readable after the tool row
// itself is gone; an unlinked record comes back with an empty ToolID.
func (s *Store) ListRunsByTool(ctx context.Context, toolName string, limit int) ([]run.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(tool_id::text, ''), tool_name, params_hash,
			params_preview, output_preview, success, error, duration_ms,
			origin, created_at
		FROM runs WHERE tool_name = $1
		ORDER BY created_at DESC LIMIT $2`, toolName, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for %q: %w", toolName, err)
	}
	defer rows.Close()

	var records []run.Record
	for rows.Next() {
		var rec run.Record
		if err := rows.Scan(&rec.ID, &rec.ToolID, &rec.ToolName, &rec.ParamsHash,
			&rec.ParamsPreview, &rec.OutputPreview, &rec.Success, &rec.Error,
			&rec.DurationMS, &rec.Origin, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanTool(row pgx.Row) (*tool.Tool, error) {
	var t tool.Tool
	var schema []byte
	var language string
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Keywords, &schema,
		&t.Code, &language, &t.IsApproved, &t.IsAIGenerated, &t.RunCount,
		&t.LastRunAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Language = tool.Language(language)
	if len(schema) > 0 {
		if err := json.Unmarshal(schema, &t.ParamsSchema); err != nil {
			return nil, fmt.Errorf("unmarshal params schema: %w", err)
		}
	}
	return &t, nil
}

func schemaOrEmpty(schema map[string]string) map[string]string {
	if schema == nil {
		return map[string]string{}
	}
	return schema
}
