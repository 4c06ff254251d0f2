package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
)

// mockStore is an in-memory database.Store keeping insertion order, which
// the resolver's tie-break depends on.
type mockStore struct {
	mu             sync.Mutex
	tools          []*tool.Tool
	runs           []run.Record
	candidateCalls int
	failRecordRun  bool
}

func (m *mockStore) FindByName(_ context.Context, name string, approvedOnly bool) (*tool.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tools {
		if t.Name == name && (!approvedOnly || t.IsApproved) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("tool %q: %w", name, domain.ErrNotFound)
}

func (m *mockStore) FindCandidates(_ context.Context) ([]tool.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidateCalls++
	var out []tool.Tool
	for _, t := range m.tools {
		if t.IsApproved {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockStore) Insert(_ context.Context, t *tool.Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tools {
		if existing.Name == t.Name {
			return fmt.Errorf("tool %q: %w", t.Name, domain.ErrDuplicateName)
		}
	}
	t.ID = strconv.Itoa(len(m.tools) + 1)
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.tools = append(m.tools, &cp)
	return nil
}

func (m *mockStore) Approve(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tools {
		if t.Name == name {
			t.IsApproved = true
			return nil
		}
	}
	return fmt.Errorf("tool %q: %w", name, domain.ErrNotFound)
}

func (m *mockStore) RecordRun(_ context.Context, rec *run.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRecordRun {
		return fmt.Errorf("store is down")
	}
	rec.ID = strconv.Itoa(len(m.runs) + 1)
	rec.CreatedAt = time.Now().UTC()
	m.runs = append(m.runs, *rec)
	for _, t := range m.tools {
		if t.ID == rec.ToolID {
			t.RunCount++
			at := rec.CreatedAt
			t.LastRunAt = &at
		}
	}
	return nil
}

func (m *mockStore) ListRunsByTool(_ context.Context, toolName string, limit int) ([]run.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []run.Record
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.runs[i].ToolName == toolName {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func approvedTool(name, description, keywords string) *tool.Tool {
	return &tool.Tool{
		Name:        name,
		Description: description,
		Keywords:    keywords,
		Language:    tool.LanguageScript,
		Code:        `print("ok")`,
		IsApproved:  true,
	}
}
