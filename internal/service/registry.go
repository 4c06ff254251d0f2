package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/artificer-dev/artificer/internal/domain/run"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/port/cache"
	"github.com/artificer-dev/artificer/internal/port/database"
)

const candidatesKey = "tools:candidates"

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// RegistryService fronts the store with a short-lived candidate cache so the
// per-request registry scan stays cheap. All writes invalidate the cache, so
// an approval or insert is visible to the next resolution.
type RegistryService struct {
	store  database.Store
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewRegistry creates a RegistryService. cache may be nil, which disables
// caching and reads through to the store.
func NewRegistry(store database.Store, c cache.Cache, ttl time.Duration, logger *slog.Logger) *RegistryService {
	return &RegistryService{store: store, cache: c, ttl: ttl, logger: logger}
}

// FindByName looks up a single tool in the store.
func (s *RegistryService) FindByName(ctx context.Context, name string, approvedOnly bool) (*tool.Tool, error) {
	return s.store.FindByName(ctx, name, approvedOnly)
}

// Candidates returns the approved tools in insertion order, serving from the
// cache when warm. Concurrent misses are collapsed into one store query.
func (s *RegistryService) Candidates(ctx context.Context) ([]tool.Tool, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, candidatesKey); err == nil && ok {
			if tools, err := decodeCandidates(data); err == nil {
				return tools, nil
			}
			_ = s.cache.Delete(ctx, candidatesKey)
		}
	}

	v, err, _ := s.group.Do(candidatesKey, func() (any, error) {
		tools, err := s.store.FindCandidates(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if data, err := encodeCandidates(tools); err == nil {
				_ = s.cache.Set(ctx, candidatesKey, data, s.ttl)
			}
		}
		return tools, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]tool.Tool), nil
}

// ListApproved returns the public metadata of every approved tool.
func (s *RegistryService) ListApproved(ctx context.Context) ([]tool.Metadata, error) {
	candidates, err := s.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	metas := make([]tool.Metadata, len(candidates))
	for i := range candidates {
		metas[i] = candidates[i].Metadata()
	}
	return metas, nil
}

// Schema returns the named approved tool's public metadata. Unapproved
// tools stay invisible here; their existence is only disclosed through the
// pending-approval response of the request that created them.
func (s *RegistryService) Schema(ctx context.Context, name string) (tool.Metadata, error) {
	t, err := s.store.FindByName(ctx, name, true)
	if err != nil {
		return tool.Metadata{}, err
	}
	return t.Metadata(), nil
}

// CreateCurated registers an operator-authored tool. Curated tools are
// trusted and enter the registry approved.
func (s *RegistryService) CreateCurated(ctx context.Context, req tool.CreateRequest) (*tool.Tool, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t := &tool.Tool{
		Name:          req.Name,
		Description:   req.Description,
		Keywords:      req.Keywords,
		ParamsSchema:  req.ParamsSchema,
		Code:          req.Code,
		Language:      req.Language,
		IsApproved:    true,
		IsAIGenerated: false,
	}
	if err := s.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Insert stores a tool and invalidates the candidate snapshot.
func (s *RegistryService) Insert(ctx context.Context, t *tool.Tool) error {
	if err := s.store.Insert(ctx, t); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("tool registered", "tool", t.Name, "language", t.Language,
		"ai_generated", t.IsAIGenerated, "approved", t.IsApproved)
	return nil
}

// Approve flips the named tool's approval gate and invalidates the snapshot.
func (s *RegistryService) Approve(ctx context.Context, name string) error {
	if err := s.store.Approve(ctx, name); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("tool approved", "tool", name)
	return nil
}

// RecordRun appends an audit record with its usage bookkeeping.
func (s *RegistryService) RecordRun(ctx context.Context, rec *run.Record) error {
	return s.store.RecordRun(ctx, rec)
}

// Runs returns the most recent audit records for a tool.
func (s *RegistryService) Runs(ctx context.Context, name string, limit int) ([]run.Record, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	return s.store.ListRunsByTool(ctx, name, limit)
}

func (s *RegistryService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, candidatesKey)
	}
}

// cachedTool restores the code field that Tool's public JSON shape omits.
// Cached candidates must round-trip code because the resolver's pick is
// dispatched straight to a backend.
type cachedTool struct {
	tool.Tool
	Code string `json:"code"`
}

func encodeCandidates(tools []tool.Tool) ([]byte, error) {
	wrapped := make([]cachedTool, len(tools))
	for i, t := range tools {
		wrapped[i] = cachedTool{Tool: t, Code: t.Code}
	}
	return json.Marshal(wrapped)
}

func decodeCandidates(data []byte) ([]tool.Tool, error) {
	var wrapped []cachedTool
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode candidate snapshot: %w", err)
	}
	tools := make([]tool.Tool, len(wrapped))
	for i, w := range wrapped {
		tools[i] = w.Tool
		tools[i].Code = w.Code
	}
	return tools, nil
}
