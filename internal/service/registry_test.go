package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/artificer-dev/artificer/internal/adapter/ristretto"
	"github.com/artificer-dev/artificer/internal/domain/tool"
	"github.com/artificer-dev/artificer/internal/service"
)

func newCachedRegistry(t *testing.T, store *mockStore) *service.RegistryService {
	t.Helper()
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	t.Cleanup(c.Close)
	return service.NewRegistry(store, c, time.Minute, discardLogger())
}

func TestCandidatesServedFromCache(t *testing.T) {
	store := &mockStore{}
	if err := store.Insert(context.Background(), approvedTool("ping", "checks a host", "ping")); err != nil {
		t.Fatal(err)
	}
	reg := newCachedRegistry(t, store)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tools, err := reg.Candidates(ctx)
		if err != nil {
			t.Fatalf("Candidates: %v", err)
		}
		if len(tools) != 1 {
			t.Fatalf("candidates = %d, want 1", len(tools))
		}
	}
	if store.candidateCalls != 1 {
		t.Errorf("store scans = %d, want 1 (cache warm)", store.candidateCalls)
	}
}

func TestCachedCandidatesKeepCode(t *testing.T) {
	// Tool's public JSON omits code; the cached snapshot must not, because
	// the resolver's pick is dispatched straight to a backend.
	store := &mockStore{}
	seed := approvedTool("ping", "checks a host", "ping")
	seed.Code = `print("pong")`
	if err := store.Insert(context.Background(), seed); err != nil {
		t.Fatal(err)
	}
	reg := newCachedRegistry(t, store)

	ctx := context.Background()
	if _, err := reg.Candidates(ctx); err != nil {
		t.Fatal(err)
	}
	tools, err := reg.Candidates(ctx) // cache hit
	if err != nil {
		t.Fatal(err)
	}
	if tools[0].Code != `print("pong")` {
		t.Errorf("cached candidate lost its code: %+v", tools[0])
	}
}

func TestInsertInvalidatesCache(t *testing.T) {
	store := &mockStore{}
	reg := newCachedRegistry(t, store)
	ctx := context.Background()

	if tools, _ := reg.Candidates(ctx); len(tools) != 0 {
		t.Fatalf("unexpected seed candidates: %v", tools)
	}

	if err := reg.Insert(ctx, approvedTool("fresh", "", "fresh")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	tools, err := reg.Candidates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 || tools[0].Name != "fresh" {
		t.Errorf("candidates after insert = %v, want the new tool visible", tools)
	}
}

func TestApproveInvalidatesCache(t *testing.T) {
	store := &mockStore{}
	pending := approvedTool("pending", "", "pending")
	pending.IsApproved = false
	if err := store.Insert(context.Background(), pending); err != nil {
		t.Fatal(err)
	}
	reg := newCachedRegistry(t, store)
	ctx := context.Background()

	if tools, _ := reg.Candidates(ctx); len(tools) != 0 {
		t.Fatalf("unapproved tool in candidates: %v", tools)
	}

	if err := reg.Approve(ctx, "pending"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	tools, err := reg.Candidates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tools) != 1 {
		t.Errorf("candidates after approval = %d, want 1", len(tools))
	}
}

func TestCreateCuratedIsApproved(t *testing.T) {
	store := &mockStore{}
	reg := service.NewRegistry(store, nil, 0, discardLogger())

	created, err := reg.CreateCurated(context.Background(), tool.CreateRequest{
		Name:     "Disk Usage",
		Code:     "df -h",
		Language: tool.LanguageShell,
	})
	if err != nil {
		t.Fatalf("CreateCurated: %v", err)
	}
	if created.Name != "disk_usage" {
		t.Errorf("name = %q, want sanitized", created.Name)
	}
	if !created.IsApproved || created.IsAIGenerated {
		t.Errorf("provenance flags = approved:%v ai:%v", created.IsApproved, created.IsAIGenerated)
	}
}
