package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tendant/simple-mediasync/pkg/status"
)

func TestMemoryEnsureThenGet(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	item := Item{ID: uuid.New(), Kind: "video"}

	if _, err := s.GetStatus(ctx, item); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown item, got %v", err)
	}

	if err := s.EnsureItem(ctx, item, map[string]string{"cover": "http://x/cover.jpg"}); err != nil {
		t.Fatalf("EnsureItem: %v", err)
	}
	raw, err := s.GetStatus(ctx, item)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if raw != 0 {
		t.Fatalf("fresh item status %#x, want 0", raw)
	}
}

func TestMemoryEnsureDoesNotResetStatus(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	item := Item{ID: uuid.New(), Kind: "video"}

	if err := s.EnsureItem(ctx, item, nil); err != nil {
		t.Fatalf("EnsureItem: %v", err)
	}
	if err := s.SaveStatus(ctx, item, 0b111); err != nil {
		t.Fatalf("SaveStatus: %v", err)
	}
	if err := s.EnsureItem(ctx, item, map[string]string{"cover": "http://x"}); err != nil {
		t.Fatalf("EnsureItem again: %v", err)
	}

	raw, err := s.GetStatus(ctx, item)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if raw != 0b111 {
		t.Fatalf("EnsureItem clobbered status: got %#x", raw)
	}
}

func TestMemoryListPendingSkipsCompleted(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	pendingItem := Item{ID: uuid.New(), Kind: "video"}
	doneItem := Item{ID: uuid.New(), Kind: "video"}
	otherKind := Item{ID: uuid.New(), Kind: "page"}

	for _, item := range []Item{pendingItem, doneItem, otherKind} {
		if err := s.EnsureItem(ctx, item, map[string]string{"info": "http://x/info.json"}); err != nil {
			t.Fatalf("EnsureItem: %v", err)
		}
	}

	done := status.FromSlots([]uint32{4, 7, 7, 7, 7})
	if !done.Completed() {
		t.Fatal("test fixture should be completed")
	}
	if err := s.SaveStatus(ctx, doneItem, done.Raw()); err != nil {
		t.Fatalf("SaveStatus: %v", err)
	}

	got, err := s.ListPending(ctx, "video", 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 1 || got[0].Item != pendingItem {
		t.Fatalf("unexpected pending set: %+v", got)
	}
	if got[0].Parts["info"] != "http://x/info.json" {
		t.Fatalf("parts not returned: %+v", got[0].Parts)
	}
}

func TestMemoryListPendingHonorsLimit(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.EnsureItem(ctx, Item{ID: uuid.New(), Kind: "page"}, nil); err != nil {
			t.Fatalf("EnsureItem: %v", err)
		}
	}
	got, err := s.ListPending(ctx, "page", 3)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("limit ignored: got %d items", len(got))
	}
}
