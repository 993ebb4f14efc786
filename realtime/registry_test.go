package realtime

import (
	"testing"
	"time"

	"taskboard/domain"
)

func user(id, name string) domain.User {
	return domain.User{ConnectionID: id, Username: name, Color: "#6366f1", ConnectedAt: time.Now().UTC()}
}

func TestRegistryUpsertAndList(t *testing.T) {
	r := NewRegistry()
	r.Upsert(user("c1", "alice"))
	r.Upsert(user("c2", "bob"))

	got := r.List()
	if len(got) != 2 {
		t.Fatalf("expected 2 users, got %d", len(got))
	}
	if got[0].Username != "alice" || got[1].Username != "bob" {
		t.Fatalf("unexpected insertion order: %q, %q", got[0].Username, got[1].Username)
	}
}

func TestRegistryUpsertOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Upsert(user("c1", "alice"))
	r.Upsert(user("c1", "alicia"))

	got := r.List()
	if len(got) != 1 {
		t.Fatalf("re-identification must not duplicate the entry, got %d", len(got))
	}
	if got[0].Username != "alicia" {
		t.Fatalf("expected last write to win, got %q", got[0].Username)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Upsert(user("c1", "alice"))

	u, ok := r.Remove("c1")
	if !ok || u.Username != "alice" {
		t.Fatalf("expected removed descriptor, got ok=%v user=%+v", ok, u)
	}
	if _, ok := r.Get("c1"); ok {
		t.Fatal("descriptor still present after remove")
	}
	if len(r.List()) != 0 {
		t.Fatal("list not empty after remove")
	}
}

func TestRegistryRemoveUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Remove("ghost"); ok {
		t.Fatal("removing an unknown connection must report absent")
	}
}
