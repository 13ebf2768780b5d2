package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"crazyeights/internal/domain"
	"crazyeights/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// fakeStorage implements StorageClient over a map with the engine's
// conditional-write semantics.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]*api.StorageObject
	counter int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]*api.StorageObject)}
}

func storageKey(collection, key string) string {
	return collection + "/" + key
}

func (f *fakeStorage) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		k := storageKey(w.Collection, w.Key)
		existing := f.objects[k]
		switch {
		case w.Version == "*" && existing != nil:
			return nil, runtime.ErrStorageRejectedVersion
		case w.Version != "" && w.Version != "*" && (existing == nil || existing.Version != w.Version):
			return nil, runtime.ErrStorageRejectedVersion
		}

		f.counter++
		version := fmt.Sprintf("v%d", f.counter)
		now := timestamppb.Now()
		create := now
		if existing != nil {
			create = existing.CreateTime
		}
		f.objects[k] = &api.StorageObject{
			Collection: w.Collection,
			Key:        w.Key,
			Value:      w.Value,
			Version:    version,
			CreateTime: create,
			UpdateTime: now,
		}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, Version: version})
	}
	return acks, nil
}

func (f *fakeStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*api.StorageObject, 0, len(reads))
	for _, r := range reads {
		if obj, ok := f.objects[storageKey(r.Collection, r.Key)]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeStorage) StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range deletes {
		delete(f.objects, storageKey(d.Collection, d.Key))
	}
	return nil
}

func (f *fakeStorage) StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*api.StorageObject, 0, len(f.objects))
	for _, obj := range f.objects {
		if obj.Collection == collection {
			out = append(out, obj)
		}
	}
	return out, "", nil
}

func sessionState(turn domain.PlayerID) domain.GameState {
	return domain.GameState{
		Hands: map[domain.PlayerID][]domain.Card{
			domain.PlayerNorth: {{Suit: domain.SuitSpades, Rank: 3}},
			domain.PlayerSouth: {{Suit: domain.SuitHearts, Rank: 9}},
		},
		Discard:    []domain.Card{{Suit: domain.SuitClubs, Rank: 5}},
		ActiveSuit: domain.SuitClubs,
		Turn:       turn,
	}
}

func waitDoc(t *testing.T, ch <-chan *ports.SessionDoc) *ports.SessionDoc {
	t.Helper()
	select {
	case doc := <-ch:
		return doc
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestNakamaStoreCreateAndSubscribe(t *testing.T) {
	fake := newFakeStorage()
	store := NewNakamaSessionStore(fake, noopLogger{})
	ctx := context.Background()

	id, err := store.Create(ctx, "owner-1", &ports.SessionDoc{State: sessionState(domain.PlayerNorth)})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}
	if _, ok := fake.objects[storageKey(StorageCollectionSessions, id)]; !ok {
		t.Fatal("session not written to storage")
	}

	got := make(chan *ports.SessionDoc, 4)
	unsub, err := store.Subscribe(ctx, id, func(d *ports.SessionDoc) { got <- d }, nil)
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	defer unsub()

	doc := waitDoc(t, got)
	if doc.OwnerID != "owner-1" || doc.Version != 1 {
		t.Fatalf("initial snapshot = owner %q version %d", doc.OwnerID, doc.Version)
	}
}

func TestNakamaStoreUpdateRetriesOnVersionConflict(t *testing.T) {
	fake := newFakeStorage()
	store := NewNakamaSessionStore(fake, noopLogger{})
	ctx := context.Background()

	id, err := store.Create(ctx, "owner-1", &ports.SessionDoc{State: sessionState(domain.PlayerNorth)})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	// A second store instance writes concurrently, invalidating the first
	// instance's cached storage version.
	other := NewNakamaSessionStore(fake, noopLogger{})
	if err := other.Update(ctx, id, &ports.SessionDoc{State: sessionState(domain.PlayerSouth)}); err != nil {
		t.Fatalf("competing update error: %v", err)
	}

	if err := store.Update(ctx, id, &ports.SessionDoc{State: sessionState(domain.PlayerNorth)}); err != nil {
		t.Fatalf("update after conflict error: %v", err)
	}

	// The retried write wins; the stored turn is north again.
	latest, err := other.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(latest) != 1 || latest[0].State.Turn != domain.PlayerNorth {
		t.Fatalf("latest snapshot = %+v, want turn north", latest)
	}
}

func TestNakamaStoreRemoveDeliversTombstone(t *testing.T) {
	fake := newFakeStorage()
	store := NewNakamaSessionStore(fake, noopLogger{})
	ctx := context.Background()

	id, err := store.Create(ctx, "owner-1", &ports.SessionDoc{State: sessionState(domain.PlayerNorth)})
	if err != nil {
		t.Fatalf("create error: %v", err)
	}

	got := make(chan *ports.SessionDoc, 4)
	unsub, err := store.Subscribe(ctx, id, func(d *ports.SessionDoc) { got <- d }, nil)
	if err != nil {
		t.Fatalf("subscribe error: %v", err)
	}
	defer unsub()
	waitDoc(t, got)

	if err := store.Remove(ctx, id); err != nil {
		t.Fatalf("remove error: %v", err)
	}
	if doc := waitDoc(t, got); doc != nil {
		t.Fatalf("expected nil tombstone, got %+v", doc)
	}
	if _, ok := fake.objects[storageKey(StorageCollectionSessions, id)]; ok {
		t.Fatal("session still in storage after remove")
	}
}

func TestNakamaStoreListRecentSkipsCorruptObjects(t *testing.T) {
	fake := newFakeStorage()
	store := NewNakamaSessionStore(fake, noopLogger{})
	ctx := context.Background()

	if _, err := store.Create(ctx, "owner-1", &ports.SessionDoc{State: sessionState(domain.PlayerNorth)}); err != nil {
		t.Fatalf("create error: %v", err)
	}

	fake.mu.Lock()
	fake.objects[storageKey(StorageCollectionSessions, "broken")] = &api.StorageObject{
		Collection: StorageCollectionSessions,
		Key:        "broken",
		Value:      "{not json",
		Version:    "v999",
		UpdateTime: timestamppb.Now(),
	}
	fake.mu.Unlock()

	docs, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("listing length = %d, want 1 (corrupt object skipped)", len(docs))
	}
}

func TestNakamaStoreFetchValidatesSnapshot(t *testing.T) {
	fake := newFakeStorage()
	store := NewNakamaSessionStore(fake, noopLogger{})
	ctx := context.Background()

	// A decodable document that fails schema validation: no owner id.
	value, _ := json.Marshal(&ports.SessionDoc{State: sessionState(domain.PlayerNorth)})
	fake.objects[storageKey(StorageCollectionSessions, "bad")] = &api.StorageObject{
		Collection: StorageCollectionSessions,
		Key:        "bad",
		Value:      string(value),
		Version:    "v1",
		UpdateTime: timestamppb.Now(),
	}

	_, err := store.Subscribe(ctx, "bad", func(*ports.SessionDoc) {}, nil)
	if !errors.Is(err, ports.ErrCorruptSnapshot) {
		t.Fatalf("subscribe error = %v, want ErrCorruptSnapshot", err)
	}
}

func TestNakamaStoreSubscribeMissingSession(t *testing.T) {
	store := NewNakamaSessionStore(newFakeStorage(), noopLogger{})
	_, err := store.Subscribe(context.Background(), "nope", func(*ports.SessionDoc) {}, nil)
	if !errors.Is(err, ports.ErrSessionNotFound) {
		t.Fatalf("subscribe error = %v, want ErrSessionNotFound", err)
	}
}
