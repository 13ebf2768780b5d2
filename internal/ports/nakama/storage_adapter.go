package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"crazyeights/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// StorageClient is the slice of runtime.NakamaModule the session store needs.
type StorageClient interface {
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
	StorageList(ctx context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error)
}

// NakamaSessionStore implements ports.SessionStorePort on Nakama's storage
// engine. Writes are conditional on the storage version, so a stale writer
// re-reads and retries once; the newest write still wins, matching the port's
// last-write-wins contract. Snapshot fan-out to subscribers happens
// in-process after each successful write.
type NakamaSessionStore struct {
	nk     StorageClient
	logger runtime.Logger

	mu      sync.Mutex
	cache   map[string]*cachedSession
	subs    map[string]map[int64]*docSub
	recents map[int64]*recentSub
	nextSub int64
}

type cachedSession struct {
	doc     *ports.SessionDoc
	version string // storage engine version for conditional writes
}

// NewNakamaSessionStore creates a session store backed by nk.
func NewNakamaSessionStore(nk StorageClient, logger runtime.Logger) *NakamaSessionStore {
	return &NakamaSessionStore{
		nk:      nk,
		logger:  logger,
		cache:   make(map[string]*cachedSession),
		subs:    make(map[string]map[int64]*docSub),
		recents: make(map[int64]*recentSub),
	}
}

// Create persists an initial snapshot and returns the new session id.
func (s *NakamaSessionStore) Create(ctx context.Context, ownerID string, doc *ports.SessionDoc) (string, error) {
	stored := doc.Clone()
	stored.ID = uuid.NewString()
	stored.OwnerID = ownerID
	stored.Version = 1
	stamp := time.Now()
	stored.CreateTime = stamp
	stored.UpdateTime = stamp

	version, err := s.write(ctx, stored, "*")
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	s.cache[stored.ID] = &cachedSession{doc: stored, version: version}
	s.notifyRecentsLocked()
	s.mu.Unlock()
	return stored.ID, nil
}

// Update replaces the stored snapshot. A conflicting concurrent write is
// retried once against the latest version; the caller's snapshot wins.
func (s *NakamaSessionStore) Update(ctx context.Context, sessionID string, doc *ports.SessionDoc) error {
	prev, err := s.lookup(ctx, sessionID)
	if err != nil {
		return err
	}

	stored := doc.Clone()
	stored.ID = sessionID
	stored.OwnerID = prev.doc.OwnerID
	stored.Version = prev.doc.Version + 1
	stored.CreateTime = prev.doc.CreateTime
	stored.UpdateTime = time.Now()

	version, err := s.write(ctx, stored, prev.version)
	if errors.Is(err, runtime.ErrStorageRejectedVersion) {
		// Lost a write race. Adopt the latest version and overwrite.
		latest, rerr := s.fetch(ctx, sessionID)
		if rerr != nil {
			return rerr
		}
		stored.Version = latest.doc.Version + 1
		version, err = s.write(ctx, stored, latest.version)
	}
	if err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	s.cache[sessionID] = &cachedSession{doc: stored, version: version}
	for _, sub := range s.subs[sessionID] {
		sub.publish(stored.Clone(), false)
	}
	s.notifyRecentsLocked()
	s.mu.Unlock()
	return nil
}

// Subscribe registers a snapshot listener. The current snapshot is delivered
// immediately; a nil snapshot signals deletion and closes the subscription.
func (s *NakamaSessionStore) Subscribe(ctx context.Context, sessionID string, onSnapshot ports.SnapshotHandler, onError ports.ErrorHandler) (ports.Unsubscribe, error) {
	current, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sub := newDocSub()

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[sessionID] == nil {
		s.subs[sessionID] = make(map[int64]*docSub)
	}
	s.subs[sessionID][id] = sub
	sub.publish(current.doc.Clone(), false)
	s.mu.Unlock()

	go sub.run(onSnapshot)

	return func() {
		s.mu.Lock()
		delete(s.subs[sessionID], id)
		s.mu.Unlock()
		sub.stop()
	}, nil
}

// SubscribeToRecent registers a listener over the most recently updated
// sessions, newest first.
func (s *NakamaSessionStore) SubscribeToRecent(ctx context.Context, limit int, onUpdate ports.RecentHandler, onError ports.ErrorHandler) (ports.Unsubscribe, error) {
	initial, err := s.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	sub := &recentSub{limit: limit, sub: newDocListSub()}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.recents[id] = sub
	sub.sub.publish(initial)
	s.mu.Unlock()

	go sub.sub.run(onUpdate)

	return func() {
		s.mu.Lock()
		delete(s.recents, id)
		s.mu.Unlock()
		sub.sub.stop()
	}, nil
}

// Remove deletes the session document and terminates its subscriptions.
func (s *NakamaSessionStore) Remove(ctx context.Context, sessionID string) error {
	deletes := []*runtime.StorageDelete{{
		Collection: StorageCollectionSessions,
		Key:        sessionID,
	}}
	if err := s.nk.StorageDelete(ctx, deletes); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, wrapStorageErr(err))
	}

	s.mu.Lock()
	delete(s.cache, sessionID)
	for _, sub := range s.subs[sessionID] {
		sub.publish(nil, true)
	}
	delete(s.subs, sessionID)
	s.notifyRecentsLocked()
	s.mu.Unlock()
	return nil
}

// ListRecent fetches the most recently updated sessions, newest first.
func (s *NakamaSessionStore) ListRecent(ctx context.Context, limit int) ([]*ports.SessionDoc, error) {
	fetch := limit
	if fetch <= 0 || fetch > 100 {
		fetch = 100
	}
	objects, _, err := s.nk.StorageList(ctx, "", "", StorageCollectionSessions, fetch, "")
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", wrapStorageErr(err))
	}

	docs := make([]*ports.SessionDoc, 0, len(objects))
	for _, obj := range objects {
		doc, err := decodeSession(obj)
		if err != nil {
			s.logger.Warn("Skipping unreadable session %s: %v", obj.Key, err)
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdateTime.After(docs[j].UpdateTime) })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// lookup serves from the in-process cache, falling back to a storage read.
func (s *NakamaSessionStore) lookup(ctx context.Context, sessionID string) (*cachedSession, error) {
	s.mu.Lock()
	cached, ok := s.cache[sessionID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}
	return s.fetch(ctx, sessionID)
}

func (s *NakamaSessionStore) fetch(ctx context.Context, sessionID string) (*cachedSession, error) {
	reads := []*runtime.StorageRead{{
		Collection: StorageCollectionSessions,
		Key:        sessionID,
	}}
	objects, err := s.nk.StorageRead(ctx, reads)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, wrapStorageErr(err))
	}
	if len(objects) == 0 {
		return nil, ports.ErrSessionNotFound
	}

	doc, err := decodeSession(objects[0])
	if err != nil {
		return nil, err
	}
	cached := &cachedSession{doc: doc, version: objects[0].Version}

	s.mu.Lock()
	s.cache[sessionID] = cached
	s.mu.Unlock()
	return cached, nil
}

func (s *NakamaSessionStore) write(ctx context.Context, doc *ports.SessionDoc, version string) (string, error) {
	value, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal session %s: %w", doc.ID, err)
	}

	writes := []*runtime.StorageWrite{{
		Collection:      StorageCollectionSessions,
		Key:             doc.ID,
		Value:           string(value),
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}}
	acks, err := s.nk.StorageWrite(ctx, writes)
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return "", err
		}
		return "", wrapStorageErr(err)
	}
	if len(acks) == 0 {
		return "", fmt.Errorf("%w: write returned no ack", ports.ErrStoreUnavailable)
	}
	return acks[0].Version, nil
}

func (s *NakamaSessionStore) notifyRecentsLocked() {
	docs := make([]*ports.SessionDoc, 0, len(s.cache))
	for _, c := range s.cache {
		docs = append(docs, c.doc.Clone())
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdateTime.After(docs[j].UpdateTime) })
	for _, sub := range s.recents {
		listing := docs
		if sub.limit > 0 && len(listing) > sub.limit {
			listing = listing[:sub.limit]
		}
		sub.sub.publish(listing)
	}
}

// decodeSession unmarshals and validates a stored object. The storage
// engine's update time overrides the serialized one so recency ordering
// follows the server clock.
func decodeSession(obj *api.StorageObject) (*ports.SessionDoc, error) {
	var doc ports.SessionDoc
	if err := json.Unmarshal([]byte(obj.Value), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrCorruptSnapshot, err)
	}
	doc.ID = obj.Key
	if obj.CreateTime != nil {
		doc.CreateTime = obj.CreateTime.AsTime()
	}
	if obj.UpdateTime != nil {
		doc.UpdateTime = obj.UpdateTime.AsTime()
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func wrapStorageErr(err error) error {
	return fmt.Errorf("%w: %v", ports.ErrStoreUnavailable, err)
}

// docSub holds the latest undelivered snapshot for one listener; bursts of
// writes coalesce into the newest value.
type docSub struct {
	mu      sync.Mutex
	latest  *ports.SessionDoc
	has     bool
	deleted bool
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newDocSub() *docSub {
	return &docSub{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (d *docSub) publish(doc *ports.SessionDoc, deleted bool) {
	d.mu.Lock()
	d.latest = doc
	d.has = true
	if deleted {
		d.deleted = true
	}
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *docSub) stop() {
	d.once.Do(func() { close(d.done) })
}

func (d *docSub) run(onSnapshot ports.SnapshotHandler) {
	for {
		select {
		case <-d.done:
			return
		case <-d.notify:
			d.mu.Lock()
			doc, has, deleted := d.latest, d.has, d.deleted
			d.latest, d.has = nil, false
			d.mu.Unlock()
			if !has {
				continue
			}
			if deleted {
				onSnapshot(nil)
				d.stop()
				return
			}
			onSnapshot(doc)
		}
	}
}

type recentSub struct {
	limit int
	sub   *docListSub
}

type docListSub struct {
	mu     sync.Mutex
	latest []*ports.SessionDoc
	has    bool
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newDocListSub() *docListSub {
	return &docListSub{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (d *docListSub) publish(docs []*ports.SessionDoc) {
	d.mu.Lock()
	d.latest = docs
	d.has = true
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *docListSub) stop() {
	d.once.Do(func() { close(d.done) })
}

func (d *docListSub) run(onUpdate ports.RecentHandler) {
	for {
		select {
		case <-d.done:
			return
		case <-d.notify:
			d.mu.Lock()
			docs, has := d.latest, d.has
			d.latest, d.has = nil, false
			d.mu.Unlock()
			if has {
				onUpdate(docs)
			}
		}
	}
}

var _ ports.SessionStorePort = (*NakamaSessionStore)(nil)
