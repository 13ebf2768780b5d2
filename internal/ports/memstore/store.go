// Package memstore provides an in-process realization of the session store
// contract with push subscriptions. It backs unit tests and local play, and
// serves as the reference for the delivery semantics remote adapters must
// honor: the current snapshot arrives immediately on subscribe, later
// snapshots coalesce to the newest value.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"crazyeights/internal/ports"
)

// Store implements ports.SessionStorePort in memory.
type Store struct {
	mu      sync.Mutex
	docs    map[string]*ports.SessionDoc
	subs    map[string]map[int64]*subscriber
	recents map[int64]*recentSub
	nextSub int64
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs:    make(map[string]*ports.SessionDoc),
		subs:    make(map[string]map[int64]*subscriber),
		recents: make(map[int64]*recentSub),
		now:     time.Now,
	}
}

// Create persists an initial snapshot and returns the new session id.
func (st *Store) Create(ctx context.Context, ownerID string, doc *ports.SessionDoc) (string, error) {
	stored := doc.Clone()
	stored.ID = uuid.NewString()
	stored.OwnerID = ownerID
	stored.Version = 1
	stamp := st.now()
	stored.CreateTime = stamp
	stored.UpdateTime = stamp

	st.mu.Lock()
	st.docs[stored.ID] = stored
	st.notifyRecentsLocked()
	st.mu.Unlock()
	return stored.ID, nil
}

// Update replaces the stored snapshot. The server assigns version and update
// time; whatever the caller put in those fields is ignored.
func (st *Store) Update(ctx context.Context, sessionID string, doc *ports.SessionDoc) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	prev, ok := st.docs[sessionID]
	if !ok {
		return ports.ErrSessionNotFound
	}

	stored := doc.Clone()
	stored.ID = sessionID
	stored.OwnerID = prev.OwnerID
	stored.Version = prev.Version + 1
	stored.CreateTime = prev.CreateTime
	stored.UpdateTime = st.now()
	st.docs[sessionID] = stored

	for _, sub := range st.subs[sessionID] {
		sub.publish(stored.Clone(), false)
	}
	st.notifyRecentsLocked()
	return nil
}

// Subscribe registers a snapshot listener. The current snapshot is delivered
// immediately, then the latest snapshot after every change. A nil snapshot
// signals deletion and closes the subscription.
func (st *Store) Subscribe(ctx context.Context, sessionID string, onSnapshot ports.SnapshotHandler, onError ports.ErrorHandler) (ports.Unsubscribe, error) {
	st.mu.Lock()
	doc, ok := st.docs[sessionID]
	if !ok {
		st.mu.Unlock()
		return nil, ports.ErrSessionNotFound
	}

	sub := newSubscriber()
	id := st.nextSub
	st.nextSub++
	if st.subs[sessionID] == nil {
		st.subs[sessionID] = make(map[int64]*subscriber)
	}
	st.subs[sessionID][id] = sub
	sub.publish(doc.Clone(), false)
	st.mu.Unlock()

	go sub.run(onSnapshot)

	return func() {
		st.mu.Lock()
		delete(st.subs[sessionID], id)
		st.mu.Unlock()
		sub.stop()
	}, nil
}

// SubscribeToRecent registers a listener over the most recently updated
// sessions, newest first, re-delivered whenever any session changes.
func (st *Store) SubscribeToRecent(ctx context.Context, limit int, onUpdate ports.RecentHandler, onError ports.ErrorHandler) (ports.Unsubscribe, error) {
	sub := &recentSub{limit: limit, subscriberList: newSubscriberList()}

	st.mu.Lock()
	id := st.nextSub
	st.nextSub++
	st.recents[id] = sub
	sub.publish(st.recentDocsLocked(limit))
	st.mu.Unlock()

	go sub.run(onUpdate)

	return func() {
		st.mu.Lock()
		delete(st.recents, id)
		st.mu.Unlock()
		sub.stop()
	}, nil
}

// Remove deletes the session document and terminates its subscriptions.
func (st *Store) Remove(ctx context.Context, sessionID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.docs[sessionID]; !ok {
		return ports.ErrSessionNotFound
	}
	delete(st.docs, sessionID)

	for _, sub := range st.subs[sessionID] {
		sub.publish(nil, true)
	}
	delete(st.subs, sessionID)
	st.notifyRecentsLocked()
	return nil
}

func (st *Store) recentDocsLocked(limit int) []*ports.SessionDoc {
	docs := make([]*ports.SessionDoc, 0, len(st.docs))
	for _, d := range st.docs {
		docs = append(docs, d.Clone())
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UpdateTime.After(docs[j].UpdateTime) })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs
}

func (st *Store) notifyRecentsLocked() {
	for _, sub := range st.recents {
		sub.publish(st.recentDocsLocked(sub.limit))
	}
}

// subscriber holds the latest undelivered snapshot for one listener. The
// delivery goroutine drains the slot, so writers never block and bursts of
// updates collapse into the newest value.
type subscriber struct {
	mu      sync.Mutex
	latest  *ports.SessionDoc
	has     bool
	deleted bool
	notify  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSubscriber() *subscriber {
	return &subscriber{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (s *subscriber) publish(doc *ports.SessionDoc, deleted bool) {
	s.mu.Lock()
	s.latest = doc
	s.has = true
	if deleted {
		s.deleted = true
	}
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run(onSnapshot ports.SnapshotHandler) {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
			s.mu.Lock()
			doc, has, deleted := s.latest, s.has, s.deleted
			s.latest, s.has = nil, false
			s.mu.Unlock()
			if !has {
				continue
			}
			if deleted {
				onSnapshot(nil)
				s.stop()
				return
			}
			onSnapshot(doc)
		}
	}
}

// recentSub mirrors subscriber for recency listings.
type recentSub struct {
	limit int
	*subscriberList
}

type subscriberList struct {
	mu     sync.Mutex
	latest []*ports.SessionDoc
	has    bool
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscriberList() *subscriberList {
	return &subscriberList{notify: make(chan struct{}, 1), done: make(chan struct{})}
}

func (s *subscriberList) publish(docs []*ports.SessionDoc) {
	s.mu.Lock()
	s.latest = docs
	s.has = true
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscriberList) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriberList) run(onUpdate ports.RecentHandler) {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
			s.mu.Lock()
			docs, has := s.latest, s.has
			s.latest, s.has = nil, false
			s.mu.Unlock()
			if has {
				onUpdate(docs)
			}
		}
	}
}
