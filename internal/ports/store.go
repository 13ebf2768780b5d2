package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crazyeights/internal/domain"
)

var (
	// ErrStoreUnavailable wraps transport failures talking to the backing
	// document store.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrSessionNotFound is returned for operations on a missing session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCorruptSnapshot is returned when a persisted snapshot fails schema
	// validation at the adapter boundary.
	ErrCorruptSnapshot = errors.New("corrupt session snapshot")
)

// SessionDoc is the persisted, subscribable document for one realtime game
// session. EffectCard marks a card that is mid-transfer: it has left a hand
// but has not yet been committed to the discard pile. PendingSuit carries an
// upfront wild-suit nomination across the transfer.
type SessionDoc struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	State       domain.GameState `json:"state"`
	EffectCard  *domain.Card     `json:"effect_card,omitempty"`
	PendingSuit *domain.Suit     `json:"pending_suit,omitempty"`

	// Server-assigned on create/update.
	Version    int64     `json:"version"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
}

// Clone returns a deep copy of the document.
func (d *SessionDoc) Clone() *SessionDoc {
	if d == nil {
		return nil
	}
	out := *d
	out.State = d.State.Clone()
	if d.EffectCard != nil {
		c := *d.EffectCard
		out.EffectCard = &c
	}
	if d.PendingSuit != nil {
		s := *d.PendingSuit
		out.PendingSuit = &s
	}
	return &out
}

// Validate rejects malformed snapshots. Adapters call it on every decoded
// document so corruption surfaces as ErrCorruptSnapshot instead of undefined
// fields propagating into the state machine.
func (d *SessionDoc) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrCorruptSnapshot)
	}
	if d.OwnerID == "" {
		return fmt.Errorf("%w: missing owner id", ErrCorruptSnapshot)
	}
	if len(d.State.Hands) != 2 {
		return fmt.Errorf("%w: expected 2 hands, found %d", ErrCorruptSnapshot, len(d.State.Hands))
	}
	if _, ok := d.State.Hands[d.State.Turn]; !ok {
		return fmt.Errorf("%w: turn %q is not a seated player", ErrCorruptSnapshot, d.State.Turn)
	}
	if d.State.PendingSuitChoice {
		top := d.State.TopOfDiscard()
		if top == nil || top.Rank != domain.WildRank {
			return fmt.Errorf("%w: pending suit choice without a wild top card", ErrCorruptSnapshot)
		}
	}
	if w := d.State.Winner; w != "" {
		if _, ok := d.State.Hands[w]; !ok {
			return fmt.Errorf("%w: winner %q is not a seated player", ErrCorruptSnapshot, w)
		}
	}
	return nil
}

// SnapshotHandler receives full-state snapshots. A nil document signals that
// the session was deleted.
type SnapshotHandler func(doc *SessionDoc)

// RecentHandler receives the most recently updated sessions, newest first.
type RecentHandler func(docs []*SessionDoc)

// ErrorHandler receives asynchronous subscription failures.
type ErrorHandler func(err error)

// Unsubscribe detaches a subscription. Callers must invoke it on teardown to
// avoid leaking listeners. Safe to call more than once.
type Unsubscribe func()

// SessionStorePort is the contract between the session layer and a remote
// document store. Updates are full-document replaces with last-write-wins
// semantics. Subscriptions deliver the current snapshot immediately and then
// the latest snapshot after every change; intermediate snapshots may be
// coalesced away when writes outpace delivery.
type SessionStorePort interface {
	// Create persists an initial snapshot and returns the new session id.
	Create(ctx context.Context, ownerID string, doc *SessionDoc) (string, error)

	// Update replaces the stored snapshot for the session.
	Update(ctx context.Context, sessionID string, doc *SessionDoc) error

	// Subscribe registers a snapshot listener for one session.
	Subscribe(ctx context.Context, sessionID string, onSnapshot SnapshotHandler, onError ErrorHandler) (Unsubscribe, error)

	// SubscribeToRecent registers a listener over the most recently updated
	// sessions, re-delivered whenever the set changes.
	SubscribeToRecent(ctx context.Context, limit int, onUpdate RecentHandler, onError ErrorHandler) (Unsubscribe, error)

	// Remove deletes the session document.
	Remove(ctx context.Context, sessionID string) error
}
