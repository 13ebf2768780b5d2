// Package app hosts the session layer: controllers that bind the pure rules
// to a session store and surface events to a presentation layer.
package app

import (
	"context"
	"fmt"
	"sync"

	"crazyeights/internal/domain"
	"crazyeights/internal/ports"
)

// SyncStatus reports the health of the controller's push channel to the store.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncPending SyncStatus = "pending"
	SyncFailed  SyncStatus = "failed"
)

// SessionController drives one player's view of a hosted session. Actions are
// applied optimistically against the local snapshot, then pushed to the store
// without waiting; remote snapshots replace local state as they arrive, newest
// wins. A failed push flips Status to SyncFailed but never rolls back the
// local state.
type SessionController struct {
	store ports.SessionStorePort
	rules domain.Rules
	seat  domain.PlayerID
	sink  EventSink

	mu         sync.Mutex
	sessionID  string
	owner      bool
	doc        *ports.SessionDoc
	prevEffect *domain.Card
	status     SyncStatus
	closed     bool
	unsub      ports.Unsubscribe

	// Pending outbound snapshot. A single writer goroutine drains the slot
	// so pushes reach the store in order and bursts coalesce to the newest
	// snapshot.
	outbound     *ports.SessionDoc
	outboundSet  bool
	writing      bool
	writerNotify chan struct{}
	writerDone   chan struct{}
	writerOnce   sync.Once
}

// NewSessionController returns a controller for the given seat. sink may be
// nil when the caller does not need event notifications.
func NewSessionController(store ports.SessionStorePort, rules domain.Rules, seat domain.PlayerID, sink EventSink) *SessionController {
	if sink == nil {
		sink = func(Event) {}
	}
	return &SessionController{
		store:        store,
		rules:        rules,
		seat:         seat,
		sink:         sink,
		status:       SyncIdle,
		writerNotify: make(chan struct{}, 1),
		writerDone:   make(chan struct{}),
	}
}

// CreateSession deals a fresh game from a full deck, persists it and
// subscribes. The controller becomes the session owner and removes the
// document on Close.
func (c *SessionController) CreateSession(ctx context.Context, ownerID string) (string, error) {
	state, err := c.rules.Initialize(domain.NewDeck())
	if err != nil {
		return "", fmt.Errorf("initialize session: %w", err)
	}

	id, err := c.store.Create(ctx, ownerID, &ports.SessionDoc{OwnerID: ownerID, State: state})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	if err := c.attach(ctx, id, true); err != nil {
		return "", err
	}
	return id, nil
}

// AttachSession subscribes to an existing session without taking ownership.
func (c *SessionController) AttachSession(ctx context.Context, sessionID string) error {
	return c.attach(ctx, sessionID, false)
}

func (c *SessionController) attach(ctx context.Context, sessionID string, owner bool) error {
	c.mu.Lock()
	c.sessionID = sessionID
	c.owner = owner
	c.mu.Unlock()

	ready := make(chan struct{})
	var readyOnce sync.Once

	unsub, err := c.store.Subscribe(ctx, sessionID, func(doc *ports.SessionDoc) {
		c.applySnapshot(doc)
		readyOnce.Do(func() { close(ready) })
	}, func(err error) {
		c.mu.Lock()
		c.status = SyncFailed
		c.mu.Unlock()
		c.sink(Event{Kind: EventSyncFailed, Payload: SyncFailedPayload{Err: err}})
	})
	if err != nil {
		return fmt.Errorf("subscribe session %s: %w", sessionID, err)
	}

	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()

	go c.runWriter(ctx)

	// Actions are valid as soon as attach returns, so wait for the initial
	// snapshot before handing the controller back.
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		unsub()
		return ctx.Err()
	}
}

// applySnapshot reconciles a store snapshot into local state. A nil snapshot
// means the session was deleted.
func (c *SessionController) applySnapshot(doc *ports.SessionDoc) {
	if doc == nil {
		c.mu.Lock()
		c.closed = true
		c.doc = nil
		c.mu.Unlock()
		c.writerOnce.Do(func() { close(c.writerDone) })
		c.sink(Event{Kind: EventSessionEnded})
		return
	}
	if err := doc.Validate(); err != nil {
		c.sink(Event{Kind: EventSyncFailed, Payload: SyncFailedPayload{Err: err}})
		return
	}

	c.mu.Lock()
	// While an outbound push is pending, incoming snapshots are echoes of
	// older local states. The optimistic local state stays authoritative.
	if c.outboundSet || c.writing {
		c.mu.Unlock()
		return
	}
	startedEffect := c.prevEffect == nil && doc.EffectCard != nil
	c.doc = doc
	c.prevEffect = doc.EffectCard
	c.mu.Unlock()

	// Edge-triggered: only the none-to-set transition announces a transfer.
	// Set-to-none is consumed silently, matching CompleteEffect.
	if startedEffect {
		c.sink(Event{Kind: EventEffectStarted, Payload: EffectStartedPayload{Card: *doc.EffectCard}})
	}
	c.sink(Event{Kind: EventSnapshotApplied})
}

// PlayCard lifts the card at idx from the local seat's hand. The card stays
// in flight until CompleteEffect commits it; the opponent sees the transfer
// through the snapshot's effect marker. chosenSuit may nominate the next suit
// upfront when playing a wild card.
func (c *SessionController) PlayCard(ctx context.Context, idx int, chosenSuit *domain.Suit) domain.Reason {
	c.mu.Lock()
	if c.doc == nil || c.closed {
		c.mu.Unlock()
		return domain.ReasonGameOver
	}
	if c.doc.EffectCard != nil {
		c.mu.Unlock()
		c.reject("play_card", domain.ReasonIllegalPlay)
		return domain.ReasonIllegalPlay
	}

	lifted, card, reason := c.rules.LiftCard(c.doc.State, c.seat, idx)
	if reason != domain.ReasonOK {
		c.mu.Unlock()
		c.reject("play_card", reason)
		return reason
	}

	next := c.doc.Clone()
	next.State = lifted
	next.EffectCard = &card
	next.PendingSuit = chosenSuit
	c.doc = next
	c.prevEffect = next.EffectCard
	c.mu.Unlock()

	c.sink(Event{Kind: EventEffectStarted, Payload: EffectStartedPayload{Card: card}})
	c.push(ctx, next)
	return domain.ReasonOK
}

// CompleteEffect commits the in-flight card to the discard pile and resolves
// suit, turn and win state. Calling it with no transfer in flight is a no-op,
// so presentation code may invoke it unconditionally when its animation ends.
func (c *SessionController) CompleteEffect(ctx context.Context) domain.Reason {
	c.mu.Lock()
	if c.doc == nil || c.closed || c.doc.EffectCard == nil {
		c.mu.Unlock()
		return domain.ReasonOK
	}

	// The turn has not advanced since the lift, so the current turn holder
	// is the actor that lifted the card.
	settled, reason := c.rules.SettleCard(c.doc.State, c.doc.State.Turn, *c.doc.EffectCard, c.doc.PendingSuit)
	if reason != domain.ReasonOK {
		c.mu.Unlock()
		c.reject("complete_effect", reason)
		return reason
	}

	next := c.doc.Clone()
	next.State = settled
	next.EffectCard = nil
	next.PendingSuit = nil
	c.doc = next
	c.prevEffect = nil
	c.mu.Unlock()

	c.push(ctx, next)
	return domain.ReasonOK
}

// DrawCard draws from the stock for the local seat.
func (c *SessionController) DrawCard(ctx context.Context) domain.Reason {
	return c.apply(ctx, "draw_card", func(s domain.GameState) (domain.GameState, domain.Reason) {
		return c.rules.Draw(s, c.seat)
	})
}

// ChooseSuit resolves a pending wild-suit choice for the local seat.
func (c *SessionController) ChooseSuit(ctx context.Context, suit domain.Suit) domain.Reason {
	return c.apply(ctx, "choose_suit", func(s domain.GameState) (domain.GameState, domain.Reason) {
		return c.rules.ChooseSuit(s, c.seat, suit)
	})
}

func (c *SessionController) apply(ctx context.Context, action string, transition func(domain.GameState) (domain.GameState, domain.Reason)) domain.Reason {
	c.mu.Lock()
	if c.doc == nil || c.closed {
		c.mu.Unlock()
		return domain.ReasonGameOver
	}
	if c.doc.EffectCard != nil {
		c.mu.Unlock()
		c.reject(action, domain.ReasonIllegalPlay)
		return domain.ReasonIllegalPlay
	}

	state, reason := transition(c.doc.State)
	if reason != domain.ReasonOK {
		c.mu.Unlock()
		c.reject(action, reason)
		return reason
	}

	next := c.doc.Clone()
	next.State = state
	c.doc = next
	c.mu.Unlock()

	c.push(ctx, next)
	return domain.ReasonOK
}

// push enqueues the snapshot for the writer goroutine and returns without
// waiting. Queued snapshots coalesce: only the newest one is written.
func (c *SessionController) push(ctx context.Context, doc *ports.SessionDoc) {
	c.mu.Lock()
	c.status = SyncPending
	c.outbound = doc.Clone()
	c.outboundSet = true
	c.mu.Unlock()

	select {
	case c.writerNotify <- struct{}{}:
	default:
	}
}

// runWriter drains the outbound slot, pushing snapshots to the store in
// order. A failed push flips Status to SyncFailed and surfaces the error; the
// local state is never rolled back.
func (c *SessionController) runWriter(ctx context.Context) {
	for {
		select {
		case <-c.writerDone:
			return
		case <-c.writerNotify:
		}

		for {
			c.mu.Lock()
			doc, has := c.outbound, c.outboundSet
			c.outbound, c.outboundSet = nil, false
			id := c.sessionID
			c.mu.Unlock()
			if !has {
				break
			}

			c.mu.Lock()
			c.writing = true
			c.mu.Unlock()

			err := c.store.Update(ctx, id, doc)

			c.mu.Lock()
			c.writing = false
			if err != nil {
				c.status = SyncFailed
			} else if c.status == SyncPending && !c.outboundSet {
				c.status = SyncIdle
			}
			c.mu.Unlock()

			if err != nil {
				c.sink(Event{Kind: EventSyncFailed, Payload: SyncFailedPayload{Err: err}})
			}
		}
	}
}

func (c *SessionController) reject(action string, reason domain.Reason) {
	c.sink(Event{Kind: EventActionRejected, Payload: ActionRejectedPayload{Action: action, Reason: reason}})
}

// State returns a copy of the current local game state.
func (c *SessionController) State() domain.GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil {
		return domain.GameState{}
	}
	return c.doc.State.Clone()
}

// EffectInFlight reports whether a card transfer awaits CompleteEffect, and
// which card it carries.
func (c *SessionController) EffectInFlight() (domain.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.doc == nil || c.doc.EffectCard == nil {
		return domain.Card{}, false
	}
	return *c.doc.EffectCard, true
}

// Status reports the push channel health.
func (c *SessionController) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionID returns the attached session id, or empty before attach.
func (c *SessionController) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Close detaches the subscription. The session owner also removes the stored
// document, ending the session for every participant.
func (c *SessionController) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsub := c.unsub
	owner := c.owner
	id := c.sessionID
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	c.writerOnce.Do(func() { close(c.writerDone) })
	if owner && id != "" {
		if err := c.store.Remove(ctx, id); err != nil && err != ports.ErrSessionNotFound {
			return fmt.Errorf("remove session %s: %w", id, err)
		}
	}
	return nil
}
