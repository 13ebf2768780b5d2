package app

import (
	"crazyeights/internal/domain"
)

// EventKind discriminates controller events.
type EventKind string

const (
	// EventSnapshotApplied fires after a store snapshot replaces the local
	// session state.
	EventSnapshotApplied EventKind = "snapshot_applied"
	// EventEffectStarted fires when a card transfer begins, either locally
	// or observed on a remote snapshot. It is the hook for transfer
	// presentation; CompleteEffect ends it.
	EventEffectStarted EventKind = "effect_started"
	// EventActionRejected fires when an action was ignored by the rules.
	EventActionRejected EventKind = "action_rejected"
	// EventSyncFailed fires when pushing local state to the store failed or
	// a received snapshot was unusable. Local state stays authoritative.
	EventSyncFailed EventKind = "sync_failed"
	// EventSessionEnded fires when the session document was deleted.
	EventSessionEnded EventKind = "session_ended"
)

// Event is a controller notification. Payload type depends on Kind.
type Event struct {
	Kind    EventKind
	Payload any
}

// EffectStartedPayload carries the in-flight card.
type EffectStartedPayload struct {
	Card domain.Card
}

// ActionRejectedPayload carries the rejection diagnostics.
type ActionRejectedPayload struct {
	Action string
	Reason domain.Reason
}

// SyncFailedPayload carries the underlying store error.
type SyncFailedPayload struct {
	Err error
}

// EventSink receives controller events. Callbacks run on the controller's
// goroutines and must not call back into the controller.
type EventSink func(Event)
