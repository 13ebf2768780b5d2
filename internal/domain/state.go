package domain

import "fmt"

// GameState is the authoritative snapshot of a single game instance. State
// values are treated as immutable: every transition returns a fresh value and
// leaves its input untouched.
type GameState struct {
	Hands             map[PlayerID][]Card `json:"hands"`
	Stock             []Card              `json:"stock"`
	Discard           []Card              `json:"discard"`
	Turn              PlayerID            `json:"turn"`
	ActiveSuit        Suit                `json:"active_suit"`
	PendingSuitChoice bool                `json:"pending_suit_choice"`
	Winner            PlayerID            `json:"winner,omitempty"`
}

// Clone returns a deep copy of the state.
func (s GameState) Clone() GameState {
	out := s
	out.Hands = make(map[PlayerID][]Card, len(s.Hands))
	for p, hand := range s.Hands {
		out.Hands[p] = append([]Card(nil), hand...)
	}
	out.Stock = append([]Card(nil), s.Stock...)
	out.Discard = append([]Card(nil), s.Discard...)
	return out
}

// TopOfDiscard returns the active top card, or nil when the discard is empty.
func (s GameState) TopOfDiscard() *Card {
	if len(s.Discard) == 0 {
		return nil
	}
	c := s.Discard[len(s.Discard)-1]
	return &c
}

// CardCount is the total number of cards across hands, stock and discard.
func (s GameState) CardCount() int {
	n := len(s.Stock) + len(s.Discard)
	for _, hand := range s.Hands {
		n += len(hand)
	}
	return n
}

// CheckInvariants verifies the structural invariants of a reachable state.
// deckSize is the size of the deck the game was initialized from; pass 0 to
// skip the conservation check. inFlight counts cards currently held by a
// secondary-effect marker and therefore outside every pile.
func CheckInvariants(s GameState, deckSize, inFlight int) error {
	if len(s.Hands) != 2 {
		return fmt.Errorf("expected 2 hands, found %d", len(s.Hands))
	}
	if _, ok := s.Hands[s.Turn]; !ok {
		return fmt.Errorf("turn %q is not a seated player", s.Turn)
	}
	if len(s.Discard) == 0 && inFlight == 0 {
		return fmt.Errorf("discard pile is empty")
	}
	if s.PendingSuitChoice {
		top := s.TopOfDiscard()
		if top == nil || top.Rank != WildRank {
			return fmt.Errorf("pending suit choice without a wild top card")
		}
	}
	if s.Winner != "" {
		if _, ok := s.Hands[s.Winner]; !ok {
			return fmt.Errorf("winner %q is not a seated player", s.Winner)
		}
	}
	if deckSize > 0 {
		if got := s.CardCount() + inFlight; got != deckSize {
			return fmt.Errorf("card conservation violated: %d cards, deck holds %d", got, deckSize)
		}
	}
	return nil
}
