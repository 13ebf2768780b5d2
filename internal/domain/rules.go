package domain

import (
	"errors"
	"math/rand"
)

// Reason classifies the outcome of a transition. Transitions never fail with
// an error: an invalid action returns the input state unchanged together with
// the reason it was ignored. The UI is expected to have filtered illegal
// actions already; the state machine is a defensive second gate.
type Reason string

const (
	ReasonOK                  Reason = "ok"
	ReasonGameOver            Reason = "game_over"
	ReasonNotYourTurn         Reason = "not_your_turn"
	ReasonIndexOutOfRange     Reason = "index_out_of_range"
	ReasonIllegalPlay         Reason = "illegal_play"
	ReasonSuitChoicePending   Reason = "suit_choice_pending"
	ReasonNoSuitChoicePending Reason = "no_suit_choice_pending"
	ReasonStockExhausted      Reason = "stock_exhausted"
)

// ErrNoStarterCard is returned when the initializer exhausts the deck without
// finding a non-special card to seed the discard pile. There is no recovery;
// game creation must be aborted.
var ErrNoStarterCard = errors.New("deck exhausted without a starter card")

// ErrShortDeck is returned when the deck cannot cover two hands and a starter.
var ErrShortDeck = errors.New("deck too small to deal")

// DefaultHandSize is the number of cards dealt to each player.
const DefaultHandSize = 7

// Rules holds the behavior flags of the state machine. The zero value is not
// useful; start from DefaultRules.
type Rules struct {
	// PermissivePlay keeps the reference legality rule: any card may be
	// played once a discard top exists. When false, standard matching
	// applies (suit match, rank match, or wild rank).
	PermissivePlay bool

	// WinOnEmptyHand sets Winner when a player's hand empties. The
	// reference behavior leaves this off.
	WinOnEmptyHand bool

	// HandSize is the number of cards dealt to each player.
	HandSize int

	rng *rand.Rand
}

// DefaultRules returns the rule set matching the observed reference behavior.
func DefaultRules() Rules {
	return Rules{PermissivePlay: true, WinOnEmptyHand: false, HandSize: DefaultHandSize}
}

// WithRand returns a copy of the rules using rng for shuffles, making deals
// and reshuffles deterministic under test.
func (r Rules) WithRand(rng *rand.Rand) Rules {
	r.rng = rng
	return r
}

// Initialize shuffles the deck, deals a hand to each player and seeds the
// discard pile with the first non-special card, rotating special cards to the
// back of the stock during the scan.
func (r Rules) Initialize(deck []Card) (GameState, error) {
	handSize := r.HandSize
	if handSize <= 0 {
		handSize = DefaultHandSize
	}
	if len(deck) < 2*handSize+1 {
		return GameState{}, ErrShortDeck
	}

	working := shuffleWith(r.rng, deck)
	state := GameState{
		Hands: map[PlayerID][]Card{
			PlayerNorth: append([]Card(nil), working[:handSize]...),
			PlayerSouth: append([]Card(nil), working[handSize:2*handSize]...),
		},
		Turn: PlayerNorth,
	}

	rest := append([]Card(nil), working[2*handSize:]...)
	found := false
	for scanned, n := 0, len(rest); scanned < n; scanned++ {
		c := rest[0]
		rest = rest[1:]
		if IsStarterSpecial(c) {
			rest = append(rest, c)
			continue
		}
		state.Discard = []Card{c}
		state.ActiveSuit = c.Suit
		found = true
		break
	}
	if !found {
		return GameState{}, ErrNoStarterCard
	}

	state.Stock = rest
	return state, nil
}

// CanPlay reports whether card is legal on top with the given active suit.
// With no top card any play is legal.
func (r Rules) CanPlay(card Card, top *Card, activeSuit Suit) bool {
	if top == nil || r.PermissivePlay {
		return true
	}
	return card.Rank == WildRank || card.Suit == activeSuit || card.Rank == top.Rank
}

// HasPlayableCard reports whether any card in hand is playable.
func (r Rules) HasPlayableCard(hand []Card, top *Card, activeSuit Suit) bool {
	for _, c := range hand {
		if r.CanPlay(c, top, activeSuit) {
			return true
		}
	}
	return false
}

// Play is the one-shot play transition: lift and settle in a single step.
func (r Rules) Play(s GameState, player PlayerID, idx int, chosenSuit *Suit) (GameState, Reason) {
	lifted, card, reason := r.LiftCard(s, player, idx)
	if reason != ReasonOK {
		return s, reason
	}
	return r.SettleCard(lifted, player, card, chosenSuit)
}

// LiftCard removes the card at idx from the acting player's hand without
// committing it to the discard pile. It is the first half of a play: the card
// stays in flight until SettleCard commits it, and the turn does not advance
// in between.
func (r Rules) LiftCard(s GameState, player PlayerID, idx int) (GameState, Card, Reason) {
	if reason := r.guardAction(s, player); reason != ReasonOK {
		return s, Card{}, reason
	}
	if s.PendingSuitChoice {
		return s, Card{}, ReasonSuitChoicePending
	}
	hand := s.Hands[player]
	if idx < 0 || idx >= len(hand) {
		return s, Card{}, ReasonIndexOutOfRange
	}
	card := hand[idx]
	if !r.CanPlay(card, s.TopOfDiscard(), s.ActiveSuit) {
		return s, Card{}, ReasonIllegalPlay
	}

	next := s.Clone()
	kept := next.Hands[player]
	next.Hands[player] = append(kept[:idx], kept[idx+1:]...)
	return next, card, ReasonOK
}

// SettleCard commits a lifted card to the discard pile and resolves active
// suit, turn and win state. player must be the actor that lifted the card.
func (r Rules) SettleCard(s GameState, player PlayerID, card Card, chosenSuit *Suit) (GameState, Reason) {
	if s.Winner != "" {
		return s, ReasonGameOver
	}
	if s.Turn != player {
		return s, ReasonNotYourTurn
	}

	next := s.Clone()
	next.Discard = append(next.Discard, card)
	switch {
	case card.Rank == WildRank && chosenSuit == nil:
		// The actor keeps the turn and the active suit is left unchanged
		// until a suit is chosen.
		next.PendingSuitChoice = true
	case card.Rank == WildRank:
		next.ActiveSuit = *chosenSuit
		next.Turn = player.Opponent()
	default:
		next.ActiveSuit = card.Suit
		next.Turn = player.Opponent()
	}

	if r.WinOnEmptyHand && len(next.Hands[player]) == 0 {
		next.Winner = player
	}
	return next, ReasonOK
}

// ChooseSuit resolves a pending wild-suit choice and advances the turn.
func (r Rules) ChooseSuit(s GameState, player PlayerID, suit Suit) (GameState, Reason) {
	if reason := r.guardAction(s, player); reason != ReasonOK {
		return s, reason
	}
	if !s.PendingSuitChoice {
		return s, ReasonNoSuitChoicePending
	}
	next := s.Clone()
	next.ActiveSuit = suit
	next.PendingSuitChoice = false
	next.Turn = player.Opponent()
	return next, ReasonOK
}

// Draw moves the top of the stock into the acting player's hand and advances
// the turn. An empty stock is replenished by reshuffling the discard pile
// minus its top card; drawing from a fully exhausted game is a valid no-op.
func (r Rules) Draw(s GameState, player PlayerID) (GameState, Reason) {
	if reason := r.guardAction(s, player); reason != ReasonOK {
		return s, reason
	}
	if s.PendingSuitChoice {
		return s, ReasonSuitChoicePending
	}

	next := s.Clone()
	if len(next.Stock) == 0 && len(next.Discard) > 1 {
		top := next.Discard[len(next.Discard)-1]
		next.Stock = shuffleWith(r.rng, next.Discard[:len(next.Discard)-1])
		next.Discard = []Card{top}
	}
	if len(next.Stock) == 0 {
		return s, ReasonStockExhausted
	}

	card := next.Stock[0]
	next.Stock = next.Stock[1:]
	next.Hands[player] = append(next.Hands[player], card)
	next.Turn = player.Opponent()
	return next, ReasonOK
}

func (r Rules) guardAction(s GameState, player PlayerID) Reason {
	if s.Winner != "" {
		return ReasonGameOver
	}
	if _, ok := s.Hands[player]; !ok {
		return ReasonNotYourTurn
	}
	if s.Turn != player {
		return ReasonNotYourTurn
	}
	return ReasonOK
}
