// Package bot provides an autonomous agent that fills the second seat of a
// solo session.
package bot

import (
	"crazyeights/internal/domain"
)

// MoveKind is the category of action an agent decided on.
type MoveKind string

const (
	MovePlay       MoveKind = "play"
	MoveDraw       MoveKind = "draw"
	MoveChooseSuit MoveKind = "choose_suit"
	MoveNone       MoveKind = "none"
)

// Move is an agent's decision for one turn.
type Move struct {
	Kind      MoveKind
	CardIndex int
	Suit      domain.Suit
}

// Agent represents an autonomous player for one seat.
type Agent struct {
	ID   string
	Name string
	Seat domain.PlayerID

	rules domain.Rules
}

// NewAgent returns an agent playing the given seat under the given rules.
func NewAgent(id, name string, seat domain.PlayerID, rules domain.Rules) *Agent {
	return &Agent{ID: id, Name: name, Seat: seat, rules: rules}
}

// CalculateMove decides the agent's next action: resolve a pending suit
// choice by the longest suit in hand, otherwise play the first legal card,
// otherwise draw.
func (a *Agent) CalculateMove(state domain.GameState) Move {
	if state.Winner != "" || state.Turn != a.Seat {
		return Move{Kind: MoveNone}
	}
	hand := state.Hands[a.Seat]

	if state.PendingSuitChoice {
		return Move{Kind: MoveChooseSuit, Suit: a.bestSuit(hand)}
	}

	top := state.TopOfDiscard()
	for i, c := range hand {
		if a.rules.CanPlay(c, top, state.ActiveSuit) {
			move := Move{Kind: MovePlay, CardIndex: i}
			if c.Rank == domain.WildRank {
				move.Suit = a.bestSuit(removeAt(hand, i))
			}
			return move
		}
	}
	return Move{Kind: MoveDraw}
}

// bestSuit picks the suit the agent holds the most of, falling back to spades
// for an empty hand.
func (a *Agent) bestSuit(hand []domain.Card) domain.Suit {
	counts := make(map[domain.Suit]int, len(domain.Suits))
	for _, c := range hand {
		counts[c.Suit]++
	}
	best := domain.SuitSpades
	for _, s := range domain.Suits {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best
}

func removeAt(hand []domain.Card, idx int) []domain.Card {
	out := make([]domain.Card, 0, len(hand)-1)
	out = append(out, hand[:idx]...)
	return append(out, hand[idx+1:]...)
}
