package domain

// Suit identifies one of the four french suits.
type Suit string

const (
	SuitSpades   Suit = "S"
	SuitHearts   Suit = "H"
	SuitDiamonds Suit = "D"
	SuitClubs    Suit = "C"
)

// Suits lists the four suits in deck order.
var Suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// Rank values. Ace is 1, Jack/Queen/King are 11..13.
const (
	RankAce   = 1
	RankJack  = 11
	RankQueen = 12
	RankKing  = 13

	// WildRank is the rank whose play lets the acting player nominate the
	// next active suit.
	WildRank = 8
)

// Card is a single playing card. Two cards are equal iff suit and rank match.
type Card struct {
	Suit Suit `json:"suit"`
	Rank int  `json:"rank"`
}

// PlayerID identifies one of the two seats in a game.
type PlayerID string

const (
	PlayerNorth PlayerID = "north"
	PlayerSouth PlayerID = "south"
)

// Opponent returns the other seat.
func (p PlayerID) Opponent() PlayerID {
	if p == PlayerNorth {
		return PlayerSouth
	}
	return PlayerNorth
}

// starterSpecialRanks is the rank set the initializer skips when seeding the
// discard pile. Only WildRank carries play semantics; the other ranks are
// reserved by the rule set and the initializer skips them uniformly.
var starterSpecialRanks = map[int]bool{
	RankAce:  true,
	2:        true,
	7:        true,
	WildRank: true,
	RankJack: true,
}

// IsStarterSpecial reports whether the initializer must not seed the discard
// pile with this card.
func IsStarterSpecial(c Card) bool {
	return starterSpecialRanks[c.Rank]
}
