package domain

import "math/rand"

// DeckSize is the size of a standard deck.
const DeckSize = 52

// NewDeck returns an ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := RankAce; r <= RankKing; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck. The input is never
// mutated.
func ShuffleDeck(deck []Card) []Card {
	return shuffleWith(nil, deck)
}

func shuffleWith(rng *rand.Rand, deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng != nil {
		rng.Shuffle(len(out), swap)
	} else {
		rand.Shuffle(len(out), swap)
	}
	return out
}
