package domain

import (
	"math/rand"
	"reflect"
	"testing"
)

// twoHandState builds a fixed mid-game state. The active suit follows the
// discard top.
func twoHandState(north, south, discard []Card, turn PlayerID) GameState {
	s := GameState{
		Hands: map[PlayerID][]Card{
			PlayerNorth: north,
			PlayerSouth: south,
		},
		Discard: discard,
		Turn:    turn,
	}
	if top := s.TopOfDiscard(); top != nil {
		s.ActiveSuit = top.Suit
	}
	return s
}

func suitPtr(s Suit) *Suit { return &s }

func TestInitializeDealsHandsAndStarter(t *testing.T) {
	rules := DefaultRules()
	deck := NewDeck()

	for trial := 0; trial < 100; trial++ {
		state, err := rules.Initialize(deck)
		if err != nil {
			t.Fatalf("trial %d: initialize error: %v", trial, err)
		}
		if len(state.Hands[PlayerNorth]) != DefaultHandSize || len(state.Hands[PlayerSouth]) != DefaultHandSize {
			t.Fatalf("trial %d: hand sizes = %d/%d, want %d each",
				trial, len(state.Hands[PlayerNorth]), len(state.Hands[PlayerSouth]), DefaultHandSize)
		}
		if len(state.Discard) != 1 {
			t.Fatalf("trial %d: discard size = %d, want 1", trial, len(state.Discard))
		}
		if IsStarterSpecial(state.Discard[0]) {
			t.Fatalf("trial %d: starter card %+v is special", trial, state.Discard[0])
		}
		if state.ActiveSuit != state.Discard[0].Suit {
			t.Fatalf("trial %d: active suit %s does not match starter %+v", trial, state.ActiveSuit, state.Discard[0])
		}
		if state.Turn != PlayerNorth {
			t.Fatalf("trial %d: first turn = %s, want north", trial, state.Turn)
		}
		if err := CheckInvariants(state, DeckSize, 0); err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
	}
}

func TestInitializeFailsWithoutStarterCard(t *testing.T) {
	// Every card special: hands consume 14, the remaining scan can never
	// find a starter.
	var deck []Card
	for _, s := range Suits {
		for _, r := range []int{RankAce, 2, 7, WildRank, RankJack} {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}

	if _, err := DefaultRules().Initialize(deck); err != ErrNoStarterCard {
		t.Fatalf("err = %v, want ErrNoStarterCard", err)
	}
}

func TestInitializeFailsOnShortDeck(t *testing.T) {
	if _, err := DefaultRules().Initialize(NewDeck()[:10]); err != ErrShortDeck {
		t.Fatalf("err = %v, want ErrShortDeck", err)
	}
}

func TestPlayAdvancesTurnAndSuit(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, 3}, {SuitHearts, 4}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)

	next, reason := DefaultRules().Play(state, PlayerNorth, 1, nil)
	if reason != ReasonOK {
		t.Fatalf("reason = %s, want ok", reason)
	}
	if next.Turn != PlayerSouth {
		t.Fatalf("turn = %s, want south", next.Turn)
	}
	if next.ActiveSuit != SuitHearts {
		t.Fatalf("active suit = %s, want H", next.ActiveSuit)
	}
	if got := next.TopOfDiscard(); got == nil || *got != (Card{SuitHearts, 4}) {
		t.Fatalf("discard top = %+v, want 4H", got)
	}
	if len(next.Hands[PlayerNorth]) != 1 {
		t.Fatalf("north hand size = %d, want 1", len(next.Hands[PlayerNorth]))
	}
	// Input untouched.
	if len(state.Hands[PlayerNorth]) != 2 || len(state.Discard) != 1 {
		t.Fatal("Play mutated its input state")
	}
}

func TestPlayInvalidActionsAreNoOps(t *testing.T) {
	base := twoHandState(
		[]Card{{SuitSpades, 3}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)

	tests := []struct {
		name   string
		state  GameState
		player PlayerID
		idx    int
		want   Reason
	}{
		{name: "IndexOutOfRange", state: base, player: PlayerNorth, idx: 7, want: ReasonIndexOutOfRange},
		{name: "NegativeIndex", state: base, player: PlayerNorth, idx: -1, want: ReasonIndexOutOfRange},
		{name: "OutOfTurn", state: base, player: PlayerSouth, idx: 0, want: ReasonNotYourTurn},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next, reason := DefaultRules().Play(test.state, test.player, test.idx, nil)
			if reason != test.want {
				t.Fatalf("reason = %s, want %s", reason, test.want)
			}
			if !reflect.DeepEqual(next, test.state) {
				t.Fatal("no-op play changed the state")
			}
		})
	}
}

func TestPlayAfterWinnerIsNoOp(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, 3}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)
	state.Winner = PlayerSouth

	next, reason := DefaultRules().Play(state, PlayerNorth, 0, nil)
	if reason != ReasonGameOver {
		t.Fatalf("reason = %s, want game_over", reason)
	}
	if !reflect.DeepEqual(next, state) {
		t.Fatal("terminal state was mutated")
	}
}

func TestWildPlayGatesSuitChoice(t *testing.T) {
	rules := DefaultRules()
	state := twoHandState(
		[]Card{{SuitSpades, WildRank}, {SuitHearts, 4}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)

	pending, reason := rules.Play(state, PlayerNorth, 0, nil)
	if reason != ReasonOK {
		t.Fatalf("wild play reason = %s, want ok", reason)
	}
	if !pending.PendingSuitChoice {
		t.Fatal("expected pending suit choice after wild play")
	}
	if pending.Turn != PlayerNorth {
		t.Fatalf("turn = %s, want north to retain turn", pending.Turn)
	}
	if pending.ActiveSuit != SuitDiamonds {
		t.Fatalf("active suit = %s, want unchanged D", pending.ActiveSuit)
	}

	// The opponent cannot act while the choice is open.
	blocked, reason := rules.Play(pending, PlayerSouth, 0, nil)
	if reason != ReasonNotYourTurn {
		t.Fatalf("opponent play reason = %s, want not_your_turn", reason)
	}
	if !reflect.DeepEqual(blocked, pending) {
		t.Fatal("blocked play changed the state")
	}

	// Neither can the actor play another card.
	if _, reason := rules.Play(pending, PlayerNorth, 0, nil); reason != ReasonSuitChoicePending {
		t.Fatalf("second play reason = %s, want suit_choice_pending", reason)
	}

	resolved, reason := rules.ChooseSuit(pending, PlayerNorth, SuitClubs)
	if reason != ReasonOK {
		t.Fatalf("choose suit reason = %s, want ok", reason)
	}
	if resolved.PendingSuitChoice {
		t.Fatal("pending suit choice not cleared")
	}
	if resolved.ActiveSuit != SuitClubs {
		t.Fatalf("active suit = %s, want C", resolved.ActiveSuit)
	}
	if resolved.Turn != PlayerSouth {
		t.Fatalf("turn = %s, want south", resolved.Turn)
	}
}

func TestWildPlayWithUpfrontSuit(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, WildRank}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)

	next, reason := DefaultRules().Play(state, PlayerNorth, 0, suitPtr(SuitHearts))
	if reason != ReasonOK {
		t.Fatalf("reason = %s, want ok", reason)
	}
	if next.PendingSuitChoice {
		t.Fatal("unexpected pending suit choice")
	}
	if next.ActiveSuit != SuitHearts {
		t.Fatalf("active suit = %s, want H", next.ActiveSuit)
	}
	if next.Turn != PlayerSouth {
		t.Fatalf("turn = %s, want south", next.Turn)
	}
}

func TestChooseSuitWithoutPendingChoice(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, 3}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)

	next, reason := DefaultRules().ChooseSuit(state, PlayerNorth, SuitHearts)
	if reason != ReasonNoSuitChoicePending {
		t.Fatalf("reason = %s, want no_suit_choice_pending", reason)
	}
	if !reflect.DeepEqual(next, state) {
		t.Fatal("no-op choose suit changed the state")
	}
}

func TestDrawReshufflesDiscardIntoStock(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, 3}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}, {SuitHearts, 10}, {SuitClubs, 4}, {SuitSpades, 6}},
		PlayerNorth,
	)
	state.ActiveSuit = SuitSpades

	next, reason := DefaultRules().Draw(state, PlayerNorth)
	if reason != ReasonOK {
		t.Fatalf("reason = %s, want ok", reason)
	}
	if len(next.Discard) != 1 || next.Discard[0] != (Card{SuitSpades, 6}) {
		t.Fatalf("discard = %+v, want only prior top 6S", next.Discard)
	}
	// Three reshuffled cards minus the one drawn.
	if len(next.Stock) != 2 {
		t.Fatalf("stock size = %d, want 2", len(next.Stock))
	}
	if len(next.Hands[PlayerNorth]) != 2 {
		t.Fatalf("north hand size = %d, want 2", len(next.Hands[PlayerNorth]))
	}
	if next.Turn != PlayerSouth {
		t.Fatalf("turn = %s, want south", next.Turn)
	}
	if got, want := next.CardCount(), state.CardCount(); got != want {
		t.Fatalf("card count = %d, want %d", got, want)
	}
}

func TestDrawNoOpAtTotalExhaustion(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, 3}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)

	next, reason := DefaultRules().Draw(state, PlayerNorth)
	if reason != ReasonStockExhausted {
		t.Fatalf("reason = %s, want stock_exhausted", reason)
	}
	if !reflect.DeepEqual(next, state) {
		t.Fatal("exhausted draw changed the state")
	}
}

func TestDrawRejectedDuringSuitChoice(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, 3}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, WildRank}},
		PlayerNorth,
	)
	state.Stock = []Card{{SuitHearts, 2}}
	state.PendingSuitChoice = true

	next, reason := DefaultRules().Draw(state, PlayerNorth)
	if reason != ReasonSuitChoicePending {
		t.Fatalf("reason = %s, want suit_choice_pending", reason)
	}
	if !reflect.DeepEqual(next, state) {
		t.Fatal("blocked draw changed the state")
	}
}

func TestWinOnEmptyHandFlag(t *testing.T) {
	state := twoHandState(
		[]Card{{SuitSpades, 3}},
		[]Card{{SuitClubs, 5}},
		[]Card{{SuitDiamonds, 9}},
		PlayerNorth,
	)

	// Reference behavior: the flag is off and no winner is set.
	next, reason := DefaultRules().Play(state, PlayerNorth, 0, nil)
	if reason != ReasonOK {
		t.Fatalf("reason = %s, want ok", reason)
	}
	if next.Winner != "" {
		t.Fatalf("winner = %s, want none with win detection disabled", next.Winner)
	}

	rules := DefaultRules()
	rules.WinOnEmptyHand = true
	next, reason = rules.Play(state, PlayerNorth, 0, nil)
	if reason != ReasonOK {
		t.Fatalf("reason = %s, want ok", reason)
	}
	if next.Winner != PlayerNorth {
		t.Fatalf("winner = %s, want north", next.Winner)
	}

	// Terminal: no further card-mutating transition.
	if _, reason := rules.Draw(next, PlayerSouth); reason != ReasonGameOver {
		t.Fatalf("post-win draw reason = %s, want game_over", reason)
	}
}

func TestCanPlayStandardMatching(t *testing.T) {
	rules := DefaultRules()
	rules.PermissivePlay = false
	top := &Card{SuitDiamonds, 9}

	tests := []struct {
		name string
		card Card
		want bool
	}{
		{name: "SuitMatch", card: Card{SuitDiamonds, 3}, want: true},
		{name: "RankMatch", card: Card{SuitSpades, 9}, want: true},
		{name: "WildAlwaysLegal", card: Card{SuitClubs, WildRank}, want: true},
		{name: "NoMatch", card: Card{SuitClubs, 4}, want: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := rules.CanPlay(test.card, top, SuitDiamonds); got != test.want {
				t.Fatalf("CanPlay(%+v) = %t, want %t", test.card, got, test.want)
			}
		})
	}

	// Permissive rule: anything goes once a top card exists.
	if !DefaultRules().CanPlay(Card{SuitClubs, 4}, top, SuitDiamonds) {
		t.Fatal("permissive rule rejected a play")
	}
	// No top card: always legal under either rule.
	if !rules.CanPlay(Card{SuitClubs, 4}, nil, "") {
		t.Fatal("play onto empty discard rejected")
	}
}

func TestHasPlayableCard(t *testing.T) {
	rules := DefaultRules()
	rules.PermissivePlay = false
	top := &Card{SuitDiamonds, 9}

	hand := []Card{{SuitClubs, 4}, {SuitHearts, 5}}
	if rules.HasPlayableCard(hand, top, SuitDiamonds) {
		t.Fatal("expected no playable card")
	}

	hand = append(hand, Card{SuitDiamonds, 2})
	if !rules.HasPlayableCard(hand, top, SuitDiamonds) {
		t.Fatal("expected a playable card")
	}
}

func TestConservationAcrossRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rules := DefaultRules().WithRand(rng)

	state, err := rules.Initialize(NewDeck())
	if err != nil {
		t.Fatalf("initialize error: %v", err)
	}

	players := []PlayerID{PlayerNorth, PlayerSouth}
	for step := 0; step < 500; step++ {
		player := players[rng.Intn(2)]
		var next GameState
		switch rng.Intn(4) {
		case 0:
			next, _ = rules.Draw(state, player)
		case 1:
			next, _ = rules.ChooseSuit(state, player, Suits[rng.Intn(4)])
		case 2:
			next, _ = rules.Play(state, player, rng.Intn(10), suitPtr(Suits[rng.Intn(4)]))
		default:
			next, _ = rules.Play(state, player, rng.Intn(10), nil)
		}
		if err := CheckInvariants(next, DeckSize, 0); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
		state = next
	}
}
