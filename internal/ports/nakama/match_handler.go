package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"

	"crazyeights/internal/app"
	"crazyeights/internal/bot"
	"crazyeights/internal/config"
	"crazyeights/internal/domain"
	"crazyeights/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	seatCount = 2

	botUserID   = "bot:dealer"
	botUsername = "Dealer"
)

// seatPlayers maps seat index to the domain seat id.
var seatPlayers = [seatCount]domain.PlayerID{domain.PlayerNorth, domain.PlayerSouth}

// MatchLabel is the queryable label advertising this match.
type MatchLabel struct {
	Game      string `json:"game"`
	Open      int    `json:"open"`
	Phase     string `json:"phase"`
	SessionID string `json:"session_id,omitempty"`
}

// MatchState holds the authoritative runtime state for the match handler.
type MatchState struct {
	Seats     [seatCount]string           `json:"seats"` // user ids, empty string means open
	OwnerSeat int                         `json:"owner_seat"`
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"`

	Rules domain.Rules      `json:"-"`
	Game  *domain.GameState `json:"-"` // nil while in lobby

	// EffectCard is the card mid-transfer between a hand and the discard
	// pile. The server settles it on the next tick, giving clients one tick
	// of transfer presentation before turn resolution.
	EffectCard  *domain.Card `json:"-"`
	PendingSuit *domain.Suit `json:"-"`

	SessionID string                   `json:"session_id"` // persisted session document id
	Store     ports.SessionStorePort   `json:"-"`
	Tokens    *app.SessionTokenService `json:"-"`

	BotsEnabled          bool                  `json:"bots_enabled"`
	BotMinDelay          int                   `json:"bot_min_delay"`
	BotMaxDelay          int                   `json:"bot_max_delay"`
	BotAutoFillDelay     int                   `json:"bot_auto_fill_delay"`
	BotWaitUntil         int64                 `json:"bot_wait_until"`
	LastSinglePlayerTick int64                 `json:"last_single_player_tick"`
	Bots                 map[string]*bot.Agent `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" && !isBotUserId(seat) {
			count++
		}
	}
	return count
}

func isBotUserId(userId string) bool {
	return userId == botUserID
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []string, seatIndex int) bool {
	if seatIndex < 0 || seatIndex >= len(seats) {
		return false
	}
	userId := seats[seatIndex]
	return userId != "" && !isBotUserId(userId)
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1.
func findFirstHumanSeat(seats []string) int {
	for i, userId := range seats {
		if userId != "" && !isBotUserId(userId) {
			return i
		}
	}
	return -1
}

func shouldTerminateNoHumans(seats []string) bool {
	return findFirstHumanSeat(seats) == -1
}

// Client -> Server payloads.
type PlayCardRequest struct {
	CardIndex  int         `json:"card_index"`
	ChosenSuit domain.Suit `json:"chosen_suit,omitempty"`
}

type ChooseSuitRequest struct {
	Suit domain.Suit `json:"suit"`
}

// Server -> Client payloads.
type SnapshotEvent struct {
	State      domain.GameState `json:"state"`
	EffectCard *domain.Card     `json:"effect_card,omitempty"`
	Seats      []string         `json:"seats"`
	OwnerSeat  int              `json:"owner_seat"`
	Tick       int64            `json:"tick"`
}

type GameErrorEvent struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Reason  domain.Reason `json:"reason,omitempty"`
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadRulesConfig("data/rules_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load rules config: %v", err)
	}
	cfg := config.GetRulesConfig()

	rules := domain.DefaultRules()
	rules.PermissivePlay = cfg.PermissivePlay
	rules.WinOnEmptyHand = cfg.WinOnEmptyHand
	rules.HandSize = cfg.HandSize

	state := &MatchState{
		Presences:        make(map[string]runtime.Presence),
		Rules:            rules,
		OwnerSeat:        -1,
		Store:            NewNakamaSessionStore(nk, logger),
		Tokens:           tokenServiceFromEnv(ctx, logger),
		BotsEnabled:      cfg.BotEnabled,
		BotMinDelay:      cfg.BotMinDelaySeconds,
		BotMaxDelay:      cfg.BotMaxDelaySeconds,
		BotAutoFillDelay: cfg.BotAutoFillDelaySeconds,
		Bots:             make(map[string]*bot.Agent),
	}
	if state.BotMinDelay <= 0 {
		state.BotMinDelay = 1
	}
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = state.BotMinDelay
	}
	if state.BotAutoFillDelay <= 0 {
		state.BotAutoFillDelay = 5
	}

	label := &MatchLabel{Game: "crazyeights", Open: seatCount, Phase: "lobby"}
	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt validates the join token when the deployment has a token
// secret configured, and rejects joins once both seats are taken.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.Tokens != nil {
		matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
		userID, err := matchState.Tokens.VerifyJoinToken(metadata["join_token"], matchID)
		if err != nil {
			logger.Warn("MatchJoinAttempt: Rejected %s: %v", presence.GetUserId(), err)
			return state, false, "invalid join token"
		}
		if userID != presence.GetUserId() {
			return state, false, "join token belongs to another user"
		}
	}

	// Allow join if there is an empty seat or a bot to replace before start.
	if matchState.GetOpenSeatsCount() <= 0 {
		hasBot := false
		if matchState.Game == nil {
			for _, seat := range matchState.Seats {
				if isBotUserId(seat) {
					hasBot = true
					break
				}
			}
		}
		if !hasBot {
			return state, false, "Match full"
		}
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		assigned := false
		for i, seatUserId := range matchState.Seats {
			if seatUserId == "" {
				matchState.Seats[i] = p.GetUserId()
				assigned = true
				break
			}
		}
		if !assigned && matchState.Game == nil {
			for i, seatUserId := range matchState.Seats {
				if isBotUserId(seatUserId) {
					logger.Info("MatchJoin: Replacing bot with human %s in seat %d", p.GetUserId(), i)
					delete(matchState.Bots, seatUserId)
					matchState.Seats[i] = p.GetUserId()
					assigned = true
					break
				}
			}
		}
		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
		}
	}

	if !isHumanSeat(matchState.Seats[:], matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])
	}

	mh.updateLabel(ctx, matchState, dispatcher, logger)
	mh.broadcastSnapshot(matchState, dispatcher, logger, OpPlayerJoined)

	return matchState
}

// MatchLeave frees seats and terminates the match when no humans remain.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		for i, seatUserId := range matchState.Seats {
			if seatUserId == p.GetUserId() {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", p.GetUserId(), i)
				break
			}
		}
	}

	if !isHumanSeat(matchState.Seats[:], matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats[:])
	}

	if shouldTerminateNoHumans(matchState.Seats[:]) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		if matchState.SessionID != "" {
			if err := matchState.Store.Remove(ctx, matchState.SessionID); err != nil {
				logger.Warn("MatchLeave: Could not remove session %s: %v", matchState.SessionID, err)
			}
		}
		return nil
	}

	mh.updateLabel(ctx, matchState, dispatcher, logger)
	mh.broadcastSnapshot(matchState, dispatcher, logger, OpPlayerLeft)

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	matchState.Tick = tick

	// A card lifted on a previous tick settles before new input is handled.
	if matchState.EffectCard != nil {
		mh.settleEffect(ctx, matchState, dispatcher, logger)
	}

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCard:
			mh.handlePlayCard(ctx, matchState, dispatcher, logger, msg)
		case OpDrawCard:
			mh.handleDrawCard(ctx, matchState, dispatcher, logger, msg)
		case OpChooseSuit:
			mh.handleChooseSuit(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

// senderSeat resolves a message sender to its domain seat. ok is false for
// spectators and unknown senders.
func senderSeat(state *MatchState, userID string) (domain.PlayerID, bool) {
	for i, seatUserId := range state.Seats {
		if seatUserId == userID && seatUserId != "" {
			return seatPlayers[i], true
		}
	}
	return "", false
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	if state.Game != nil {
		logger.Warn("StartGame: Game already running, request from %s ignored.", senderID)
		return
	}
	if seat := findSeatIndex(state, senderID); seat != state.OwnerSeat {
		logger.Warn("StartGame: User %s tried to start game but is not owner (owner_seat=%d)", senderID, state.OwnerSeat)
		return
	}
	if state.GetOpenSeatsCount() > 0 {
		logger.Warn("StartGame: Cannot start with open seats.")
		return
	}

	game, err := state.Rules.Initialize(domain.NewDeck())
	if err != nil {
		logger.Error("StartGame: Failed to initialize game: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 500, err.Error(), "")
		return
	}
	state.Game = &game
	state.EffectCard = nil
	state.PendingSuit = nil

	ownerID := state.Seats[state.OwnerSeat]
	sessionID, err := state.Store.Create(ctx, ownerID, &ports.SessionDoc{OwnerID: ownerID, State: game})
	if err != nil {
		logger.Warn("StartGame: Could not persist session: %v", err)
	} else {
		state.SessionID = sessionID
	}

	mh.updateLabel(ctx, state, dispatcher, logger)
	mh.broadcastSnapshot(state, dispatcher, logger, OpGameStarted)
	logger.Info("StartGame: Game started, session %s.", state.SessionID)
}

func (mh *matchHandler) handlePlayCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	seat, ok := senderSeat(state, senderID)
	if !ok || state.Game == nil {
		logger.Warn("handlePlayCard: No game or unseated sender %s.", senderID)
		return
	}
	if state.EffectCard != nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "card transfer in progress", domain.ReasonIllegalPlay)
		return
	}

	var request PlayCardRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("handlePlayCard: Invalid request from %s: %v", senderID, err)
		return
	}

	lifted, card, reason := state.Rules.LiftCard(*state.Game, seat, request.CardIndex)
	if reason != domain.ReasonOK {
		logger.Warn("handlePlayCard: User %s (seat %s) rejected: %s", senderID, seat, reason)
		mh.sendError(state, dispatcher, logger, senderID, 400, "play rejected", reason)
		return
	}

	state.Game = &lifted
	state.EffectCard = &card
	state.PendingSuit = nil
	if request.ChosenSuit != "" {
		suit := request.ChosenSuit
		state.PendingSuit = &suit
	}

	mh.persistSnapshot(ctx, state, logger)
	mh.broadcastSnapshot(state, dispatcher, logger, OpSnapshot)
}

// settleEffect commits the in-flight card and resolves suit, turn and winner.
func (mh *matchHandler) settleEffect(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Game == nil || state.EffectCard == nil {
		state.EffectCard = nil
		state.PendingSuit = nil
		return
	}

	settled, reason := state.Rules.SettleCard(*state.Game, state.Game.Turn, *state.EffectCard, state.PendingSuit)
	if reason != domain.ReasonOK {
		logger.Error("settleEffect: Settle rejected: %s", reason)
	} else {
		state.Game = &settled
	}
	state.EffectCard = nil
	state.PendingSuit = nil

	mh.persistSnapshot(ctx, state, logger)
	mh.broadcastSnapshot(state, dispatcher, logger, OpSnapshot)
}

func (mh *matchHandler) handleDrawCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	seat, ok := senderSeat(state, senderID)
	if !ok || state.Game == nil {
		logger.Warn("handleDrawCard: No game or unseated sender %s.", senderID)
		return
	}
	if state.EffectCard != nil {
		mh.sendError(state, dispatcher, logger, senderID, 409, "card transfer in progress", domain.ReasonIllegalPlay)
		return
	}

	next, reason := state.Rules.Draw(*state.Game, seat)
	if reason != domain.ReasonOK {
		logger.Warn("handleDrawCard: User %s (seat %s) rejected: %s", senderID, seat, reason)
		mh.sendError(state, dispatcher, logger, senderID, 400, "draw rejected", reason)
		return
	}
	state.Game = &next

	mh.persistSnapshot(ctx, state, logger)
	mh.broadcastSnapshot(state, dispatcher, logger, OpSnapshot)
}

func (mh *matchHandler) handleChooseSuit(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	seat, ok := senderSeat(state, senderID)
	if !ok || state.Game == nil {
		logger.Warn("handleChooseSuit: No game or unseated sender %s.", senderID)
		return
	}

	var request ChooseSuitRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("handleChooseSuit: Invalid request from %s: %v", senderID, err)
		return
	}

	next, reason := state.Rules.ChooseSuit(*state.Game, seat, request.Suit)
	if reason != domain.ReasonOK {
		logger.Warn("handleChooseSuit: User %s (seat %s) rejected: %s", senderID, seat, reason)
		mh.sendError(state, dispatcher, logger, senderID, 400, "suit choice rejected", reason)
		return
	}
	state.Game = &next

	mh.persistSnapshot(ctx, state, logger)
	mh.broadcastSnapshot(state, dispatcher, logger, OpSnapshot)
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// Auto-fill the empty seat with a bot when a single human has waited.
	if state.Game == nil {
		if state.GetHumanPlayerCount() == 1 && state.GetOpenSeatsCount() > 0 {
			if state.LastSinglePlayerTick == 0 {
				state.LastSinglePlayerTick = state.Tick
			}
			if state.Tick-state.LastSinglePlayerTick >= int64(state.BotAutoFillDelay) {
				for i, seat := range state.Seats {
					if seat == "" {
						state.Seats[i] = botUserID
						state.Bots[botUserID] = bot.NewAgent(botUserID, botUsername, seatPlayers[i], state.Rules)
						logger.Info("processBots: Added bot %s to seat %d", botUsername, i)
						break
					}
				}
				state.LastSinglePlayerTick = 0
				mh.updateLabel(ctx, state, dispatcher, logger)
				mh.broadcastSnapshot(state, dispatcher, logger, OpPlayerJoined)
			}
		} else {
			state.LastSinglePlayerTick = 0
		}
		return
	}

	// A transfer settles before the bot may act.
	if state.EffectCard != nil || state.Game.Winner != "" {
		return
	}

	currentSeat := state.Game.Turn
	currentUserID := ""
	for i, p := range seatPlayers {
		if p == currentSeat {
			currentUserID = state.Seats[i]
		}
	}
	if !isBotUserId(currentUserID) {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := rand.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	agent := state.Bots[currentUserID]
	if agent == nil {
		agent = bot.NewAgent(currentUserID, botUsername, currentSeat, state.Rules)
		state.Bots[currentUserID] = agent
	}

	move := agent.CalculateMove(*state.Game)
	switch move.Kind {
	case bot.MovePlay:
		lifted, card, reason := state.Rules.LiftCard(*state.Game, currentSeat, move.CardIndex)
		if reason != domain.ReasonOK {
			logger.Error("processBots: Bot play rejected: %s", reason)
			return
		}
		state.Game = &lifted
		state.EffectCard = &card
		if move.Suit != "" && card.Rank == domain.WildRank {
			suit := move.Suit
			state.PendingSuit = &suit
		}
		mh.persistSnapshot(ctx, state, logger)
		mh.broadcastSnapshot(state, dispatcher, logger, OpSnapshot)
	case bot.MoveDraw:
		next, reason := state.Rules.Draw(*state.Game, currentSeat)
		if reason != domain.ReasonOK {
			logger.Warn("processBots: Bot draw rejected: %s", reason)
			return
		}
		state.Game = &next
		mh.persistSnapshot(ctx, state, logger)
		mh.broadcastSnapshot(state, dispatcher, logger, OpSnapshot)
	case bot.MoveChooseSuit:
		next, reason := state.Rules.ChooseSuit(*state.Game, currentSeat, move.Suit)
		if reason != domain.ReasonOK {
			logger.Warn("processBots: Bot suit choice rejected: %s", reason)
			return
		}
		state.Game = &next
		mh.persistSnapshot(ctx, state, logger)
		mh.broadcastSnapshot(state, dispatcher, logger, OpSnapshot)
	}
}

func findSeatIndex(state *MatchState, userID string) int {
	for i, seatUserId := range state.Seats {
		if seatUserId == userID && seatUserId != "" {
			return i
		}
	}
	return -1
}

// persistSnapshot writes the current game through the session store so
// recency listings and reconnecting clients see it.
func (mh *matchHandler) persistSnapshot(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.SessionID == "" || state.Game == nil {
		return
	}
	doc := &ports.SessionDoc{
		State:       state.Game.Clone(),
		EffectCard:  state.EffectCard,
		PendingSuit: state.PendingSuit,
	}
	if err := state.Store.Update(ctx, state.SessionID, doc); err != nil {
		logger.Warn("persistSnapshot: Could not persist session %s: %v", state.SessionID, err)
	}
}

func (mh *matchHandler) broadcastSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, opCode int64) {
	snapshot := SnapshotEvent{
		Seats:     state.Seats[:],
		OwnerSeat: state.OwnerSeat,
		Tick:      state.Tick,
	}
	if state.Game != nil {
		snapshot.State = state.Game.Clone()
		snapshot.EffectCard = state.EffectCard
	}
	bytes, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("broadcastSnapshot: Failed to marshal: %v", err)
		return
	}
	dispatcher.BroadcastMessage(opCode, bytes, nil, nil, true)
}

// sendError sends a GameErrorEvent to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string, reason domain.Reason) {
	payload := GameErrorEvent{Code: code, Message: message, Reason: reason}
	bytes, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal GameErrorEvent: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	dispatcher.BroadcastMessage(OpGameError, bytes, []runtime.Presence{presence}, nil, true)
}

func (mh *matchHandler) updateLabel(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := "lobby"
	if state.Game != nil {
		phase = "playing"
	}

	label := &MatchLabel{
		Game:      "crazyeights",
		Open:      state.GetOpenSeatsCount(),
		Phase:     phase,
		SessionID: state.SessionID,
	}
	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	if matchState, ok := state.(*MatchState); ok && matchState.SessionID != "" {
		if err := matchState.Store.Remove(ctx, matchState.SessionID); err != nil {
			logger.Warn("MatchTerminate: Could not remove session %s: %v", matchState.SessionID, err)
		}
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
