package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"crazyeights/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickSessionResponse is returned to clients asking for a joinable match.
type QuickSessionResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RecentSessionsRequest asks for the newest persisted session snapshots.
type RecentSessionsRequest struct {
	Limit int `json:"limit"`
}

// SessionSummary is one entry of the recent-sessions listing.
type SessionSummary struct {
	SessionID  string    `json:"session_id"`
	OwnerID    string    `json:"owner_id"`
	Finished   bool      `json:"finished"`
	UpdateTime time.Time `json:"update_time"`
}

// JoinTokenRequest asks for a token granting entry to a specific match.
type JoinTokenRequest struct {
	MatchID string `json:"match_id"`
}

// JoinTokenResponse carries the signed join token.
type JoinTokenResponse struct {
	Token string `json:"token"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickSession, rpcQuickSession); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcRecentSessions, rpcRecentSessions); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcSessionJoinToken, rpcSessionJoinToken)
}

func rpcQuickSession(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	// Find any open lobby for our game.
	query := "+label.open:>0 +label.game:crazyeights +label.phase:lobby"

	limit := 10
	authoritative := true
	minSize := 0
	maxSize := 1 // at most one seat taken, so one remains open

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", runtime.NewError("Internal error", 13) // INTERNAL
	}

	if len(matches) > 0 {
		resp := QuickSessionResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create a new match; seat assignment happens in MatchJoin.
	matchID, err := nk.MatchCreate(ctx, MatchNameCrazyEights, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", runtime.NewError("Internal error", 13)
	}

	resp := QuickSessionResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func rpcRecentSessions(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	req := RecentSessionsRequest{Limit: 10}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", 3) // INVALID_ARGUMENT
		}
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}

	store := NewNakamaSessionStore(nk, logger)
	docs, err := store.ListRecent(ctx, req.Limit)
	if err != nil {
		logger.Error("ListRecent error: %v", err)
		return "", runtime.NewError("Internal error", 13)
	}

	summaries := make([]SessionSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, SessionSummary{
			SessionID:  doc.ID,
			OwnerID:    doc.OwnerID,
			Finished:   doc.State.Winner != "",
			UpdateTime: doc.UpdateTime,
		})
	}
	b, _ := json.Marshal(summaries)
	return string(b), nil
}

func rpcSessionJoinToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", runtime.NewError("Unauthenticated", 16) // UNAUTHENTICATED
	}

	var req JoinTokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", 3)
	}
	if req.MatchID == "" {
		return "", runtime.NewError("Match ID required", 3)
	}

	svc := tokenServiceFromEnv(ctx, logger)
	token, err := svc.IssueJoinToken(userID, req.MatchID)
	if err != nil {
		logger.Error("Failed to issue join token: %v", err)
		return "", runtime.NewError("Internal error", 13)
	}

	b, _ := json.Marshal(JoinTokenResponse{Token: token})
	return string(b), nil
}

// tokenServiceFromEnv builds the join-token service from runtime env vars,
// falling back to logged test credentials for local development.
func tokenServiceFromEnv(ctx context.Context, logger runtime.Logger) *app.SessionTokenService {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	secret := env["crazyeights_session_secret"]
	issuer := env["crazyeights_session_issuer"]
	if secret == "" || issuer == "" {
		secret = "test-secret"
		issuer = "crazyeights"
		logger.Warn("Session token credentials missing from env, using test defaults.")
	}
	return app.NewSessionTokenService(secret, issuer, time.Hour)
}
