package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/heroiclabs/nakama-common/rtapi"
	"github.com/heroiclabs/nakama-go/v2"
)

const (
	ServerKey = "defaultkey"
	Host      = "127.0.0.1"
	Port      = 7350
)

type TestClient struct {
	Client  *nakama.Client
	Session *nakama.Session
	Socket  *nakama.Socket
	UserID  string
}

func NewTestClient(t *testing.T) *TestClient {
	client := nakama.NewClient(ServerKey, Host, Port, false)

	deviceID := fmt.Sprintf("test_device_%d", time.Now().UnixNano())

	session, err := client.AuthenticateDevice(context.Background(), deviceID, true, "")
	if err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	socket := client.NewSocket()
	if err := socket.Connect(context.Background(), session, true); err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}

	return &TestClient{
		Client:  client,
		Session: session,
		Socket:  socket,
		UserID:  session.UserId,
	}
}

func (tc *TestClient) Close() {
	if tc.Socket != nil {
		tc.Socket.Close()
	}
}

// QuickSession calls the 'quick_session' RPC and returns the match id.
func (tc *TestClient) QuickSession(t *testing.T) string {
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, "quick_session", "{}")
	if err != nil {
		t.Fatalf("RPC quick_session failed: %v", err)
	}

	var resp struct {
		MatchID string `json:"match_id"`
		IsNew   bool   `json:"is_new"`
	}
	if err := json.Unmarshal([]byte(rpc.Payload), &resp); err != nil {
		t.Fatalf("RPC quick_session returned bad payload %q: %v", rpc.Payload, err)
	}
	if resp.MatchID == "" {
		t.Fatalf("RPC quick_session returned empty match id")
	}
	return resp.MatchID
}

// JoinToken calls the 'session_join_token' RPC for the given match.
func (tc *TestClient) JoinToken(t *testing.T, matchID string) string {
	payload, _ := json.Marshal(map[string]string{"match_id": matchID})
	rpc, err := tc.Client.RpcFunc(context.Background(), tc.Session, "session_join_token", string(payload))
	if err != nil {
		t.Fatalf("RPC session_join_token failed: %v", err)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(rpc.Payload), &resp); err != nil {
		t.Fatalf("RPC session_join_token returned bad payload %q: %v", rpc.Payload, err)
	}
	if resp.Token == "" {
		t.Fatalf("RPC session_join_token returned empty token")
	}
	return resp.Token
}

// JoinMatch joins the given match, presenting a join token.
func (tc *TestClient) JoinMatch(t *testing.T, matchID string) {
	token := tc.JoinToken(t, matchID)
	metadata := map[string]string{"join_token": token}
	if _, err := tc.Socket.JoinMatch(context.Background(), nil, matchID, metadata); err != nil {
		t.Fatalf("Failed to join match %s: %v", matchID, err)
	}
}

// SendState sends a JSON-encoded match message.
func (tc *TestClient) SendState(t *testing.T, matchID string, opCode int64, payload interface{}) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal payload: %v", err)
		}
	}
	if _, err := tc.Socket.SendMatchState(context.Background(), matchID, opCode, data, nil); err != nil {
		t.Fatalf("Failed to send match state (op %d): %v", opCode, err)
	}
}

// WaitForMatchState waits for a specific opcode from the socket.
func (tc *TestClient) WaitForMatchState(t *testing.T, opCode int64, timeout time.Duration) *rtapi.MatchData {
	ch := make(chan *rtapi.MatchData)

	originalHandler := tc.Socket.OnMatchData
	tc.Socket.OnMatchData = func(data *rtapi.MatchData) {
		if data.OpCode == opCode {
			ch <- data
		}
		if originalHandler != nil {
			originalHandler(data)
		}
	}

	select {
	case data := <-ch:
		return data
	case <-time.After(timeout):
		t.Fatalf("Timeout waiting for OpCode %d", opCode)
		return nil
	}
}
