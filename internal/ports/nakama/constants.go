package nakama

const (
	// RpcQuickSession is the RPC id clients call to find or create a joinable
	// session match.
	RpcQuickSession = "quick_session"

	// RpcRecentSessions is the RPC id clients call to list the most recently
	// updated persisted sessions.
	RpcRecentSessions = "recent_sessions"

	// RpcSessionJoinToken is the RPC id clients call to mint a join token for
	// a specific session match.
	RpcSessionJoinToken = "session_join_token"

	// MatchNameCrazyEights is the authoritative match handler name registered
	// with Nakama.
	MatchNameCrazyEights = "crazyeights_match"

	// StorageCollectionSessions is the storage collection holding session
	// snapshots.
	StorageCollectionSessions = "game_sessions"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame  int64 = 1
	OpPlayCard   int64 = 2
	OpDrawCard   int64 = 3
	OpChooseSuit int64 = 4

	// Server -> Client events
	OpPlayerJoined int64 = 101
	OpPlayerLeft   int64 = 102
	OpGameStarted  int64 = 103
	OpSnapshot     int64 = 104
	OpGameError    int64 = 105
)
