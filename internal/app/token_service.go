package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// SessionTokenService mints and verifies short-lived join tokens binding a
// user to a specific session. The match handler validates the token before
// seating the joining presence.
type SessionTokenService struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewSessionTokenService(secret, issuer string, ttl time.Duration) *SessionTokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionTokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// IssueJoinToken signs a token granting userID entry to sessionID.
func (s *SessionTokenService) IssueJoinToken(userID, sessionID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("token service is nil")
	}
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("token config is incomplete")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": userID,
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyJoinToken checks signature, expiry and session binding, returning the
// token's user id.
func (s *SessionTokenService) VerifyJoinToken(tokenString, sessionID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("token service is nil")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("parse join token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid join token")
	}

	if iss, _ := claims["iss"].(string); iss != s.issuer {
		return "", fmt.Errorf("unexpected token issuer")
	}
	if sid, _ := claims["sid"].(string); sid != sessionID {
		return "", fmt.Errorf("token is bound to another session")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
