package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pgcportal/portal/permission"
)

var errInvalidPayload = errors.New("invalid session payload")

func encodeSession(s *Session) (string, error) {
	buf, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// decodeSession parses a stored payload. Partial sessions are rejected.
func decodeSession(payload string) (*Session, error) {
	var s Session
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &s); err != nil {
		return nil, err
	}
	s.AccessToken = strings.TrimSpace(s.AccessToken)
	if !s.Valid() {
		return nil, errInvalidPayload
	}
	s.User.Roles = permission.Normalize(s.User.Roles)
	s.User.Permissions = permission.Normalize(s.User.Permissions)
	return &s, nil
}

// expiry returns when the session stops being usable. The token's exp claim
// wins over the stored expires_at.
func expiry(s *Session) (time.Time, bool) {
	if t, ok := tokenExpiry(s.AccessToken); ok {
		return t, true
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.IsZero() {
		return *s.ExpiresAt, true
	}
	return time.Time{}, false
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
