package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is an authenticated (or guest) participant identity.
type Identity struct {
	UserID   string
	Username string
	Guest    bool
}

type Claims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Verifier resolves bearer tokens into identities. HS256 only.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Resolve parses the token and returns the authenticated identity, or
// ErrInvalidToken. Callers decide whether a failed resolution degrades
// to a guest identity or closes the connection.
func (v *Verifier) Resolve(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	name := strings.TrimSpace(claims.Username)
	if name == "" {
		name = sub
	}
	return &Identity{UserID: sub, Username: name}, nil
}

// Mint signs a token for userID/username with the given lifetime.
// Used by the account service and by tests.
func (v *Verifier) Mint(userID, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// GuestIdentity derives a synthetic identity from a transport channel
// id, optionally carrying a caller-supplied display name.
func GuestIdentity(channelID, username string) *Identity {
	name := strings.TrimSpace(username)
	if name == "" {
		suffix := channelID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		name = "Guest-" + suffix
	}
	return &Identity{UserID: "guest-" + channelID, Username: name, Guest: true}
}
