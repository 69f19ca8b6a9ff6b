package permission

/*
Package permission knows who you are.  The mock server hands out bearer
tokens at login and reads them back on every request.

TODO: Keys aren't rotated.  A restarted server with random keys forgets
every token it minted.
*/

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

const tokenName = "fanvest-token"

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenData is what a bearer token carries.
type TokenData struct {
	SessionID uuid.UUID `json:"sid"`
	UserID    string    `json:"uid"`
	IssuedAt  time.Time `json:"iat"`
}

type Bakery struct {
	clock clockwork.Clock
	ttl   time.Duration
	sc    *securecookie.SecureCookie
}

func decodeKey(name, k64 string, size int) ([]byte, error) {
	if k64 == "" {
		log.Warnf("bakery: no %s configured, tokens won't survive a restart", name)
		return securecookie.GenerateRandomKey(size), nil
	}
	k, err := base64.StdEncoding.DecodeString(k64)
	if err != nil {
		return nil, fmt.Errorf("bad %s: %w", name, err)
	}
	return k, nil
}

// New creates a Bakery from base64 keys.  Empty keys are replaced with
// random ones.
func New(clock clockwork.Clock, hashKey64, blockKey64 string, ttl time.Duration) (*Bakery, error) {
	hashKey, err := decodeKey("hash key", hashKey64, 32)
	if err != nil {
		return nil, err
	}
	blockKey, err := decodeKey("block key", blockKey64, 32)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token lifetime must be positive, got %v", ttl)
	}

	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	// Expiry is checked against our clock, not securecookie's.
	sc.MaxAge(0)

	return &Bakery{clock: clock, ttl: ttl, sc: sc}, nil
}

// Mint issues a token for userID under a fresh session id.
func (b *Bakery) Mint(userID string) (string, *TokenData, error) {
	td := &TokenData{
		SessionID: uuid.New(),
		UserID:    userID,
		IssuedAt:  b.clock.Now().UTC(),
	}
	tok, err := b.sc.Encode(tokenName, td)
	if err != nil {
		return "", nil, fmt.Errorf("can't encode token: %w", err)
	}
	return tok, td, nil
}

// Read validates a token and checks its age.
func (b *Bakery) Read(tok string) (*TokenData, error) {
	td := &TokenData{}
	if err := b.sc.Decode(tokenName, tok, td); err != nil {
		return nil, fmt.Errorf("can't validate token: %w", err)
	}
	if b.clock.Since(td.IssuedAt) > b.ttl {
		return nil, fmt.Errorf("%w: issued %v", ErrTokenExpired, td.IssuedAt)
	}
	return td, nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrNoToken
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", fmt.Errorf("malformed Authorization header")
	}
	return strings.TrimSpace(tok), nil
}
