package permission

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestMintAndRead(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	b, err := New(clock, "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tok, minted, err := b.Mint("u-fan")
	if err != nil {
		t.Fatalf("Mint() returned error: %v", err)
	}
	if strings.ContainsAny(tok, " \n") {
		t.Errorf("token %q won't fit in a header", tok)
	}

	td, err := b.Read(tok)
	if err != nil {
		t.Fatalf("Read() returned error: %v", err)
	}
	if td.UserID != "u-fan" || td.SessionID != minted.SessionID || !td.IssuedAt.Equal(clock.Now()) {
		t.Errorf("Read() = %+v, minted %+v", td, minted)
	}

	_, again, _ := b.Mint("u-fan")
	if again.SessionID == minted.SessionID {
		t.Errorf("two logins share session %v", again.SessionID)
	}

	clock.Advance(59 * time.Minute)
	if _, err := b.Read(tok); err != nil {
		t.Errorf("Read() before expiry returned error: %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := b.Read(tok); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Read() after expiry = %v, want ErrTokenExpired", err)
	}
}

func TestTokensDontCrossKeys(t *testing.T) {
	clock := clockwork.NewFakeClock()
	key := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	a, err := New(clock, key, key, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	same, err := New(clock, key, key, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	other, err := New(clock, "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tok, _, err := a.Mint("u-fan")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := same.Read(tok); err != nil {
		t.Errorf("bakery with the same keys can't read token: %v", err)
	}
	if _, err := other.Read(tok); err == nil {
		t.Errorf("bakery with other keys read the token")
	}
}

func TestNewRejects(t *testing.T) {
	clock := clockwork.NewFakeClock()
	if _, err := New(clock, "not base64!", "", time.Hour); err == nil {
		t.Errorf("New() accepted a bad hash key")
	}
	if _, err := New(clock, "", "", 0); err == nil {
		t.Errorf("New() accepted a zero lifetime")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "", wantErr: true},
		{header: "Basic abc", wantErr: true},
		{header: "Bearer", wantErr: true},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, err := BearerToken(r)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("BearerToken(%q) = %q, %v", tt.header, got, err)
		}
	}
}

func TestRequireUser(t *testing.T) {
	ctx := context.Background()
	if _, err := RequireUser(ctx); err == nil {
		t.Errorf("RequireUser() succeeded without an identity")
	}
	if UserID(ctx) != "" {
		t.Errorf("anonymous UserID() = %q", UserID(ctx))
	}
	ctx = IdentityInContext(ctx, &Identity{UserID: "u-fan"})
	if id, err := RequireUser(ctx); err != nil || id.UserID != "u-fan" {
		t.Errorf("RequireUser() = %v, %v", id, err)
	}
}
