package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/password"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if len(c.Users) != 2 || len(c.Artists) != 6 || len(c.Content) != 7 || len(c.Opportunities) != 3 {
		t.Errorf("catalog has %d users, %d artists, %d items, %d opportunities",
			len(c.Users), len(c.Artists), len(c.Content), len(c.Opportunities))
	}

	ct, ok := c.ContentByID("c-monaco")
	if !ok {
		t.Fatal("c-monaco missing")
	}
	if ct.ArtistID != "a-badbunny" || ct.Item.User.Username != "Bad Bunny" || ct.BaseLikes != 1840 {
		t.Errorf("c-monaco = %+v", ct)
	}
	if ct.Item.CreatedAt.IsZero() {
		t.Errorf("c-monaco has no creation time")
	}
	if o, ok := c.Opportunity(2); !ok || o.Name != "Marcus Thompson" {
		t.Errorf("Opportunity(2) = %v, %v", o, ok)
	}
}

func TestAuthenticate(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		email, password string
		wantID          string
	}{
		{"fan@fanvest.dev", "fanvest", "u-fan"},
		{" FAN@fanvest.dev", "fanvest", "u-fan"},
		{"label@fanvest.dev", "fanvest-label", "u-label"},
		{"fan@fanvest.dev", "wrong", ""},
		{"nobody@fanvest.dev", "fanvest", ""},
	}
	for _, tt := range tests {
		u, err := c.Authenticate(tt.email, tt.password)
		if tt.wantID == "" {
			if !errors.Is(err, ErrBadCredentials) {
				t.Errorf("Authenticate(%q, %q) = %v, %v; want ErrBadCredentials", tt.email, tt.password, u, err)
			}
			continue
		}
		if err != nil || u.ID != tt.wantID {
			t.Errorf("Authenticate(%q, %q) = %v, %v; want %s", tt.email, tt.password, u, err, tt.wantID)
		}
	}
}

func TestParseRejects(t *testing.T) {
	const artist = `
artists:
  - id: a1
    username: One
`
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "unknown key", doc: "songs: []\n", want: "not found"},
		{name: "duplicate user", doc: `
users:
  - {id: u1, email: a@b.c, password: x}
  - {id: u1, email: d@e.f, password: y}
`, want: "duplicate user id"},
		{name: "duplicate email", doc: `
users:
  - {id: u1, email: a@b.c, password: x}
  - {id: u2, email: A@B.C, password: y}
`, want: "duplicate user email"},
		{name: "no password", doc: `
users:
  - {id: u1, email: a@b.c}
`, want: "has no password"},
		{name: "two passwords", doc: `
users:
  - {id: u1, email: a@b.c, password: x, passwordHash: y}
`, want: "not both"},
		{name: "garbled hash", doc: `
users:
  - {id: u1, email: a@b.c, passwordHash: "!!"}
`, want: "can't decode hashed password"},
		{name: "dangling artist", doc: artist + `
content:
  - {id: c1, title: T, type: audio, artist: a2}
`, want: "no such artist"},
		{name: "bad type", doc: artist + `
content:
  - {id: c1, title: T, type: hologram, artist: a1}
`, want: "unknown type"},
		{name: "bad opportunity", doc: `
opportunities:
  - {id: 1, name: X, fundingGoal: "lots", currentFunding: "0", riskLevel: Low}
`, want: "bad funding goal"},
		{name: "duplicate opportunity", doc: `
opportunities:
  - {id: 1, name: X, fundingGoal: "1", currentFunding: "0", riskLevel: Low}
  - {id: 1, name: Y, fundingGoal: "1", currentFunding: "0", riskLevel: Low}
`, want: "duplicate opportunity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hashed, err := password.Hash("sekrit")
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse([]byte("users:\n  - {id: u1, email: a@b.c, passwordHash: " + hashed + "}\n"))
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}
	if _, err := c.Authenticate("a@b.c", "sekrit"); err != nil {
		t.Errorf("Authenticate() with the hashed password = %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := `
artists:
  - id: a1
    username: One
content:
  - id: c1
    title: First
    type: video
    artist: a1
    likeCount: 3
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	ct, ok := c.ContentByID("c1")
	if !ok || ct.Item.Type != model.ContentVideo || ct.BaseLikes != 3 {
		t.Errorf("c1 = %+v", ct)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load() of a missing file succeeded")
	}
}
