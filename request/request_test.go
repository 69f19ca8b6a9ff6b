package request

import (
	"net/http"
	"net/url"
	"testing"
)

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("can't parse %q: %v", s, err)
	}
	return u
}

func TestURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		req  *Request
		want string
	}{
		{
			name: "plain path",
			base: "http://localhost:3000",
			req:  Get("/api/v1/content/getTrendingContent"),
			want: "http://localhost:3000/api/v1/content/getTrendingContent",
		},
		{
			name: "base with trailing slash",
			base: "http://localhost:3000/",
			req:  Get("/api/v1/x"),
			want: "http://localhost:3000/api/v1/x",
		},
		{
			name: "base with prefix",
			base: "https://api.example.com/stage",
			req:  Get("api/v1/x"),
			want: "https://api.example.com/stage/api/v1/x",
		},
		{
			name: "params sorted",
			base: "http://h",
			req:  Get("/t").IntParam("page", 1).IntParam("limit", 10).Param("type", "songs").Param("search", ""),
			want: "http://h/t?limit=10&page=1&search=&type=songs",
		},
		{
			name: "param escaping",
			base: "http://h",
			req:  Get("/t").Param("search", "bad bunny&co"),
			want: "http://h/t?search=bad+bunny%26co",
		},
		{
			name: "base query dropped",
			base: "http://h/?debug=1#frag",
			req:  Put("/like/abc"),
			want: "http://h/like/abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.URL(mustParse(t, tt.base))
			if got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPath(t *testing.T) {
	tests := []struct {
		name     string
		template string
		kv       []string
		want     string
		wantErr  bool
	}{
		{
			name:     "single placeholder",
			template: "/api/v1/artist/followUnfollowArtist/{artistId}",
			kv:       []string{"artistId", "1"},
			want:     "/api/v1/artist/followUnfollowArtist/1",
		},
		{
			name:     "escaped value",
			template: "/c/{contentId}",
			kv:       []string{"contentId", "a/b c"},
			want:     "/c/a%2Fb%20c",
		},
		{
			name:     "missing value",
			template: "/c/{contentId}",
			wantErr:  true,
		},
		{
			name:     "unknown placeholder",
			template: "/c/{contentId}",
			kv:       []string{"artistId", "1"},
			wantErr:  true,
		},
		{
			name:     "empty value",
			template: "/c/{contentId}",
			kv:       []string{"contentId", ""},
			wantErr:  true,
		},
		{
			name:     "odd arguments",
			template: "/c/{contentId}",
			kv:       []string{"contentId"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Path(tt.template, tt.kv...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Path() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Path() returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSONAndClone(t *testing.T) {
	r, err := Post("/login").JSON(map[string]string{"email": "a@b"})
	if err != nil {
		t.Fatalf("JSON() returned error: %v", err)
	}
	if got := r.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if string(r.Body) != `{"email":"a@b"}` {
		t.Errorf("Body = %s", r.Body)
	}

	c := r.Clone()
	c.Header.Set("Authorization", "Bearer x")
	c.Query.Set("q", "1")
	c.Body[0] = '['
	if r.Header.Get("Authorization") != "" || r.Query.Get("q") != "" || r.Body[0] != '{' {
		t.Errorf("Clone() shares state with original")
	}
	if c.Method != http.MethodPost {
		t.Errorf("Clone().Method = %q", c.Method)
	}
}
