package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"

	"github.com/ts4z/fanvest/catalog"
	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/permission"
	"github.com/ts4z/fanvest/protocol"
)

// Hashing the catalog passwords is slow, and the catalog is read-only.
var builtinCatalog = sync.OnceValues(func() (*catalog.Catalog, error) {
	return catalog.Load("")
})

type testServer struct {
	*httptest.Server
	clock *clockwork.FakeClock
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	cat, err := builtinCatalog()
	if err != nil {
		t.Fatalf("can't load catalog: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	bakery, err := permission.New(clock, "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(&Config{
		Store:          NewStore(cat),
		Bakery:         bakery,
		Clock:          clock,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, clock: clock}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, b
}

func (ts *testServer) login(t *testing.T, email, pw string) string {
	t.Helper()
	resp, b := ts.do(t, http.MethodPost, protocol.LoginPath, "", model.LoginRequest{Email: email, Password: pw})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: %d %s", resp.StatusCode, b)
	}
	var lr model.LoginResponse
	if err := json.Unmarshal(b, &lr); err != nil {
		t.Fatal(err)
	}
	return lr.Token
}

func (ts *testServer) trending(t *testing.T, query, token string) *model.GetTrendingContentResponse {
	t.Helper()
	resp, b := ts.do(t, http.MethodGet, protocol.TrendingContentPath+"?"+query, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("trending?%s: %d %s", query, resp.StatusCode, b)
	}
	var tr model.GetTrendingContentResponse
	if err := json.Unmarshal(b, &tr); err != nil {
		t.Fatal(err)
	}
	return &tr
}

func contentIDs(items []model.ContentItem) []string {
	ids := []string{}
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func errorMessage(t *testing.T, b []byte) string {
	t.Helper()
	var sr model.StatusResponse
	if err := json.Unmarshal(b, &sr); err != nil {
		t.Fatalf("error body %q: %v", b, err)
	}
	if sr.Success {
		t.Errorf("error body claims success: %s", b)
	}
	return sr.Message
}

func TestTrendingListings(t *testing.T) {
	ts := newServer(t)
	tests := []struct {
		query string
		want  []string
	}{
		{"type=top", []string{"c-monaco", "c-blinding", "c-cruel", "c-godsplan", "c-houdini", "c-shape", "c-studio"}},
		{"type=songs", []string{"c-cruel", "c-shape", "c-monaco", "c-godsplan", "c-houdini"}},
		{"type=top&page=2&limit=2", []string{"c-cruel", "c-godsplan"}},
		{"type=top&page=4&limit=2", []string{"c-studio"}},
		{"type=top&page=10", []string{}},
		{"type=top&page=1000000000000000000", []string{}},
		{"type=top&page=4611686018427387904&limit=4", []string{}},
		{"type=songs&search=POP", []string{"c-cruel", "c-shape", "c-houdini"}},
		{"type=top&search=weeknd", []string{"c-blinding"}},
		{"", []string{"c-monaco", "c-blinding", "c-cruel", "c-godsplan", "c-houdini", "c-shape", "c-studio"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			tr := ts.trending(t, tt.query, "")
			if tr.Data.IsArtists {
				t.Fatalf("got artists for %q", tt.query)
			}
			if diff := cmp.Diff(tt.want, contentIDs(tr.Data.Content)); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTrendingArtists(t *testing.T) {
	ts := newServer(t)
	resp, b := ts.do(t, http.MethodGet, protocol.TrendingContentPath+"?type=artists&limit=3", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if !bytes.Contains(b, []byte(`"data":{"artists":[`)) {
		t.Errorf("artists body is not an artists object: %s", b)
	}
	var tr model.GetTrendingContentResponse
	if err := json.Unmarshal(b, &tr); err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, a := range tr.Data.Artists {
		names = append(names, a.Username)
		if a.IsFollowed != nil {
			t.Errorf("anonymous listing reports isFollowed for %s", a.Username)
		}
	}
	if diff := cmp.Diff([]string{"Bad Bunny", "Drake", "Dua Lipa"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestTrendingRejectsBadQueries(t *testing.T) {
	ts := newServer(t)
	tests := []struct {
		query string
		want  string
	}{
		{"type=bogus", "type must be one of"},
		{"type=top&limit=51", "limit must be at most 50"},
		{"type=top&page=0", "page must be a positive integer"},
		{"type=top&limit=ten", "limit must be a positive integer"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, b := ts.do(t, http.MethodGet, protocol.TrendingContentPath+"?"+tt.query, "", nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if msg := errorMessage(t, b); !strings.Contains(msg, tt.want) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	ts := newServer(t)
	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{name: "good", body: model.LoginRequest{Email: "fan@fanvest.dev", Password: "fanvest"}, wantCode: http.StatusOK},
		{name: "wrong password", body: model.LoginRequest{Email: "fan@fanvest.dev", Password: "nope"}, wantCode: http.StatusUnauthorized},
		{name: "unknown user", body: model.LoginRequest{Email: "who@fanvest.dev", Password: "fanvest"}, wantCode: http.StatusUnauthorized},
		{name: "missing password", body: model.LoginRequest{Email: "fan@fanvest.dev"}, wantCode: http.StatusBadRequest},
		{name: "not json", body: "fan@fanvest.dev", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, b := ts.do(t, http.MethodPost, protocol.LoginPath, "", tt.body)
			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.wantCode, b)
			}
			if tt.wantCode != http.StatusOK {
				errorMessage(t, b)
				return
			}
			var lr model.LoginResponse
			if err := json.Unmarshal(b, &lr); err != nil {
				t.Fatal(err)
			}
			if !lr.Success || lr.Token == "" || lr.User == nil || lr.User.ID != "u-fan" {
				t.Errorf("login response = %+v", lr)
			}
		})
	}
}

func TestLikeContentToggles(t *testing.T) {
	ts := newServer(t)
	tok := ts.login(t, "fan@fanvest.dev", "fanvest")
	path := "/api/v1/content/likeDislikeContent/c-monaco"

	resp, b := ts.do(t, http.MethodPut, path, tok, nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(b, []byte("Content liked")) {
		t.Fatalf("first like: %d %s", resp.StatusCode, b)
	}

	tr := ts.trending(t, "type=top&limit=1", tok)
	got := tr.Data.Content[0]
	if got.ID != "c-monaco" || !got.IsLiked || got.LikeCount == nil || *got.LikeCount != 1841 {
		t.Errorf("after like, top[0] = %+v", got)
	}
	other := ts.login(t, "label@fanvest.dev", "fanvest-label")
	if tr := ts.trending(t, "type=top&limit=1", other); tr.Data.Content[0].IsLiked {
		t.Errorf("another user sees the like as their own")
	}
	if tr := ts.trending(t, "type=top&limit=1", ""); tr.Data.Content[0].IsLiked {
		t.Errorf("anonymous caller sees isLiked")
	}

	resp, b = ts.do(t, http.MethodPut, path, tok, nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(b, []byte("Content unliked")) {
		t.Fatalf("second like: %d %s", resp.StatusCode, b)
	}
	if got := ts.trending(t, "type=top&limit=1", tok).Data.Content[0]; got.IsLiked || *got.LikeCount != 1840 {
		t.Errorf("after unlike, top[0] = %+v", got)
	}
}

func TestFollowReordersArtists(t *testing.T) {
	ts := newServer(t)
	tok := ts.login(t, "fan@fanvest.dev", "fanvest")

	resp, b := ts.do(t, http.MethodPut, "/api/v1/artist/followUnfollowArtist/a-taylor", tok, nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(b, []byte("Artist followed")) {
		t.Fatalf("follow: %d %s", resp.StatusCode, b)
	}
	resp, b = ts.do(t, http.MethodPut, "/api/v1/artist/likeDislikeArtist/a-drake", tok, nil)
	if resp.StatusCode != http.StatusOK || !bytes.Contains(b, []byte("Artist liked")) {
		t.Fatalf("like artist: %d %s", resp.StatusCode, b)
	}

	tr := ts.trending(t, "type=artists&limit=3", tok)
	var names []string
	for _, a := range tr.Data.Artists {
		names = append(names, a.Username)
	}
	if diff := cmp.Diff([]string{"Taylor Swift", "Drake", "Bad Bunny"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	taylor, drake := tr.Data.Artists[0], tr.Data.Artists[1]
	if taylor.IsFollowed == nil || !*taylor.IsFollowed || taylor.IsLiked {
		t.Errorf("taylor = %+v", taylor)
	}
	if drake.IsFollowed == nil || *drake.IsFollowed || !drake.IsLiked {
		t.Errorf("drake = %+v", drake)
	}
}

func TestMutationsNeedAuth(t *testing.T) {
	ts := newServer(t)
	tok := ts.login(t, "fan@fanvest.dev", "fanvest")
	tests := []struct {
		name     string
		path     string
		token    string
		wantCode int
	}{
		{name: "no token", path: "/api/v1/content/likeDislikeContent/c-monaco", wantCode: http.StatusUnauthorized},
		{name: "garbage token", path: "/api/v1/content/likeDislikeContent/c-monaco", token: "garbage", wantCode: http.StatusUnauthorized},
		{name: "unknown content", path: "/api/v1/content/likeDislikeContent/c-nope", token: tok, wantCode: http.StatusNotFound},
		{name: "unknown artist", path: "/api/v1/artist/followUnfollowArtist/a-nope", token: tok, wantCode: http.StatusNotFound},
		{name: "unknown route", path: "/api/v1/content/remix/c-monaco", token: tok, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, b := ts.do(t, http.MethodPut, tt.path, tt.token, nil)
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d: %s", resp.StatusCode, tt.wantCode, b)
			}
			errorMessage(t, b)
		})
	}
}

func TestTokenExpires(t *testing.T) {
	ts := newServer(t)
	tok := ts.login(t, "fan@fanvest.dev", "fanvest")
	ts.clock.Advance(2 * time.Hour)
	resp, b := ts.do(t, http.MethodPut, "/api/v1/content/likeDislikeContent/c-monaco", tok, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401: %s", resp.StatusCode, b)
	}
}

func TestOpportunities(t *testing.T) {
	ts := newServer(t)

	resp, b := ts.do(t, http.MethodGet, protocol.OpportunitiesPath, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, b)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", cc)
	}
	var list model.GetOpportunitiesResponse
	if err := json.Unmarshal(b, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 3 || list.Data[0].Slug != "sophia-martinez" || list.Data[0].FundingGoal != "50000" {
		t.Errorf("listing = %+v", list)
	}

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/api/v1/invest/opportunities/2", http.StatusOK},
		{"/api/v1/invest/opportunities/9", http.StatusNotFound},
		{"/api/v1/invest/opportunities/two", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, b := ts.do(t, http.MethodGet, tt.path, "", nil)
		if resp.StatusCode != tt.wantCode {
			t.Errorf("GET %s = %d, want %d: %s", tt.path, resp.StatusCode, tt.wantCode, b)
		}
		if cc := resp.Header.Get("Cache-Control"); (cc != "") != (tt.wantCode == http.StatusOK) {
			t.Errorf("GET %s: Cache-Control = %q", tt.path, cc)
		}
	}
}

func TestVersionHeaderAndCORS(t *testing.T) {
	ts := newServer(t)
	resp, _ := ts.do(t, http.MethodGet, "/healthz", "", nil)
	if got := resp.Header.Get(protocol.VersionHeader); got != "1" {
		t.Errorf("%s = %q", protocol.VersionHeader, got)
	}

	_, b := ts.do(t, http.MethodGet, "/robots.txt", "", nil)
	if !bytes.Contains(b, []byte("Disallow: /\r\n")) {
		t.Errorf("robots.txt = %q", b)
	}

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/content/likeDislikeContent/c-monaco", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	resp, err = ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestMetricsCountRoutes(t *testing.T) {
	ts := newServer(t)
	ts.trending(t, "type=top", "")
	ts.do(t, http.MethodGet, "/nowhere", "", nil)

	resp, b := ts.do(t, http.MethodGet, "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", resp.StatusCode)
	}
	for _, want := range []string{
		`fanvest_http_requests_total{method="GET",route="GET /api/v1/content/getTrendingContent",status="200"} 1`,
		`fanvest_http_requests_total{method="GET",route="/",status="404"} 1`,
	} {
		if !bytes.Contains(b, []byte(want)) {
			t.Errorf("metrics lack %s", want)
		}
	}
}
