package mockapi

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ts4z/fanvest/credential"
	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/query"
	"github.com/ts4z/fanvest/searchapi"
	"github.com/ts4z/fanvest/transport"
)

// await waits for a fresh successful snapshot that satisfies ok.
func await(t *testing.T, sub *query.Subscription, what string, ok func(query.Snapshot) bool) query.Snapshot {
	t.Helper()
	good := func(s query.Snapshot) bool {
		return s.Status == query.StatusSuccess && !s.Stale && ok(s)
	}
	if s := sub.Current(); good(s) {
		return s
	}
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, open := <-sub.Updates():
			if !open {
				t.Fatalf("%s: subscription closed", what)
			}
			if good(s) {
				return s
			}
		case <-timeout:
			t.Fatalf("%s: timed out; last snapshot %+v", what, sub.Current())
		}
	}
}

func TestClientAgainstServer(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()

	creds := credential.NewFile(filepath.Join(t.TempDir(), "token"))
	tr, err := transport.NewHTTP(ts.URL, transport.WithDecorator(transport.BearerToken(creds)))
	if err != nil {
		t.Fatal(err)
	}
	c, err := searchapi.NewClient(tr, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	top, err := c.Trending(searchapi.TrendingArgs{Type: model.TrendingTop, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer top.Close()
	artists, err := c.Trending(searchapi.TrendingArgs{Type: model.TrendingArtists})
	if err != nil {
		t.Fatal(err)
	}
	defer artists.Close()

	first := func(s query.Snapshot) model.ContentItem {
		resp, ok := c.TrendingData(s)
		if !ok || len(resp.Data.Content) == 0 {
			t.Fatalf("no content in %+v", s)
		}
		return resp.Data.Content[0]
	}

	s := await(t, top, "initial top", func(query.Snapshot) bool { return true })
	if it := first(s); it.ID != "c-monaco" || it.IsLiked {
		t.Errorf("anonymous top[0] = %+v", it)
	}

	// Anonymous mutations fail and leave the cache alone.
	if _, err := c.LikeDislikeContent(ctx, "c-monaco"); !transport.IsHTTPStatus(err, 401) {
		t.Errorf("anonymous like = %v, want 401", err)
	}
	if _, err := c.Login(ctx, "fan@fanvest.dev", "wrong"); !transport.IsHTTPStatus(err, 401) {
		t.Errorf("bad login = %v, want 401", err)
	}

	lr, err := c.Login(ctx, "fan@fanvest.dev", "fanvest")
	if err != nil {
		t.Fatalf("Login() returned error: %v", err)
	}
	if err := creds.Save(lr.Token); err != nil {
		t.Fatal(err)
	}

	if _, err := c.LikeDislikeContent(ctx, "c-monaco"); err != nil {
		t.Fatalf("LikeDislikeContent() returned error: %v", err)
	}
	s = await(t, top, "top after like", func(s query.Snapshot) bool { return first(s).IsLiked })
	if it := first(s); it.LikeCount == nil || *it.LikeCount != 1841 {
		t.Errorf("top[0] after like = %+v", it)
	}

	if _, err := c.FollowUnfollowArtist(ctx, "a-weeknd"); err != nil {
		t.Fatalf("FollowUnfollowArtist() returned error: %v", err)
	}
	s = await(t, artists, "artists after follow", func(s query.Snapshot) bool {
		resp, _ := c.TrendingData(s)
		a := resp.Data.Artists
		return len(a) > 0 && a[0].IsFollowed != nil && *a[0].IsFollowed
	})
	if resp, _ := c.TrendingData(s); resp.Data.Artists[0].ID != "a-weeknd" {
		t.Errorf("artists[0] after follow = %+v", resp.Data.Artists[0])
	}

	opps, err := c.Opportunities()
	if err != nil {
		t.Fatal(err)
	}
	defer opps.Close()
	s = await(t, opps, "opportunities", func(query.Snapshot) bool { return true })
	if resp, ok := c.OpportunitiesData(s); !ok || len(resp.Data) != 3 {
		t.Errorf("opportunities = %+v", resp)
	}
	if len(s.Tags) != 4 {
		t.Errorf("opportunity tags = %v, want the list tag plus one per opportunity", s.Tags)
	}
}
