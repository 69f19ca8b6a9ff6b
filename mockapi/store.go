package mockapi

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/ts4z/fanvest/catalog"
	"github.com/ts4z/fanvest/he"
	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/varz"
)

var (
	contentLikesToggled = varz.NewInt("contentLikesToggled")
	artistLikesToggled  = varz.NewInt("artistLikesToggled")
	followsToggled      = varz.NewInt("followsToggled")
)

// set is a per-user set of ids.
type set map[string]map[string]struct{}

// toggle flips membership of id in user's set and reports the new state.
func (s set) toggle(user, id string) bool {
	m, ok := s[user]
	if !ok {
		m = map[string]struct{}{}
		s[user] = m
	}
	if _, on := m[id]; on {
		delete(m, id)
		return false
	}
	m[id] = struct{}{}
	return true
}

func (s set) has(user, id string) bool {
	_, ok := s[user][id]
	return ok
}

// count is how many users have id in their set.
func (s set) count(id string) int {
	n := 0
	for _, m := range s {
		if _, ok := m[id]; ok {
			n++
		}
	}
	return n
}

// Store is the mutable state of the mock backend: who likes and follows
// what.  The catalog itself is read-only.
type Store struct {
	cat *catalog.Catalog

	mu           sync.Mutex
	likedContent set
	likedArtists set
	followed     set
}

func NewStore(cat *catalog.Catalog) *Store {
	return &Store{
		cat:          cat,
		likedContent: set{},
		likedArtists: set{},
		followed:     set{},
	}
}

func (s *Store) Catalog() *catalog.Catalog {
	return s.cat
}

func (s *Store) Username(id string) (string, bool) {
	u, ok := s.cat.User(id)
	if !ok {
		return "", false
	}
	return u.Username, true
}

func notFound(what, id string) error {
	return he.HTTPCodedErrorf(http.StatusNotFound, "no %s with id %q", what, id)
}

// ToggleContentLike likes or un-likes an item for user.
func (s *Store) ToggleContentLike(user, contentID string) (bool, error) {
	if _, ok := s.cat.ContentByID(contentID); !ok {
		return false, notFound("content", contentID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	contentLikesToggled.Add(1)
	return s.likedContent.toggle(user, contentID), nil
}

func (s *Store) ToggleArtistLike(user, artistID string) (bool, error) {
	if _, ok := s.cat.Artist(artistID); !ok {
		return false, notFound("artist", artistID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	artistLikesToggled.Add(1)
	return s.likedArtists.toggle(user, artistID), nil
}

func (s *Store) ToggleFollow(user, artistID string) (bool, error) {
	if _, ok := s.cat.Artist(artistID); !ok {
		return false, notFound("artist", artistID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	followsToggled.Add(1)
	return s.followed.toggle(user, artistID), nil
}

// TrendingQuery is a parsed getTrendingContent request.  User is empty for
// anonymous callers.
type TrendingQuery struct {
	Type   model.TrendingType
	Page   int
	Limit  int
	Search string
	User   string
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// page returns the slice of xs that page p of size limit covers.  Pages past
// the end are empty.
// page returns page p (from 1) of xs.  Pages past the end are empty; the
// check comes before the multiply so a huge p can't overflow.
func page[T any](xs []T, p, limit int) []T {
	if pages := (len(xs) + limit - 1) / limit; p-1 >= pages {
		return []T{}
	}
	start := (p - 1) * limit
	return xs[start:min(start+limit, len(xs))]
}

// Trending renders one trending listing as the caller sees it.
func (s *Store) Trending(q TrendingQuery) (*model.GetTrendingContentResponse, error) {
	if !q.Type.Valid() {
		return nil, he.HTTPCodedErrorf(http.StatusBadRequest, "type must be one of top, songs or artists, got %q", q.Type)
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &model.GetTrendingContentResponse{
		Success: true,
		Message: fmt.Sprintf("Trending %s fetched successfully", q.Type),
		Type:    q.Type,
	}
	if q.Type == model.TrendingArtists {
		resp.Data = model.TrendingData{IsArtists: true, Artists: page(s.artistsLocked(search, q.User), q.Page, q.Limit)}
	} else {
		resp.Data = model.TrendingData{Content: page(s.contentLocked(q.Type, search, q.User), q.Page, q.Limit)}
	}
	return resp, nil
}

func (s *Store) contentLocked(typ model.TrendingType, search, user string) []model.ContentItem {
	type ranked struct {
		item  model.ContentItem
		likes int
		score float64
	}
	var rs []ranked
	for _, c := range s.cat.Content {
		if typ == model.TrendingSongs && c.Item.Type != model.ContentAudio {
			continue
		}
		if !matches(search, c.Item.Title, c.Item.Genre, c.Item.Description, c.Item.User.Username) {
			continue
		}
		item := c.Item
		likes := c.BaseLikes + s.likedContent.count(c.Item.ID)
		score := c.Score
		item.LikeCount = &likes
		item.WeeklyTrendingScore = &score
		item.IsLiked = user != "" && s.likedContent.has(user, c.Item.ID)
		rs = append(rs, ranked{item: item, likes: likes, score: score})
	}

	slices.SortStableFunc(rs, func(a, b ranked) int {
		if typ == model.TrendingSongs {
			if c := cmp.Compare(b.likes, a.likes); c != 0 {
				return c
			}
			return cmp.Compare(a.item.Title, b.item.Title)
		}
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return b.item.CreatedAt.Compare(a.item.CreatedAt)
	})

	items := make([]model.ContentItem, 0, len(rs))
	for _, r := range rs {
		items = append(items, r.item)
	}
	return items
}

func (s *Store) artistsLocked(search, user string) []model.Artist {
	type ranked struct {
		artist    model.Artist
		followers int
		likes     int
	}
	var rs []ranked
	for _, a := range s.cat.Artists {
		if !matches(search, a.Username, a.FavoriteGenre, a.Country) {
			continue
		}
		if user != "" {
			a.IsLiked = s.likedArtists.has(user, a.ID)
			followed := s.followed.has(user, a.ID)
			a.IsFollowed = &followed
		}
		rs = append(rs, ranked{artist: a, followers: s.followed.count(a.ID), likes: s.likedArtists.count(a.ID)})
	}

	slices.SortStableFunc(rs, func(a, b ranked) int {
		if c := cmp.Compare(b.followers, a.followers); c != 0 {
			return c
		}
		if c := cmp.Compare(b.likes, a.likes); c != 0 {
			return c
		}
		return cmp.Compare(a.artist.Username, b.artist.Username)
	})

	artists := make([]model.Artist, 0, len(rs))
	for _, r := range rs {
		artists = append(artists, r.artist)
	}
	return artists
}
