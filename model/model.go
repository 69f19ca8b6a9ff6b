// Package model holds the wire types of the content and artist API.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SocialMediaLinks are optional profile links.
type SocialMediaLinks struct {
	Instagram string `json:"instagram,omitempty" yaml:"instagram,omitempty"`
	YouTube   string `json:"youtube,omitempty" yaml:"youtube,omitempty"`
	Spotify   string `json:"spotify,omitempty" yaml:"spotify,omitempty"`
}

// ContentUser is the uploader embedded in a content item.
type ContentUser struct {
	ID               string           `json:"_id"`
	Username         string           `json:"username"`
	Email            string           `json:"email"`
	Country          string           `json:"country"`
	FavoriteGenre    string           `json:"favoriteGenre"`
	Role             string           `json:"role"`
	ArtistBio        string           `json:"artistBio"`
	SocialMediaLinks SocialMediaLinks `json:"socialMediaLinks"`
}

type ContentType string

const (
	ContentAudio ContentType = "audio"
	ContentVideo ContentType = "video"
	ContentImage ContentType = "image"
)

// ContentItem is an uploaded track, clip or picture.  IsLiked is relative to
// the caller's identity, which is why a login invalidates cached lists.
type ContentItem struct {
	ID                  string      `json:"_id"`
	Title               string      `json:"title"`
	File                string      `json:"file"`
	Genre               string      `json:"genre"`
	Description         string      `json:"description"`
	Type                ContentType `json:"type"`
	CreatedAt           time.Time   `json:"createdAt"`
	User                ContentUser `json:"user"`
	LikeCount           *int        `json:"likeCount,omitempty"`
	WeeklyTrendingScore *float64    `json:"weeklyTrendingScore,omitempty"`
	IsLiked             bool        `json:"isLiked"`
}

type Artist struct {
	ID               string           `json:"_id"`
	Username         string           `json:"username"`
	Email            string           `json:"email"`
	Country          string           `json:"country"`
	FavoriteGenre    string           `json:"favoriteGenre"`
	Role             string           `json:"role"`
	ArtistBio        string           `json:"artistBio"`
	SocialMediaLinks SocialMediaLinks `json:"socialMediaLinks"`
	IsLiked          bool             `json:"isLiked"`
	IsFollowed       *bool            `json:"isFollowed,omitempty"`
}

// TrendingType selects one of the trending listings.
type TrendingType string

const (
	TrendingTop     TrendingType = "top"
	TrendingSongs   TrendingType = "songs"
	TrendingArtists TrendingType = "artists"
)

var TrendingTypes = []TrendingType{TrendingTop, TrendingSongs, TrendingArtists}

func (t TrendingType) Valid() bool {
	switch t {
	case TrendingTop, TrendingSongs, TrendingArtists:
		return true
	}
	return false
}

func ParseTrendingType(s string) (TrendingType, error) {
	t := TrendingType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown trending type %q (want top, songs or artists)", s)
	}
	return t, nil
}

// TrendingData is the polymorphic data field of a trending response: a
// JSON array of content items, or an object holding an artists array.
// Exactly one of Content and Artists is meaningful, as told by IsArtists.
type TrendingData struct {
	Content   []ContentItem
	Artists   []Artist
	IsArtists bool
}

type artistsEnvelope struct {
	Artists []Artist `json:"artists"`
}

func (d *TrendingData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*d = TrendingData{}
		return nil
	case b[0] == '[':
		var items []ContentItem
		if err := json.Unmarshal(b, &items); err != nil {
			return fmt.Errorf("trending content list: %w", err)
		}
		*d = TrendingData{Content: items}
		return nil
	case b[0] == '{':
		var env artistsEnvelope
		if err := json.Unmarshal(b, &env); err != nil {
			return fmt.Errorf("trending artists: %w", err)
		}
		*d = TrendingData{Artists: env.Artists, IsArtists: true}
		return nil
	}
	return fmt.Errorf("trending data is neither a list nor an object: %.20s", b)
}

func (d TrendingData) MarshalJSON() ([]byte, error) {
	if d.IsArtists {
		artists := d.Artists
		if artists == nil {
			artists = []Artist{}
		}
		return json.Marshal(artistsEnvelope{Artists: artists})
	}
	content := d.Content
	if content == nil {
		content = []ContentItem{}
	}
	return json.Marshal(content)
}

// Len is the number of items of whichever kind the data holds.
func (d TrendingData) Len() int {
	if d.IsArtists {
		return len(d.Artists)
	}
	return len(d.Content)
}

type GetTrendingContentResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    TrendingData `json:"data"`
	Type    TrendingType `json:"type"`
}

// StatusResponse is the body of every like, dislike, follow and unfollow.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user,omitempty"`
}

type User struct {
	ID        string `json:"_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Opportunity is an artist's funding round.  Money amounts are decimal
// strings.
type Opportunity struct {
	ID               int               `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	Slug             string            `json:"slug,omitempty" yaml:"-"`
	Genre            string            `json:"genre" yaml:"genre"`
	Country          string            `json:"country" yaml:"country"`
	Description      string            `json:"description" yaml:"description"`
	MonthlyListeners int64             `json:"monthlyListeners" yaml:"monthlyListeners"`
	FundingGoal      string            `json:"fundingGoal" yaml:"fundingGoal"`
	CurrentFunding   string            `json:"currentFunding" yaml:"currentFunding"`
	ExpectedReturn   string            `json:"expectedReturn" yaml:"expectedReturn"`
	RiskLevel        string            `json:"riskLevel" yaml:"riskLevel"`
	ImageURL         string            `json:"imageUrl" yaml:"imageUrl"`
	StreamingLinks   map[string]string `json:"streamingLinks,omitempty" yaml:"streamingLinks"`
}

type GetOpportunitiesResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    []Opportunity `json:"data"`
}

type GetOpportunityResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    Opportunity `json:"data"`
}
