// Package catalog loads the demo users, artists, content and funding rounds
// that the mock server serves.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ts4z/fanvest/assets"
	"github.com/ts4z/fanvest/invest"
	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/password"
)

var ErrBadCredentials = errors.New("invalid email or password")

type userRecord struct {
	ID        string `yaml:"id"`
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Role      string `yaml:"role"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`

	Password string `yaml:"password"`

	// PasswordHash is the output of "fanvestd hash-password".
	PasswordHash string `yaml:"passwordHash"`
}

type artistRecord struct {
	ID               string                 `yaml:"id"`
	Username         string                 `yaml:"username"`
	Email            string                 `yaml:"email"`
	Country          string                 `yaml:"country"`
	FavoriteGenre    string                 `yaml:"favoriteGenre"`
	Role             string                 `yaml:"role"`
	ArtistBio        string                 `yaml:"artistBio"`
	SocialMediaLinks model.SocialMediaLinks `yaml:"socialMediaLinks"`
}

type contentRecord struct {
	ID                  string            `yaml:"id"`
	Title               string            `yaml:"title"`
	File                string            `yaml:"file"`
	Genre               string            `yaml:"genre"`
	Description         string            `yaml:"description"`
	Type                model.ContentType `yaml:"type"`
	Artist              string            `yaml:"artist"`
	CreatedAt           time.Time         `yaml:"createdAt"`
	LikeCount           int               `yaml:"likeCount"`
	WeeklyTrendingScore float64           `yaml:"weeklyTrendingScore"`
}

type document struct {
	Users         []userRecord        `yaml:"users"`
	Artists       []artistRecord      `yaml:"artists"`
	Content       []contentRecord     `yaml:"content"`
	Opportunities []model.Opportunity `yaml:"opportunities"`
}

// User is an account that can log in.
type User struct {
	model.User
	checker *password.Checker
}

// Content is an item plus the counters the listings are ranked by.
type Content struct {
	Item      model.ContentItem
	ArtistID  string
	BaseLikes int
	Score     float64
}

type Catalog struct {
	Users         []*User
	Artists       []model.Artist
	Content       []*Content
	Opportunities []*invest.Opportunity

	usersByEmail  map[string]*User
	usersByID     map[string]*User
	artistsByID   map[string]int
	contentByID   map[string]*Content
	opportunityID map[int]*invest.Opportunity
}

// Load reads the catalog at path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(assets.Catalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and cross-checks a catalog document.  Unknown keys are
// errors.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("can't decode catalog: %w", err)
	}

	c := &Catalog{
		usersByEmail:  map[string]*User{},
		usersByID:     map[string]*User{},
		artistsByID:   map[string]int{},
		contentByID:   map[string]*Content{},
		opportunityID: map[int]*invest.Opportunity{},
	}
	if err := c.addUsers(doc.Users); err != nil {
		return nil, err
	}
	if err := c.addArtists(doc.Artists); err != nil {
		return nil, err
	}
	if err := c.addContent(doc.Content); err != nil {
		return nil, err
	}
	if err := c.addOpportunities(doc.Opportunities); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"users":         len(c.Users),
		"artists":       len(c.Artists),
		"content":       len(c.Content),
		"opportunities": len(c.Opportunities),
	}).Debug("catalog loaded")
	return c, nil
}

func (c *Catalog) addUsers(recs []userRecord) error {
	for _, r := range recs {
		if r.ID == "" || r.Email == "" {
			return fmt.Errorf("user %q: id and email are required", r.Username)
		}
		email := strings.ToLower(r.Email)
		if _, dup := c.usersByID[r.ID]; dup {
			return fmt.Errorf("duplicate user id %q", r.ID)
		}
		if _, dup := c.usersByEmail[email]; dup {
			return fmt.Errorf("duplicate user email %q", r.Email)
		}
		hashed := r.PasswordHash
		switch {
		case r.Password != "" && hashed != "":
			return fmt.Errorf("user %q: give password or passwordHash, not both", r.ID)
		case r.Password != "":
			var err error
			if hashed, err = password.HashWithCost(r.Password, password.FixtureCost); err != nil {
				return fmt.Errorf("user %q: %w", r.ID, err)
			}
		case hashed == "":
			return fmt.Errorf("user %q has no password", r.ID)
		}
		checker, err := password.NewChecker(hashed)
		if err != nil {
			return fmt.Errorf("user %q: %w", r.ID, err)
		}
		u := &User{
			User: model.User{
				ID:        r.ID,
				Username:  r.Username,
				Email:     r.Email,
				Role:      r.Role,
				FirstName: r.FirstName,
				LastName:  r.LastName,
			},
			checker: checker,
		}
		c.Users = append(c.Users, u)
		c.usersByID[r.ID] = u
		c.usersByEmail[email] = u
	}
	return nil
}

func (c *Catalog) addArtists(recs []artistRecord) error {
	for _, r := range recs {
		if r.ID == "" {
			return fmt.Errorf("artist %q has no id", r.Username)
		}
		if _, dup := c.artistsByID[r.ID]; dup {
			return fmt.Errorf("duplicate artist id %q", r.ID)
		}
		c.artistsByID[r.ID] = len(c.Artists)
		c.Artists = append(c.Artists, model.Artist{
			ID:               r.ID,
			Username:         r.Username,
			Email:            r.Email,
			Country:          r.Country,
			FavoriteGenre:    r.FavoriteGenre,
			Role:             r.Role,
			ArtistBio:        r.ArtistBio,
			SocialMediaLinks: r.SocialMediaLinks,
		})
	}
	return nil
}

func (c *Catalog) addContent(recs []contentRecord) error {
	for _, r := range recs {
		if r.ID == "" {
			return fmt.Errorf("content %q has no id", r.Title)
		}
		if _, dup := c.contentByID[r.ID]; dup {
			return fmt.Errorf("duplicate content id %q", r.ID)
		}
		switch r.Type {
		case model.ContentAudio, model.ContentVideo, model.ContentImage:
		default:
			return fmt.Errorf("content %q: unknown type %q", r.ID, r.Type)
		}
		a, ok := c.Artist(r.Artist)
		if !ok {
			return fmt.Errorf("content %q: no such artist %q", r.ID, r.Artist)
		}
		if r.LikeCount < 0 {
			return fmt.Errorf("content %q: negative like count", r.ID)
		}
		ct := &Content{
			Item: model.ContentItem{
				ID:          r.ID,
				Title:       r.Title,
				File:        r.File,
				Genre:       r.Genre,
				Description: r.Description,
				Type:        r.Type,
				CreatedAt:   r.CreatedAt,
				User: model.ContentUser{
					ID:               a.ID,
					Username:         a.Username,
					Email:            a.Email,
					Country:          a.Country,
					FavoriteGenre:    a.FavoriteGenre,
					Role:             a.Role,
					ArtistBio:        a.ArtistBio,
					SocialMediaLinks: a.SocialMediaLinks,
				},
			},
			ArtistID:  a.ID,
			BaseLikes: r.LikeCount,
			Score:     r.WeeklyTrendingScore,
		}
		c.Content = append(c.Content, ct)
		c.contentByID[r.ID] = ct
	}
	return nil
}

func (c *Catalog) addOpportunities(recs []model.Opportunity) error {
	opps, err := invest.FromWireList(recs)
	if err != nil {
		return err
	}
	for _, o := range opps {
		if _, dup := c.opportunityID[o.ID]; dup {
			return fmt.Errorf("duplicate opportunity id %d", o.ID)
		}
		c.opportunityID[o.ID] = o
	}
	c.Opportunities = opps
	return nil
}

// Authenticate checks an email and password.  Email is case-insensitive.
func (c *Catalog) Authenticate(email, pw string) (*User, error) {
	u, ok := c.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrBadCredentials
	}
	if err := u.checker.Validate(pw); err != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

func (c *Catalog) User(id string) (*User, bool) {
	u, ok := c.usersByID[id]
	return u, ok
}

// Artist returns a copy of the artist with the given id.
func (c *Catalog) Artist(id string) (model.Artist, bool) {
	i, ok := c.artistsByID[id]
	if !ok {
		return model.Artist{}, false
	}
	return c.Artists[i], true
}

func (c *Catalog) ContentByID(id string) (*Content, bool) {
	ct, ok := c.contentByID[id]
	return ct, ok
}

func (c *Catalog) Opportunity(id int) (*invest.Opportunity, bool) {
	o, ok := c.opportunityID[id]
	return o, ok
}
