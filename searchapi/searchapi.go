// Package searchapi is the content and artist API: trending listings plus
// the like, follow and login mutations, declared on a query.Registry with
// the cache tags that keep the listings coherent.
package searchapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/protocol"
	"github.com/ts4z/fanvest/query"
	"github.com/ts4z/fanvest/request"
	"github.com/ts4z/fanvest/transport"
)

// Cache tag types.
const (
	TagTrendingContent = "TrendingContent"
	TagArtists         = "Artists"
	TagSongs           = "Songs"
	TagOpportunities   = "Opportunities"
)

// Endpoint names.
const (
	GetTrendingContent   = "getTrendingContent"
	LikeDislikeContent   = "likeDislikeContent"
	LikeDislikeArtist    = "likeDislikeArtist"
	FollowUnfollowArtist = "followUnfollowArtist"
	Login                = "login"
	GetOpportunities     = "getInvestmentOpportunities"
)

type TrendingArgs struct {
	Page   int                `json:"page"`
	Limit  int                `json:"limit"`
	Type   model.TrendingType `json:"type"`
	Search string             `json:"search"`
}

// WithDefaults fills in page and limit.  Callers that leave them unset share
// a cache entry with callers that spell the defaults out.
func (a TrendingArgs) WithDefaults() TrendingArgs {
	if a.Page <= 0 {
		a.Page = protocol.DefaultPage
	}
	if a.Limit <= 0 {
		a.Limit = protocol.DefaultLimit
	}
	return a
}

type ContentArgs struct {
	ContentID string `json:"contentId"`
}

type ArtistArgs struct {
	ArtistID string `json:"artistId"`
}

// API holds typed handles on the registered endpoints.
type API struct {
	Trending     *query.QueryEndpoint[TrendingArgs, model.GetTrendingContentResponse]
	LikeContent  *query.MutationEndpoint[ContentArgs, model.StatusResponse]
	LikeArtist   *query.MutationEndpoint[ArtistArgs, model.StatusResponse]
	FollowArtist *query.MutationEndpoint[ArtistArgs, model.StatusResponse]
	Login        *query.MutationEndpoint[model.LoginRequest, model.LoginResponse]

	Opportunities *query.QueryEndpoint[struct{}, model.GetOpportunitiesResponse]
}

func buildTrending(a TrendingArgs) (*request.Request, error) {
	if !a.Type.Valid() {
		return nil, fmt.Errorf("unknown trending type %q", a.Type)
	}
	a = a.WithDefaults()
	return request.Get(protocol.TrendingContentPath).
		IntParam("page", a.Page).
		IntParam("limit", a.Limit).
		Param("type", string(a.Type)).
		Param("search", a.Search), nil
}

func trendingTags(a TrendingArgs) []query.Tag {
	return []query.Tag{
		{Type: TagTrendingContent, ID: string(a.Type)},
		{Type: TagArtists, ID: query.ListID},
		{Type: TagSongs, ID: query.ListID},
	}
}

func putPath(template, name, id string) (*request.Request, error) {
	p, err := request.Path(template, name, id)
	if err != nil {
		return nil, err
	}
	return request.Put(p), nil
}

// opportunityTags names each listed opportunity, so a later per-opportunity
// mutation can invalidate just the listings that contain it.
func opportunityTags(_ struct{}, r *model.GetOpportunitiesResponse, err error) []query.Tag {
	tags := []query.Tag{{Type: TagOpportunities, ID: query.ListID}}
	if err != nil || r == nil {
		return tags
	}
	for _, o := range r.Data {
		tags = append(tags, query.Tag{Type: TagOpportunities, ID: strconv.Itoa(o.ID)})
	}
	return tags
}

func followTags(ArtistArgs) []query.Tag {
	tags := []query.Tag{{Type: TagArtists, ID: query.ListID}}
	for _, t := range []model.TrendingType{model.TrendingArtists, model.TrendingTop, model.TrendingSongs} {
		tags = append(tags, query.Tag{Type: TagTrendingContent, ID: string(t)})
	}
	return tags
}

// Register declares every endpoint on reg.
func Register(reg *query.Registry) (*API, error) {
	var api API
	var err error

	if api.Trending, err = query.DefineQuery[TrendingArgs, model.GetTrendingContentResponse](
		reg, GetTrendingContent, buildTrending, query.FromArgs(trendingTags)); err != nil {
		return nil, err
	}

	if api.LikeContent, err = query.DefineMutation[ContentArgs, model.StatusResponse](
		reg, LikeDislikeContent,
		func(a ContentArgs) (*request.Request, error) {
			return putPath(protocol.LikeContentPath, "contentId", a.ContentID)
		},
		query.Static(query.TypeTag(TagTrendingContent), query.TypeTag(TagSongs))); err != nil {
		return nil, err
	}

	if api.LikeArtist, err = query.DefineMutation[ArtistArgs, model.StatusResponse](
		reg, LikeDislikeArtist,
		func(a ArtistArgs) (*request.Request, error) {
			return putPath(protocol.LikeArtistPath, "artistId", a.ArtistID)
		},
		query.Static(query.TypeTag(TagArtists))); err != nil {
		return nil, err
	}

	if api.FollowArtist, err = query.DefineMutation[ArtistArgs, model.StatusResponse](
		reg, FollowUnfollowArtist,
		func(a ArtistArgs) (*request.Request, error) {
			return putPath(protocol.FollowArtistPath, "artistId", a.ArtistID)
		},
		query.FromArgs(followTags)); err != nil {
		return nil, err
	}

	// isLiked and isFollowed depend on who is asking.
	if api.Login, err = query.DefineMutation[model.LoginRequest, model.LoginResponse](
		reg, Login,
		func(a model.LoginRequest) (*request.Request, error) {
			return request.Post(protocol.LoginPath).JSON(a)
		},
		query.Static(query.TypeTag(TagTrendingContent), query.TypeTag(TagArtists), query.TypeTag(TagSongs))); err != nil {
		return nil, err
	}

	if api.Opportunities, err = query.DefineQuery[struct{}, model.GetOpportunitiesResponse](
		reg, GetOpportunities,
		func(struct{}) (*request.Request, error) { return request.Get(protocol.OpportunitiesPath), nil },
		query.FromResult(opportunityTags)); err != nil {
		return nil, err
	}

	return &api, nil
}

// Client is an engine with the API registered on it.
type Client struct {
	API    *API
	Engine *query.Engine
}

func NewClient(tr transport.Transport, cf *query.EngineConfig) (*Client, error) {
	reg := query.NewRegistry()
	api, err := Register(reg)
	if err != nil {
		return nil, err
	}
	return &Client{API: api, Engine: query.NewEngine(reg, tr, cf)}, nil
}

// Trending subscribes to a trending listing.
func (c *Client) Trending(args TrendingArgs) (*query.Subscription, error) {
	if !args.Type.Valid() {
		return nil, fmt.Errorf("can't subscribe to trending content: unknown type %q", args.Type)
	}
	return c.API.Trending.Subscribe(c.Engine, args.WithDefaults())
}

// TrendingData extracts the response from a snapshot of a Trending
// subscription.
func (c *Client) TrendingData(s query.Snapshot) (*model.GetTrendingContentResponse, bool) {
	return c.API.Trending.Data(s)
}

func (c *Client) LikeDislikeContent(ctx context.Context, contentID string) (*model.StatusResponse, error) {
	return c.API.LikeContent.Call(ctx, c.Engine, ContentArgs{ContentID: contentID})
}

func (c *Client) LikeDislikeArtist(ctx context.Context, artistID string) (*model.StatusResponse, error) {
	return c.API.LikeArtist.Call(ctx, c.Engine, ArtistArgs{ArtistID: artistID})
}

func (c *Client) FollowUnfollowArtist(ctx context.Context, artistID string) (*model.StatusResponse, error) {
	return c.API.FollowArtist.Call(ctx, c.Engine, ArtistArgs{ArtistID: artistID})
}

// Login exchanges credentials for a bearer token.  Persisting the token is
// the caller's business.
func (c *Client) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	resp, err := c.API.Login.Call(ctx, c.Engine, model.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	log.WithField("email", email).Info("logged in")
	return resp, nil
}

// Opportunities subscribes to the investment opportunity listing.
func (c *Client) Opportunities() (*query.Subscription, error) {
	return c.API.Opportunities.Subscribe(c.Engine, struct{}{})
}

func (c *Client) OpportunitiesData(s query.Snapshot) (*model.GetOpportunitiesResponse, bool) {
	return c.API.Opportunities.Data(s)
}

func (c *Client) Close() {
	c.Engine.Dispose()
}
