// Package protocol defines the REST paths shared by the API client and the
// mock server.
package protocol

const (
	// Version is reported by the mock server in the X-Fanvest-Protocol header.
	// It changes when a path or payload changes incompatibly.
	Version = 1

	VersionHeader = "X-Fanvest-Protocol"

	DefaultBaseURL = "http://localhost:3000"

	TrendingContentPath = "/api/v1/content/getTrendingContent"
	LikeContentPath     = "/api/v1/content/likeDislikeContent/{contentId}"
	LikeArtistPath      = "/api/v1/artist/likeDislikeArtist/{artistId}"
	FollowArtistPath    = "/api/v1/artist/followUnfollowArtist/{artistId}"
	LoginPath           = "/api/v1/auth/login"
	OpportunitiesPath   = "/api/v1/invest/opportunities"
	OpportunityPath     = "/api/v1/invest/opportunities/{id}"
)

// Query defaults applied by the client when a caller leaves them unset.
const (
	DefaultPage  = 1
	DefaultLimit = 10

	// MaxLimit is the largest page the mock server hands out.
	MaxLimit = 50
)
