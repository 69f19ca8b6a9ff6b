package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/catalog"
	"github.com/ts4z/fanvest/he"
	"github.com/ts4z/fanvest/model"
	"github.com/ts4z/fanvest/permission"
	"github.com/ts4z/fanvest/protocol"
	"github.com/ts4z/fanvest/urlpath"
	"github.com/ts4z/fanvest/varz"
)

var (
	loginsSucceeded = varz.NewInt("loginsSucceeded")
	loginsFailed    = varz.NewInt("loginsFailed")
)

// maxBodyBytes bounds request bodies; the only body is a login.
const maxBodyBytes = 64 << 10

func (s *Server) handleTrending(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := model.TrendingType(q.Get("type"))
	if typ == "" {
		typ = model.TrendingTop
	}
	pg, err := urlpath.IntQuery(r, "page", protocol.DefaultPage, 0)
	if err != nil {
		he.SendErrorToHTTPClient(w, "parse query", err)
		return
	}
	limit, err := urlpath.IntQuery(r, "limit", protocol.DefaultLimit, protocol.MaxLimit)
	if err != nil {
		he.SendErrorToHTTPClient(w, "parse query", err)
		return
	}

	resp, err := s.store.Trending(TrendingQuery{
		Type:   typ,
		Page:   pg,
		Limit:  limit,
		Search: q.Get("search"),
		User:   permission.UserID(ctx),
	})
	if err != nil {
		he.SendErrorToHTTPClient(w, "list trending content", err)
		return
	}
	he.WriteJSON(w, http.StatusOK, resp)
}

// toggleHandler adapts one of the Store's toggles to a PUT route.  on and
// off are the messages for the two outcomes.
func (s *Server) toggleHandler(pathVar string, toggle func(user, id string) (bool, error), on, off string) func(context.Context, http.ResponseWriter, *http.Request) {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		ident, err := permission.RequireUser(ctx)
		if err != nil {
			he.SendErrorToHTTPClient(w, "authorize", err)
			return
		}
		id, err := urlpath.PathValue(r, pathVar)
		if err != nil {
			he.SendErrorToHTTPClient(w, "parse url", err)
			return
		}
		now, err := toggle(ident.UserID, id)
		if err != nil {
			he.SendErrorToHTTPClient(w, "toggle", err)
			return
		}
		msg := off
		if now {
			msg = on
		}
		log.WithFields(log.Fields{"user": ident.UserID, pathVar: id, "on": now}).Debug(msg)
		he.WriteJSON(w, http.StatusOK, model.StatusResponse{Success: true, Message: msg})
	}
}

func (s *Server) handleLikeContent(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	s.toggleHandler("contentId", s.store.ToggleContentLike, "Content liked", "Content unliked")(ctx, w, r)
}

func (s *Server) handleLikeArtist(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	s.toggleHandler("artistId", s.store.ToggleArtistLike, "Artist liked", "Artist unliked")(ctx, w, r)
}

func (s *Server) handleFollowArtist(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	s.toggleHandler("artistId", s.store.ToggleFollow, "Artist followed", "Artist unfollowed")(ctx, w, r)
}

func (s *Server) handleLogin(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		he.SendErrorToHTTPClient(w, "read login", he.New(http.StatusBadRequest, err))
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		he.SendErrorToHTTPClient(w, "decode login", he.HTTPCodedErrorf(http.StatusBadRequest, "decoding json: %v", err))
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		he.SendErrorToHTTPClient(w, "log in", he.HTTPCodedErrorf(http.StatusBadRequest, "email and password required"))
		return
	}

	u, err := s.store.Catalog().Authenticate(req.Email, req.Password)
	if err != nil {
		loginsFailed.Add(1)
		he.SendErrorToHTTPClient(w, "log in", he.New(http.StatusUnauthorized, catalog.ErrBadCredentials))
		return
	}
	tok, td, err := s.bakery.Mint(u.ID)
	if err != nil {
		he.SendErrorToHTTPClient(w, "mint token", err)
		return
	}
	loginsSucceeded.Add(1)
	log.WithFields(log.Fields{"user": u.ID, "session": td.SessionID}).Info("login")

	user := u.User
	he.WriteJSON(w, http.StatusOK, model.LoginResponse{
		Success: true,
		Message: "Login successful",
		Token:   tok,
		User:    &user,
	})
}

func (s *Server) handleOpportunities(_ context.Context, w http.ResponseWriter, _ *http.Request) {
	opps := s.store.Catalog().Opportunities
	data := make([]model.Opportunity, 0, len(opps))
	for _, o := range opps {
		data = append(data, o.Wire())
	}
	he.WriteJSON(w, http.StatusOK, model.GetOpportunitiesResponse{
		Success: true,
		Message: "Opportunities fetched successfully",
		Data:    data,
	})
}

func (s *Server) handleOpportunity(_ context.Context, w http.ResponseWriter, r *http.Request) {
	id, err := urlpath.IDPathValue(r)
	if err != nil {
		he.SendErrorToHTTPClient(w, "parse url", err)
		return
	}
	o, ok := s.store.Catalog().Opportunity(id)
	if !ok {
		he.SendErrorToHTTPClient(w, "fetch opportunity", notFound("opportunity", fmt.Sprint(id)))
		return
	}
	he.WriteJSON(w, http.StatusOK, model.GetOpportunityResponse{
		Success: true,
		Message: "Opportunity fetched successfully",
		Data:    o.Wire(),
	})
}

func (s *Server) handleNotFound(_ context.Context, w http.ResponseWriter, r *http.Request) {
	if !isAPIPath(r.URL.Path) {
		http.NotFound(w, r)
		return
	}
	he.SendErrorToHTTPClient(w, "route", he.HTTPCodedErrorf(http.StatusNotFound, "no route for %s %s", r.Method, r.URL.Path))
}

// The mock holds nothing worth indexing.
func (s *Server) handleRobotsTXT(_ context.Context, w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	for _, line := range []string{"User-agent: *", "Disallow: /"} {
		io.WriteString(w, line+"\r\n")
	}
}
