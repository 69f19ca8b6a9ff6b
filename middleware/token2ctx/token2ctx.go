// Package token2ctx reads the bearer token from each request and puts the
// caller's identity in the request context, so handlers don't parse headers.
package token2ctx

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/ts4z/fanvest/dep"
	"github.com/ts4z/fanvest/permission"
)

// UserLookup resolves a user id to a display name.  Tokens for users that no
// longer exist are ignored.
type UserLookup interface {
	Username(id string) (string, bool)
}

type TokenToContext struct {
	bakery *permission.Bakery
	users  UserLookup
	next   http.Handler
}

func (t *TokenToContext) identity(r *http.Request) (*permission.Identity, error) {
	tok, err := permission.BearerToken(r)
	if err != nil {
		return nil, err
	}
	td, err := t.bakery.Read(tok)
	if err != nil {
		return nil, err
	}
	name, ok := t.users.Username(td.UserID)
	if !ok {
		return nil, errors.New("token names an unknown user")
	}
	return &permission.Identity{UserID: td.UserID, Username: name, SessionID: td.SessionID}, nil
}

// ServeHTTP passes the request on anonymously when there is no valid token.
// Handlers that need a user say so.
func (t *TokenToContext) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := t.identity(r)
	if err != nil {
		if !errors.Is(err, permission.ErrNoToken) {
			log.WithField("path", r.URL.Path).Debugf("ignoring token: %v", err)
		}
	} else {
		r = r.WithContext(permission.IdentityInContext(r.Context(), id))
	}
	t.next.ServeHTTP(w, r)
}

type Config struct {
	Bakery *permission.Bakery
	Users  UserLookup
	Next   http.Handler
}

func Handler(cf *Config) http.Handler {
	return &TokenToContext{
		bakery: dep.Required(cf.Bakery),
		users:  dep.Required(cf.Users),
		next:   dep.Required(cf.Next),
	}
}
