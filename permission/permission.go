package permission

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ts4z/fanvest/he"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    string
	Username  string
	SessionID uuid.UUID
}

type contextKeyType struct{}

var contextKeyTypeValue = contextKeyType{}

func IdentityInContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKeyTypeValue, id)
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(contextKeyTypeValue).(*Identity); ok {
		return id
	}
	return nil
}

// UserID is empty for anonymous requests.
func UserID(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return ""
}

// RequireUser fails unless the request carries a valid token.
func RequireUser(ctx context.Context) (*Identity, error) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, he.HTTPCodedErrorf(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}
