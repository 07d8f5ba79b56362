// Package auth resolves the calling user from request headers set by
// the authenticating gateway in front of the service.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/globridge/social-engine/api"
)

// Header carries the authenticated user's id, set by the gateway.
const Header = "X-User-ID"

// Gateway authenticates requests by trusting the gateway's user id
// header and resolving it against the user store.
type Gateway struct {
	Users api.UserStore
}

// Authenticate returns the user identified by the request headers.
func (g *Gateway) Authenticate(r *http.Request) (api.User, error) {
	raw := r.Header.Get(Header)
	if raw == "" {
		return api.User{}, api.ErrUnauthenticated
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return api.User{}, fmt.Errorf("bad user id %q: %w", raw, api.ErrUnauthenticated)
	}
	u, err := g.Users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.User{}, fmt.Errorf("unknown user %d: %w", id, api.ErrUnauthenticated)
		}
		return api.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

var _ api.Authenticator = (*Gateway)(nil)
