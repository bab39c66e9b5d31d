package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/taskfolio/taskfolio/pkg/auth"
	"github.com/taskfolio/taskfolio/pkg/authz"
	"github.com/taskfolio/taskfolio/pkg/httputil"
	"github.com/taskfolio/taskfolio/pkg/middleware"
)

// getMe handles GET /api/v1/me. It returns the authenticated user together
// with the role, account scope, and permission set resolved for this
// request. Nothing here is cached; a role change shows up on the next call.
func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	actx := middleware.GetAuthorizationContext(r)

	httputil.WriteSuccess(w, map[string]interface{}{
		"user":        authCtx.User,
		"role":        actx.Role,
		"account_id":  actx.AccountID,
		"permissions": authz.PermissionsFor(actx.Role),
	})
}

type createTokenRequest struct {
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type createTokenResponse struct {
	*auth.APIToken
	// Token is the plaintext token, returned exactly once at creation.
	Token string `json:"token"`
}

// createToken handles POST /api/v1/tokens
func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	var req createTokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	apiToken, plaintext, err := s.tokens.CreateToken(authCtx.User.ID, req.Name, req.ExpiresAt)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, createTokenResponse{APIToken: apiToken, Token: plaintext})
}

// revokeToken handles DELETE /api/v1/tokens/{token_id}. Users can only
// revoke their own tokens; anything else reads as not found.
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	tokenID, ok := httputil.ParsePathInt64OrError(w, r, "token_id")
	if !ok {
		return
	}

	if err := s.tokens.RevokeToken(tokenID, authCtx.User.ID); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			httputil.WriteNotFoundError(w, "token not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
