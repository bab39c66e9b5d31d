package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/taskfolio/taskfolio/pkg/authz"
	"github.com/taskfolio/taskfolio/pkg/httputil"
	"github.com/taskfolio/taskfolio/pkg/middleware"
	"github.com/taskfolio/taskfolio/pkg/team"
)

// inviteMember handles POST /api/v1/team/invitations
func (s *Server) inviteMember(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	var req team.InviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	decision, err := s.gate.AuthorizeMemberAction(r.Context(), actx.UserID, req.Role, authz.PermissionInviteTeamMembers)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !decision.Allowed {
		httputil.WriteForbidden(w, decision.Reason)
		return
	}

	invitation := &team.Membership{
		Email:     req.Email,
		Role:      req.Role,
		InvitedBy: actx.AccountID,
	}
	if err := s.team.Invite(invitation); err != nil {
		if errors.Is(err, team.ErrInvalidRole) {
			httputil.WriteValidationError(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, invitation)
}

// listInvitations handles GET /api/v1/team/invitations
func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	invitations, err := s.team.ListInvitations(actx.AccountID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, invitations)
}

// getInvitation handles GET /api/v1/invitations/{token}. The token is the
// capability; no session is required.
func (s *Server) getInvitation(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	invitation, err := s.team.GetByToken(token)
	if errors.Is(err, team.ErrNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if invitation.Status == team.StatusPending && time.Now().After(invitation.ExpiresAt) {
		httputil.WriteGone(w, "invitation expired")
		return
	}

	httputil.WriteSuccess(w, invitation)
}

// acceptInvitation handles POST /api/v1/invitations/{token}/accept
func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}
	authCtx := middleware.GetAuthContext(r)

	err := s.team.Accept(token, authCtx.User.ID)
	switch {
	case errors.Is(err, team.ErrNotFound):
		httputil.WriteNotFoundError(w, "invitation not found")
	case errors.Is(err, team.ErrExpired):
		httputil.WriteGone(w, "invitation expired")
	case errors.Is(err, team.ErrAlreadyAccepted), errors.Is(err, team.ErrDeclined), errors.Is(err, team.ErrAlreadyMember):
		httputil.WriteConflict(w, err.Error())
	case err != nil:
		httputil.WriteInternalError(w, err)
	default:
		httputil.WriteSuccess(w, map[string]string{"status": string(team.StatusAccepted)})
	}
}

// declineInvitation handles POST /api/v1/invitations/{token}/decline
func (s *Server) declineInvitation(w http.ResponseWriter, r *http.Request) {
	token, ok := httputil.ParsePathStringOrError(w, r, "token")
	if !ok {
		return
	}

	err := s.team.Decline(token)
	if errors.Is(err, team.ErrNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"status": string(team.StatusDeclined)})
}

// listMembers handles GET /api/v1/team/members
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	members, err := s.team.ListMembers(actx.AccountID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// updateMemberRole handles PUT /api/v1/team/members/{user_id}/role
func (s *Server) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	targetID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}
	var req team.UpdateRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	target, err := s.team.GetMember(actx.AccountID, targetID)
	if errors.Is(err, team.ErrNotFound) {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	decision, err := s.gate.AuthorizeRoleChange(r.Context(), actx.UserID, target.Role, req.Role)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !decision.Allowed {
		httputil.WriteForbidden(w, decision.Reason)
		return
	}

	if err := s.team.UpdateRole(actx.AccountID, targetID, req.Role); err != nil {
		if errors.Is(err, team.ErrInvalidRole) {
			httputil.WriteValidationError(w, err.Error())
			return
		}
		if errors.Is(err, team.ErrNotFound) {
			httputil.WriteNotFoundError(w, "member not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	target.Role = req.Role
	httputil.WriteSuccess(w, target)
}

// removeMember handles DELETE /api/v1/team/members/{user_id}
func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	actx := middleware.GetAuthorizationContext(r)

	targetID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	target, err := s.team.GetMember(actx.AccountID, targetID)
	if errors.Is(err, team.ErrNotFound) {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	decision, err := s.gate.AuthorizeMemberAction(r.Context(), actx.UserID, target.Role, authz.PermissionRemoveTeamMembers)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !decision.Allowed {
		httputil.WriteForbidden(w, decision.Reason)
		return
	}

	if err := s.team.Remove(actx.AccountID, targetID); err != nil {
		if errors.Is(err, team.ErrNotFound) {
			httputil.WriteNotFoundError(w, "member not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
