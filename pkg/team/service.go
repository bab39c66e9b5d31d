package team

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/taskfolio/taskfolio/pkg/authz"
)

// InvitationTTL is how long an invitation stays acceptable.
const InvitationTTL = 7 * 24 * time.Hour

// PostgresService implements Service backed by PostgreSQL.
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new team service.
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

const membershipColumns = `id, member_user_id, email, role, status, invited_by, token, invited_at, expires_at, joined_at`

// Invite creates a PENDING membership for the given email. Re-inviting the
// same email refreshes the token and expiry instead of erroring.
func (s *PostgresService) Invite(invitation *Membership) error {
	if !GrantableRole(invitation.Role) {
		return ErrInvalidRole
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	invitation.Token = token
	invitation.Status = StatusPending

	if invitation.InvitedAt.IsZero() {
		invitation.InvitedAt = time.Now()
	}
	if invitation.ExpiresAt.IsZero() {
		invitation.ExpiresAt = invitation.InvitedAt.Add(InvitationTTL)
	}

	query := `
		INSERT INTO team_memberships (email, role, status, invited_by, token, invited_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (invited_by, email) WHERE status = 'pending' DO UPDATE
		SET role = EXCLUDED.role, token = EXCLUDED.token,
		    invited_at = EXCLUDED.invited_at, expires_at = EXCLUDED.expires_at
		RETURNING id
	`
	err = s.db.QueryRow(query, invitation.Email, invitation.Role, invitation.Status,
		invitation.InvitedBy, invitation.Token, invitation.InvitedAt, invitation.ExpiresAt).
		Scan(&invitation.ID)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetByToken retrieves a membership by its invitation token.
func (s *PostgresService) GetByToken(token string) (*Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM team_memberships WHERE token = $1`
	m, err := scanMembership(s.db.QueryRow(query, token))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return m, nil
}

// Accept transitions a PENDING invitation to ACCEPTED and binds it to the
// registering user. A user holds at most one accepted membership; accepting
// a second one fails with ErrAlreadyMember.
func (s *PostgresService) Accept(token string, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var status Status
	var expiresAt time.Time
	query := `SELECT id, status, expires_at FROM team_memberships WHERE token = $1 FOR UPDATE`
	err = tx.QueryRow(query, token).Scan(&id, &status, &expiresAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get invitation: %w", err)
	}

	switch status {
	case StatusAccepted:
		return ErrAlreadyAccepted
	case StatusDeclined:
		return ErrDeclined
	}
	if time.Now().After(expiresAt) {
		return ErrExpired
	}

	// Single-tenancy: the invitee must not already belong to an account.
	var existing int64
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM team_memberships WHERE member_user_id = $1 AND status = 'accepted'`,
		userID,
	).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check existing membership: %w", err)
	}
	if existing > 0 {
		return ErrAlreadyMember
	}

	_, err = tx.Exec(
		`UPDATE team_memberships SET status = 'accepted', member_user_id = $1, joined_at = NOW() WHERE id = $2`,
		userID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}

	return tx.Commit()
}

// Decline marks a PENDING invitation as declined. Declined is terminal.
func (s *PostgresService) Decline(token string) error {
	result, err := s.db.Exec(
		`UPDATE team_memberships SET status = 'declined' WHERE token = $1 AND status = 'pending'`,
		token,
	)
	if err != nil {
		return fmt.Errorf("failed to decline invitation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListInvitations lists the still-pending invitations for an account.
func (s *PostgresService) ListInvitations(accountID int64) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM team_memberships
		WHERE invited_by = $1 AND status = 'pending'
		ORDER BY invited_at DESC
	`
	return s.queryMemberships(query, accountID)
}

// ListMembers lists the accepted members of an account.
func (s *PostgresService) ListMembers(accountID int64) ([]*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM team_memberships
		WHERE invited_by = $1 AND status = 'accepted'
		ORDER BY joined_at ASC
	`
	return s.queryMemberships(query, accountID)
}

// GetMember retrieves an accepted member of an account by user id.
func (s *PostgresService) GetMember(accountID, userID int64) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM team_memberships
		WHERE invited_by = $1 AND member_user_id = $2 AND status = 'accepted'
	`
	m, err := scanMembership(s.db.QueryRow(query, accountID, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// UpdateRole changes an accepted member's role. The authorization gate
// decides beforehand whether the change is permitted; this write carries no
// policy of its own beyond rejecting ungrantable roles.
func (s *PostgresService) UpdateRole(accountID, userID int64, role authz.Role) error {
	if !GrantableRole(role) {
		return ErrInvalidRole
	}

	result, err := s.db.Exec(
		`UPDATE team_memberships SET role = $1 WHERE invited_by = $2 AND member_user_id = $3 AND status = 'accepted'`,
		role, accountID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Remove deletes a member's membership record, detaching them from the
// account.
func (s *PostgresService) Remove(accountID, userID int64) error {
	result, err := s.db.Exec(
		`DELETE FROM team_memberships WHERE invited_by = $1 AND member_user_id = $2 AND status = 'accepted'`,
		accountID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetAcceptedByUser returns the user's accepted membership, or nil when the
// user is not anyone's member.
func (s *PostgresService) GetAcceptedByUser(userID int64) (*Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM team_memberships
		WHERE member_user_id = $1 AND status = 'accepted'
	`
	m, err := scanMembership(s.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// AcceptedMembership implements the membership half of authz.FactSource.
func (s *PostgresService) AcceptedMembership(ctx context.Context, userID int64) (*authz.MembershipFacts, error) {
	var role authz.Role
	var invitedBy int64
	err := s.db.QueryRowContext(ctx,
		`SELECT role, invited_by FROM team_memberships WHERE member_user_id = $1 AND status = 'accepted'`,
		userID,
	).Scan(&role, &invitedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership facts: %w", err)
	}
	return &authz.MembershipFacts{Role: role, InvitedBy: invitedBy}, nil
}

// CleanupExpiredInvitations removes invitations that expired without being
// accepted or declined. Returns the number of rows removed.
func (s *PostgresService) CleanupExpiredInvitations() (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM team_memberships WHERE status = 'pending' AND expires_at < NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired invitations: %w", err)
	}
	return result.RowsAffected()
}

func (s *PostgresService) queryMemberships(query string, args ...interface{}) ([]*Membership, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMembership(scanner rowScanner) (*Membership, error) {
	m := &Membership{}
	var memberUserID sql.NullInt64
	var joinedAt sql.NullTime

	err := scanner.Scan(
		&m.ID, &memberUserID, &m.Email, &m.Role, &m.Status,
		&m.InvitedBy, &m.Token, &m.InvitedAt, &m.ExpiresAt, &joinedAt,
	)
	if err != nil {
		return nil, err
	}

	if memberUserID.Valid {
		m.MemberUserID = &memberUserID.Int64
	}
	if joinedAt.Valid {
		m.JoinedAt = &joinedAt.Time
	}

	return m, nil
}

// generateToken creates a random invitation token (32 bytes, hex encoded).
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
