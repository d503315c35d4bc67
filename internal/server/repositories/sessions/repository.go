// Package sessions declares the session store: every token ever issued is
// kept, and revocation only flips the deleted flag.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Repository defines operations for recording, finding and revoking sessions.
type Repository interface {
	// Create stores a new active session.
	Create(ctx context.Context, session *models.Session) error

	// FindActiveByToken returns the non-deleted session holding token, or
	// common.ErrorNotFound.
	FindActiveByToken(ctx context.Context, token string) (*models.Session, error)

	// ListActiveByUserID returns the user's non-deleted sessions, oldest first.
	ListActiveByUserID(ctx context.Context, userID string) ([]models.Session, error)

	// MarkDeleted revokes a session by id. Revoking an already deleted or
	// unknown session is not an error.
	MarkDeleted(ctx context.Context, id string) error
}
