// Package groups reads group membership and the permissions each group grants.
package groups

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type Repository interface {
	// ListByUserID returns the groups the user belongs to, each with its
	// permissions. A user without groups yields an empty slice.
	ListByUserID(ctx context.Context, userID string) ([]models.Group, error)
}
