package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

var (
	ErrEmailExists = fmt.Errorf("email: %w", common.ErrorAlreadyExists)
	ErrLoginExists = fmt.Errorf("login: %w", common.ErrorAlreadyExists)
)

// Repository is the user directory. Lookups return common.ErrorNotFound when
// no row matches; email and login arguments are expected in lowercase.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByLoginOrEmail(ctx context.Context, loginOrEmail string) (*models.User, error)
	// LockByID takes a row lock on the user for the rest of the transaction.
	LockByID(ctx context.Context, id string) error
	Update(ctx context.Context, user *models.User) error
}
