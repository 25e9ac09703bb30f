package repository

import (
	"context"
	"errors"

	"user-management-api/internal/domain/entity"
)

// Store-level signals. The repository reports absence and write conflicts
// through these sentinels and never classifies anything beyond that;
// business meaning is assigned by the service layer.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserRepository defines the persistence operations for user records.
// Each method maps 1:1 onto a data-store primitive.
type UserRepository interface {
	List(ctx context.Context) ([]*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}
