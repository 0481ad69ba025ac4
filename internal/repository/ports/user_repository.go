package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/hellotrader/ops-api/internal/domain"
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpsertByEmail(ctx context.Context, email string, fullName *string) (*domain.User, error)
}
