package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NeighborShare/service-booking/internal/apperr"
	userDomain "github.com/NeighborShare/service-booking/internal/domain/user"
)

// CreateUserRequest holds the data needed to register a new user.
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// UpdateUserRequest is an explicit optional-field update for a user.
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// UserDTO is the response representation of a user.
type UserDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserService manages the user directory consumed by the booking core.
type UserService struct {
	users  userDomain.Repository
	logger *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users userDomain.Repository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// CreateUser registers a new user; emails must be unique.
func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserDTO, error) {
	u, err := userDomain.NewUser(req.Name, req.Email)
	if err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByEmail(ctx, u.Email(), nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.NewConflictError("a user with this email already exists")
	}

	if err := s.users.Save(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("user_id", u.ID().String()))

	dto := toUserDTO(u)
	return &dto, nil
}

// GetUser retrieves a single user by ID.
func (s *UserService) GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toUserDTO(u)
	return &dto, nil
}

// ListUsers returns all registered users.
func (s *UserService) ListUsers(ctx context.Context) ([]UserDTO, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	return dtos, nil
}

// UpdateUser applies a partial update to a user, guarding email uniqueness.
func (s *UserService) UpdateUser(ctx context.Context, userID uuid.UUID, req UpdateUserRequest) (*UserDTO, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != "" && *req.Email != u.Email() {
		id := u.ID()
		taken, err := s.users.ExistsByEmail(ctx, *req.Email, &id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.NewConflictError("a user with this email already exists")
		}
	}

	if err := u.Update(req.Name, req.Email); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}

	dto := toUserDTO(u)
	return &dto, nil
}

// DeleteUser removes a user by ID.
func (s *UserService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.users.Delete(ctx, userID)
}

func toUserDTO(u *userDomain.User) UserDTO {
	return UserDTO{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email(),
		CreatedAt: u.CreatedAt(),
	}
}
