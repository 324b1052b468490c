package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/mindchat/internal/domain"
)

type UserService struct {
	store UserStore
	now   func() time.Time
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store, now: time.Now}
}

// CreateGuest provisions a new guest account.
func (s *UserService) CreateGuest(ctx context.Context) (*domain.User, error) {
	email := fmt.Sprintf("guest-%d@guest.local", s.now().UnixMilli())

	user, err := s.store.CreateUser(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("create guest user: %w", err)
	}

	slog.Info("guest user created", "user_id", user.ID)
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
