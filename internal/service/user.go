package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/repository"
)

var (
	ErrUserNotFound     = repository.ErrUserNotFound
	ErrPermissionDenied = errors.New("permission denied")
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	UpdatePoints(ctx context.Context, id uint, points int) (domain.User, error)
	TotalPoints(ctx context.Context, id uint) (int, error)
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

// GetProfile returns the user with TotalPoints filled in.
func (s *UserService) GetProfile(ctx context.Context, id uint) (domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	user.TotalPoints, err = s.repo.TotalPoints(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.TotalPoints -> %w", err)
	}

	return user, nil
}

// SetPoints overwrites the manually assigned points of a user. Admins only.
func (s *UserService) SetPoints(ctx context.Context, requester domain.User, userID uint, points int) (domain.User, error) {
	if !requester.IsAdmin {
		return domain.User{}, ErrPermissionDenied
	}

	if _, err := s.repo.UpdatePoints(ctx, userID, points); err != nil {
		return domain.User{}, fmt.Errorf("s.repo.UpdatePoints -> %w", err)
	}

	return s.GetProfile(ctx, userID)
}
