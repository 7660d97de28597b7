package service

import (
	"context"
	"fmt"

	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/repository"
)

var ErrEventNotFound = repository.ErrEventNotFound

type EventRepository interface {
	Create(ctx context.Context, event domain.Event) (domain.Event, error)
	FindByID(ctx context.Context, id uint) (domain.Event, error)
	FindAll(ctx context.Context) ([]domain.Event, error)
}

type ActivationRepository interface {
	Create(ctx context.Context, activation domain.Activation) (domain.Activation, error)
	FindByID(ctx context.Context, id uint) (domain.Activation, error)
	FindByToken(ctx context.Context, token string) (domain.Activation, error)
	FindByEventID(ctx context.Context, eventID uint) ([]domain.Activation, error)
	Update(ctx context.Context, id uint, update repository.ActivationUpdate) (domain.Activation, error)
	SetToken(ctx context.Context, id uint, token string) (domain.Activation, error)
}

type EventService struct {
	events      EventRepository
	activations ActivationRepository
}

func NewEventService(events EventRepository, activations ActivationRepository) *EventService {
	return &EventService{
		events:      events,
		activations: activations,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, requester domain.User, event domain.Event) (domain.Event, error) {
	if !requester.IsAdmin {
		return domain.Event{}, ErrPermissionDenied
	}
	if event.Status == "" {
		event.Status = domain.EventStatusScheduled
	}

	created, err := s.events.Create(ctx, event)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.events.Create -> %w", err)
	}

	return created, nil
}

func (s *EventService) GetEvents(ctx context.Context) ([]domain.Event, error) {
	events, err := s.events.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("s.events.FindAll -> %w", err)
	}

	return events, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uint) (domain.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return domain.Event{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}

	return event, nil
}

// CanManageEvent reports whether user is an admin or the event's responsible.
func (s *EventService) CanManageEvent(ctx context.Context, user domain.User, eventID uint) (bool, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return false, err
	}

	return canManage(user, event), nil
}

func (s *EventService) CreateActivation(ctx context.Context, requester domain.User, activation domain.Activation) (domain.Activation, error) {
	if err := s.authorize(ctx, requester, activation.EventID); err != nil {
		return domain.Activation{}, err
	}
	if activation.Status == "" {
		activation.Status = domain.ActivationStatusActive
	}

	created, err := s.activations.Create(ctx, activation)
	if err != nil {
		return domain.Activation{}, fmt.Errorf("s.activations.Create -> %w", err)
	}

	return created, nil
}

func (s *EventService) GetActivations(ctx context.Context, eventID uint) ([]domain.Activation, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	activations, err := s.activations.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("s.activations.FindByEventID -> %w", err)
	}

	return activations, nil
}

func (s *EventService) UpdateActivation(ctx context.Context, requester domain.User, id uint, update repository.ActivationUpdate) (domain.Activation, error) {
	activation, err := s.activations.FindByID(ctx, id)
	if err != nil {
		return domain.Activation{}, fmt.Errorf("s.activations.FindByID -> %w", err)
	}

	if err = s.authorize(ctx, requester, activation.EventID); err != nil {
		return domain.Activation{}, err
	}

	updated, err := s.activations.Update(ctx, id, update)
	if err != nil {
		return domain.Activation{}, fmt.Errorf("s.activations.Update -> %w", err)
	}

	return updated, nil
}

func (s *EventService) authorize(ctx context.Context, requester domain.User, eventID uint) error {
	ok, err := s.CanManageEvent(ctx, requester, eventID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}

	return nil
}

func canManage(user domain.User, event domain.Event) bool {
	return user.IsAdmin || event.IsResponsible(user.ID)
}

