package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/repository/dao"
)

var ErrActivationNotFound = dao.ErrActivationNotFound

type ActivationDAO interface {
	Insert(ctx context.Context, activation dao.Activation) (dao.Activation, error)
	FindByID(ctx context.Context, id uint) (dao.Activation, error)
	FindByToken(ctx context.Context, token string) (dao.Activation, error)
	FindByEventID(ctx context.Context, eventID uint) ([]dao.Activation, error)
	Update(ctx context.Context, id uint, fields map[string]any) (dao.Activation, error)
}

// ActivationUpdate carries the mutable fields of an activation; nil means unchanged.
type ActivationUpdate struct {
	Name   *string
	Points *int
	Status *string
}

type ActivationRepository struct {
	dao ActivationDAO
}

func NewActivationRepository(dao ActivationDAO) *ActivationRepository {
	return &ActivationRepository{
		dao: dao,
	}
}

func (r *ActivationRepository) Create(ctx context.Context, activation domain.Activation) (domain.Activation, error) {
	created, err := r.dao.Insert(ctx, dao.Activation{
		EventID: activation.EventID,
		Name:    activation.Name,
		Points:  activation.Points,
		Status:  activation.Status,
		Token:   tokenPtr(activation.Token),
	})
	if err != nil {
		return domain.Activation{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *ActivationRepository) FindByID(ctx context.Context, id uint) (domain.Activation, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Activation{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *ActivationRepository) FindByToken(ctx context.Context, token string) (domain.Activation, error) {
	found, err := r.dao.FindByToken(ctx, token)
	if err != nil {
		return domain.Activation{}, fmt.Errorf("r.dao.FindByToken -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *ActivationRepository) FindByEventID(ctx context.Context, eventID uint) ([]domain.Activation, error) {
	found, err := r.dao.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByEventID -> %w", err)
	}

	activations := make([]domain.Activation, len(found))
	for i, a := range found {
		activations[i] = r.daoToDomain(a)
	}

	return activations, nil
}

func (r *ActivationRepository) Update(ctx context.Context, id uint, update ActivationUpdate) (domain.Activation, error) {
	fields := map[string]any{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Points != nil {
		fields["points"] = *update.Points
	}
	if update.Status != nil {
		fields["status"] = *update.Status
	}

	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}

	updated, err := r.dao.Update(ctx, id, fields)
	if err != nil {
		return domain.Activation{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *ActivationRepository) SetToken(ctx context.Context, id uint, token string) (domain.Activation, error) {
	updated, err := r.dao.Update(ctx, id, map[string]any{"token": token})
	if err != nil {
		return domain.Activation{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *ActivationRepository) daoToDomain(a dao.Activation) domain.Activation {
	activation := domain.Activation{
		ID:        a.ID,
		EventID:   a.EventID,
		Name:      a.Name,
		Points:    a.Points,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Token != nil {
		activation.Token = *a.Token
	}

	return activation
}

func tokenPtr(token string) *string {
	if token == "" {
		return nil
	}

	return &token
}
