package repository

import (
	"context"
	"fmt"

	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/repository/dao"
)

var (
	ErrCheckInExists   = dao.ErrCheckInExists
	ErrCheckInNotFound = dao.ErrCheckInNotFound
)

type CheckInDAO interface {
	Insert(ctx context.Context, checkIn dao.CheckIn) (dao.CheckIn, error)
	FindByUserAndActivation(ctx context.Context, userID, activationID uint) (dao.CheckIn, error)
	FindByUserID(ctx context.Context, userID uint) ([]dao.CheckIn, error)
}

type CheckInRepository struct {
	dao CheckInDAO
}

func NewCheckInRepository(dao CheckInDAO) *CheckInRepository {
	return &CheckInRepository{
		dao: dao,
	}
}

func (r *CheckInRepository) Create(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error) {
	created, err := r.dao.Insert(ctx, dao.CheckIn{
		UserID:        checkIn.UserID,
		ActivationID:  checkIn.ActivationID,
		PointsGranted: checkIn.PointsGranted,
		Location:      checkIn.Location,
	})
	if err != nil {
		return domain.CheckIn{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *CheckInRepository) FindByUserAndActivation(ctx context.Context, userID, activationID uint) (domain.CheckIn, error) {
	found, err := r.dao.FindByUserAndActivation(ctx, userID, activationID)
	if err != nil {
		return domain.CheckIn{}, fmt.Errorf("r.dao.FindByUserAndActivation -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *CheckInRepository) FindByUserID(ctx context.Context, userID uint) ([]domain.HistoryEntry, error) {
	found, err := r.dao.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByUserID -> %w", err)
	}

	history := make([]domain.HistoryEntry, len(found))
	for i, c := range found {
		history[i] = domain.HistoryEntry{
			CheckIn: r.daoToDomain(c),
			Activation: domain.ActivationSummary{
				ID:      c.Activation.ID,
				Name:    c.Activation.Name,
				Points:  c.Activation.Points,
				EventID: c.Activation.EventID,
			},
		}
	}

	return history, nil
}

func (r *CheckInRepository) daoToDomain(c dao.CheckIn) domain.CheckIn {
	return domain.CheckIn{
		ID:            c.ID,
		UserID:        c.UserID,
		ActivationID:  c.ActivationID,
		PointsGranted: c.PointsGranted,
		Location:      c.Location,
		CreatedAt:     c.CreatedAt,
	}
}
