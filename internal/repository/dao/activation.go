package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrActivationNotFound = errors.New("activation not found")

type Activation struct {
	ID        uint    `gorm:"primaryKey"`
	EventID   uint    `gorm:"not null;index"`
	Event     Event   `gorm:"foreignKey:EventID"`
	Name      string  `gorm:"not null"`
	Points    int     `gorm:"not null"`
	Status    string  `gorm:"not null"`
	Token     *string `gorm:"index"` // legacy long-lived QR identifier
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ActivationDAO struct {
	db *gorm.DB
}

func NewActivationDAO(db *gorm.DB) *ActivationDAO {
	return &ActivationDAO{
		db: db,
	}
}

func (d *ActivationDAO) Insert(ctx context.Context, activation Activation) (Activation, error) {
	result := d.db.WithContext(ctx).Omit("Event").Create(&activation)
	if result.Error != nil {
		return Activation{}, result.Error
	}

	return activation, nil
}

func (d *ActivationDAO) FindByID(ctx context.Context, id uint) (Activation, error) {
	return d.findOne(ctx, "id = ?", id)
}

func (d *ActivationDAO) FindByToken(ctx context.Context, token string) (Activation, error) {
	return d.findOne(ctx, "token = ?", token)
}

func (d *ActivationDAO) FindByEventID(ctx context.Context, eventID uint) ([]Activation, error) {
	var activations []Activation

	result := d.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id").Find(&activations)
	if result.Error != nil {
		return nil, result.Error
	}

	return activations, nil
}

// Update writes the given columns and returns the fresh row.
func (d *ActivationDAO) Update(ctx context.Context, id uint, fields map[string]any) (Activation, error) {
	result := d.db.WithContext(ctx).Model(&Activation{ID: id}).Updates(fields)
	if result.Error != nil {
		return Activation{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Activation{}, ErrActivationNotFound
	}

	return d.FindByID(ctx, id)
}

func (d *ActivationDAO) findOne(ctx context.Context, query string, arg any) (Activation, error) {
	var activation Activation

	result := d.db.WithContext(ctx).Where(query, arg).First(&activation)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Activation{}, ErrActivationNotFound
		}

		return Activation{}, result.Error
	}

	return activation, nil
}
