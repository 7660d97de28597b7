package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrCheckInExists   = errors.New("check-in already exists")
	ErrCheckInNotFound = errors.New("check-in not found")
)

// CheckIn rows are unique per (user, activation); the index is what guards
// against two concurrent submissions both passing the existence check.
type CheckIn struct {
	ID            uint       `gorm:"primaryKey"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_check_ins_user_activation"`
	User          User       `gorm:"foreignKey:UserID"`
	ActivationID  uint       `gorm:"not null;uniqueIndex:idx_check_ins_user_activation"`
	Activation    Activation `gorm:"foreignKey:ActivationID"`
	PointsGranted int        `gorm:"not null"`
	Location      string
	CreatedAt     time.Time `gorm:"not null"`
}

type CheckInDAO struct {
	db *gorm.DB
}

func NewCheckInDAO(db *gorm.DB) *CheckInDAO {
	return &CheckInDAO{
		db: db,
	}
}

func (d *CheckInDAO) Insert(ctx context.Context, checkIn CheckIn) (CheckIn, error) {
	result := d.db.WithContext(ctx).Omit("User", "Activation").Create(&checkIn)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return CheckIn{}, ErrCheckInExists
		}

		return CheckIn{}, result.Error
	}

	return checkIn, nil
}

func (d *CheckInDAO) FindByUserAndActivation(ctx context.Context, userID, activationID uint) (CheckIn, error) {
	var checkIn CheckIn

	result := d.db.WithContext(ctx).
		Where("user_id = ? AND activation_id = ?", userID, activationID).
		First(&checkIn)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return CheckIn{}, ErrCheckInNotFound
		}

		return CheckIn{}, result.Error
	}

	return checkIn, nil
}

// FindByUserID lists the check-ins of a user, newest first, with their activation loaded.
func (d *CheckInDAO) FindByUserID(ctx context.Context, userID uint) ([]CheckIn, error) {
	var checkIns []CheckIn

	result := d.db.WithContext(ctx).
		Preload("Activation").
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&checkIns)
	if result.Error != nil {
		return nil, result.Error
	}

	return checkIns, nil
}
