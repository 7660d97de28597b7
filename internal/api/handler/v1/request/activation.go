package request

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/qrcode"
	"github.com/vietanh2810/checkin-api/internal/repository"
)

var errEmptyUpdate = errors.New("nothing to update")

type CreateActivationRequest struct {
	Name   string `json:"name"`
	Points *int   `json:"points"`
	Status string `json:"status"`
}

func (req *CreateActivationRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Points, validation.Min(0)),
		validation.Field(&req.Status, validation.In(domain.ActivationStatusActive, domain.ActivationStatusInactive)),
	)
}

func (req *CreateActivationRequest) ToDomain(eventID uint) domain.Activation {
	points := domain.DefaultActivationPoints
	if req.Points != nil {
		points = *req.Points
	}

	return domain.Activation{
		EventID: eventID,
		Name:    req.Name,
		Points:  points,
		Status:  req.Status,
	}
}

type UpdateActivationRequest struct {
	Name   *string `json:"name"`
	Points *int    `json:"points"`
	Status *string `json:"status"`
}

func (req *UpdateActivationRequest) Validate() error {
	if req.Name == nil && req.Points == nil && req.Status == nil {
		return errEmptyUpdate
	}

	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&req.Points, validation.Min(0)),
		validation.Field(&req.Status, validation.NilOrNotEmpty,
			validation.In(domain.ActivationStatusActive, domain.ActivationStatusInactive)),
	)
}

func (req *UpdateActivationRequest) ToUpdate() repository.ActivationUpdate {
	return repository.ActivationUpdate{
		Name:   req.Name,
		Points: req.Points,
		Status: req.Status,
	}
}

type MintRequest struct {
	Format string `json:"format" example:"data_url"`
}

func (req *MintRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Format, validation.In(string(qrcode.FormatSVG), string(qrcode.FormatDataURL))),
	)
}

// ImageFormat defaults to a PNG data URL.
func (req *MintRequest) ImageFormat() qrcode.Format {
	if req.Format == "" {
		return qrcode.FormatDataURL
	}
	return qrcode.Format(req.Format)
}
