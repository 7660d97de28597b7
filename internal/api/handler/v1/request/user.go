package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type SetPointsRequest struct {
	Points *int `json:"points"`
}

func (req *SetPointsRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Points, validation.NotNil, validation.Min(0)),
	)
}
