package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// SubmitCheckinRequest carries the raw scanned QR content: a URL or a legacy JSON string.
type SubmitCheckinRequest struct {
	Payload  string `json:"payload"`
	Location string `json:"location"`
}

func (req *SubmitCheckinRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Payload, validation.Required, validation.Length(1, 4096)),
		validation.Field(&req.Location, validation.Length(0, 200)),
	)
}

type PreviewCheckinRequest struct {
	Payload string `json:"payload"`
}

func (req *PreviewCheckinRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Payload, validation.Required, validation.Length(1, 4096)),
	)
}
