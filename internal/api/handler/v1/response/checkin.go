package response

import "github.com/vietanh2810/checkin-api/internal/domain"

// Check-in failure codes. Clients switch on these, not on the message.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidToken       = "invalid_token"
	CodeActivationNotFound = "activation_not_found"
	CodeActivationInactive = "activation_inactive"
	CodeDuplicateCheckin   = "duplicate_checkin"
	CodePermissionDenied   = "permission_denied"
	CodeStorageFailure     = "storage_failure"
)

// CheckinFailure is the body of every failed check-in, preview or mint.
type CheckinFailure struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PreviewResponse struct {
	Success          bool                     `json:"success"`
	Activation       domain.ActivationSummary `json:"activation"`
	AlreadyCheckedIn bool                     `json:"already_checked_in"`
}

type QRCodeResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TokenID       string `json:"token_id"`
	QRCodeDataURL string `json:"qr_code_data_url"`
	QRCodeURL     string `json:"qr_code_url"`
}
