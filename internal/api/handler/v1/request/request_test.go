package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/qrcode"
)

func TestSignupRequest_Validate(t *testing.T) {
	valid := SignupRequest{Name: "Ana", Email: "ana@example.com", Password: "abcd1234", ConfirmPassword: "abcd1234"}
	assert.NoError(t, valid.Validate())

	tests := map[string]func(r *SignupRequest){
		"bad email":        func(r *SignupRequest) { r.Email = "ana" },
		"no digit":         func(r *SignupRequest) { r.Password, r.ConfirmPassword = "abcdefgh", "abcdefgh" },
		"no letter":        func(r *SignupRequest) { r.Password, r.ConfirmPassword = "12345678", "12345678" },
		"too short":        func(r *SignupRequest) { r.Password, r.ConfirmPassword = "ab12", "ab12" },
		"confirm mismatch": func(r *SignupRequest) { r.ConfirmPassword = "abcd12345" },
		"missing name":     func(r *SignupRequest) { r.Name = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			assert.Error(t, req.Validate())
		})
	}
}

func TestCreateEventRequest(t *testing.T) {
	req := CreateEventRequest{Name: "Fair", Date: "2024-06-01", Hours: "14:30"}
	require.NoError(t, req.Validate())

	event := req.ToDomain()
	assert.Equal(t, 2024, event.Date.Year())
	assert.Equal(t, "14:30", event.Hours)

	req.Hours = "25:00"
	assert.Error(t, req.Validate())

	req = CreateEventRequest{Name: "Fair", Date: "01/06/2024"}
	assert.Error(t, req.Validate())

	req = CreateEventRequest{Name: "Fair", Date: "2024-06-01", Status: "postponed"}
	assert.Error(t, req.Validate())
}

func TestCreateActivationRequest(t *testing.T) {
	req := CreateActivationRequest{Name: "Stand"}
	require.NoError(t, req.Validate())
	assert.Equal(t, domain.DefaultActivationPoints, req.ToDomain(3).Points)

	zero := 0
	req.Points = &zero
	require.NoError(t, req.Validate())
	assert.Equal(t, 0, req.ToDomain(3).Points)

	negative := -1
	req.Points = &negative
	assert.Error(t, req.Validate())

	req = CreateActivationRequest{Name: "Stand", Status: "paused"}
	assert.Error(t, req.Validate())
}

func TestUpdateActivationRequest(t *testing.T) {
	empty := UpdateActivationRequest{}
	assert.ErrorIs(t, empty.Validate(), errEmptyUpdate)

	status := domain.ActivationStatusInactive
	req := UpdateActivationRequest{Status: &status}
	require.NoError(t, req.Validate())
	assert.Equal(t, &status, req.ToUpdate().Status)

	bad := "paused"
	req = UpdateActivationRequest{Status: &bad}
	assert.Error(t, req.Validate())
}

func TestMintRequest(t *testing.T) {
	req := MintRequest{}
	require.NoError(t, req.Validate())
	assert.Equal(t, qrcode.FormatDataURL, req.ImageFormat())

	req.Format = "svg"
	require.NoError(t, req.Validate())
	assert.Equal(t, qrcode.FormatSVG, req.ImageFormat())

	req.Format = "gif"
	assert.Error(t, req.Validate())
}

func TestSetPointsRequest(t *testing.T) {
	req := SetPointsRequest{}
	assert.Error(t, req.Validate())

	points := 5
	req.Points = &points
	assert.NoError(t, req.Validate())
}
