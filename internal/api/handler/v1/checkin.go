package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vietanh2810/checkin-api/internal/api/handler/v1/request"
	"github.com/vietanh2810/checkin-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/checkin-api/internal/api/middleware"
	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/qrcode"
	"github.com/vietanh2810/checkin-api/internal/service"
)

type CheckinService interface {
	Submit(ctx context.Context, raw string, userID uint, location string) (domain.CheckinResult, error)
	Preview(ctx context.Context, raw string, userID uint) (domain.ActivationPreview, error)
	Mint(ctx context.Context, requester domain.User, activationID uint, format qrcode.Format) (domain.QRCode, error)
	History(ctx context.Context, userID uint) ([]domain.HistoryEntry, error)
}

type CheckinHandler struct {
	svc  CheckinService
	uSvc UserService
}

func NewCheckinHandler(svc CheckinService, uSvc UserService) *CheckinHandler {
	return &CheckinHandler{
		svc:  svc,
		uSvc: uSvc,
	}
}

// checkinFailures maps service errors to their HTTP status and stable code.
var checkinFailures = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrUnauthenticated, http.StatusUnauthorized, response.CodeUnauthenticated},
	{service.ErrInvalidToken, http.StatusBadRequest, response.CodeInvalidToken},
	{service.ErrActivationNotFound, http.StatusNotFound, response.CodeActivationNotFound},
	{service.ErrEventNotFound, http.StatusNotFound, response.CodeActivationNotFound},
	{service.ErrActivationInactive, http.StatusUnprocessableEntity, response.CodeActivationInactive},
	{service.ErrDuplicateCheckin, http.StatusConflict, response.CodeDuplicateCheckin},
	{service.ErrPermissionDenied, http.StatusForbidden, response.CodePermissionDenied},
}

// renderCheckinErr always answers with the {success:false, code, message} shape.
func renderCheckinErr(ctx *gin.Context, err error) {
	for _, f := range checkinFailures {
		if errors.Is(err, f.err) {
			ctx.AbortWithStatusJSON(f.status, response.CheckinFailure{
				Code:    f.code,
				Message: f.err.Error(),
			})
			return
		}
	}

	if !errors.Is(err, service.ErrStorageFailure) {
		zap.L().Error("check-in request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.AbortWithStatusJSON(http.StatusInternalServerError, response.CheckinFailure{
		Code:    response.CodeStorageFailure,
		Message: service.ErrStorageFailure.Error(),
	})
}

// HandleSubmitCheckin godoc
// @Summary      Redeem a scanned QR code
// @Description  Grants the activation's points once per user. Every failure has the shape {success:false, code, message}.
// @Tags         checkins
// @Produce      json
// @Param        request  body      request.SubmitCheckinRequest  true "request body"
// @Success      201      {object}  domain.CheckinResult
// @Failure      400      {object}  response.CheckinFailure
// @Failure      401      {object}  response.CheckinFailure
// @Failure      404      {object}  response.CheckinFailure
// @Failure      409      {object}  response.CheckinFailure
// @Failure      422      {object}  response.CheckinFailure
// @Failure      500      {object}  response.CheckinFailure
// @Router       /checkins [post]
// @Security BearerAuth
func (h *CheckinHandler) HandleSubmitCheckin(ctx *gin.Context) {
	var req request.SubmitCheckinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		renderCheckinErr(ctx, service.ErrInvalidToken)
		return
	}
	if err := req.Validate(); err != nil {
		renderCheckinErr(ctx, service.ErrInvalidToken)
		return
	}

	result, err := h.svc.Submit(ctx.Request.Context(), req.Payload, middleware.UserID(ctx), req.Location)
	if err != nil {
		renderCheckinErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, result)
}

// HandlePreviewCheckin godoc
// @Summary      Preview the activation behind a scanned QR code
// @Description  Read only. already_checked_in is only computed for authenticated callers.
// @Tags         checkins
// @Produce      json
// @Param        request  body      request.PreviewCheckinRequest  true "request body"
// @Success      200      {object}  response.PreviewResponse
// @Failure      400      {object}  response.CheckinFailure
// @Failure      404      {object}  response.CheckinFailure
// @Failure      422      {object}  response.CheckinFailure
// @Failure      500      {object}  response.CheckinFailure
// @Router       /checkins/preview [post]
func (h *CheckinHandler) HandlePreviewCheckin(ctx *gin.Context) {
	var req request.PreviewCheckinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		renderCheckinErr(ctx, service.ErrInvalidToken)
		return
	}
	if err := req.Validate(); err != nil {
		renderCheckinErr(ctx, service.ErrInvalidToken)
		return
	}

	preview, err := h.svc.Preview(ctx.Request.Context(), req.Payload, middleware.UserID(ctx))
	if err != nil {
		renderCheckinErr(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.PreviewResponse{
		Success:          true,
		Activation:       preview.Activation,
		AlreadyCheckedIn: preview.AlreadyCheckedIn,
	})
}

// HandleGetHistory godoc
// @Summary      List my check-ins
// @Tags         checkins
// @Produce      json
// @Success      200  {array}   domain.HistoryEntry
// @Failure      401  {object}  response.CheckinFailure
// @Failure      500  {object}  response.CheckinFailure
// @Router       /checkins/me [get]
// @Security BearerAuth
func (h *CheckinHandler) HandleGetHistory(ctx *gin.Context) {
	history, err := h.svc.History(ctx.Request.Context(), middleware.UserID(ctx))
	if err != nil {
		renderCheckinErr(ctx, fmt.Errorf("v1.HandleGetHistory -> h.svc.History -> %w", err))
		return
	}

	ctx.JSON(http.StatusOK, history)
}

// HandleMintQRCode godoc
// @Summary      Mint a QR code for an activation
// @Description  Issues a short-lived token and renders it. Admins and the event responsible only.
// @Tags         activations
// @Produce      json
// @Param        activationID  path      int                  true "Activation ID"
// @Param        request       body      request.MintRequest  false "request body"
// @Success      200           {object}  response.QRCodeResponse
// @Failure      400           {object}  response.CheckinFailure
// @Failure      401           {object}  response.CheckinFailure
// @Failure      403           {object}  response.CheckinFailure
// @Failure      404           {object}  response.CheckinFailure
// @Failure      500           {object}  response.CheckinFailure
// @Router       /activations/{activationID}/qrcode [post]
// @Security BearerAuth
func (h *CheckinHandler) HandleMintQRCode(ctx *gin.Context) {
	var req request.MintRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RenderErr(ctx, response.ErrBadRequest(err))
			return
		}
	}
	if err := req.Validate(); err != nil {
		response.RenderErr(ctx, response.ErrBadRequest(err))
		return
	}

	qr, ok := h.mint(ctx, req.ImageFormat())
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, response.QRCodeResponse{
		Success:       true,
		Message:       "QR code generated",
		TokenID:       qr.TokenID,
		QRCodeDataURL: qr.Image,
		QRCodeURL:     qr.URL,
	})
}

// HandleMintQRCodeSVG godoc
// @Summary      Mint a QR code as an SVG image
// @Tags         activations
// @Produce      image/svg+xml
// @Param        activationID  path  int  true "Activation ID"
// @Success      200  {string}  string
// @Failure      401  {object}  response.CheckinFailure
// @Failure      403  {object}  response.CheckinFailure
// @Failure      404  {object}  response.CheckinFailure
// @Router       /activations/{activationID}/qrcode.svg [get]
// @Security BearerAuth
func (h *CheckinHandler) HandleMintQRCodeSVG(ctx *gin.Context) {
	qr, ok := h.mint(ctx, qrcode.FormatSVG)
	if !ok {
		return
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.Data(http.StatusOK, qr.MimeType, []byte(qr.Image))
}

func (h *CheckinHandler) mint(ctx *gin.Context, format qrcode.Format) (domain.QRCode, bool) {
	activationID, respErr := parseIDParam(ctx, "activationID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return domain.QRCode{}, false
	}

	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		if respErr.HTTPStatusCode == http.StatusUnauthorized {
			renderCheckinErr(ctx, service.ErrUnauthenticated)
		} else {
			response.RenderErr(ctx, respErr)
		}
		return domain.QRCode{}, false
	}

	qr, err := h.svc.Mint(ctx.Request.Context(), user, activationID, format)
	if err != nil {
		renderCheckinErr(ctx, fmt.Errorf("v1.HandleMintQRCode -> h.svc.Mint -> %w", err))
		return domain.QRCode{}, false
	}

	return qr, true
}
