package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vietanh2810/checkin-api/internal/clock"
	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/metrics"
	"github.com/vietanh2810/checkin-api/internal/qrcode"
	"github.com/vietanh2810/checkin-api/internal/repository"
)

// Check-in failures. The message of each error is safe to show to the scanner.
var (
	ErrUnauthenticated    = errors.New("user not authenticated")
	ErrInvalidToken       = errors.New("invalid or expired QR code, ask the promoter for a new one")
	ErrActivationNotFound = repository.ErrActivationNotFound
	ErrActivationInactive = errors.New("this activation is no longer available")
	ErrDuplicateCheckin   = errors.New("you have already checked in to this activation")
	ErrStorageFailure     = errors.New("internal server error")
)

const checkinEventType = "checkin"

type CheckInRepository interface {
	Create(ctx context.Context, checkIn domain.CheckIn) (domain.CheckIn, error)
	FindByUserAndActivation(ctx context.Context, userID, activationID uint) (domain.CheckIn, error)
	FindByUserID(ctx context.Context, userID uint) ([]domain.HistoryEntry, error)
}

type PointsRepository interface {
	TotalPoints(ctx context.Context, id uint) (int, error)
}

type TokenStore interface {
	Issue(ctx context.Context, activationID uint) (string, error)
	Invalidate(ctx context.Context, tokenID string) error
}

type TokenCodec interface {
	Encode(t qrcode.Ticket) string
	Decode(ctx context.Context, raw string) (qrcode.Payload, error)
}

type ImageRenderer interface {
	Render(encoded string, format qrcode.Format) (qrcode.Image, error)
}

type CheckinPublisher interface {
	Publish(event domain.CheckinEvent)
}

type CheckinDeps struct {
	Activations ActivationRepository
	Events      EventRepository
	CheckIns    CheckInRepository
	Users       PointsRepository
	Store       TokenStore
	Codec       TokenCodec
	Renderer    ImageRenderer
	Feed        CheckinPublisher
	Metrics     *metrics.Metrics
	Clock       clock.Clock

	// SingleUse invalidates a token after its first successful check-in.
	// Otherwise a displayed code serves every attendee until it expires.
	SingleUse bool
}

// CheckinService validates scanned QR codes and commits check-ins.
type CheckinService struct {
	activations ActivationRepository
	events      EventRepository
	checkIns    CheckInRepository
	users       PointsRepository
	store       TokenStore
	codec       TokenCodec
	renderer    ImageRenderer
	feed        CheckinPublisher
	metrics     *metrics.Metrics
	clock       clock.Clock
	singleUse   bool
}

func NewCheckinService(deps CheckinDeps) *CheckinService {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}

	return &CheckinService{
		activations: deps.Activations,
		events:      deps.Events,
		checkIns:    deps.CheckIns,
		users:       deps.Users,
		store:       deps.Store,
		codec:       deps.Codec,
		renderer:    deps.Renderer,
		feed:        deps.Feed,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		singleUse:   deps.SingleUse,
	}
}

// Submit redeems a scanned payload for userID. Nothing is written unless
// every check passes; the storage unique index has the final word on duplicates.
func (s *CheckinService) Submit(ctx context.Context, raw string, userID uint, location string) (domain.CheckinResult, error) {
	if userID == 0 {
		s.metrics.ObserveCheckin(metrics.OutcomeUnauthenticated, "", 0)
		return domain.CheckinResult{}, ErrUnauthenticated
	}

	payload, activation, err := s.resolve(ctx, raw)
	if err != nil {
		s.observeFailure(err, payload.Form)
		return domain.CheckinResult{}, s.storageFailure(err, userID, activation.ID)
	}
	form := payload.Form.String()

	if !activation.IsActive() {
		s.metrics.ObserveCheckin(metrics.OutcomeActivationInactive, form, 0)
		return domain.CheckinResult{}, ErrActivationInactive
	}

	_, err = s.checkIns.FindByUserAndActivation(ctx, userID, activation.ID)
	switch {
	case err == nil:
		s.metrics.ObserveCheckin(metrics.OutcomeDuplicate, form, 0)
		return domain.CheckinResult{}, ErrDuplicateCheckin
	case !errors.Is(err, repository.ErrCheckInNotFound):
		s.metrics.ObserveCheckin(metrics.OutcomeStorageFailure, form, 0)
		return domain.CheckinResult{}, s.storageFailure(fmt.Errorf("s.checkIns.FindByUserAndActivation -> %w", err), userID, activation.ID)
	}

	created, err := s.checkIns.Create(ctx, domain.CheckIn{
		UserID:        userID,
		ActivationID:  activation.ID,
		PointsGranted: activation.Points,
		Location:      location,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCheckInExists) {
			s.metrics.ObserveCheckin(metrics.OutcomeDuplicate, form, 0)
			return domain.CheckinResult{}, ErrDuplicateCheckin
		}
		s.metrics.ObserveCheckin(metrics.OutcomeStorageFailure, form, 0)
		return domain.CheckinResult{}, s.storageFailure(fmt.Errorf("s.checkIns.Create -> %w", err), userID, activation.ID)
	}

	if s.singleUse && payload.Form == qrcode.FormURL {
		if err = s.store.Invalidate(ctx, payload.TokenID); err != nil {
			zap.L().Warn("failed to invalidate consumed qr token",
				zap.String("token_id", payload.TokenID),
				zap.Uint("activation_id", activation.ID),
				zap.Error(err))
		}
	}

	s.metrics.ObserveCheckin(metrics.OutcomeSuccess, form, created.PointsGranted)
	if s.feed != nil {
		s.feed.Publish(domain.CheckinEvent{
			Type:         checkinEventType,
			EventID:      activation.EventID,
			ActivationID: activation.ID,
			Activation:   activation.Name,
			UserID:       userID,
			Points:       created.PointsGranted,
			CreatedAt:    created.CreatedAt,
		})
	}

	// The check-in is committed at this point, so a failed total is logged rather than returned.
	total, err := s.users.TotalPoints(ctx, userID)
	if err != nil {
		zap.L().Error("failed to compute total points after check-in",
			zap.Uint("user_id", userID),
			zap.Uint("checkin_id", created.ID),
			zap.Error(err))
	}

	return domain.CheckinResult{
		Success:     true,
		Message:     fmt.Sprintf("Check-in completed! You earned %d points.", created.PointsGranted),
		CheckIn:     created,
		TotalPoints: total,
		Activation:  activation.Summary(),
	}, nil
}

// Preview resolves a payload without committing anything. userID may be 0.
func (s *CheckinService) Preview(ctx context.Context, raw string, userID uint) (domain.ActivationPreview, error) {
	_, activation, err := s.resolve(ctx, raw)
	if err != nil {
		return domain.ActivationPreview{}, s.storageFailure(err, userID, activation.ID)
	}

	if !activation.IsActive() {
		return domain.ActivationPreview{}, ErrActivationInactive
	}

	preview := domain.ActivationPreview{Activation: activation.Summary()}
	if userID == 0 {
		return preview, nil
	}

	_, err = s.checkIns.FindByUserAndActivation(ctx, userID, activation.ID)
	switch {
	case err == nil:
		preview.AlreadyCheckedIn = true
	case !errors.Is(err, repository.ErrCheckInNotFound):
		return domain.ActivationPreview{}, s.storageFailure(fmt.Errorf("s.checkIns.FindByUserAndActivation -> %w", err), userID, activation.ID)
	}

	return preview, nil
}

// Mint issues a fresh token for an activation and renders it as a QR code.
func (s *CheckinService) Mint(ctx context.Context, requester domain.User, activationID uint, format qrcode.Format) (domain.QRCode, error) {
	if requester.ID == 0 {
		return domain.QRCode{}, ErrUnauthenticated
	}

	activation, err := s.activations.FindByID(ctx, activationID)
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("s.activations.FindByID -> %w", err)
	}

	event, err := s.events.FindByID(ctx, activation.EventID)
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("s.events.FindByID -> %w", err)
	}
	if !canManage(requester, event) {
		return domain.QRCode{}, ErrPermissionDenied
	}

	if activation.Token == "" {
		activation, err = s.activations.SetToken(ctx, activation.ID, uuid.NewString())
		if err != nil {
			return domain.QRCode{}, fmt.Errorf("s.activations.SetToken -> %w", err)
		}
	}

	tokenID, err := s.store.Issue(ctx, activation.ID)
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("s.store.Issue -> %w", err)
	}

	encoded := s.codec.Encode(qrcode.Ticket{
		TokenID:         tokenID,
		ActivationID:    activation.ID,
		ActivationToken: activation.Token,
		IssuedAt:        s.clock.Now(),
	})

	img, err := s.renderer.Render(encoded, format)
	if err != nil {
		return domain.QRCode{}, fmt.Errorf("s.renderer.Render -> %w", err)
	}
	s.metrics.ObserveMint(string(format))

	return domain.QRCode{
		TokenID:  tokenID,
		URL:      encoded,
		Image:    img.Data,
		MimeType: img.MimeType,
	}, nil
}

// History lists the user's check-ins, newest first.
func (s *CheckinService) History(ctx context.Context, userID uint) ([]domain.HistoryEntry, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}

	history, err := s.checkIns.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("s.checkIns.FindByUserID -> %w", err)
	}

	return history, nil
}

// resolve decodes raw and loads the activation the payload is authoritative for.
func (s *CheckinService) resolve(ctx context.Context, raw string) (qrcode.Payload, domain.Activation, error) {
	payload, err := s.codec.Decode(ctx, raw)
	if err != nil {
		if errors.Is(err, qrcode.ErrInvalidPayload) {
			return payload, domain.Activation{}, ErrInvalidToken
		}
		return payload, domain.Activation{}, fmt.Errorf("s.codec.Decode -> %w", err)
	}

	var activation domain.Activation
	switch payload.Form {
	case qrcode.FormURL:
		activation, err = s.activations.FindByID(ctx, payload.ActivationID)
	case qrcode.FormLegacy:
		activation, err = s.activations.FindByToken(ctx, payload.ActivationToken)
	default:
		return payload, domain.Activation{}, ErrInvalidToken
	}
	if err != nil {
		if errors.Is(err, repository.ErrActivationNotFound) {
			return payload, domain.Activation{}, ErrActivationNotFound
		}
		return payload, domain.Activation{}, fmt.Errorf("s.activations.Find -> %w", err)
	}

	return payload, activation, nil
}

// storageFailure passes taxonomy errors through untouched and replaces
// anything else with ErrStorageFailure after logging it.
func (s *CheckinService) storageFailure(err error, userID, activationID uint) error {
	for _, known := range []error{ErrInvalidToken, ErrActivationNotFound, ErrActivationInactive, ErrDuplicateCheckin} {
		if errors.Is(err, known) {
			return err
		}
	}

	zap.L().Error("check-in storage failure",
		zap.Uint("user_id", userID),
		zap.Uint("activation_id", activationID),
		zap.Error(err))

	return ErrStorageFailure
}

func (s *CheckinService) observeFailure(err error, form qrcode.Form) {
	label := ""
	if form != 0 {
		label = form.String()
	}

	switch {
	case errors.Is(err, ErrInvalidToken):
		s.metrics.ObserveCheckin(metrics.OutcomeInvalidToken, label, 0)
	case errors.Is(err, ErrActivationNotFound):
		s.metrics.ObserveCheckin(metrics.OutcomeActivationNotFound, label, 0)
	default:
		s.metrics.ObserveCheckin(metrics.OutcomeStorageFailure, label, 0)
	}
}
