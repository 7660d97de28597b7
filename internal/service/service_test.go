package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vietanh2810/checkin-api/internal/clock"
	"github.com/vietanh2810/checkin-api/internal/credential"
	"github.com/vietanh2810/checkin-api/internal/db"
	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/metrics"
	"github.com/vietanh2810/checkin-api/internal/qrcode"
	"github.com/vietanh2810/checkin-api/internal/repository"
	"github.com/vietanh2810/checkin-api/internal/repository/dao"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	db          *gorm.DB
	clock       *clock.Fake
	store       *credential.MemoryStore
	codec       *qrcode.Codec
	users       *repository.UserRepository
	events      *repository.EventRepository
	activations *repository.ActivationRepository
	checkIns    *repository.CheckInRepository
	feed        *recordingFeed
	checkin     *CheckinService
	eventSvc    *EventService
	userSvc     *UserService

	admin domain.User
	event domain.Event
}

type recordingFeed struct {
	events []domain.CheckinEvent
}

func (f *recordingFeed) Publish(e domain.CheckinEvent) {
	f.events = append(f.events, e)
}

func newEnv(t *testing.T) *env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	c := clock.NewFake(epoch)
	store := credential.NewMemoryStore(credential.DefaultTTL, c)
	codec := qrcode.NewCodec("https://app.example.com", store, credential.DefaultTTL, c)
	renderer, err := qrcode.NewRenderer(qrcode.RenderOptions{})
	require.NoError(t, err)

	e := &env{
		db:          gdb,
		clock:       c,
		store:       store,
		codec:       codec,
		users:       repository.NewUserRepository(dao.NewUserDAO(gdb)),
		events:      repository.NewEventRepository(dao.NewEventDAO(gdb)),
		activations: repository.NewActivationRepository(dao.NewActivationDAO(gdb)),
		checkIns:    repository.NewCheckInRepository(dao.NewCheckInDAO(gdb)),
		feed:        &recordingFeed{},
	}
	e.checkin = NewCheckinService(CheckinDeps{
		Activations: e.activations,
		Events:      e.events,
		CheckIns:    e.checkIns,
		Users:       e.users,
		Store:       store,
		Codec:       codec,
		Renderer:    renderer,
		Feed:        e.feed,
		Metrics:     metrics.New(prometheus.NewRegistry()),
		Clock:       c,
	})
	e.eventSvc = NewEventService(e.events, e.activations)
	e.userSvc = NewUserService(e.users)

	e.admin = e.createUser(t, "admin@example.com", 0, true)
	e.event, err = e.eventSvc.CreateEvent(context.Background(), e.admin, domain.Event{Name: "Fair", Date: epoch})
	require.NoError(t, err)

	return e
}

func (e *env) createUser(t *testing.T, email string, points int, admin bool) domain.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), domain.User{Email: email, Password: "x", Name: email, Points: points, IsAdmin: admin})
	require.NoError(t, err)
	return u
}

func (e *env) createActivation(t *testing.T, name string, points int, status string) domain.Activation {
	t.Helper()
	a, err := e.eventSvc.CreateActivation(context.Background(), e.admin, domain.Activation{
		EventID: e.event.ID,
		Name:    name,
		Points:  points,
		Status:  status,
	})
	require.NoError(t, err)
	return a
}

func (e *env) mint(t *testing.T, activationID uint) domain.QRCode {
	t.Helper()
	qr, err := e.checkin.Mint(context.Background(), e.admin, activationID, qrcode.FormatSVG)
	require.NoError(t, err)
	return qr
}
