package api

import (
	"fmt"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/vietanh2810/checkin-api/docs"
	v1 "github.com/vietanh2810/checkin-api/internal/api/handler/v1"
	"github.com/vietanh2810/checkin-api/internal/api/middleware"
	"github.com/vietanh2810/checkin-api/internal/clock"
	"github.com/vietanh2810/checkin-api/internal/config"
	"github.com/vietanh2810/checkin-api/internal/credential"
	"github.com/vietanh2810/checkin-api/internal/logger"
	"github.com/vietanh2810/checkin-api/internal/metrics"
	"github.com/vietanh2810/checkin-api/internal/qrcode"
	"github.com/vietanh2810/checkin-api/internal/repository"
	"github.com/vietanh2810/checkin-api/internal/repository/dao"
	"github.com/vietanh2810/checkin-api/internal/service"
)

type Server struct {
	Config   *config.AppConfig
	Router   *gin.Engine
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

type handlers struct {
	auth    *v1.AuthHandler
	user    *v1.UserHandler
	event   *v1.EventHandler
	checkin *v1.CheckinHandler
	feed    *v1.FeedHandler
}

// NewServer wires every handler. store holds the issued QR tokens and hub
// fans committed check-ins out; the caller runs hub.
func NewServer(conf *config.AppConfig, db *gorm.DB, store credential.Store, hub *service.FeedHub, c clock.Clock) (*Server, error) {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		Config:   conf,
		Router:   engine,
		Registry: reg,
		Metrics:  metrics.New(reg),
	}

	s.MountMiddlewares()

	h, err := s.initHandlers(db, store, hub, c)
	if err != nil {
		return nil, err
	}
	s.MountHandlers(h)

	return s, nil
}

func (s *Server) initHandlers(db *gorm.DB, store credential.Store, hub *service.FeedHub, c clock.Clock) (handlers, error) {
	users := repository.NewUserRepository(dao.NewUserDAO(db))
	events := repository.NewEventRepository(dao.NewEventDAO(db))
	activations := repository.NewActivationRepository(dao.NewActivationDAO(db))
	checkIns := repository.NewCheckInRepository(dao.NewCheckInDAO(db))

	renderer, err := qrcode.NewRenderer(qrcode.RenderOptions{
		Size:       s.Config.Checkin.QRSize,
		Margin:     s.Config.Checkin.QRMargin,
		Foreground: s.Config.Checkin.QRForeground,
		Background: s.Config.Checkin.QRBackground,
	})
	if err != nil {
		return handlers{}, fmt.Errorf("qrcode.NewRenderer -> %w", err)
	}

	uSvc := service.NewUserService(users)
	eventSvc := service.NewEventService(events, activations)
	checkinSvc := service.NewCheckinService(service.CheckinDeps{
		Activations: activations,
		Events:      events,
		CheckIns:    checkIns,
		Users:       users,
		Store:       store,
		Codec:       qrcode.NewCodec(s.Config.Checkin.WebappURL, store, s.Config.Checkin.TokenTTL, c),
		Renderer:    renderer,
		Feed:        hub,
		Metrics:     s.Metrics,
		Clock:       c,
		SingleUse:   s.Config.Checkin.SingleUseTokens,
	})

	return handlers{
		auth:    v1.NewAuthHandler(s.Config.API, service.NewAuthService(users, s.Config.API.AdminEmails)),
		user:    v1.NewUserHandler(uSvc),
		event:   v1.NewEventHandler(eventSvc, uSvc),
		checkin: v1.NewCheckinHandler(checkinSvc, uSvc),
		feed:    v1.NewFeedHandler(hub, eventSvc, uSvc, s.Config.API.AllowedCORSDomains),
	}, nil
}

func (s *Server) MountMiddlewares() {
	s.Router.Use(requestid.New())
	s.Router.Use(logger.GinMiddleware())
	s.Router.Use(s.Metrics.GinMiddleware())
	s.Router.Use(gin.Recovery())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(h handlers) {
	const basePath = "/api/v1"
	authenticator := middleware.NewAuthenticator(s.Config.API.JWTSigningKey)

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", h.auth.HandleSignup)
		auth.POST("/auth/login", h.auth.HandleLogin)
	}

	users := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		users.GET("/users/me", h.user.HandleGetMe)
		users.PUT("/users/:userID/points", h.user.HandleSetPoints)
	}

	events := s.Router.Group(basePath, authenticator.VerifyJWT())
	{
		events.POST("/events", h.event.HandleCreateEvent)
		events.GET("/events", h.event.HandleGetEvents)
		events.GET("/events/:eventID", h.event.HandleGetEvent)
		events.POST("/events/:eventID/activations", h.event.HandleCreateActivation)
		events.GET("/events/:eventID/activations", h.event.HandleGetActivations)
		events.PATCH("/activations/:activationID", h.event.HandleUpdateActivation)
		events.POST("/activations/:activationID/qrcode", h.checkin.HandleMintQRCode)
		events.GET("/activations/:activationID/qrcode.svg", h.checkin.HandleMintQRCodeSVG)
		events.GET("/events/:eventID/feed", h.feed.HandleFeed)
		events.GET("/checkins/me", h.checkin.HandleGetHistory)
	}

	// Anonymous callers get the check-in failure body instead of a bare 401.
	checkins := s.Router.Group(basePath, authenticator.OptionalJWT())
	{
		checkins.POST("/checkins", h.checkin.HandleSubmitCheckin)
		checkins.POST("/checkins/preview", h.checkin.HandlePreviewCheckin)
	}

	s.Router.GET("/", v1.HandleHealthcheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Check-in API"
	docs.SwaggerInfo.Description = "QR code check-ins that grant loyalty points for event activations."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
