package v1

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vietanh2810/checkin-api/internal/api/handler/v1/response"
	"github.com/vietanh2810/checkin-api/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var errNotEventManager = errors.New("only admins and the event responsible can follow its check-ins")

type FeedSubscriber interface {
	Subscribe(ctx context.Context, eventID uint) (*service.Subscription, error)
	Unsubscribe(sub *service.Subscription)
}

type FeedHandler struct {
	hub      FeedSubscriber
	events   EventService
	uSvc     UserService
	upgrader websocket.Upgrader
}

// NewFeedHandler accepts websocket upgrades from allowedOrigins, or from any origin when empty.
func NewFeedHandler(hub FeedSubscriber, events EventService, uSvc UserService, allowedOrigins []string) *FeedHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &FeedHandler{
		hub:    hub,
		events: events,
		uSvc:   uSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

type feedClient struct {
	conn *websocket.Conn
	sub  *service.Subscription
}

// HandleFeed godoc
// @Summary      Follow the check-ins of an event live
// @Description  WebSocket. Each committed check-in is pushed as {"type":"checkin", ...}. Pass the JWT as access_token when headers cannot be set.
// @Tags         events
// @Produce      json
// @Param        eventID  path  int  true "Event ID"
// @Success      101  {object}  domain.CheckinEvent
// @Failure      401  {object}  response.Err
// @Failure      403  {object}  response.Err
// @Failure      404  {object}  response.Err
// @Router       /events/{eventID}/feed [get]
// @Security BearerAuth
func (h *FeedHandler) HandleFeed(ctx *gin.Context) {
	user, respErr := getUserFromContext(ctx, h.uSvc)
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	eventID, respErr := parseIDParam(ctx, "eventID")
	if respErr != nil {
		response.RenderErr(ctx, respErr)
		return
	}

	ok, err := h.events.CanManageEvent(ctx.Request.Context(), user, eventID)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			response.RenderErr(ctx, response.ErrNotFound("event", "id", eventID))
			return
		}
		err = fmt.Errorf("v1.HandleFeed -> h.events.CanManageEvent -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}
	if !ok {
		response.RenderErr(ctx, response.ErrPermissionDenied(errNotEventManager))
		return
	}

	sub, err := h.hub.Subscribe(ctx.Request.Context(), eventID)
	if err != nil {
		err = fmt.Errorf("v1.HandleFeed -> h.hub.Subscribe -> %w", err)
		response.RenderErr(ctx, response.ErrInternalServerError(err))
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// Upgrade already answered the client.
		h.hub.Unsubscribe(sub)
		zap.L().Warn("websocket upgrade failed", zap.Uint("event_id", eventID), zap.Error(err))
		return
	}

	client := &feedClient{conn: conn, sub: sub}
	go client.writePump()
	client.readPump(h.hub)
}

// writePump forwards feed events until the subscription is closed.
func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.sub.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for the client going away; the feed is one-way.
func (c *feedClient) readPump(hub FeedSubscriber) {
	defer func() {
		hub.Unsubscribe(c.sub)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Debug("feed connection closed", zap.Error(err))
			}
			return
		}
	}
}
