// Package realtime serves the live event feed over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/interactions"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// Feed message names.
const (
	EventPresence = "presence"
	EventComment  = "comment"
	EventReaction = "reaction"
	EventError    = "error"
)

const maxMessageSize = 16 << 10

// ceremonyRecheck bounds how long a client's ceremony gate decisions are reused.
const ceremonyRecheck = time.Minute

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// postData is the payload of inbound comment and reaction messages.
type postData struct {
	Body       string     `json:"body"`
	CeremonyID *uuid.UUID `json:"ceremony_id"`
}

// TokenValidator validates the optional token passed on the upgrade URL.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Poster stores an interaction and publishes it to the feed.
type Poster interface {
	Post(ctx context.Context, userID, eventID uuid.UUID, ceremonyID *uuid.UUID, kind models.InteractionKind, body string) (*models.Interaction, error)
}

// Client represents a single WebSocket connection in an event room.
type Client struct {
	ID      string
	EventID uuid.UUID
	Actor   access.Actor
	hub     *Hub
	conn    *websocket.Conn
	send    chan WSMessage
	gate    *access.CeremonyFilter
}

// Handler upgrades feed connections for actors who can view the event.
type Handler struct {
	hub      *Hub
	checker  access.Checker
	tokens   TokenValidator
	poster   Poster
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates the feed handler. allowedOrigins follows the CORS setting: empty or "*" admits any origin.
func NewHandler(hub *Hub, checker access.Checker, tokens TokenValidator, poster Poster, allowedOrigins []string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:     hub,
		checker: checker,
		tokens:  tokens,
		poster:  poster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// ServeWs handles GET /ws?event_id=&token=. The token is optional; the event must be viewable.
func (h *Handler) ServeWs(c *gin.Context) {
	eventID, err := uuid.Parse(c.Query("event_id"))
	if err != nil {
		response.BadRequest(c, "valid event_id required")
		return
	}
	actor := access.Anonymous()
	if token := c.Query("token"); token != "" {
		claims, err := h.tokens.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		actor = access.UserActor(claims.UserID)
	}
	if !h.checker.ResolveEventAccess(c.Request.Context(), actor, eventID).CanView {
		response.NotFound(c, "event not found")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{
		ID:      uuid.NewString(),
		EventID: eventID,
		Actor:   actor,
		hub:     h.hub,
		conn:    conn,
		send:    make(chan WSMessage, sendBuffer),
		gate:    access.NewCeremonyFilter(h.checker, actor, ceremonyRecheck),
	}
	h.hub.Register(client)
	go client.writePump()
	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("feed read error", zap.Error(err), zap.String("client_id", c.ID))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))

		switch msg.Event {
		case EventComment:
			h.post(c, models.InteractionComment, msg.Data)
		case EventReaction:
			h.post(c, models.InteractionReaction, msg.Data)
		default:
			h.hub.sendTo(c, EventError, errorData("unknown message "+msg.Event))
		}
	}
}

func errorData(msg string) map[string]string {
	return map[string]string{"message": msg}
}

// post re-resolves access on every message so revoked guests stop posting without reconnecting.
func (h *Handler) post(c *Client, kind models.InteractionKind, raw json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	userID, ok := c.Actor.UserID()
	if !ok {
		h.hub.sendTo(c, EventError, errorData("sign in to interact with this event"))
		return
	}
	if !h.checker.ResolveEventAccess(ctx, c.Actor, c.EventID).CanInteract {
		h.hub.sendTo(c, EventError, errorData("you cannot interact with this event"))
		return
	}
	var data postData
	if err := json.Unmarshal(raw, &data); err != nil {
		h.hub.sendTo(c, EventError, errorData("malformed message"))
		return
	}
	if data.CeremonyID != nil && !h.checker.CanAccessCeremony(ctx, c.Actor, *data.CeremonyID) {
		h.hub.sendTo(c, EventError, errorData("ceremony not found"))
		return
	}

	_, err := h.poster.Post(ctx, userID, c.EventID, data.CeremonyID, kind, data.Body)
	switch {
	case err == nil:
	case errors.Is(err, interactions.ErrInvalid):
		h.hub.sendTo(c, EventError, errorData(err.Error()))
	case errors.Is(err, models.ErrNotFound):
		h.hub.sendTo(c, EventError, errorData("ceremony not found"))
	default:
		h.logger.Error("feed post failed", zap.Error(err), zap.String("event_id", c.EventID.String()))
		h.hub.sendTo(c, EventError, errorData("could not post"))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.visible(msg) {
				continue
			}
			if err := c.conn.WriteJSON(msg); err != nil {
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

// visible reports whether msg may be written to this client. Comments and reactions in a
// ceremony the actor cannot enter are dropped, as is anything whose ceremony cannot be read.
func (c *Client) visible(msg WSMessage) bool {
	if c.gate == nil || (msg.Event != EventComment && msg.Event != EventReaction) {
		return true
	}
	var scope struct {
		CeremonyID *uuid.UUID `json:"ceremony_id"`
	}
	if err := json.Unmarshal(msg.Data, &scope); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return c.gate.Allows(ctx, scope.CeremonyID)
}
