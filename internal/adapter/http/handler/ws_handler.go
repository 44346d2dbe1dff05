package handler

import (
	"net/http"
	"strings"

	"club-operations-core/internal/adapter/ws"
	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/apperror"
	"club-operations-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSHandler upgrades authenticated members to a websocket connection
// registered in the hub.
type WSHandler struct {
	hub      *ws.Hub
	tokenSvc ports.TokenService
	log      zerolog.Logger

	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *ws.Hub, tokenSvc ports.TokenService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		tokenSvc: tokenSvc,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Connect handles GET /ws. The browser WebSocket API cannot set an
// Authorization header, so the JWT is also accepted as a ?token= query
// parameter.
func (h *WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = authHeader[7:]
		}
	}
	if token == "" {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	claims, err := h.tokenSvc.Validate(token)
	if err != nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// The hub is keyed the same way Dispatch addresses users, so a
	// mixed-case email in the token still receives live notifications.
	unregister := h.hub.Register(domain.NormalizeEmail(claims.Email), conn)
	defer unregister()
	defer conn.Close()

	// The server never expects inbound messages; the read loop exists
	// to detect the close handshake and dropped peers.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
