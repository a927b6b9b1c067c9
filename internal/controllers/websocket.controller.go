package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"memviz/internal/middleware"
	"memviz/internal/models"
	"memviz/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketController streams view events to dashboard pages
type WebSocketController struct {
	hub          *services.WebSocketHub
	dashboard    *services.Dashboard
	auth         *services.AuthService
	requireToken bool
	security     *middleware.SecurityLogger
	validator    *middleware.InputValidator
	upgrader     websocket.Upgrader
	log          *logrus.Entry
}

// WebSocketOptions configures the upgrade checks
type WebSocketOptions struct {
	RequireToken   bool
	AllowedOrigins []string
}

func NewWebSocketController(
	hub *services.WebSocketHub,
	dashboard *services.Dashboard,
	auth *services.AuthService,
	security *middleware.SecurityLogger,
	opts WebSocketOptions,
) *WebSocketController {
	allowed := opts.AllowedOrigins
	return &WebSocketController{
		hub:          hub,
		dashboard:    dashboard,
		auth:         auth,
		requireToken: opts.RequireToken,
		security:     security,
		validator:    middleware.NewInputValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(origin, allowed)
			},
		},
		log: logrus.StandardLogger().WithField("type", "controllers/websocket"),
	}
}

// HandleWebSocket upgrades the connection, sends the full current view and
// then subscribes the client to view events
func (wc *WebSocketController) HandleWebSocket(c *gin.Context) {
	viewer := "anonymous"

	if wc.requireToken {
		token := c.Query("token")
		if token == "" {
			wc.security.LogFailedAuth(c.ClientIP(), "missing token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if !wc.validator.ValidateToken(token) {
			wc.security.LogFailedAuth(c.ClientIP(), "malformed token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, err := wc.auth.ValidateToken(token)
		if err != nil {
			wc.security.LogFailedAuth(c.ClientIP(), "invalid token: "+err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		viewer = claims.Viewer
	}

	ws, err := wc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wc.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	wc.security.LogWebSocketConnected(c.ClientIP(), viewer)

	client := services.NewClientConnection(xid.New().String(), ws)

	// The initial view and registration happen under the dashboard lock, so
	// the first event the client sees after the view is one the view lacks.
	wc.dashboard.Attach(func(view models.ViewState) {
		client.Send <- services.WebSocketMessage{
			Type:      models.EventView,
			Timestamp: time.Now(),
			Data:      view,
		}
		wc.hub.Register(client)
	})

	go wc.writePump(client)
	go wc.readPump(client, c.ClientIP())
}

// readPump reads messages from the WebSocket client
func (wc *WebSocketController) readPump(client *services.ClientConnection, ip string) {
	defer func() {
		wc.hub.Unregister(client.ID)
		close(client.Close)
		client.Conn.Close()
		wc.security.LogWebSocketDisconnected(ip, client.ID)
	}()

	client.Conn.SetReadLimit(maxMessageSize)
	_ = client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		return client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg services.WebSocketMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wc.log.WithError(err).WithField("client", client.ID).Debug("websocket read error")
			}
			return
		}

		switch msg.Type {
		case "ping":
			wc.hub.SendMessage(client.ID, services.WebSocketMessage{Type: "pong", Timestamp: time.Now()})

		case "view":
			// Client missed events and wants to resynchronize
			wc.dashboard.Attach(func(view models.ViewState) {
				wc.hub.SendMessage(client.ID, services.WebSocketMessage{
					Type:      models.EventView,
					Timestamp: time.Now(),
					Data:      view,
				})
			})

		case "dismiss":
			wc.dashboard.Dismiss(msg.ID)

		default:
			wc.log.WithFields(logrus.Fields{"client": client.ID, "message": msg.Type}).Debug("unknown message type")
		}
	}
}

// writePump writes messages to the WebSocket client
func (wc *WebSocketController) writePump(client *services.ClientConnection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(msg); err != nil {
				wc.log.WithError(err).WithField("client", client.ID).Debug("websocket write error")
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.Close:
			return
		}
	}
}
