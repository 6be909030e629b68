package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/auth"
	"github.com/spark-fund/backend/internal/events"
	"go.uber.org/zap"
)

type wsConn interface {
	WriteMessage(messageType int, data []byte) error
}

type WSHub struct {
	jwtSecret   string
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]wsConn
}

func NewWSHub(jwtSecret string, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		jwtSecret:   jwtSecret,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[uuid.UUID][]wsConn),
	}
}

func (h *WSHub) Start(ctx context.Context) {
	if err := h.subscriber.Subscribe(ctx, events.StreamCampaign, h.dispatch); err != nil && ctx.Err() == nil {
		h.log.Error("ws hub subscription stopped", zap.Error(err))
	}
}

// dispatch sends deposits only to the credited account. Campaign events are
// public.
func (h *WSHub) dispatch(event events.Event) {
	if event.Type == events.EventDepositReceived {
		raw, _ := event.Payload["account_id"].(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			return
		}
		h.SendToAccount(id, event)
		return
	}
	h.broadcast(event)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

func (h *WSHub) SendToAccount(accountID uuid.UUID, event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[accountID] {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

func (h *WSHub) register(accountID uuid.UUID, conn wsConn) {
	h.mu.Lock()
	h.connections[accountID] = append(h.connections[accountID], conn)
	h.mu.Unlock()
}

func (h *WSHub) unregister(accountID uuid.UUID, conn wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.connections[accountID]
	for i, c := range conns {
		if c == conn {
			h.connections[accountID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[accountID]) == 0 {
		delete(h.connections, accountID)
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	tokenStr := conn.Query("token")
	if tokenStr == "" {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"missing token"}`))
		conn.Close()
		return
	}

	claims, err := auth.ParseJWT(h.jwtSecret, tokenStr)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		conn.Close()
		return
	}

	accountID := claims.AccountID
	h.register(accountID, conn)
	defer func() {
		h.unregister(accountID, conn)
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
