package realtime

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Client is one websocket connection tracked by the hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Register wires the websocket endpoint on the given Echo instance.
func Register(e *echo.Echo, hub *Hub) {
	e.GET("/ws", func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		hub.serve(conn)
		return nil
	})
}

// serve runs the connection until it closes. The read pump runs on the
// calling goroutine.
func (h *Hub) serve(conn *websocket.Conn) {
	client := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.add(client)
	h.logger.WithField("connection_id", client.id).Info("client connected")
	go client.writePump()
	h.Unicast(client.id, domain.EventConnectionAck, domain.ConnectionAck{ConnectionID: client.id})
	client.readPump()
}

// enqueue hands a frame to the write pump. Callers must hold the hub mutex.
// A client that cannot keep up is dropped rather than allowed to stall
// dispatch for everyone else.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.logger.WithField("connection_id", c.id).Warn("send buffer full, dropping client")
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c.id)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.WithError(err).WithField("connection_id", c.id).Debug("read failed")
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *Client) handleMessage(data []byte) {
	var env struct {
		Event   string                 `json:"event"`
		Payload sonic.NoCopyRawMessage `json:"payload"`
	}
	if err := sonic.Unmarshal(data, &env); err != nil {
		c.hub.logger.WithError(err).WithField("connection_id", c.id).Debug("unparseable message")
		return
	}
	switch env.Event {
	case domain.EventUserIdentify:
		var id domain.Identity
		if len(env.Payload) > 0 {
			if err := sonic.Unmarshal(env.Payload, &id); err != nil {
				c.hub.logger.WithError(err).WithField("connection_id", c.id).Debug("invalid identify payload")
				return
			}
		}
		c.hub.Identify(c.id, id, time.Now().UTC())
	default:
		c.hub.logger.WithFields(log.Fields{
			"connection_id": c.id,
			"event":         env.Event,
		}).Debug("ignoring unknown event")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
