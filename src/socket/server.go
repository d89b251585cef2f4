package socket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/haze-team/haze-server/src/matching"
	"github.com/haze-team/haze-server/src/middleware"
)

const (
	pongWait   = 45 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

type client struct {
	id   matching.ConnID
	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Server owns the /ws endpoint
type Server struct {
	engine Engine
	hub    *Hub
	log    *slog.Logger
}

func NewServer(engine Engine, hub *Hub, logger *slog.Logger) *Server {
	return &Server{
		engine: engine,
		hub:    hub,
		log:    logger.With("component", "socket"),
	}
}

// Handler upgrades the request. It expects middleware.SocketGuard in front
// of it to have rejected non-upgrade requests.
func (s *Server) Handler() fiber.Handler {
	return websocket.New(s.serve, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	})
}

func (s *Server) serve(conn *websocket.Conn) {
	authUserID, _ := conn.Locals(middleware.LocalUserID).(string)
	c := &client{
		id:   matching.ConnID(uuid.NewString()),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	s.hub.add(c)
	s.engine.Connect(c.id, authUserID)
	s.log.Debug("socket connected", "conn", c.id, "user", authUserID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(c)
	}()

	s.readLoop(c)

	c.close()
	s.hub.remove(c.id)
	s.engine.Disconnect(c.id)
	<-writerDone
	_ = conn.Close()
	s.log.Debug("socket disconnected", "conn", c.id)
}

func (s *Server) readLoop(c *client) {
	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		// any frame proves the peer is alive
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		frame, err := Decode(data)
		if err != nil {
			s.log.Debug("dropping undecodable frame", "conn", c.id, "error", err)
			continue
		}
		if err := Dispatch(s.engine, c.id, frame); err != nil {
			level := slog.LevelDebug
			if errors.Is(err, ErrBadPayload) {
				level = slog.LevelWarn
			}
			s.log.Log(context.Background(), level, "dropping frame", "conn", c.id, "event", frame.Event, "error", err)
		}
	}
}

func (s *Server) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				_ = c.conn.Close()
				return
			}
		}
	}
}
