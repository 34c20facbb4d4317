package http

import (
	"log"
	"net/http"
	"sync"
	"time"

	"quizroom-service/internal/app"
	"quizroom-service/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	sendBufferSize = 32
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// client is the transport half of a participant. Publish enqueues without
// blocking; a client whose queue is full is disconnected.
type client struct {
	conn *websocket.Conn
	send chan domain.Response

	mu     sync.Mutex
	closed bool
}

func (c *client) Publish(resp domain.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- resp:
	default:
		log.Printf("ws client %s too slow, disconnecting", c.conn.RemoteAddr())
		c.closeLocked()
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *client) writePump(done chan<- struct{}) {
	defer close(done)
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// ServeWS upgrades HTTP requests to websockets and feeds every client
// message to the quiz service until the connection drops.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{
		conn: conn,
		send: make(chan domain.Response, sendBufferSize),
	}
	writerDone := make(chan struct{})
	go c.writePump(writerDone)

	session := h.service.Connect(c, r.URL.Query().Get("name"))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.service.Dispatch(r.Context(), session, data)
	}

	h.service.Disconnect(session)
	c.close()
	<-writerDone
}
