package app

import (
	"context"
	"errors"
	"io"
	"log"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/metrics"
)

const defaultDisplayName = "Jim"

// Conn is the per-connection state the service tracks for a transport
// client. A Conn must only be used from the goroutine reading that client.
type Conn struct {
	handle Publisher
	name   string
	room   *Room
}

// Room returns the room the connection has joined, if any.
func (c *Conn) Room() *Room {
	return c.room
}

// QuizService turns client requests into room operations.
type QuizService struct {
	registry    *Registry
	defaultName string
	metrics     *metrics.Collector
	logger      *log.Logger
}

// ServiceOption configures a QuizService.
type ServiceOption func(*QuizService)

// WithDefaultName sets the display name used when a client does not give one.
func WithDefaultName(name string) ServiceOption {
	return func(s *QuizService) {
		if name != "" {
			s.defaultName = name
		}
	}
}

// WithLogger enables debug logging of dropped requests and room events.
func WithLogger(l *log.Logger) ServiceOption {
	return func(s *QuizService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithServiceMetrics attaches a collector.
func WithServiceMetrics(c *metrics.Collector) ServiceOption {
	return func(s *QuizService) { s.metrics = c }
}

func NewQuizService(registry *Registry, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		registry:    registry,
		defaultName: defaultDisplayName,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom registers a new room for quizID.
func (s *QuizService) CreateRoom(ctx context.Context, quizID string) (*Room, error) {
	room, err := s.registry.CreateRoom(ctx, quizID)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("room %s created (quiz %s)", room.Key(), quizID)
	return room, nil
}

// FindRoom looks up a room by key.
func (s *QuizService) FindRoom(key string) (*Room, bool) {
	return s.registry.FindRoom(key)
}

// Connect starts tracking a transport client. name may be empty.
func (s *QuizService) Connect(handle Publisher, name string) *Conn {
	s.metrics.ConnectionOpened()
	return &Conn{handle: handle, name: name}
}

// Dispatch handles one raw client message. Malformed messages and requests
// sent before joining a room are dropped without a reply.
func (s *QuizService) Dispatch(ctx context.Context, c *Conn, data []byte) {
	req, ok := domain.ParseRequest(data)
	if !ok {
		s.drop(c, "malformed request", nil)
		return
	}

	if req.Kind == domain.RequestJoinRoom {
		s.join(c, req)
		return
	}
	if c.room == nil {
		s.drop(c, req.Kind.String(), domain.ErrNotJoined)
		return
	}

	var err error
	switch req.Kind {
	case domain.RequestCurrentQuestion:
		err = c.room.CurrentQuestion(c.handle)
	case domain.RequestSetAnswer:
		err = c.room.SubmitAnswer(c.handle, req.Answer)
	}
	if err != nil {
		s.drop(c, req.Kind.String(), err)
	}
}

// Disconnect removes the client from its room, if it joined one.
func (s *QuizService) Disconnect(c *Conn) {
	s.metrics.ConnectionClosed()
	s.leave(c)
}

func (s *QuizService) join(c *Conn, req domain.Request) {
	if req.Name != "" {
		c.name = req.Name
	}
	s.leave(c)

	room, ok := s.registry.FindRoom(req.RoomKey)
	if !ok {
		c.handle.Publish(domain.Response{Kind: domain.ResponseNoSuchRoom, Props: domain.EmptyProps{}})
		return
	}

	name := c.name
	if name == "" {
		name = s.defaultName
	}
	participant, err := room.AddConnection(c.handle, name)
	if errors.Is(err, domain.ErrRoomNotFound) {
		c.handle.Publish(domain.Response{Kind: domain.ResponseNoSuchRoom, Props: domain.EmptyProps{}})
		return
	}
	if err != nil {
		s.drop(c, req.Kind.String(), err)
		return
	}
	c.room = room
	s.logger.Printf("room %s: participant %s (%s) joined", room.Key(), participant.ID, participant.Name)
}

func (s *QuizService) leave(c *Conn) {
	if c.room == nil {
		return
	}
	room := c.room
	c.room = nil
	if err := room.RemoveConnection(c.handle); err != nil {
		s.logger.Printf("room %s: remove connection: %v", room.Key(), err)
		return
	}
	s.logger.Printf("room %s: participant left", room.Key())
}

func (s *QuizService) drop(c *Conn, what string, err error) {
	s.metrics.RequestDropped()
	key := ""
	if c.room != nil {
		key = c.room.Key()
	}
	if err != nil {
		s.logger.Printf("dropped %s (room %q): %v", what, key, err)
		return
	}
	s.logger.Printf("dropped %s (room %q)", what, key)
}
