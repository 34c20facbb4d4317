package app

import (
	"sync"
	"time"

	"quizroom-service/internal/domain"
	"quizroom-service/internal/metrics"

	"github.com/google/uuid"
)

// Publisher delivers messages to one client. Publish must not block; the
// room calls it while holding its lock so that every client observes
// messages in the order they were produced.
type Publisher interface {
	Publish(domain.Response)
}

// Participant is a connected client as seen by a room.
type Participant struct {
	ID    string
	Name  string
	Score int

	answer      *string
	scoredIndex int
	handle      Publisher
}

// RoomOptions tunes room behavior.
type RoomOptions struct {
	// ResetAnswers clears every answer when the room advances. Off by
	// default: answers from the previous question carry over.
	ResetAnswers bool
	Now          func() time.Time
	Metrics      *metrics.Collector
}

// Room runs one quiz session. All state is guarded by mu.
type Room struct {
	key       string
	quizID    string
	createdAt time.Time
	opts      RoomOptions

	mu           sync.Mutex
	engine       *Engine
	participants []*Participant
	lastActive   time.Time
	closed       bool
}

// NewRoom creates a room for quiz under key.
func NewRoom(key string, quiz domain.Quiz, opts RoomOptions) (*Room, error) {
	engine, err := NewEngine(quiz.Items)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	now := opts.Now()
	return &Room{
		key:        key,
		quizID:     quiz.ID,
		createdAt:  now,
		opts:       opts,
		engine:     engine,
		lastActive: now,
	}, nil
}

// Key returns the room's registry key.
func (r *Room) Key() string {
	return r.key
}

// AddConnection registers handle as a participant, sends it the current
// question and tells everyone the new count, names and progress.
func (r *Room) AddConnection(handle Publisher, name string) (domain.ParticipantSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ParticipantSnapshot{}, domain.ErrRoomNotFound
	}
	if r.indexLocked(handle) >= 0 {
		return domain.ParticipantSnapshot{}, domain.ErrDuplicateParticipant
	}

	p := &Participant{
		ID:          uuid.NewString(),
		Name:        name,
		scoredIndex: -1,
		handle:      handle,
	}
	r.participants = append(r.participants, p)
	r.touchLocked()

	handle.Publish(r.renderLocked(domain.ResponseCurrentQuestion))
	r.broadcastLocked(r.renderLocked(domain.ResponseCurrentPlayerCount))
	r.broadcastLocked(r.renderLocked(domain.ResponseCurrentPlayerNames))
	r.broadcastLocked(r.renderLocked(domain.ResponseQuestionsInfo))

	return snapshotOf(p), nil
}

// RemoveConnection drops handle from the room and broadcasts the new count.
// Removing a handle that never joined is a caller bug and is reported.
func (r *Room) RemoveConnection(handle Publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(handle)
	if i < 0 {
		return domain.ErrParticipantNotFound
	}
	r.participants = append(r.participants[:i], r.participants[i+1:]...)
	r.touchLocked()

	r.broadcastLocked(r.renderLocked(domain.ResponseCurrentPlayerCount))
	return nil
}

// AllAnswered reports whether every participant has an answer. A room with
// no participants has trivially all answered.
func (r *Room) AllAnswered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allAnsweredLocked()
}

// SubmitAnswer records answer for handle and acknowledges it. Once every
// participant has answered, the room advances and broadcasts the new
// question followed by the new progress.
func (r *Room) SubmitAnswer(handle Publisher, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(handle)
	if i < 0 {
		return domain.ErrParticipantNotFound
	}
	p := r.participants[i]
	p.answer = &answer
	if index := r.engine.Index(); p.scoredIndex != index && r.engine.CurrentItem().IsCorrect(answer) {
		p.Score++
		p.scoredIndex = index
	}
	r.touchLocked()
	r.opts.Metrics.AnswerSubmitted()

	handle.Publish(r.renderLocked(domain.ResponseAnswerSet))

	if !r.allAnsweredLocked() {
		return nil
	}

	r.engine.Advance()
	if r.opts.ResetAnswers {
		for _, p := range r.participants {
			p.answer = nil
		}
	}
	r.opts.Metrics.QuestionAdvanced()

	next := r.renderLocked(domain.ResponseCurrentQuestion)
	next.Advance = true
	r.broadcastLocked(next)
	r.broadcastLocked(r.renderLocked(domain.ResponseQuestionsInfo))
	return nil
}

// CurrentQuestion re-sends the current question to handle alone.
func (r *Room) CurrentQuestion(handle Publisher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(handle) < 0 {
		return domain.ErrParticipantNotFound
	}
	handle.Publish(r.renderLocked(domain.ResponseCurrentQuestion))
	return nil
}

// Len returns the number of connected participants.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// LastActive is the time of the last join, leave or answer.
func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// Snapshot returns a copy of the room state.
func (r *Room) Snapshot() domain.RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]domain.ParticipantSnapshot, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, snapshotOf(p))
	}
	return domain.RoomSnapshot{
		Key:          r.key,
		QuizID:       r.quizID,
		Participants: participants,
		Amount:       r.engine.Size(),
		Index:        r.engine.Index(),
		CreatedAt:    r.createdAt,
		LastActive:   r.lastActive,
	}
}

// CloseIfIdle marks the room closed when it is empty and has been inactive
// since before cutoff. A closed room rejects new connections.
func (r *Room) CloseIfIdle(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.participants) > 0 || !r.lastActive.Before(cutoff) {
		return false
	}
	r.closed = true
	return true
}

func (r *Room) allAnsweredLocked() bool {
	for _, p := range r.participants {
		if p.answer == nil {
			return false
		}
	}
	return true
}

func (r *Room) indexLocked(handle Publisher) int {
	for i, p := range r.participants {
		if p.handle == handle {
			return i
		}
	}
	return -1
}

func (r *Room) touchLocked() {
	r.lastActive = r.opts.Now()
}

func (r *Room) broadcastLocked(resp domain.Response) {
	for _, p := range r.participants {
		p.handle.Publish(resp)
	}
}

// renderLocked builds the payload for kind from the current room state.
func (r *Room) renderLocked(kind domain.ResponseKind) domain.Response {
	switch kind {
	case domain.ResponseCurrentQuestion:
		item := r.engine.CurrentItem()
		answers := make([]string, len(item.Answers))
		copy(answers, item.Answers)
		return domain.Response{Kind: kind, Props: domain.QuestionProps{Question: item.Question, Answers: answers}}
	case domain.ResponseCurrentPlayerCount:
		return domain.Response{Kind: kind, Props: domain.CountProps{Count: len(r.participants)}}
	case domain.ResponseCurrentPlayerNames:
		names := make([]string, 0, len(r.participants))
		for _, p := range r.participants {
			names = append(names, p.Name)
		}
		return domain.Response{Kind: kind, Props: domain.NamesProps{Names: names}}
	case domain.ResponseQuestionsInfo:
		return domain.Response{Kind: kind, Props: domain.QuestionsInfoProps{Amount: r.engine.Size(), Index: r.engine.Index()}}
	case domain.ResponseAnswerSet, domain.ResponseNoSuchRoom:
		return domain.Response{Kind: kind, Props: domain.EmptyProps{}}
	default:
		panic("app: unknown response kind " + string(kind))
	}
}

func snapshotOf(p *Participant) domain.ParticipantSnapshot {
	return domain.ParticipantSnapshot{
		ID:       p.ID,
		Name:     p.Name,
		Answered: p.answer != nil,
		Score:    p.Score,
	}
}
