// Package metrics provides lock-free counters for quiz room activity.
//
// A nil *Collector is a valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector tracks runtime counters for the quiz service.
type Collector struct {
	roomsCreated      atomic.Int64
	roomsReaped       atomic.Int64
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	answersSubmitted  atomic.Int64
	questionsAdvanced atomic.Int64
	requestsDropped   atomic.Int64

	startTime time.Time
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) RoomCreated() {
	if c == nil {
		return
	}
	c.roomsCreated.Add(1)
}

func (c *Collector) RoomsReaped(n int) {
	if c == nil {
		return
	}
	c.roomsReaped.Add(int64(n))
}

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

func (c *Collector) AnswerSubmitted() {
	if c == nil {
		return
	}
	c.answersSubmitted.Add(1)
}

func (c *Collector) QuestionAdvanced() {
	if c == nil {
		return
	}
	c.questionsAdvanced.Add(1)
}

// RequestDropped counts malformed or out-of-order client messages.
func (c *Collector) RequestDropped() {
	if c == nil {
		return
	}
	c.requestsDropped.Add(1)
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	RoomsCreated      int64  `json:"roomsCreated"`
	RoomsReaped       int64  `json:"roomsReaped"`
	ConnectionsActive int64  `json:"connectionsActive"`
	ConnectionsTotal  int64  `json:"connectionsTotal"`
	AnswersSubmitted  int64  `json:"answersSubmitted"`
	QuestionsAdvanced int64  `json:"questionsAdvanced"`
	RequestsDropped   int64  `json:"requestsDropped"`
}

func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		Uptime:            time.Since(c.startTime).Round(time.Second).String(),
		RoomsCreated:      c.roomsCreated.Load(),
		RoomsReaped:       c.roomsReaped.Load(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		AnswersSubmitted:  c.answersSubmitted.Load(),
		QuestionsAdvanced: c.questionsAdvanced.Load(),
		RequestsDropped:   c.requestsDropped.Load(),
	}
}
