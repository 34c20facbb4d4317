package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room key is not registered.
	ErrRoomNotFound = errors.New("room not found")
	// ErrParticipantNotFound is returned when a connection acts on a room it is not part of.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrDuplicateParticipant is returned when a connection joins a room twice.
	ErrDuplicateParticipant = errors.New("participant already in room")
	// ErrNotJoined is returned when a connection sends room requests before joining.
	ErrNotJoined = errors.New("connection has not joined a room")
	// ErrQuizNotFound indicates the question set could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrEmptyQuiz indicates a question set without any items.
	ErrEmptyQuiz = errors.New("quiz has no questions")
)
