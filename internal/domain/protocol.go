package domain

import "encoding/json"

// ResponseKind tags an outbound message.
type ResponseKind string

const (
	ResponseCurrentQuestion    ResponseKind = "CURRENT_QUESTION"
	ResponseAnswerSet          ResponseKind = "ANSWER_SET"
	ResponseCurrentPlayerCount ResponseKind = "CURRENT_PLAYER_COUNT"
	ResponseCurrentPlayerNames ResponseKind = "CURRENT_PLAYER_NAMES"
	ResponseQuestionsInfo      ResponseKind = "QUESTIONS_INFO"
	ResponseNoSuchRoom         ResponseKind = "NO_SUCH_ROOM"
)

// Response is an outbound message. Advance marks a CURRENT_QUESTION sent
// because the room moved on; it is not part of the wire format.
type Response struct {
	Kind    ResponseKind `json:"response"`
	Props   any          `json:"props"`
	Advance bool         `json:"-"`
}

// QuestionProps carries the prompt and candidate answers, never the correct one.
type QuestionProps struct {
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

type CountProps struct {
	Count int `json:"count"`
}

type NamesProps struct {
	Names []string `json:"names"`
}

type QuestionsInfoProps struct {
	Amount int `json:"amount"`
	Index  int `json:"index"`
}

// EmptyProps serializes as {}.
type EmptyProps struct{}

// RequestKind tags an inbound message.
type RequestKind int

const (
	RequestJoinRoom RequestKind = iota + 1
	RequestCurrentQuestion
	RequestSetAnswer
)

func (k RequestKind) String() string {
	switch k {
	case RequestJoinRoom:
		return "JOIN_ROOM"
	case RequestCurrentQuestion:
		return "CURRENT_QUESTION"
	case RequestSetAnswer:
		return "SET_ANSWER"
	default:
		return "UNKNOWN"
	}
}

// Request is a parsed inbound message.
type Request struct {
	Kind    RequestKind
	RoomKey string
	Name    string
	Answer  string
}

type rawRequest struct {
	Request  json.RawMessage `json:"request"`
	JoinRoom json.RawMessage `json:"JOIN_ROOM"`
	Name     string          `json:"name"`
	Props    json.RawMessage `json:"props"`
}

type answerProps struct {
	Answer *string `json:"answer"`
}

// ParseRequest decodes a client message. ok is false for anything that is
// not one of the known request shapes; such messages are meant to be dropped.
func ParseRequest(data []byte) (Request, bool) {
	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, false
	}

	if len(raw.Request) == 0 {
		if len(raw.JoinRoom) == 0 {
			return Request{}, false
		}
		var key *string
		if err := json.Unmarshal(raw.JoinRoom, &key); err != nil || key == nil {
			return Request{}, false
		}
		return Request{Kind: RequestJoinRoom, RoomKey: *key, Name: raw.Name}, true
	}

	var kind string
	if err := json.Unmarshal(raw.Request, &kind); err != nil {
		return Request{}, false
	}
	switch kind {
	case "CURRENT_QUESTION":
		return Request{Kind: RequestCurrentQuestion}, true
	case "SET_ANSWER":
		if len(raw.Props) == 0 {
			return Request{}, false
		}
		var props answerProps
		if err := json.Unmarshal(raw.Props, &props); err != nil || props.Answer == nil {
			return Request{}, false
		}
		return Request{Kind: RequestSetAnswer, Answer: *props.Answer}, true
	default:
		return Request{}, false
	}
}
