package client

import (
	"github.com/xboikom1/Quiz-builder/models"
)

// CreateQuizPayload is the body sent to POST /quizzes.
type CreateQuizPayload struct {
	Title     string            `json:"title"`
	Questions []QuestionPayload `json:"questions"`
}

type QuestionPayload struct {
	Prompt        string              `json:"prompt"`
	Type          models.QuestionType `json:"type"`
	Order         *int                `json:"order,omitempty"`
	BooleanAnswer *bool               `json:"booleanAnswer,omitempty"`
	TextAnswer    *string             `json:"textAnswer,omitempty"`
	Options       []OptionPayload     `json:"options,omitempty"`
}

type OptionPayload struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type RequestStatus string

const (
	StatusIdle      RequestStatus = "idle"
	StatusLoading   RequestStatus = "loading"
	StatusSucceeded RequestStatus = "succeeded"
	StatusFailed    RequestStatus = "failed"
)

// RequestState is the lifecycle of one kind of remote operation.
type RequestState struct {
	Status RequestStatus
	Error  string
}

type RequestKind int

const (
	RequestList RequestKind = iota
	RequestDetail
	RequestCreate
	RequestDelete
)

func (k RequestKind) String() string {
	switch k {
	case RequestList:
		return "list"
	case RequestDetail:
		return "detail"
	case RequestCreate:
		return "create"
	case RequestDelete:
		return "delete"
	default:
		return "unknown"
	}
}
