package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestionType string

const (
	QuestionTypeBoolean  QuestionType = "BOOLEAN"
	QuestionTypeInput    QuestionType = "INPUT"
	QuestionTypeCheckbox QuestionType = "CHECKBOX"
)

// QuestionTypes lists every accepted question type.
var QuestionTypes = []QuestionType{QuestionTypeBoolean, QuestionTypeInput, QuestionTypeCheckbox}

type Question struct {
	ID            uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	QuizID        uuid.UUID    `json:"-" gorm:"type:uuid;not null;index"`
	Prompt        string       `json:"prompt" gorm:"not null"`
	Type          QuestionType `json:"type" gorm:"type:varchar(16);not null"`
	Order         int          `json:"order" gorm:"column:sort_order;not null"`
	Position      int          `json:"-" gorm:"not null"` // index in the submitted payload
	BooleanAnswer *bool        `json:"booleanAnswer,omitempty"`
	TextAnswer    *string      `json:"textAnswer,omitempty"`

	// Relationships
	Options []Option `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
