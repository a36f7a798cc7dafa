package models

// QuizDraft is a validated quiz-creation payload. Identifiers and timestamps
// are assigned by the store when the draft is persisted.
type QuizDraft struct {
	Title     string
	Questions []QuestionDraft
}

type QuestionDraft struct {
	Prompt string
	Order  int
	Answer Answer
}

// Answer is the type-specific part of a question. Exactly one of
// BooleanAnswer, TextAnswer and CheckboxAnswer implements it, so a draft can
// never carry fields that belong to another question type.
type Answer interface {
	Type() QuestionType
	isAnswer()
}

type BooleanAnswer bool

func (BooleanAnswer) Type() QuestionType { return QuestionTypeBoolean }
func (BooleanAnswer) isAnswer()          {}

type TextAnswer string

func (TextAnswer) Type() QuestionType { return QuestionTypeInput }
func (TextAnswer) isAnswer()          {}

type CheckboxAnswer []OptionDraft

func (CheckboxAnswer) Type() QuestionType { return QuestionTypeCheckbox }
func (CheckboxAnswer) isAnswer()          {}

type OptionDraft struct {
	Text      string
	IsCorrect bool
}
