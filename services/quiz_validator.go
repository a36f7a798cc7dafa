package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/xboikom1/Quiz-builder/models"
)

type IssueCode string

const (
	IssueEmptyField      IssueCode = "EmptyField"
	IssueMissingField    IssueCode = "MissingField"
	IssueInvalidEnum     IssueCode = "InvalidEnum"
	IssueInvalidNumber   IssueCode = "InvalidNumber"
	IssueInvalidType     IssueCode = "InvalidType"
	IssueInvalidJSON     IssueCode = "InvalidJSON"
	IssueTooFewOptions   IssueCode = "TooFewOptions"
	IssueNoCorrectOption IssueCode = "NoCorrectOption"
	IssueUnexpectedField IssueCode = "UnexpectedField"
	IssueEmptyCollection IssueCode = "EmptyCollection"
)

// Issue is a single field-level violation of a quiz payload.
type Issue struct {
	Path    string    `json:"path"`
	Code    IssueCode `json:"code"`
	Message string    `json:"message"`
}

// ValidationError carries every violation found in a payload.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", e.Issues[0].Path, e.Issues[0].Message)
	}
	return fmt.Sprintf("validation failed: %d issues", len(e.Issues))
}

// HasIssue reports whether an issue with the given path and code was collected.
func (e *ValidationError) HasIssue(path string, code IssueCode) bool {
	for _, issue := range e.Issues {
		if issue.Path == path && issue.Code == code {
			return true
		}
	}
	return false
}

type CreateQuizRequest struct {
	Title     string                  `json:"title" validate:"notblank"`
	Questions []CreateQuestionRequest `json:"questions" validate:"min=1"`
}

type CreateQuestionRequest struct {
	Prompt        string                `json:"prompt" validate:"notblank"`
	Type          models.QuestionType   `json:"type" validate:"oneof=BOOLEAN INPUT CHECKBOX"`
	Order         *float64              `json:"order,omitempty"`
	BooleanAnswer *bool                 `json:"booleanAnswer,omitempty"`
	TextAnswer    *string               `json:"textAnswer,omitempty"`
	Options       []CreateOptionRequest `json:"options,omitempty" validate:"dive"`
}

type CreateOptionRequest struct {
	Text      string `json:"text" validate:"notblank"`
	IsCorrect *bool  `json:"isCorrect" validate:"required"`
}

// QuizValidator turns external quiz-creation payloads into drafts that are
// safe to persist.
type QuizValidator struct {
	validate *validator.Validate
}

func NewQuizValidator() *QuizValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	// Report JSON field names in issue paths
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &QuizValidator{validate: v}
}

// Parse decodes a raw request body and validates it. JSON type errors are
// reported alongside the rule violations found in the rest of the payload.
func (v *QuizValidator) Parse(body []byte) (*models.QuizDraft, error) {
	req, typeIssues, err := decodePayload(body)
	if err != nil {
		return nil, err
	}
	return v.check(req, typeIssues)
}

// Validate checks every rule and either returns a normalized draft or a
// *ValidationError holding all violations. It never returns both.
func (v *QuizValidator) Validate(req *CreateQuizRequest) (*models.QuizDraft, error) {
	return v.check(req, nil)
}

func (v *QuizValidator) check(req *CreateQuizRequest, typeIssues []Issue) (*models.QuizDraft, error) {
	var issues []Issue

	if err := v.validate.Struct(req); err != nil {
		issues = append(issues, fieldIssues(err, "")...)
	}

	for i := range req.Questions {
		question := &req.Questions[i]
		prefix := fmt.Sprintf("questions[%d]", i)

		if err := v.validate.Struct(question); err != nil {
			issues = append(issues, fieldIssues(err, prefix)...)
		}
		issues = append(issues, questionIssues(question, prefix)...)
	}

	issues = mergeTypeIssues(typeIssues, issues)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	return normalize(req), nil
}

type rawQuiz struct {
	Title     json.RawMessage `json:"title"`
	Questions json.RawMessage `json:"questions"`
}

type rawQuestion struct {
	Prompt        json.RawMessage `json:"prompt"`
	Type          json.RawMessage `json:"type"`
	Order         json.RawMessage `json:"order"`
	BooleanAnswer json.RawMessage `json:"booleanAnswer"`
	TextAnswer    json.RawMessage `json:"textAnswer"`
	Options       json.RawMessage `json:"options"`
}

type rawOption struct {
	Text      json.RawMessage `json:"text"`
	IsCorrect json.RawMessage `json:"isCorrect"`
}

// decodePayload decodes the body field by field so that a value of the wrong
// JSON type only invalidates its own path.
func decodePayload(body []byte) (*CreateQuizRequest, []Issue, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil, &ValidationError{Issues: []Issue{{
			Code:    IssueInvalidJSON,
			Message: "Request body is required",
		}}}
	}
	if !json.Valid(body) {
		return nil, nil, &ValidationError{Issues: []Issue{{
			Code:    IssueInvalidJSON,
			Message: "Request body must be valid JSON",
		}}}
	}

	var issues []Issue
	var raw rawQuiz
	if !decodeField(body, &raw, "", &issues) {
		return nil, nil, &ValidationError{Issues: issues}
	}

	req := &CreateQuizRequest{}
	decodeField(raw.Title, &req.Title, "title", &issues)

	var questions []json.RawMessage
	decodeField(raw.Questions, &questions, "questions", &issues)
	for i, rq := range questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		var q CreateQuestionRequest
		var fields rawQuestion
		if decodeField(rq, &fields, prefix, &issues) {
			decodeField(fields.Prompt, &q.Prompt, joinPath(prefix, "prompt"), &issues)
			decodeField(fields.Type, &q.Type, joinPath(prefix, "type"), &issues)
			decodeField(fields.Order, &q.Order, joinPath(prefix, "order"), &issues)
			decodeField(fields.BooleanAnswer, &q.BooleanAnswer, joinPath(prefix, "booleanAnswer"), &issues)
			decodeField(fields.TextAnswer, &q.TextAnswer, joinPath(prefix, "textAnswer"), &issues)

			var options []json.RawMessage
			decodeField(fields.Options, &options, joinPath(prefix, "options"), &issues)
			for j, ro := range options {
				optionPath := fmt.Sprintf("%s.options[%d]", prefix, j)
				var o CreateOptionRequest
				var optionFields rawOption
				if decodeField(ro, &optionFields, optionPath, &issues) {
					decodeField(optionFields.Text, &o.Text, joinPath(optionPath, "text"), &issues)
					decodeField(optionFields.IsCorrect, &o.IsCorrect, joinPath(optionPath, "isCorrect"), &issues)
				}
				q.Options = append(q.Options, o)
			}
		}
		req.Questions = append(req.Questions, q)
	}

	return req, issues, nil
}

// decodeField unmarshals one already well-formed value, recording an
// InvalidType issue at path when the JSON type does not fit the target.
func decodeField(raw json.RawMessage, target interface{}, path string, issues *[]Issue) bool {
	if len(raw) == 0 {
		return true
	}
	err := json.Unmarshal(raw, target)
	if err == nil {
		return true
	}

	issue := Issue{Path: path, Code: IssueInvalidType, Message: "Value has an unexpected type"}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		issue.Message = fmt.Sprintf("Expected %s, received %s", jsonKind(typeErr.Type), typeErr.Value)
	}
	*issues = append(*issues, issue)
	return false
}

// mergeTypeIssues puts type issues first and drops rule issues reported at or
// below a path whose value could not be decoded.
func mergeTypeIssues(typeIssues, ruleIssues []Issue) []Issue {
	if len(typeIssues) == 0 {
		return ruleIssues
	}

	merged := append([]Issue{}, typeIssues...)
	for _, issue := range ruleIssues {
		if !coveredByTypeIssue(issue.Path, typeIssues) {
			merged = append(merged, issue)
		}
	}
	return merged
}

func coveredByTypeIssue(path string, typeIssues []Issue) bool {
	for _, typeIssue := range typeIssues {
		p := typeIssue.Path
		if path == p || strings.HasPrefix(path, p+".") || strings.HasPrefix(path, p+"[") {
			return true
		}
	}
	return false
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int32, reflect.Int64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func fieldIssues(err error, prefix string) []Issue {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Issue{{Path: prefix, Code: IssueInvalidType, Message: err.Error()}}
	}

	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := fe.Namespace()
		// Drop the struct name the namespace starts with
		if idx := strings.IndexByte(path, '.'); idx >= 0 {
			path = path[idx+1:]
		}
		issues = append(issues, fieldIssue(fe, joinPath(prefix, path)))
	}
	return issues
}

func fieldIssue(fe validator.FieldError, path string) Issue {
	switch fe.Tag() {
	case "notblank":
		return Issue{Path: path, Code: IssueEmptyField, Message: blankMessage(fe.Field())}
	case "oneof":
		return Issue{Path: path, Code: IssueInvalidEnum, Message: "Question type must be one of " + questionTypeList()}
	case "min":
		return Issue{Path: path, Code: IssueEmptyCollection, Message: "At least one question is required"}
	case "required":
		return Issue{Path: path, Code: IssueMissingField, Message: fmt.Sprintf("%s is required", fe.Field())}
	default:
		return Issue{Path: path, Code: IssueInvalidType, Message: fmt.Sprintf("%s failed %s check", fe.Field(), fe.Tag())}
	}
}

func questionTypeList() string {
	names := make([]string, 0, len(models.QuestionTypes))
	for _, t := range models.QuestionTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func blankMessage(field string) string {
	switch field {
	case "title":
		return "Quiz title is required"
	case "prompt":
		return "Question prompt is required"
	case "text":
		return "Option text is required"
	default:
		return fmt.Sprintf("%s must not be blank", field)
	}
}

// questionIssues applies the rules that depend on the question type.
func questionIssues(q *CreateQuestionRequest, prefix string) []Issue {
	var issues []Issue

	if q.Order != nil {
		order := *q.Order
		if order < 0 || order != math.Trunc(order) || order > math.MaxInt32 {
			issues = append(issues, Issue{
				Path:    joinPath(prefix, "order"),
				Code:    IssueInvalidNumber,
				Message: "Question order must be a non-negative integer",
			})
		}
	}

	switch q.Type {
	case models.QuestionTypeBoolean:
		if q.BooleanAnswer == nil {
			issues = append(issues, Issue{
				Path:    joinPath(prefix, "booleanAnswer"),
				Code:    IssueMissingField,
				Message: "Boolean questions require a booleanAnswer field",
			})
		}
	case models.QuestionTypeInput:
		if q.TextAnswer == nil || strings.TrimSpace(*q.TextAnswer) == "" {
			issues = append(issues, Issue{
				Path:    joinPath(prefix, "textAnswer"),
				Code:    IssueMissingField,
				Message: "Input questions require a textAnswer field",
			})
		}
	case models.QuestionTypeCheckbox:
		if len(q.Options) < 2 {
			issues = append(issues, Issue{
				Path:    joinPath(prefix, "options"),
				Code:    IssueTooFewOptions,
				Message: "Checkbox questions need at least two options",
			})
		} else if !hasCorrectOption(q.Options) {
			issues = append(issues, Issue{
				Path:    joinPath(prefix, "options"),
				Code:    IssueNoCorrectOption,
				Message: "Checkbox questions need at least one correct option",
			})
		}
	}

	if q.Type != models.QuestionTypeCheckbox && len(q.Options) > 0 {
		issues = append(issues, Issue{
			Path:    joinPath(prefix, "options"),
			Code:    IssueUnexpectedField,
			Message: "Only checkbox questions may define options",
		})
	}

	return issues
}

func hasCorrectOption(options []CreateOptionRequest) bool {
	for _, option := range options {
		if option.IsCorrect != nil && *option.IsCorrect {
			return true
		}
	}
	return false
}

func normalize(req *CreateQuizRequest) *models.QuizDraft {
	draft := &models.QuizDraft{
		Title:     req.Title,
		Questions: make([]models.QuestionDraft, 0, len(req.Questions)),
	}

	for idx, q := range req.Questions {
		order := idx
		if q.Order != nil {
			order = int(*q.Order)
		}

		var answer models.Answer
		switch q.Type {
		case models.QuestionTypeBoolean:
			answer = models.BooleanAnswer(*q.BooleanAnswer)
		case models.QuestionTypeInput:
			answer = models.TextAnswer(*q.TextAnswer)
		case models.QuestionTypeCheckbox:
			options := make(models.CheckboxAnswer, 0, len(q.Options))
			for _, option := range q.Options {
				options = append(options, models.OptionDraft{
					Text:      option.Text,
					IsCorrect: *option.IsCorrect,
				})
			}
			answer = options
		}

		draft.Questions = append(draft.Questions, models.QuestionDraft{
			Prompt: q.Prompt,
			Order:  order,
			Answer: answer,
		})
	}

	return draft
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	if path == "" {
		return prefix
	}
	return prefix + "." + path
}
