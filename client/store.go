package client

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/xboikom1/Quiz-builder/models"
)

const (
	fallbackListError   = "Failed to load quizzes"
	fallbackDetailError = "Failed to load quiz"
	fallbackCreateError = "Failed to create quiz"
	fallbackDeleteError = "Failed to delete quiz"
)

// QuizAPI is the remote side the store talks to. *APIClient implements it.
type QuizAPI interface {
	List(ctx context.Context) ([]models.QuizSummary, error)
	Detail(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	Create(ctx context.Context, payload CreateQuizPayload) (*models.Quiz, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// State is a point-in-time copy of the store.
type State struct {
	Summaries    []models.QuizSummary
	Entities     map[uuid.UUID]*models.Quiz
	ActiveQuizID *uuid.UUID
	Requests     map[RequestKind]RequestState
}

// Store holds quiz summaries, lazily loaded quiz details and the status of
// each kind of remote operation. Operations never wait on each other: the
// lock is only held while state is read or written, never across a call.
type Store struct {
	api QuizAPI

	mu           sync.RWMutex
	summaries    []models.QuizSummary
	entities     map[uuid.UUID]*models.Quiz
	activeQuizID *uuid.UUID
	requests     [4]RequestState
}

func NewStore(api QuizAPI) *Store {
	s := &Store{
		api:       api,
		summaries: []models.QuizSummary{},
		entities:  make(map[uuid.UUID]*models.Quiz),
	}
	for i := range s.requests {
		s.requests[i] = RequestState{Status: StatusIdle}
	}
	return s
}

func (s *Store) FetchQuizzes(ctx context.Context) error {
	s.begin(RequestList)

	summaries, err := s.api.List(ctx)
	if err != nil {
		s.fail(RequestList, err, fallbackListError)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[RequestList] = RequestState{Status: StatusSucceeded}
	s.summaries = append([]models.QuizSummary{}, summaries...)
	return nil
}

// FetchQuizByID loads the full quiz, caches it and makes it the active quiz.
func (s *Store) FetchQuizByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	s.begin(RequestDetail)

	quiz, err := s.api.Detail(ctx, id)
	if err != nil {
		s.fail(RequestDetail, err, fallbackDetailError)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[RequestDetail] = RequestState{Status: StatusSucceeded}
	s.entities[quiz.ID] = quiz
	s.setActive(quiz.ID)
	return quiz, nil
}

// CreateQuiz submits a new quiz. On success the quiz is cached, becomes the
// active quiz and its summary moves to the head of the list.
func (s *Store) CreateQuiz(ctx context.Context, payload CreateQuizPayload) (*models.Quiz, error) {
	s.begin(RequestCreate)

	quiz, err := s.api.Create(ctx, payload)
	if err != nil {
		s.fail(RequestCreate, err, fallbackCreateError)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[RequestCreate] = RequestState{Status: StatusSucceeded}
	s.entities[quiz.ID] = quiz
	s.setActive(quiz.ID)
	s.prependSummary(quiz.Summary())
	return quiz, nil
}

func (s *Store) DeleteQuiz(ctx context.Context, id uuid.UUID) error {
	s.begin(RequestDelete)

	if err := s.api.Remove(ctx, id); err != nil {
		s.fail(RequestDelete, err, fallbackDeleteError)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[RequestDelete] = RequestState{Status: StatusSucceeded}
	s.removeQuiz(id)
	return nil
}

// SetActiveQuizID points the store at a quiz; nil clears the pointer.
func (s *Store) SetActiveQuizID(id *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == nil {
		s.activeQuizID = nil
		return
	}
	s.setActive(*id)
}

func (s *Store) Summaries() []models.QuizSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.QuizSummary{}, s.summaries...)
}

func (s *Store) Quiz(id uuid.UUID) (*models.Quiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.entities[id]
	return quiz, ok
}

func (s *Store) ActiveQuizID() (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeQuizID == nil {
		return uuid.Nil, false
	}
	return *s.activeQuizID, true
}

// ActiveQuiz returns the active quiz if its detail has been loaded.
func (s *Store) ActiveQuiz() (*models.Quiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeQuizID == nil {
		return nil, false
	}
	quiz, ok := s.entities[*s.activeQuizID]
	return quiz, ok
}

func (s *Store) Request(kind RequestKind) RequestState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind < 0 || int(kind) >= len(s.requests) {
		return RequestState{Status: StatusIdle}
	}
	return s.requests[kind]
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Summaries: append([]models.QuizSummary{}, s.summaries...),
		Entities:  make(map[uuid.UUID]*models.Quiz, len(s.entities)),
		Requests:  make(map[RequestKind]RequestState, len(s.requests)),
	}
	for id, quiz := range s.entities {
		state.Entities[id] = quiz
	}
	if s.activeQuizID != nil {
		id := *s.activeQuizID
		state.ActiveQuizID = &id
	}
	for i, req := range s.requests {
		state.Requests[RequestKind(i)] = req
	}
	return state
}

func (s *Store) begin(kind RequestKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[kind] = RequestState{Status: StatusLoading}
}

func (s *Store) fail(kind RequestKind, err error, fallback string) {
	message := fallback
	if err != nil && err.Error() != "" {
		message = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[kind] = RequestState{Status: StatusFailed, Error: message}
}

// Callers must hold mu.
func (s *Store) setActive(id uuid.UUID) {
	s.activeQuizID = &id
}

// Callers must hold mu.
func (s *Store) prependSummary(summary models.QuizSummary) {
	summaries := make([]models.QuizSummary, 0, len(s.summaries)+1)
	summaries = append(summaries, summary)
	for _, item := range s.summaries {
		if item.ID != summary.ID {
			summaries = append(summaries, item)
		}
	}
	s.summaries = summaries
}

// Callers must hold mu.
func (s *Store) removeQuiz(id uuid.UUID) {
	delete(s.entities, id)

	summaries := s.summaries[:0]
	for _, item := range s.summaries {
		if item.ID != id {
			summaries = append(summaries, item)
		}
	}
	s.summaries = summaries

	if s.activeQuizID != nil && *s.activeQuizID == id {
		s.activeQuizID = nil
	}
}
