package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xboikom1/Quiz-builder/models"
)

var ErrQuizNotFound = errors.New("quiz not found")

// PersistenceError reports a store-level failure of a quiz operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type QuizService struct {
	db     *gorm.DB
	events EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

func NewQuizService(db *gorm.DB, events EventPublisher, logger *zap.Logger) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		db:     db,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// CreateQuiz stores the quiz, its questions and their options in a single
// transaction and returns the stored quiz as GetQuizByID would.
func (s *QuizService) CreateQuiz(ctx context.Context, draft *models.QuizDraft) (*models.Quiz, error) {
	// Start transaction
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, &PersistenceError{Op: "begin transaction", Err: tx.Error}
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// Create quiz
	quiz := models.Quiz{
		Title:     draft.Title,
		CreatedAt: s.now().UTC(),
	}
	if err := tx.Create(&quiz).Error; err != nil {
		tx.Rollback()
		return nil, &PersistenceError{Op: "create quiz", Err: err}
	}

	// Create questions and options
	for idx, qDraft := range draft.Questions {
		question := models.Question{
			QuizID:   quiz.ID,
			Prompt:   qDraft.Prompt,
			Type:     qDraft.Answer.Type(),
			Order:    qDraft.Order,
			Position: idx,
		}

		var options []models.Option
		switch answer := qDraft.Answer.(type) {
		case models.BooleanAnswer:
			value := bool(answer)
			question.BooleanAnswer = &value
		case models.TextAnswer:
			value := string(answer)
			question.TextAnswer = &value
		case models.CheckboxAnswer:
			options = make([]models.Option, 0, len(answer))
			for pos, opt := range answer {
				options = append(options, models.Option{
					Text:      opt.Text,
					IsCorrect: opt.IsCorrect,
					Position:  pos,
				})
			}
		}

		if err := tx.Create(&question).Error; err != nil {
			tx.Rollback()
			return nil, &PersistenceError{Op: "create question", Err: err}
		}

		if len(options) == 0 {
			continue
		}
		for i := range options {
			options[i].QuestionID = question.ID
		}
		if err := tx.Create(&options).Error; err != nil {
			tx.Rollback()
			return nil, &PersistenceError{Op: "create options", Err: err}
		}
	}

	// Commit transaction
	if err := tx.Commit().Error; err != nil {
		return nil, &PersistenceError{Op: "commit quiz", Err: err}
	}

	// Fetch the quiz with questions and options loaded
	created, err := s.GetQuizByID(ctx, quiz.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("quiz created",
		zap.String("quiz_id", created.ID.String()),
		zap.Int("questions", len(created.Questions)),
	)
	s.publish(ctx, Message{Type: EventQuizCreated, Payload: created.Summary()})

	return created, nil
}

// ListQuizzes returns every quiz, newest first, without loading question bodies.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]models.QuizSummary, error) {
	var summaries []models.QuizSummary
	err := s.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Select("quizzes.id, quizzes.title, quizzes.created_at, COUNT(questions.id) AS question_count").
		Joins("LEFT JOIN questions ON questions.quiz_id = quizzes.id").
		Group("quizzes.id, quizzes.title, quizzes.created_at").
		Order("quizzes.created_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, &PersistenceError{Op: "list quizzes", Err: err}
	}
	if summaries == nil {
		summaries = []models.QuizSummary{}
	}
	return summaries, nil
}

// GetQuizByID loads a quiz with questions ordered by their order value and
// options in insertion order. It returns ErrQuizNotFound when no row matches.
func (s *QuizService) GetQuizByID(ctx context.Context, quizID uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	err := s.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, position ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&quiz, "id = ?", quizID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuizNotFound
		}
		return nil, &PersistenceError{Op: "get quiz", Err: err}
	}
	return &quiz, nil
}

// DeleteQuiz removes the quiz together with its questions and options. The
// result reports whether the quiz existed.
func (s *QuizService) DeleteQuiz(ctx context.Context, quizID uuid.UUID) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questionIDs := tx.Model(&models.Question{}).Select("id").Where("quiz_id = ?", quizID)
		if err := tx.Where("question_id IN (?)", questionIDs).Delete(&models.Option{}).Error; err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
		if err := tx.Where("quiz_id = ?", quizID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}

		result := tx.Where("id = ?", quizID).Delete(&models.Quiz{})
		if result.Error != nil {
			return fmt.Errorf("delete quiz: %w", result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, &PersistenceError{Op: "delete quiz", Err: err}
	}

	if deleted {
		s.logger.Info("quiz deleted", zap.String("quiz_id", quizID.String()))
		s.publish(ctx, Message{Type: EventQuizDeleted, Payload: QuizDeletedPayload{ID: quizID}})
	}
	return deleted, nil
}

func (s *QuizService) publish(ctx context.Context, msg Message) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, msg); err != nil {
		s.logger.Warn("failed to publish quiz event", zap.String("type", msg.Type), zap.Error(err))
	}
}
