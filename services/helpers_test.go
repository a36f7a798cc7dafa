package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/xboikom1/Quiz-builder/config"
	"github.com/xboikom1/Quiz-builder/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.Config{DB: config.DB{
		Driver: config.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "quizzes.db"),
	}}
	db, err := config.InitDB(cfg)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB failed: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return p.err
}

func (p *recordingPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message{}, p.messages...)
}

// steppingClock returns a strictly increasing time on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current := next
		next = next.Add(step)
		return current
	}
}

func newTestService(t *testing.T) (*QuizService, *recordingPublisher) {
	t.Helper()

	publisher := &recordingPublisher{}
	service := NewQuizService(newTestDB(t), publisher, nil)
	service.now = steppingClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), time.Minute)
	return service, publisher
}

func boolDraft(prompt string, order int, answer bool) models.QuestionDraft {
	return models.QuestionDraft{Prompt: prompt, Order: order, Answer: models.BooleanAnswer(answer)}
}

func mixedDraft(title string) *models.QuizDraft {
	return &models.QuizDraft{
		Title: title,
		Questions: []models.QuestionDraft{
			{Prompt: "Name the largest planet", Order: 2, Answer: models.TextAnswer("Jupiter")},
			boolDraft("The sun is a star", 0, true),
			{Prompt: "Pick the gas giants", Order: 1, Answer: models.CheckboxAnswer{
				{Text: "Saturn", IsCorrect: true},
				{Text: "Mars", IsCorrect: false},
				{Text: "Neptune", IsCorrect: true},
			}},
		},
	}
}
