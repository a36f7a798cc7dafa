package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xboikom1/Quiz-builder/models"
)

const (
	EventQuizCreated = "quiz_created"
	EventQuizDeleted = "quiz_deleted"
)

// Event is a frame received from the quiz change feed.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ApplyEvent folds a change-feed event into the store. Unknown event types
// are ignored.
func (s *Store) ApplyEvent(event Event) error {
	switch event.Type {
	case EventQuizCreated:
		var summary models.QuizSummary
		if err := json.Unmarshal(event.Payload, &summary); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.prependSummary(summary)

	case EventQuizDeleted:
		var payload struct {
			ID uuid.UUID `json:"id"`
		}
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", event.Type, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.removeQuiz(payload.ID)
	}
	return nil
}

// Listen subscribes to the change feed at wsURL and applies every event to
// the store until ctx is done or the connection drops.
func (s *Store) Listen(ctx context.Context, wsURL string, dialer *websocket.Dialer) error {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				continue
			}
			return err
		}
		// Frames with undecodable payloads are skipped
		_ = s.ApplyEvent(event)
	}
}
