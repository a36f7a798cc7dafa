package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/xboikom1/Quiz-builder/models"
)

const (
	defaultBaseURL        = "http://localhost:3000"
	unexpectedAPIErrorMsg = "Unexpected API error"
)

var ErrServiceUnavailable = errors.New("quiz service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// APIClient calls the quiz HTTP API.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &APIClient{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *APIClient) BaseURL() string {
	return c.baseURL
}

func (c *APIClient) List(ctx context.Context) ([]models.QuizSummary, error) {
	var summaries []models.QuizSummary
	if err := c.doJSON(ctx, http.MethodGet, "/quizzes", nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (c *APIClient) Detail(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := c.doJSON(ctx, http.MethodGet, "/quizzes/"+id.String(), nil, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *APIClient) Create(ctx context.Context, payload CreateQuizPayload) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := c.doJSON(ctx, http.MethodPost, "/quizzes", payload, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (c *APIClient) Remove(ctx context.Context, id uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, "/quizzes/"+id.String(), nil, nil)
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: response.StatusCode, Message: unexpectedAPIErrorMsg}
		var payload errorPayload
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Message) != "" {
			apiErr.Message = payload.Message
		}
		return apiErr
	}

	if response.StatusCode == http.StatusNoContent || responseBody == nil {
		return nil
	}

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	// Unwrap the {status, data} envelope when present
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	return json.Unmarshal(raw, responseBody)
}
