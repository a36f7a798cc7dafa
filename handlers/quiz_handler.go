package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xboikom1/Quiz-builder/middleware"
	"github.com/xboikom1/Quiz-builder/models"
	"github.com/xboikom1/Quiz-builder/services"
)

const maxBodyBytes = 1 << 20

// QuizStore is the part of the quiz service the HTTP layer relies on.
type QuizStore interface {
	CreateQuiz(ctx context.Context, draft *models.QuizDraft) (*models.Quiz, error)
	ListQuizzes(ctx context.Context) ([]models.QuizSummary, error)
	GetQuizByID(ctx context.Context, quizID uuid.UUID) (*models.Quiz, error)
	DeleteQuiz(ctx context.Context, quizID uuid.UUID) (bool, error)
}

type QuizHandler struct {
	quizService QuizStore
	validator   *services.QuizValidator
}

func NewQuizHandler(quizService QuizStore, validator *services.QuizValidator) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		validator:   validator,
	}
}

type dataResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(middleware.NewHTTPError(http.StatusRequestEntityTooLarge, "Request body too large"))
			return
		}
		c.Error(middleware.NewHTTPError(http.StatusBadRequest, "Unable to read request body"))
		return
	}

	draft, err := h.validator.Parse(body)
	if err != nil {
		c.Error(err)
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), draft)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dataResponse{
		Status:  http.StatusCreated,
		Message: "Quiz created",
		Data:    quiz,
	})
}

func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.ListQuizzes(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dataResponse{Status: http.StatusOK, Data: quizzes})
}

func (h *QuizHandler) GetQuizByID(c *gin.Context) {
	quizID, ok := middleware.ResourceID(c)
	if !ok {
		c.Error(middleware.NewHTTPError(http.StatusBadRequest, "Invalid identifier"))
		return
	}

	quiz, err := h.quizService.GetQuizByID(c.Request.Context(), quizID)
	if err != nil {
		if errors.Is(err, services.ErrQuizNotFound) {
			c.Error(middleware.NewHTTPError(http.StatusNotFound, "Quiz not found"))
			return
		}
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dataResponse{Status: http.StatusOK, Data: quiz})
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID, ok := middleware.ResourceID(c)
	if !ok {
		c.Error(middleware.NewHTTPError(http.StatusBadRequest, "Invalid identifier"))
		return
	}

	deleted, err := h.quizService.DeleteQuiz(c.Request.Context(), quizID)
	if err != nil {
		c.Error(err)
		return
	}
	if !deleted {
		c.Error(middleware.NewHTTPError(http.StatusNotFound, "Quiz not found"))
		return
	}

	c.Status(http.StatusNoContent)
}
