package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xboikom1/Quiz-builder/handlers"
	"github.com/xboikom1/Quiz-builder/middleware"
)

// Dependencies are the collaborators the route table is built from.
type Dependencies struct {
	QuizHandler    *handlers.QuizHandler
	EventsHandler  *handlers.EventsHandler
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter builds the engine with the middleware chain and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	// Unmatched paths such as /quizzes/ fall through to the JSON NoRoute handler
	router.RedirectTrailingSlash = false
	router.Use(
		middleware.RequestLogger(logger),
		middleware.Recovery(logger),
		middleware.CORS(deps.AllowedOrigins),
		middleware.ErrorHandler(logger),
	)

	SetupRoutes(router, deps.QuizHandler, deps.EventsHandler)
	return router
}

func SetupRoutes(router *gin.Engine, quizHandler *handlers.QuizHandler, eventsHandler *handlers.EventsHandler) {
	quizzes := router.Group("/quizzes")
	{
		quizzes.GET("", quizHandler.ListQuizzes)
		quizzes.POST("", quizHandler.CreateQuiz)
		quizzes.GET("/:id", middleware.ValidateIDParam("id"), quizHandler.GetQuizByID)
		quizzes.DELETE("/:id", middleware.ValidateIDParam("id"), quizHandler.DeleteQuiz)
	}

	// WebSocket feed of quiz changes
	if eventsHandler != nil {
		router.GET("/ws/quizzes", eventsHandler.Subscribe)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.NoRoute(middleware.NotFound)
}
