package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/xboikom1/Quiz-builder/config"
	"github.com/xboikom1/Quiz-builder/handlers"
	"github.com/xboikom1/Quiz-builder/services"
)

type testApp struct {
	router *gin.Engine
	hub    *services.Hub
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := services.NewHub(nil)
	go hub.Run(ctx)

	quizService := services.NewQuizService(db, services.NewHubPublisher(hub), nil)
	router := NewRouter(Dependencies{
		QuizHandler:   handlers.NewQuizHandler(quizService, services.NewQuizValidator()),
		EventsHandler: handlers.NewEventsHandler(hub, nil, nil),
	})
	return &testApp{router: router, hub: hub}
}

func (a *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Issues  []struct {
		Path    string `json:"path"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"issues"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rr.Body.String(), err)
	}
	return env
}

type quizDetail struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	Questions []struct {
		ID            string  `json:"id"`
		Prompt        string  `json:"prompt"`
		Type          string  `json:"type"`
		Order         int     `json:"order"`
		BooleanAnswer *bool   `json:"booleanAnswer"`
		TextAnswer    *string `json:"textAnswer"`
		Options       []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			IsCorrect bool   `json:"isCorrect"`
		} `json:"options"`
	} `json:"questions"`
}

func (a *testApp) create(t *testing.T, body string) quizDetail {
	t.Helper()

	rr := a.do(t, http.MethodPost, "/quizzes", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("POST /quizzes status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var quiz quizDetail
	if err := json.Unmarshal(decode(t, rr).Data, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	return quiz
}

func TestCreateBooleanQuiz(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodPost, "/quizzes", `{"title":"T","questions":[{"prompt":"Q1","type":"BOOLEAN","booleanAnswer":true}]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body = %s", rr.Code, rr.Body.String())
	}

	env := decode(t, rr)
	if env.Status != http.StatusCreated || env.Message != "Quiz created" {
		t.Fatalf("envelope = %+v", env)
	}
	var quiz quizDetail
	if err := json.Unmarshal(env.Data, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].BooleanAnswer == nil || !*quiz.Questions[0].BooleanAnswer {
		t.Fatalf("questions = %+v, want booleanAnswer true", quiz.Questions)
	}
	if quiz.Questions[0].TextAnswer != nil || quiz.Questions[0].Options != nil {
		t.Fatalf("boolean question exposes other answer fields: %s", rr.Body.String())
	}
}

func TestCreateRejectsTooFewOptions(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodPost, "/quizzes", `{"title":"T","questions":[{"prompt":"Q1","type":"CHECKBOX","options":[{"text":"A","isCorrect":false}]}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	env := decode(t, rr)
	if env.Status != http.StatusBadRequest || env.Message != "Validation failed" {
		t.Fatalf("envelope = %+v", env)
	}
	found := false
	for _, issue := range env.Issues {
		if strings.HasSuffix(issue.Path, "options") && issue.Code == string(services.IssueTooFewOptions) {
			found = true
		}
	}
	if !found {
		t.Fatalf("issues = %+v, want TooFewOptions at options", env.Issues)
	}

	// Nothing was persisted
	list := decode(t, app.do(t, http.MethodGet, "/quizzes", ""))
	if string(list.Data) != "[]" {
		t.Fatalf("list after rejected create = %s, want []", list.Data)
	}
}

func TestMalformedIdentifier(t *testing.T) {
	app := newTestApp(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr := app.do(t, method, "/quizzes/not-a-uuid", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", method, rr.Code)
		}
		if env := decode(t, rr); env.Message != "Invalid identifier" {
			t.Fatalf("%s message = %q", method, env.Message)
		}
	}
}

func TestDeleteThenGet(t *testing.T) {
	app := newTestApp(t)
	quiz := app.create(t, `{"title":"T","questions":[{"prompt":"Q1","type":"INPUT","textAnswer":"yes"}]}`)

	rr := app.do(t, http.MethodDelete, "/quizzes/"+quiz.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("DELETE body = %q, want empty", rr.Body.String())
	}

	rr = app.do(t, http.MethodGet, "/quizzes/"+quiz.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want 404", rr.Code)
	}

	rr = app.do(t, http.MethodDelete, "/quizzes/"+quiz.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second DELETE status = %d, want 404", rr.Code)
	}
}

func TestGetQuizDetail(t *testing.T) {
	app := newTestApp(t)
	created := app.create(t, `{"title":"Mixed","questions":[
		{"prompt":"Last","type":"INPUT","textAnswer":"z","order":3},
		{"prompt":"First","type":"CHECKBOX","order":0,"options":[{"text":"A","isCorrect":true},{"text":"B","isCorrect":false}]}
	]}`)

	rr := app.do(t, http.MethodGet, "/quizzes/"+created.ID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	env := decode(t, rr)
	if env.Status != http.StatusOK {
		t.Fatalf("status field = %d", env.Status)
	}

	var quiz quizDetail
	if err := json.Unmarshal(env.Data, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}
	if quiz.ID != created.ID || quiz.CreatedAt == "" {
		t.Fatalf("quiz = %+v", quiz)
	}
	if quiz.Questions[0].Prompt != "First" || quiz.Questions[1].Prompt != "Last" {
		t.Fatalf("questions not ordered by order: %+v", quiz.Questions)
	}
	options := quiz.Questions[0].Options
	if len(options) != 2 || options[0].Text != "A" || !options[0].IsCorrect || options[1].Text != "B" {
		t.Fatalf("options = %+v", options)
	}
}

func TestListSummaries(t *testing.T) {
	app := newTestApp(t)
	app.create(t, `{"title":"One","questions":[{"prompt":"Q","type":"BOOLEAN","booleanAnswer":false}]}`)
	time.Sleep(5 * time.Millisecond)
	second := app.create(t, `{"title":"Two","questions":[{"prompt":"Q","type":"BOOLEAN","booleanAnswer":true},{"prompt":"R","type":"INPUT","textAnswer":"r"}]}`)

	rr := app.do(t, http.MethodGet, "/quizzes", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var summaries []struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		QuestionCount int    `json:"questionCount"`
		CreatedAt     string `json:"createdAt"`
	}
	if err := json.Unmarshal(decode(t, rr).Data, &summaries); err != nil {
		t.Fatalf("decode summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].ID != second.ID || summaries[0].QuestionCount != 2 || summaries[1].QuestionCount != 1 {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodPost, "/quizzes", `{"title":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if env := decode(t, rr); len(env.Issues) == 0 {
		t.Fatalf("expected issues in %s", rr.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodGet, "/nowhere", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	env := decode(t, rr)
	if env.Status != http.StatusNotFound || env.Message != "Route not found" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestTrailingSlashIsJSONNotFound(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodGet, "/quizzes/", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	env := decode(t, rr)
	if env.Status != http.StatusNotFound || env.Message != "Route not found" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("health = %d %s", rr.Code, rr.Body.String())
	}
}

func TestChangeFeedReceivesCreate(t *testing.T) {
	app := newTestApp(t)
	server := httptest.NewServer(app.router)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/quizzes", nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for app.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	quiz := app.create(t, `{"title":"Live","questions":[{"prompt":"Q","type":"BOOLEAN","booleanAnswer":true}]}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event struct {
		Type    string `json:"type"`
		Payload struct {
			ID            string `json:"id"`
			QuestionCount int    `json:"questionCount"`
		} `json:"payload"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if event.Type != services.EventQuizCreated || event.Payload.ID != quiz.ID || event.Payload.QuestionCount != 1 {
		t.Fatalf("event = %+v", event)
	}
}
