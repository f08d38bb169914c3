package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/router"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/internal/utils"
)

const testSecret = "handler-secret"

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

type testApp struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithPolicy(t, service.SubmissionPolicy{EnforceDeadline: true, DeadlineGrace: 30 * time.Second})
}

func newTestAppWithPolicy(t *testing.T, policy service.SubmissionPolicy) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	log := zerolog.New(io.Discard)
	validate := utils.NewValidator()

	questionRepo := repository.NewQuestionRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	studentRepo := repository.NewStudentRepository(db)

	events := service.NewEventPublisher(nil, nil, "", log)
	cache := service.NewResultCache(nil, log)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), validate, log)
	grading := service.NewGradingService(assignmentRepo, submissionRepo, validate, activity, events, cache, log)

	cfg := config.Config{AppName: "assessment-test", AppEnv: "test", JWTSecret: testSecret}

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &log})
	router.Register(app, cfg, router.Dependencies{
		QuestionHandler:        handler.NewQuestionHandler(service.NewQuestionService(questionRepo, validate, activity, cache, log), log),
		AdminAssignmentHandler: handler.NewAdminAssignmentHandler(service.NewAdminAssignmentService(assignmentRepo, questionRepo, studentRepo, validate, activity, events, cache, log), grading, log),
		AdminGradingHandler:    handler.NewAdminGradingHandler(grading, log),
		AdminStudentHandler:    handler.NewAdminStudentHandler(service.NewStudentService(studentRepo, validate, log), log),
		AdminActivityHandler:   handler.NewAdminActivityHandler(activity, log),
		AdminAnalyticsHandler:  handler.NewAdminAnalyticsHandler(service.NewAssignmentAnalyticsService(assignmentRepo, submissionRepo, nil, 0, log), log),
		AssignmentHandler: handler.NewAssignmentHandler(
			service.NewAssignmentService(assignmentRepo, submissionRepo, log),
			service.NewSubmissionService(assignmentRepo, submissionRepo, validate, events, cache, policy, log),
			service.NewLeaderboardService(assignmentRepo, submissionRepo, nil, 0, log),
			log,
		),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(service.NewStudentDashboardService(assignmentRepo, submissionRepo, nil, 0, log), log),
	})

	return &testApp{app: app, db: db}
}

func tokenFor(t *testing.T, id uint, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(id), 10),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload envelope
	if len(raw) > 0 && resp.Header.Get(fiber.HeaderContentType) != "" {
		_ = json.Unmarshal(raw, &payload)
	}
	return resp.StatusCode, payload
}

func decode(t *testing.T, raw json.RawMessage, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, target))
}

type created struct {
	ID uint `json:"id"`
}

func (a *testApp) createStudent(t *testing.T, mentor, name string) uint {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/v1/admin/students", mentor, map[string]string{
		"name":  name,
		"email": name + "@example.com",
	})
	require.Equal(t, http.StatusCreated, status, body.Message)
	var student created
	decode(t, body.Data, &student)
	return student.ID
}

func (a *testApp) createMCQ(t *testing.T, mentor, correct string) uint {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/v1/questions", mentor, map[string]interface{}{
		"type":    "mcq",
		"content": "Pick " + correct,
		"options": []map[string]string{
			{"id": "A", "text": "alpha"},
			{"id": "B", "text": "beta"},
			{"id": "C", "text": "gamma"},
		},
		"correct_answers": []string{correct},
		"topics":          []string{"basics"},
	})
	require.Equal(t, http.StatusCreated, status, body.Message)
	var question created
	decode(t, body.Data, &question)
	return question.ID
}

func (a *testApp) createAssignment(t *testing.T, mentor string, payload map[string]interface{}) uint {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/api/v1/admin/assignments", mentor, payload)
	require.Equal(t, http.StatusCreated, status, body.Message)
	var assignment created
	decode(t, body.Data, &assignment)
	return assignment.ID
}
