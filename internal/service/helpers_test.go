package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.Type)
	}
	return types
}

type recordingCache struct {
	assignments []uint
	students    []uint
}

func (c *recordingCache) InvalidateAssignment(ctx context.Context, assignmentID uint) {
	c.assignments = append(c.assignments, assignmentID)
}

func (c *recordingCache) InvalidateStudent(ctx context.Context, studentID uint) {
	c.students = append(c.students, studentID)
}

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func (m *memoryActivityRepo) actions() []string {
	actions := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

// fixture wires the real GORM repositories against an in-memory SQLite database.
type fixture struct {
	db          *gorm.DB
	questions   repository.QuestionRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	students    repository.StudentRepository
	activity    *memoryActivityRepo
	events      *recordingPublisher
	cache       *recordingCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	return &fixture{
		db:          db,
		questions:   repository.NewQuestionRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		students:    repository.NewStudentRepository(db),
		activity:    &memoryActivityRepo{},
		events:      &recordingPublisher{},
		cache:       &recordingCache{},
	}
}

func (f *fixture) activityService() ActivityService {
	return NewActivityService(f.activity, testValidator(), testLogger())
}

func (f *fixture) student(t *testing.T, name string) models.Student {
	t.Helper()
	student := models.Student{Name: name, Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])}
	require.NoError(t, f.students.Create(context.Background(), &student))
	return student
}

func (f *fixture) objective(t *testing.T, qType string, correct ...string) models.Question {
	t.Helper()
	question := models.Question{Type: qType, Content: "Pick " + qType, Difficulty: models.DifficultyEasy}
	question.SetOptions([]models.QuestionOption{{ID: "A", Text: "a"}, {ID: "B", Text: "b"}, {ID: "C", Text: "c"}, {ID: "D", Text: "d"}})
	question.SetCorrectAnswers(correct)
	require.NoError(t, f.questions.Create(context.Background(), &question))
	return question
}

func (f *fixture) descriptive(t *testing.T) models.Question {
	t.Helper()
	question := models.Question{Type: models.QuestionTypeDescriptive, Content: "Explain", Difficulty: models.DifficultyMedium}
	require.NoError(t, f.questions.Create(context.Background(), &question))
	return question
}

// dispatched stores a dispatched assignment visible to everyone.
func (f *fixture) dispatched(t *testing.T, mode string, questions ...models.Question) models.Assignment {
	t.Helper()
	ctx := context.Background()
	assignment := models.Assignment{Title: "Assignment", Mode: mode, VisibleToAll: true, CreatedByRole: models.RoleMentor}
	for _, question := range questions {
		assignment.Items = append(assignment.Items, models.AssignmentQuestion{QuestionID: question.ID, Question: question})
	}
	require.NoError(t, f.assignments.Create(ctx, &assignment))
	now := time.Now().UTC()
	require.NoError(t, f.assignments.SetDispatch(ctx, assignment.ID, true, &now))

	stored, err := f.assignments.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	return stored
}

func ptrTime(t time.Time) *time.Time {
	return &t
}

func ptrString(s string) *string {
	return &s
}

func ptrUint(v uint) *uint {
	return &v
}
