package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID *uint
	StudentID    *uint
	FinalOnly    bool
	GradedOnly   bool
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error)
	Upsert(ctx context.Context, submission *models.Submission) error
	SaveGrade(ctx context.Context, submission *models.Submission, history *models.SubmissionGradeHistory) error
}

// upsertColumns are replaced when a student submits again for the same assignment.
var upsertColumns = []string{
	"answers",
	"test_case_results",
	"grade",
	"is_final",
	"time_taken_ms",
	"submitted_at",
	"graded_by",
	"graded_at",
	"updated_at",
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Student")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.FinalOnly {
		query = query.Where("is_final = ?", true)
	}

	if filter.GradedOnly {
		query = query.Where("grade IS NOT NULL")
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC, id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("graded_at DESC, id DESC")
		}).
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("assignment_id = ?", assignmentID).
		Where("student_id = ?", studentID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// Upsert inserts the submission or replaces the existing one for the same
// (assignment, student) pair in a single statement, then reloads the stored row.
func (r *submissionRepository) Upsert(ctx context.Context, submission *models.Submission) error {
	if err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(submission).Error; err != nil {
		return err
	}

	stored, err := r.GetByAssignmentAndStudent(ctx, submission.AssignmentID, submission.StudentID)
	if err != nil {
		return err
	}

	*submission = stored
	return nil
}

// SaveGrade persists the graded submission and appends the history entry atomically.
func (r *submissionRepository) SaveGrade(ctx context.Context, submission *models.Submission, history *models.SubmissionGradeHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(submission).Error; err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		history.SubmissionID = submission.ID
		return tx.Create(history).Error
	})
}
