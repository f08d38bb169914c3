package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// AssignmentFilter describes pagination & search options.
type AssignmentFilter struct {
	Search     string
	Mode       string
	Dispatched *bool
	Page       int
	PageSize   int
}

// AssignmentRepository defines persistence operations for assignments.
type AssignmentRepository interface {
	ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error)
	ListVisibleTo(ctx context.Context, studentID uint) ([]models.Assignment, error)
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment, replaceItems, replaceRecipients bool) error
	SetDispatch(ctx context.Context, id uint, dispatched bool, at *time.Time) error
	Delete(ctx context.Context, id uint) error
}

type assignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository instantiates a GORM-backed repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) withQuestions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Preload("Items.Question").
		Preload("Recipients")
}

func (r *assignmentRepository) ListWithFilter(ctx context.Context, filter AssignmentFilter) ([]models.Assignment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Assignment{})

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	if filter.Mode != "" {
		query = query.Where("mode = ?", filter.Mode)
	}

	if filter.Dispatched != nil {
		query = query.Where("is_dispatched = ?", *filter.Dispatched)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, filter.Page, filter.PageSize)

	var assignments []models.Assignment
	if err := query.
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Preload("Items.Question").
		Preload("Recipients").
		Order("created_at DESC, id DESC").
		Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

// ListVisibleTo returns the dispatched assignments the student is allowed to see.
func (r *assignmentRepository) ListVisibleTo(ctx context.Context, studentID uint) ([]models.Assignment, error) {
	recipients := r.db.Model(&models.AssignmentRecipient{}).
		Select("assignment_id").
		Where("student_id = ?", studentID)

	var assignments []models.Assignment
	if err := r.withQuestions(ctx).
		Where("is_dispatched = ?", true).
		Where("visible_to_all = ? OR id IN (?)", true, recipients).
		Order("due_date IS NULL, due_date ASC, id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.withQuestions(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}

	return assignment, nil
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(assignment).Error; err != nil {
			return err
		}
		if err := createItems(tx, assignment); err != nil {
			return err
		}
		return createRecipients(tx, assignment)
	})
}

func (r *assignmentRepository) Update(ctx context.Context, assignment *models.Assignment, replaceItems, replaceRecipients bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(assignment).Error; err != nil {
			return err
		}

		if replaceItems {
			if err := tx.Where("assignment_id = ?", assignment.ID).Delete(&models.AssignmentQuestion{}).Error; err != nil {
				return err
			}
			if err := createItems(tx, assignment); err != nil {
				return err
			}
		}

		if replaceRecipients {
			if err := tx.Where("assignment_id = ?", assignment.ID).Delete(&models.AssignmentRecipient{}).Error; err != nil {
				return err
			}
			if err := createRecipients(tx, assignment); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *assignmentRepository) SetDispatch(ctx context.Context, id uint, dispatched bool, at *time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_dispatched": dispatched,
			"dispatch_date": at,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the assignment along with its items, recipients and submissions.
func (r *assignmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submissions := tx.Model(&models.Submission{}).Select("id").Where("assignment_id = ?", id)
		if err := tx.Where("submission_id IN (?)", submissions).Delete(&models.SubmissionGradeHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assignment_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assignment_id = ?", id).Delete(&models.AssignmentQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("assignment_id = ?", id).Delete(&models.AssignmentRecipient{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Assignment{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func createItems(tx *gorm.DB, assignment *models.Assignment) error {
	if len(assignment.Items) == 0 {
		return nil
	}
	for i := range assignment.Items {
		assignment.Items[i].AssignmentID = assignment.ID
		assignment.Items[i].Position = i
	}
	return tx.Omit(clause.Associations).Create(&assignment.Items).Error
}

func createRecipients(tx *gorm.DB, assignment *models.Assignment) error {
	if len(assignment.Recipients) == 0 {
		return nil
	}
	for i := range assignment.Recipients {
		assignment.Recipients[i].AssignmentID = assignment.ID
	}
	return tx.Create(&assignment.Recipients).Error
}
