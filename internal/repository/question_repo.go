package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// QuestionFilter narrows question bank queries.
type QuestionFilter struct {
	Type       string
	Topic      string
	Difficulty string
	Search     string
	Page       int
	PageSize   int
}

// QuestionRepository defines persistence operations for questions.
type QuestionRepository interface {
	List(ctx context.Context, filter QuestionFilter) ([]models.Question, int64, error)
	GetByID(ctx context.Context, id uint) (models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Question, error)
	Create(ctx context.Context, question *models.Question) error
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error
	AssignmentIDs(ctx context.Context, questionID uint) ([]uint, error)
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository instantiates a GORM-backed question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) List(ctx context.Context, filter QuestionFilter) ([]models.Question, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Question{})

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}

	if topic := strings.TrimSpace(filter.Topic); topic != "" {
		// topics is a JSON array of strings; match the quoted element.
		query = query.Where("CAST(topics AS TEXT) LIKE ?", "%\""+topic+"\"%")
	}

	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(content) LIKE ?", pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = paginate(query, filter.Page, filter.PageSize)

	var questions []models.Question
	if err := query.Order("created_at DESC, id DESC").Find(&questions).Error; err != nil {
		return nil, 0, err
	}

	return questions, total, nil
}

func (r *questionRepository) GetByID(ctx context.Context, id uint) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, id).Error; err != nil {
		return models.Question{}, err
	}

	return question, nil
}

func (r *questionRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Question, error) {
	if len(ids) == 0 {
		return []models.Question{}, nil
	}

	var questions []models.Question
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, err
	}

	return questions, nil
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

// Delete removes the question together with every assignment reference to it.
func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.AssignmentQuestion{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Question{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// AssignmentIDs lists the assignments that reference the question.
func (r *questionRepository) AssignmentIDs(ctx context.Context, questionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.AssignmentQuestion{}).
		Where("question_id = ?", questionID).
		Order("assignment_id ASC").
		Pluck("assignment_id", &ids).Error
	return ids, err
}
