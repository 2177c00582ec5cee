package repository

import (
	"errors"

	"pathway_backend/internal/model"
	"pathway_backend/internal/util"

	"gorm.io/gorm"
)

type CurriculumRepository struct {
	DB *gorm.DB
}

func NewCurriculumRepository(db *gorm.DB) *CurriculumRepository {
	return &CurriculumRepository{DB: db}
}

// LoadAll 读出全部课程数据供快照构建使用
func (r *CurriculumRepository) LoadAll() ([]model.LearningObjective, []model.ContentItem, error) {
	var los []model.LearningObjective
	if err := r.DB.Order("display_order ASC, created_at ASC, id ASC").Find(&los).Error; err != nil {
		return nil, nil, err
	}

	var items []model.ContentItem
	if err := r.DB.Order("display_order ASC, created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, nil, err
	}

	return los, items, nil
}

func (r *CurriculumRepository) CreateObjective(lo *model.LearningObjective) error {
	return r.DB.Create(lo).Error
}

func (r *CurriculumRepository) FindObjectiveByID(id string) (*model.LearningObjective, error) {
	var lo model.LearningObjective
	if err := r.DB.First(&lo, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrObjectiveNotFound
		}
		return nil, err
	}
	return &lo, nil
}

func (r *CurriculumRepository) ListObjectives(subject string) ([]model.LearningObjective, error) {
	var los []model.LearningObjective
	q := r.DB.Order("display_order ASC, created_at ASC, id ASC")
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}
	err := q.Find(&los).Error
	return los, err
}

func (r *CurriculumRepository) UpdateObjective(lo *model.LearningObjective) error {
	return r.DB.Save(lo).Error
}

func (r *CurriculumRepository) DeleteObjective(id string) error {
	return r.DB.Delete(&model.LearningObjective{}, "id = ?", id).Error
}

func (r *CurriculumRepository) CreateContentItem(item *model.ContentItem) error {
	return r.DB.Create(item).Error
}

func (r *CurriculumRepository) FindContentItemByID(id string) (*model.ContentItem, error) {
	var item model.ContentItem
	if err := r.DB.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrContentNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *CurriculumRepository) ListContentItems(page, limit int) ([]model.ContentItem, int64, error) {
	var items []model.ContentItem
	var total int64

	if err := r.DB.Model(&model.ContentItem{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	err := r.DB.Order("display_order ASC, created_at ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

func (r *CurriculumRepository) UpdateContentItem(item *model.ContentItem) error {
	return r.DB.Save(item).Error
}

func (r *CurriculumRepository) DeleteContentItem(id string) error {
	return r.DB.Delete(&model.ContentItem{}, "id = ?", id).Error
}

func (r *CurriculumRepository) CountObjectives() (int64, error) {
	var count int64
	err := r.DB.Model(&model.LearningObjective{}).Count(&count).Error
	return count, err
}
