package repository

import (
	"errors"

	"pathway_backend/internal/model"
	"pathway_backend/internal/util"

	"gorm.io/gorm"
)

type ProfileRepository struct {
	DB *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{DB: db}
}

// Load 读取档案及其履历。学习者不存在时返回 (nil, nil)，
// 由上层决定是否按首次见到处理。
func (r *ProfileRepository) Load(learnerID string) (*model.LearnerProfile, error) {
	var profile model.LearnerProfile
	err := r.DB.
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&profile, "learner_id = ?", learnerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// Save 乐观并发写入：UPDATE 带上读出时的 version，未命中任何行
// 说明档案已被并发修改，返回 ErrProfileConflict，调用方重读重试。
// 新档案（version 0 且库里不存在）直接插入。
// 同一事务里追加履历新增条目（ID 为零值的即未落库的）。
func (r *ProfileRepository) Save(profile *model.LearnerProfile) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&model.LearnerProfile{}).
			Where("learner_id = ?", profile.LearnerID).
			Count(&exists).Error; err != nil {
			return err
		}

		if exists == 0 {
			profile.Version = 1
			if err := tx.Omit("History").Create(profile).Error; err != nil {
				// 两个首次写入并发时后到的一方撞唯一键，
				// 同样按版本冲突处理，让调用方重读重试
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return util.ErrProfileConflict
				}
				return err
			}
		} else {
			res := tx.Model(&model.LearnerProfile{}).
				Where("learner_id = ? AND version = ?", profile.LearnerID, profile.Version).
				Select("Preferences", "LOStatus", "Version").
				Updates(&model.LearnerProfile{
					Preferences: profile.Preferences,
					LOStatus:    profile.LOStatus,
					Version:     profile.Version + 1,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return util.ErrProfileConflict
			}
			profile.Version++
		}

		for i := range profile.History {
			entry := &profile.History[i]
			if entry.ID != 0 {
				continue
			}
			entry.LearnerID = profile.LearnerID
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// History 分页读取履历，最近的在前
func (r *ProfileRepository) History(learnerID string, page, limit int) ([]model.PerformanceEntry, int64, error) {
	var total int64
	if err := r.DB.Model(&model.PerformanceEntry{}).
		Where("learner_id = ?", learnerID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	var entries []model.PerformanceEntry
	err := r.DB.Where("learner_id = ?", learnerID).
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}
